package cookies

import (
	"bufio"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// SourceKind tags the credential variant in use for one attempt.
type SourceKind string

const (
	SourceNone    SourceKind = "none"
	SourceFile    SourceKind = "file"
	SourceBrowser SourceKind = "browser"
)

// Source describes where the credentials for an attempt come from.
type Source struct {
	Kind    SourceKind
	Path    string // set for SourceFile
	Browser string // set for SourceBrowser
}

// Cookie jar structure
const (
	// MinJarFields is the minimum tab-separated field count of a Netscape
	// cookie record (domain, flag, path, secure, expiry, name[, value]).
	MinJarFields = 6

	// TargetDomain is the site whose cookies actually matter here.
	TargetDomain = "youtube.com"
)

// browserBinaries maps executables probed on PATH to the credential-store
// names understood by the fetch capability.
var browserBinaries = map[string]string{
	"google-chrome":         "chrome",
	"google-chrome-stable":  "chrome",
	"chromium":              "chromium",
	"chromium-browser":      "chromium",
	"firefox":               "firefox",
	"microsoft-edge":        "edge",
	"microsoft-edge-stable": "edge",
	"opera":                 "opera",
	"brave-browser":         "brave",
}

// profileDirs maps per-user profile directories (relative to the home
// directory) to store names, for browsers installed outside PATH.
var profileDirs = map[string]string{
	".config/google-chrome":  "chrome",
	".config/chromium":       "chromium",
	".mozilla/firefox":       "firefox",
	".config/microsoft-edge": "edge",
}

// Preference order when several stores are detected.
var storePriority = []string{"chrome", "chromium", "firefox", "edge", "opera", "brave"}

// Validation is the structural check result for an uploaded cookie jar.
// A negative result is not an error; Reason says what is wrong.
type Validation struct {
	Valid          bool   `json:"valid"`
	Reason         string `json:"reason,omitempty"`
	EntryCount     int    `json:"entryCount"`
	SiteEntryCount int    `json:"siteSpecificEntryCount"`
}

// Resolver locates usable credentials for extraction and download attempts.
type Resolver struct {
	cookiesPath string
	logger      *logrus.Entry
}

// NewResolver creates a resolver around the well-known cookie file path.
func NewResolver(cookiesPath string, logger *logrus.Entry) *Resolver {
	return &Resolver{
		cookiesPath: cookiesPath,
		logger:      logger.WithField("svc", "cookies"),
	}
}

// CookiesPath returns the well-known cookie file path.
func (r *Resolver) CookiesPath() string {
	return r.cookiesPath
}

// DetectBrowserStores probes the local environment for browsers whose saved
// credentials the fetch capability can read. Best effort: no store at all is
// a valid empty result.
func (r *Resolver) DetectBrowserStores() []string {
	found := map[string]bool{}

	for binary, store := range browserBinaries {
		if _, err := exec.LookPath(binary); err == nil {
			found[store] = true
		}
	}

	if home, err := os.UserHomeDir(); err == nil {
		for dir, store := range profileDirs {
			if info, err := os.Stat(filepath.Join(home, dir)); err == nil && info.IsDir() {
				found[store] = true
			}
		}
	}

	stores := make([]string, 0, len(found))
	for _, name := range storePriority {
		if found[name] {
			stores = append(stores, name)
		}
	}
	r.logger.Debugf("Detected browser credential stores: %v", stores)
	return stores
}

// Resolve picks the credential source for an attempt: a detected browser
// store first, then a valid uploaded cookie file, then none.
func (r *Resolver) Resolve() Source {
	if stores := r.DetectBrowserStores(); len(stores) > 0 {
		return Source{Kind: SourceBrowser, Browser: stores[0]}
	}
	if r.ValidateFile().Valid {
		return Source{Kind: SourceFile, Path: r.cookiesPath}
	}
	return Source{Kind: SourceNone}
}

// FileSource returns the uploaded cookie file as a source when it validates,
// ok=false otherwise.
func (r *Resolver) FileSource() (Source, bool) {
	if !r.ValidateFile().Valid {
		return Source{Kind: SourceNone}, false
	}
	return Source{Kind: SourceFile, Path: r.cookiesPath}, true
}

// HasCredentials reports whether any credential source is available.
func (r *Resolver) HasCredentials() bool {
	return r.Resolve().Kind != SourceNone
}

// ValidateFile checks the uploaded cookie jar for structural correctness:
// the file exists, is non-empty, contains tab-delimited records, and at
// least one record belongs to the target site.
func (r *Resolver) ValidateFile() Validation {
	file, err := os.Open(r.cookiesPath)
	if err != nil {
		return Validation{Valid: false, Reason: "cookies file not found"}
	}
	defer file.Close()

	if info, err := file.Stat(); err == nil && info.Size() == 0 {
		return Validation{Valid: false, Reason: "cookies file is empty"}
	}

	var entries, siteEntries int
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < MinJarFields {
			continue
		}
		entries++
		if strings.Contains(fields[0], TargetDomain) {
			siteEntries++
		}
	}
	if err := scanner.Err(); err != nil {
		return Validation{Valid: false, Reason: "cookies file is not readable"}
	}

	switch {
	case entries == 0:
		return Validation{Valid: false, Reason: "no cookie records found (expected Netscape format)"}
	case siteEntries == 0:
		return Validation{
			Valid:      false,
			Reason:     "no " + TargetDomain + " cookies found",
			EntryCount: entries,
		}
	default:
		return Validation{Valid: true, EntryCount: entries, SiteEntryCount: siteEntries}
	}
}
