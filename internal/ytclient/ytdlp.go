package ytclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/hevcd/hevcd/internal/cookies"
)

// yt-dlp invocation constants
const (
	DefaultBinary = "yt-dlp"

	// ageGateExtractorArgs switches the extraction client to one that skips
	// the age gate.
	ageGateExtractorArgs = "youtube:player_client=tv_embedded"

	// stderrTailLimit bounds how much tool output gets wrapped into errors.
	stderrTailLimit = 600
)

// CLIRunner drives the yt-dlp binary as a subprocess.
type CLIRunner struct {
	binary string
	logger *logrus.Entry
}

// NewCLIRunner creates a runner around the yt-dlp binary found on PATH.
func NewCLIRunner(logger *logrus.Entry) *CLIRunner {
	return &CLIRunner{
		binary: DefaultBinary,
		logger: logger.WithField("svc", "ytdlp"),
	}
}

// Extract fetches video metadata as a single JSON document.
func (r *CLIRunner) Extract(ctx context.Context, url string, opts RequestOptions) (*Metadata, error) {
	args := []string{
		"--dump-single-json",
		"--skip-download",
		"--no-playlist",
		"--no-warnings",
		"--quiet",
	}
	args = append(args, commonArgs(opts)...)
	args = append(args, url)

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, r.binary, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.logger.Debugf("Extracting metadata for %s", url)
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("yt-dlp extract failed: %v: %s", err, tail(stderr.String()))
	}

	var meta Metadata
	if err := json.Unmarshal(stdout.Bytes(), &meta); err != nil {
		return nil, fmt.Errorf("yt-dlp returned malformed metadata: %w", err)
	}
	return &meta, nil
}

// Download fetches media to the output template from the options bag.
func (r *CLIRunner) Download(ctx context.Context, url string, opts RequestOptions) error {
	args := []string{
		"--no-playlist",
		"--no-warnings",
		"--no-progress",
		"--quiet",
	}
	if opts.Format != "" {
		args = append(args, "-f", opts.Format)
	}
	if opts.OutputTemplate != "" {
		args = append(args, "-o", opts.OutputTemplate)
	}
	if opts.MergeFormat != "" {
		args = append(args, "--merge-output-format", opts.MergeFormat)
	}
	args = append(args, commonArgs(opts)...)
	args = append(args, url)

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, r.binary, args...)
	cmd.Stderr = &stderr

	r.logger.Debugf("Downloading media for %s", url)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("yt-dlp download failed: %v: %s", err, tail(stderr.String()))
	}
	return nil
}

// commonArgs maps the request-shaping options to yt-dlp flags.
func commonArgs(opts RequestOptions) []string {
	var args []string

	switch opts.Credentials.Kind {
	case cookies.SourceFile:
		args = append(args, "--cookies", opts.Credentials.Path)
	case cookies.SourceBrowser:
		args = append(args, "--cookies-from-browser", opts.Credentials.Browser)
	}

	if opts.UserAgent != "" {
		args = append(args, "--user-agent", opts.UserAgent)
	}
	for _, h := range opts.Headers {
		args = append(args, "--add-headers", h)
	}
	if opts.SleepRequests > 0 {
		args = append(args, "--sleep-requests", strconv.FormatFloat(opts.SleepRequests, 'f', -1, 64))
	}
	if opts.GeoBypassCountry != "" {
		args = append(args, "--geo-bypass-country", opts.GeoBypassCountry)
	}
	if opts.BypassAgeGate {
		args = append(args, "--extractor-args", ageGateExtractorArgs)
	}
	return args
}

func tail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > stderrTailLimit {
		s = s[len(s)-stderrTailLimit:]
	}
	return s
}
