package platform

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// File permissions
const (
	DefaultDirPermissions = 0755
)

// Naming constants for task-scoped files
const (
	// TempSuffix separates the task id from the download extension in the
	// working directory, e.g. "abc123def456_temp.mp4".
	TempSuffix = "_temp"

	// OutputExtensionMKV is the container extension of final artifacts.
	OutputExtensionMKV = ".mkv"
)

// Filename constraints
const (
	MaxFilenameLength = 200
)

var invalidFilenameChars = []string{"<", ">", ":", "\"", "/", "\\", "|", "?", "*"}

// Candidate is one downloaded file in the working directory belonging to a
// task. A single download may leave several candidates behind (separate
// audio/video tracks, partial fragments).
type Candidate struct {
	Path string
	Size int64
}

// CreateDirectoryIfNotExists creates directory if it doesn't exist
func CreateDirectoryIfNotExists(dirPath string) error {
	if _, err := os.Stat(dirPath); os.IsNotExist(err) {
		return os.MkdirAll(dirPath, DefaultDirPermissions)
	}
	return nil
}

// TempTemplate returns the yt-dlp output template for a task's intermediate
// download, extension left to the downloader.
func TempTemplate(workDir, taskID string) string {
	return filepath.Join(workDir, taskID+TempSuffix+".%(ext)s")
}

// ListCandidates returns every file in workDir belonging to the task id,
// regular files only.
func ListCandidates(workDir, taskID string) ([]Candidate, error) {
	matches, err := filepath.Glob(filepath.Join(workDir, taskID+TempSuffix+".*"))
	if err != nil {
		return nil, fmt.Errorf("failed to list candidates: %w", err)
	}

	candidates := make([]Candidate, 0, len(matches))
	for _, match := range matches {
		info, err := os.Stat(match)
		if err != nil || info.IsDir() {
			continue
		}
		candidates = append(candidates, Candidate{Path: match, Size: info.Size()})
	}
	return candidates, nil
}

// LargestCandidate picks the biggest downloaded file for the task. A missing
// or zero-byte result is reported through the ok flag, not an error.
func LargestCandidate(workDir, taskID string) (Candidate, bool, error) {
	candidates, err := ListCandidates(workDir, taskID)
	if err != nil {
		return Candidate{}, false, err
	}

	var best Candidate
	for _, c := range candidates {
		if c.Size > best.Size {
			best = c
		}
	}
	if best.Path == "" || best.Size == 0 {
		return Candidate{}, false, nil
	}
	return best, true, nil
}

// PurgeCandidates removes every candidate file for the task id. Missing
// files are not an error, so the purge is idempotent.
func PurgeCandidates(workDir, taskID string) error {
	return purgeCandidates(workDir, taskID, "")
}

// PurgeCandidatesExcept removes every candidate except the chosen one.
func PurgeCandidatesExcept(workDir, taskID, keep string) error {
	return purgeCandidates(workDir, taskID, keep)
}

func purgeCandidates(workDir, taskID, keep string) error {
	candidates, err := ListCandidates(workDir, taskID)
	if err != nil {
		return err
	}
	for _, c := range candidates {
		if keep != "" && c.Path == keep {
			continue
		}
		if err := os.Remove(c.Path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove %s: %w", c.Path, err)
		}
	}
	return nil
}

// SanitizeFilename replaces characters that are unsafe on common filesystems
// and bounds the name length.
func SanitizeFilename(name string) string {
	for _, ch := range invalidFilenameChars {
		name = strings.ReplaceAll(name, ch, "_")
	}
	name = strings.Trim(name, " .")
	if len(name) > MaxFilenameLength {
		name = name[:MaxFilenameLength]
	}
	return name
}

// EnsureMKVExtension swaps whatever extension the name carries for .mkv.
func EnsureMKVExtension(name string) string {
	if strings.HasSuffix(strings.ToLower(name), OutputExtensionMKV) {
		return name
	}
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	return base + OutputExtensionMKV
}

// FormatDuration formats seconds as HH:MM:SS, or MM:SS for durations under
// an hour. Zero means the duration is unknown.
func FormatDuration(seconds int) string {
	if seconds <= 0 {
		return "Unknown"
	}

	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	secs := seconds % 60

	if hours > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, secs)
	}
	return fmt.Sprintf("%02d:%02d", minutes, secs)
}
