package platform

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"My Video: Part 1/2", "My Video_ Part 1_2"},
		{"  trimmed.  ", "trimmed"},
		{"plain-name", "plain-name"},
		{"a<b>c|d?e*f", "a_b_c_d_e_f"},
	}

	for _, test := range tests {
		if got := SanitizeFilename(test.input); got != test.expected {
			t.Errorf("SanitizeFilename(%q) = %q, expected %q", test.input, got, test.expected)
		}
	}
}

func TestSanitizeFilenameLength(t *testing.T) {
	long := make([]byte, 300)
	for i := range long {
		long[i] = 'a'
	}
	if got := SanitizeFilename(string(long)); len(got) != MaxFilenameLength {
		t.Errorf("expected length %d, got %d", MaxFilenameLength, len(got))
	}
}

func TestEnsureMKVExtension(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"video.mp4", "video.mkv"},
		{"video.mkv", "video.mkv"},
		{"video.MKV", "video.MKV"},
		{"video", "video.mkv"},
	}

	for _, test := range tests {
		if got := EnsureMKVExtension(test.input); got != test.expected {
			t.Errorf("EnsureMKVExtension(%q) = %q, expected %q", test.input, got, test.expected)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		seconds  int
		expected string
	}{
		{0, "Unknown"},
		{59, "00:59"},
		{61, "01:01"},
		{3600, "01:00:00"},
		{3725, "01:02:05"},
	}

	for _, test := range tests {
		if got := FormatDuration(test.seconds); got != test.expected {
			t.Errorf("FormatDuration(%d) = %s, expected %s", test.seconds, got, test.expected)
		}
	}
}

func writeCandidate(t *testing.T, dir, name string, size int) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, make([]byte, size), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestLargestCandidate(t *testing.T) {
	dir := t.TempDir()
	writeCandidate(t, dir, "t1_temp.webm", 120)
	writeCandidate(t, dir, "t1_temp.part", 0)
	want := writeCandidate(t, dir, "t1_temp.mp4", 5000)
	writeCandidate(t, dir, "other_temp.mp4", 9000) // different task

	best, ok, err := LargestCandidate(dir, "t1")
	if err != nil {
		t.Fatalf("LargestCandidate returned error: %v", err)
	}
	if !ok {
		t.Fatal("expected a candidate")
	}
	if best.Path != want || best.Size != 5000 {
		t.Errorf("picked %s (%d bytes), expected %s (5000 bytes)", best.Path, best.Size, want)
	}
}

func TestLargestCandidateZeroBytes(t *testing.T) {
	dir := t.TempDir()
	writeCandidate(t, dir, "t1_temp.mp4", 0)

	_, ok, err := LargestCandidate(dir, "t1")
	if err != nil {
		t.Fatalf("LargestCandidate returned error: %v", err)
	}
	if ok {
		t.Error("zero-byte candidate must not be selected")
	}
}

func TestPurgeCandidatesExcept(t *testing.T) {
	dir := t.TempDir()
	keep := writeCandidate(t, dir, "t1_temp.mp4", 5000)
	drop := writeCandidate(t, dir, "t1_temp.webm", 120)

	if err := PurgeCandidatesExcept(dir, "t1", keep); err != nil {
		t.Fatalf("PurgeCandidatesExcept: %v", err)
	}

	if _, err := os.Stat(keep); err != nil {
		t.Errorf("kept file was removed: %v", err)
	}
	if _, err := os.Stat(drop); !os.IsNotExist(err) {
		t.Error("expected other candidates to be removed")
	}
}

func TestPurgeCandidatesIdempotent(t *testing.T) {
	dir := t.TempDir()
	writeCandidate(t, dir, "t1_temp.mp4", 10)

	if err := PurgeCandidates(dir, "t1"); err != nil {
		t.Fatalf("first purge: %v", err)
	}
	if err := PurgeCandidates(dir, "t1"); err != nil {
		t.Fatalf("second purge must be a no-op, got %v", err)
	}
}
