package cookies

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func newTestResolver(t *testing.T, content string) *Resolver {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cookies.txt")
	if content != "missing" {
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("failed to write cookies file: %v", err)
		}
	}
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	return NewResolver(path, logrus.NewEntry(logger))
}

const validJar = `# Netscape HTTP Cookie File
.youtube.com	TRUE	/	TRUE	1999999999	SID	abc
.youtube.com	TRUE	/	TRUE	1999999999	HSID	def
.google.com	TRUE	/	TRUE	1999999999	NID	ghi
`

func TestValidateFileValid(t *testing.T) {
	v := newTestResolver(t, validJar).ValidateFile()

	assert.True(t, v.Valid)
	assert.Equal(t, 3, v.EntryCount)
	assert.Equal(t, 2, v.SiteEntryCount)
	assert.Empty(t, v.Reason)
}

func TestValidateFileMissing(t *testing.T) {
	v := newTestResolver(t, "missing").ValidateFile()

	assert.False(t, v.Valid)
	assert.Contains(t, v.Reason, "not found")
}

func TestValidateFileEmpty(t *testing.T) {
	v := newTestResolver(t, "").ValidateFile()

	assert.False(t, v.Valid)
	assert.Contains(t, v.Reason, "empty")
}

func TestValidateFileNoRecords(t *testing.T) {
	v := newTestResolver(t, "# just a comment\nnot a cookie line\n").ValidateFile()

	assert.False(t, v.Valid)
	assert.Contains(t, v.Reason, "no cookie records")
	assert.Zero(t, v.EntryCount)
}

func TestValidateFileWrongSite(t *testing.T) {
	jar := ".example.com\tTRUE\t/\tTRUE\t1999999999\tSID\tabc\n"
	v := newTestResolver(t, jar).ValidateFile()

	assert.False(t, v.Valid)
	assert.Contains(t, v.Reason, TargetDomain)
	assert.Equal(t, 1, v.EntryCount)
	assert.Zero(t, v.SiteEntryCount)
}

func TestFileSource(t *testing.T) {
	r := newTestResolver(t, validJar)
	src, ok := r.FileSource()
	assert.True(t, ok)
	assert.Equal(t, SourceFile, src.Kind)
	assert.Equal(t, r.CookiesPath(), src.Path)

	r = newTestResolver(t, "missing")
	_, ok = r.FileSource()
	assert.False(t, ok)
}
