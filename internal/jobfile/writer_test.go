package jobfile

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedWriter(dir string) *Writer {
	w := NewWriter(dir)
	w.now = func() time.Time { return time.Date(2026, 10, 17, 9, 30, 5, 0, time.UTC) }
	w.suffix = func() string { return "abcd1234" }
	return w
}

func TestWriter_Name(t *testing.T) {
	w := fixedWriter("")

	assert.Equal(t, "job-20261017-093005-0001-abcd1234.xml", w.Name())
	assert.Equal(t, "job-20261017-093005-0002-abcd1234.xml", w.Name())
}

func TestWriter_NameRandomSuffix(t *testing.T) {
	w := NewWriter("")
	name := w.Name()
	assert.Regexp(t, regexp.MustCompile(`^job-\d{8}-\d{6}-0001-[0-9a-f]{8}\.xml$`), name)
}

func TestWriter_WriteSameSecond(t *testing.T) {
	dir := t.TempDir()
	w := fixedWriter(dir)

	first, err := w.Write([]byte("<job>1</job>"))
	require.NoError(t, err)
	second, err := w.Write([]byte("<job>2</job>"))
	require.NoError(t, err)

	assert.NotEqual(t, first, second)

	content, err := os.ReadFile(first)
	require.NoError(t, err)
	assert.Equal(t, "<job>1</job>", string(content))

	content, err = os.ReadFile(second)
	require.NoError(t, err)
	assert.Equal(t, "<job>2</job>", string(content))
}

func TestWriter_NeverOverwrites(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "job-20261017-093005-0001-abcd1234.xml")
	require.NoError(t, os.WriteFile(existing, []byte("keep"), 0644))

	w := fixedWriter(dir)
	_, err := w.Write([]byte("<job/>"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create job file")

	content, err := os.ReadFile(existing)
	require.NoError(t, err)
	assert.Equal(t, "keep", string(content))
}

func TestWriter_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "jobs", "nested")
	w := fixedWriter(dir)

	path, err := w.Write([]byte("<job/>"))
	require.NoError(t, err)
	assert.Equal(t, dir, filepath.Dir(path))
	assert.FileExists(t, path)
}
