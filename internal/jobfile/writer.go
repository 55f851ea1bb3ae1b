package jobfile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

const timestampLayout = "20060102-150405"

// Writer persists rendered job documents under Dir. Files are never
// overwritten or removed.
type Writer struct {
	Dir string

	now    func() time.Time
	suffix func() string
	seq    int
}

// NewWriter creates a writer for dir. An empty dir means the working directory.
func NewWriter(dir string) *Writer {
	return &Writer{
		Dir:    dir,
		now:    time.Now,
		suffix: randomSuffix,
	}
}

func randomSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// Name returns the next file name: job-<timestamp>-<seq>-<random>.xml
func (w *Writer) Name() string {
	w.seq++
	return fmt.Sprintf("job-%s-%04d-%s.xml", w.now().Format(timestampLayout), w.seq, w.suffix())
}

// Write stores doc in a new file and returns its path
func (w *Writer) Write(doc []byte) (string, error) {
	if w.Dir != "" {
		if err := os.MkdirAll(w.Dir, 0755); err != nil {
			return "", fmt.Errorf("failed to create job directory: %w", err)
		}
	}

	path := filepath.Join(w.Dir, w.Name())

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return "", fmt.Errorf("failed to create job file: %w", err)
	}

	if _, err := f.Write(doc); err != nil {
		f.Close()
		return "", fmt.Errorf("failed to write job file %s: %w", path, err)
	}

	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close job file %s: %w", path, err)
	}

	return path, nil
}
