package local

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Mirror writes files under a base directory with atomic tmp+rename
// semantics, so a crashed copy never leaves a partial file at the final key.
type Mirror struct {
	base string
}

func New(basePath string) *Mirror {
	return &Mirror{base: basePath}
}

func (m *Mirror) BasePath() string { return m.base }

func (m *Mirror) OpenWriter(key string) (io.WriteCloser, string, error) {
	finalPath := filepath.Join(m.base, filepath.FromSlash(key))

	if err := os.MkdirAll(filepath.Dir(finalPath), 0o755); err != nil {
		return nil, "", fmt.Errorf("mkdir: %w", err)
	}

	tmpPath := finalPath + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return nil, "", fmt.Errorf("create temp: %w", err)
	}

	return &Writer{f: f, tmpPath: tmpPath, finalPath: finalPath}, finalPath, nil
}

type Writer struct {
	f         *os.File
	tmpPath   string
	finalPath string
	closed    bool
}

func (w *Writer) Write(p []byte) (int, error) { return w.f.Write(p) }

func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	if err := w.f.Close(); err != nil {
		_ = os.Remove(w.tmpPath)
		return err
	}
	if err := os.Rename(w.tmpPath, w.finalPath); err != nil {
		_ = os.Remove(w.tmpPath)
		return err
	}
	return nil
}
