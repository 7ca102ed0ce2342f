// Package checkpoint persists the last-processed-timestamp watermark that
// bounds reprocessing. One file holds one RFC3339 timestamp for one
// (bucket, prefix, executor) scope; the engine treats that file as owned
// exclusively by its executor identity.
package checkpoint

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
)

type Store struct {
	path string
}

func New(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Path() string { return s.path }

// DefaultPath derives a per-scope file under baseDir so two engines with
// different buckets, prefixes or executor identities never share a watermark.
func DefaultPath(baseDir, bucket, prefix string, executorID int) string {
	scope := fmt.Sprintf("%s\x00%s\x00%d", bucket, prefix, executorID)
	return filepath.Join(baseDir, fmt.Sprintf("sincedb_%016x", xxhash.Sum64String(scope)))
}

// Read returns the persisted watermark. A missing, empty or unparseable file
// degrades to the Unix epoch so the engine processes everything; it is never
// an error.
func (s *Store) Read() time.Time {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return time.Unix(0, 0).UTC()
	}

	t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(string(data)))
	if err != nil {
		return time.Unix(0, 0).UTC()
	}
	return t.UTC()
}

// IsNewer reports whether t is strictly past the persisted watermark.
func (s *Store) IsNewer(t time.Time) bool {
	return t.After(s.Read())
}

// Write overwrites the watermark atomically. A zero t defaults to now.
// Monotonicity is the caller's concern; an older value simply replaces the
// newer one.
func (s *Store) Write(t time.Time) error {
	if t.IsZero() {
		t = time.Now().UTC()
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("checkpoint mkdir: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(t.UTC().Format(time.RFC3339Nano)+"\n"), 0o644); err != nil {
		return fmt.Errorf("checkpoint write: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("checkpoint rename: %w", err)
	}
	return nil
}
