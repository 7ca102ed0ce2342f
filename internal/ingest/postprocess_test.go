package ingest

import (
	"compress/gzip"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/eg-eng/logstash-input-s3/internal/storage/memory"
)

func TestDecideRelocationCoversAllCombinations(t *testing.T) {
	cases := []struct {
		hasBackupBucket bool
		deleteSource    bool
		want            Relocation
	}{
		{false, false, RelocationNone},
		{true, false, RelocationCopy},
		{false, true, RelocationDelete},
		{true, true, RelocationMove},
	}

	for _, c := range cases {
		got := DecideRelocation(c.hasBackupBucket, c.deleteSource)
		if got != c.want {
			t.Fatalf("DecideRelocation(%v, %v) = %s, want %s",
				c.hasBackupBucket, c.deleteSource, got, c.want)
		}
	}
}

func putSource(t *testing.T, store *memory.Store, key string) {
	t.Helper()
	store.Put(key, []byte("line\n"), time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC))
}

func TestRunMoveRemovesSource(t *testing.T) {
	store := memory.New("logs")
	putSource(t, store, "incoming/a.log")

	pp := NewPostProcessor(store, BackupPolicy{Bucket: "archive", KeyPrefix: "done/", Delete: true})
	if err := pp.Run(context.Background(), "incoming/a.log", ""); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if keys := store.Objects("logs"); len(keys) != 0 {
		t.Fatalf("source must not remain after move, still have %v", keys)
	}
	if keys := store.Objects("archive"); len(keys) != 1 || keys[0] != "done/incoming/a.log" {
		t.Fatalf("expected relocated object at prefixed key, got %v", keys)
	}
}

func TestRunCopyKeepsSource(t *testing.T) {
	store := memory.New("logs")
	putSource(t, store, "incoming/a.log")

	pp := NewPostProcessor(store, BackupPolicy{Bucket: "archive"})
	if err := pp.Run(context.Background(), "incoming/a.log", ""); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if keys := store.Objects("logs"); len(keys) != 1 {
		t.Fatalf("copy must retain the source, got %v", keys)
	}
	if keys := store.Objects("archive"); len(keys) != 1 || keys[0] != "incoming/a.log" {
		t.Fatalf("expected copy at original key, got %v", keys)
	}
}

func TestRunDeleteWithoutBackupBucket(t *testing.T) {
	store := memory.New("logs")
	putSource(t, store, "incoming/a.log")

	pp := NewPostProcessor(store, BackupPolicy{Delete: true})
	if err := pp.Run(context.Background(), "incoming/a.log", ""); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if keys := store.Objects("logs"); len(keys) != 0 {
		t.Fatalf("delete-only policy must remove the source, got %v", keys)
	}
}

func TestRunNoopLeavesSourceUntouched(t *testing.T) {
	store := memory.New("logs")
	putSource(t, store, "incoming/a.log")

	pp := NewPostProcessor(store, BackupPolicy{})
	if err := pp.Run(context.Background(), "incoming/a.log", ""); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if keys := store.Objects("logs"); len(keys) != 1 {
		t.Fatalf("no policy must leave the source alone, got %v", keys)
	}
}

func TestRunMirrorsLocalFile(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(t.TempDir(), "spool")
	if err := os.WriteFile(srcPath, []byte("payload\n"), 0o644); err != nil {
		t.Fatalf("write spool: %v", err)
	}

	store := memory.New("logs")
	putSource(t, store, "incoming/a.log")

	pp := NewPostProcessor(store, BackupPolicy{Dir: dir})
	if err := pp.Run(context.Background(), "incoming/a.log", srcPath); err != nil {
		t.Fatalf("Run: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "incoming", "a.log"))
	if err != nil {
		t.Fatalf("read mirror: %v", err)
	}
	if string(data) != "payload\n" {
		t.Fatalf("mirror content mismatch: %q", data)
	}
}

func TestRunMirrorCompresses(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(t.TempDir(), "spool")
	if err := os.WriteFile(srcPath, []byte("payload\n"), 0o644); err != nil {
		t.Fatalf("write spool: %v", err)
	}

	store := memory.New("logs")
	pp := NewPostProcessor(store, BackupPolicy{Dir: dir, DirCompress: true})
	if err := pp.Run(context.Background(), "incoming/a.log", srcPath); err != nil {
		t.Fatalf("Run: %v", err)
	}

	f, err := os.Open(filepath.Join(dir, "incoming", "a.log.gz"))
	if err != nil {
		t.Fatalf("open mirror: %v", err)
	}
	defer f.Close()

	gr, err := gzip.NewReader(f)
	if err != nil {
		t.Fatalf("gzip reader: %v", err)
	}
	data, err := io.ReadAll(gr)
	if err != nil {
		t.Fatalf("read gzip: %v", err)
	}
	if string(data) != "payload\n" {
		t.Fatalf("compressed mirror content mismatch: %q", data)
	}
}

func TestRunMirrorSkippedWhenNoLocalFile(t *testing.T) {
	dir := t.TempDir()
	store := memory.New("logs")

	pp := NewPostProcessor(store, BackupPolicy{Dir: dir})
	if err := pp.Run(context.Background(), "incoming/a.log", ""); err != nil {
		t.Fatalf("Run with no local file must be a no-op, got %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty mirror dir, got %d entries", len(entries))
	}
}
