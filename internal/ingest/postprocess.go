package ingest

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/eg-eng/logstash-input-s3/internal/compression"
	"github.com/eg-eng/logstash-input-s3/internal/storage/local"
)

// Relocation is what happens to a source object after successful delivery.
type Relocation int

const (
	RelocationNone Relocation = iota
	RelocationCopy
	RelocationMove
	RelocationDelete
)

func (r Relocation) String() string {
	switch r {
	case RelocationCopy:
		return "copy"
	case RelocationMove:
		return "move"
	case RelocationDelete:
		return "delete"
	default:
		return "none"
	}
}

// DecideRelocation covers all four (backup bucket, delete) combinations.
// Delete together with a backup bucket must be a move so the object cannot
// survive in both places.
func DecideRelocation(hasBackupBucket, deleteSource bool) Relocation {
	switch {
	case hasBackupBucket && deleteSource:
		return RelocationMove
	case hasBackupBucket:
		return RelocationCopy
	case deleteSource:
		return RelocationDelete
	default:
		return RelocationNone
	}
}

// Relocator is the slice of the object store post-processing needs.
type Relocator interface {
	Copy(ctx context.Context, key, destBucket, destKey string) error
	Move(ctx context.Context, key, destBucket, destKey string) error
	Delete(ctx context.Context, key string) error
}

// BackupPolicy describes where successfully processed objects go.
type BackupPolicy struct {
	Bucket      string // remote backup destination; empty disables relocation
	KeyPrefix   string // prepended to the original key at the destination
	Dir         string // local mirror directory; empty disables the mirror
	DirCompress bool   // gzip the local mirror copy
	Delete      bool   // remove the source after delivery
}

// PostProcessor applies a BackupPolicy after an object has been delivered.
// Side effects are at least once: a crash between relocation and checkpoint
// advance replays them on the next cycle.
type PostProcessor struct {
	store  Relocator
	policy BackupPolicy
}

func NewPostProcessor(store Relocator, policy BackupPolicy) *PostProcessor {
	return &PostProcessor{store: store, policy: policy}
}

// NeedsLocalCopy reports whether the pipeline must materialize each object
// to a local file so the mirror has something to copy.
func (pp *PostProcessor) NeedsLocalCopy() bool {
	return pp.policy.Dir != ""
}

// Run relocates and/or deletes the source object. localPath points at the
// materialized local copy, or is empty when processing was purely streamed
// (the mirror is then a no-op).
func (pp *PostProcessor) Run(ctx context.Context, key, localPath string) error {
	if pp.policy.Dir != "" && localPath != "" {
		if err := pp.mirror(key, localPath); err != nil {
			return fmt.Errorf("mirror %q: %w", key, err)
		}
	}

	switch DecideRelocation(pp.policy.Bucket != "", pp.policy.Delete) {
	case RelocationCopy:
		return pp.store.Copy(ctx, key, pp.policy.Bucket, pp.policy.KeyPrefix+key)
	case RelocationMove:
		return pp.store.Move(ctx, key, pp.policy.Bucket, pp.policy.KeyPrefix+key)
	case RelocationDelete:
		return pp.store.Delete(ctx, key)
	default:
		return nil
	}
}

func (pp *PostProcessor) mirror(key, localPath string) error {
	src, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer src.Close()

	destKey := key
	if pp.policy.DirCompress && !compression.IsCompressed(key) {
		destKey += ".gz"
	}

	w, _, err := local.New(pp.policy.Dir).OpenWriter(destKey)
	if err != nil {
		return err
	}

	if pp.policy.DirCompress && !compression.IsCompressed(key) {
		if _, err := compression.Gzip(w, src); err != nil {
			_ = w.Close()
			return err
		}
	} else {
		if _, err := io.Copy(w, src); err != nil {
			_ = w.Close()
			return err
		}
	}
	return w.Close()
}
