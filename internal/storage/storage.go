package storage

import (
	"context"
	"io"
	"time"
)

// Object is an immutable snapshot of a remote object taken at listing time.
// It may be stale by the time the object is fetched.
type Object struct {
	Key          string
	LastModified time.Time
	Size         int64
}

// ObjectStore is the bucket-style store the engine ingests from. Keys are
// relative to the store's configured bucket; Copy and Move take an explicit
// destination bucket so relocation can cross buckets.
type ObjectStore interface {
	List(ctx context.Context, prefix string) ([]Object, error)
	Read(ctx context.Context, key string) ([]byte, error)
	ReadStream(ctx context.Context, key string) (io.ReadCloser, error)
	Copy(ctx context.Context, key, destBucket, destKey string) error
	// Move is copy followed by delete of the source; not transactional.
	Move(ctx context.Context, key, destBucket, destKey string) error
	Delete(ctx context.Context, key string) error
	BucketExists(ctx context.Context, name string) (bool, error)
	CreateBucket(ctx context.Context, name string) error
}
