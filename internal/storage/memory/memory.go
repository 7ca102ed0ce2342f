// Package memory holds an in-memory ObjectStore used by tests and local
// experiments. Objects live in per-bucket maps; relocation across buckets
// works the same way it does against a real store.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/eg-eng/logstash-input-s3/internal/storage"
)

type object struct {
	data         []byte
	lastModified time.Time
}

type Store struct {
	mu      sync.Mutex
	bucket  string
	buckets map[string]map[string]object
}

func New(bucket string) *Store {
	return &Store{
		bucket:  bucket,
		buckets: map[string]map[string]object{bucket: {}},
	}
}

func (s *Store) Put(key string, data []byte, lastModified time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buckets[s.bucket][key] = object{data: append([]byte(nil), data...), lastModified: lastModified}
}

// Objects returns the keys currently present in the named bucket, sorted.
func (s *Store) Objects(bucket string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.buckets[bucket]))
	for k := range s.buckets[bucket] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (s *Store) List(_ context.Context, prefix string) ([]storage.Object, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []storage.Object
	for k, o := range s.buckets[s.bucket] {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		out = append(out, storage.Object{Key: k, LastModified: o.lastModified, Size: int64(len(o.data))})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (s *Store) Read(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.buckets[s.bucket][key]
	if !ok {
		return nil, fmt.Errorf("memory: no such key %q", key)
	}
	return append([]byte(nil), o.data...), nil
}

func (s *Store) ReadStream(ctx context.Context, key string) (io.ReadCloser, error) {
	data, err := s.Read(ctx, key)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *Store) Copy(_ context.Context, key, destBucket, destKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.buckets[s.bucket][key]
	if !ok {
		return fmt.Errorf("memory: no such key %q", key)
	}
	if s.buckets[destBucket] == nil {
		s.buckets[destBucket] = map[string]object{}
	}
	s.buckets[destBucket][destKey] = object{data: append([]byte(nil), o.data...), lastModified: o.lastModified}
	return nil
}

func (s *Store) Move(ctx context.Context, key, destBucket, destKey string) error {
	if err := s.Copy(ctx, key, destBucket, destKey); err != nil {
		return err
	}
	return s.Delete(ctx, key)
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.buckets[s.bucket], key)
	return nil
}

func (s *Store) BucketExists(_ context.Context, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.buckets[name]
	return ok, nil
}

func (s *Store) CreateBucket(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.buckets[name] == nil {
		s.buckets[name] = map[string]object{}
	}
	return nil
}
