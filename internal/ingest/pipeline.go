// Package ingest runs the per-object processing pipeline: fetch, decompress,
// decode, emit, post-process, advance the checkpoint.
package ingest

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/eg-eng/logstash-input-s3/internal/codec"
	"github.com/eg-eng/logstash-input-s3/internal/compression"
	"github.com/eg-eng/logstash-input-s3/internal/sink"
	"github.com/eg-eng/logstash-input-s3/internal/storage"
)

// Fetcher is the slice of the object store the pipeline reads through.
type Fetcher interface {
	ReadStream(ctx context.Context, key string) (io.ReadCloser, error)
}

// CheckpointWriter advances the watermark after an object fully succeeds.
type CheckpointWriter interface {
	Write(t time.Time) error
}

type Options struct {
	Bucket     string
	Codec      codec.Codec
	Sink       sink.Sink
	Checkpoint CheckpointWriter
	Post       *PostProcessor // optional
	Logger     *logrus.Entry
}

type Pipeline struct {
	fetcher Fetcher
	opts    Options
	log     *logrus.Entry
}

func New(fetcher Fetcher, opts Options) *Pipeline {
	log := opts.Logger
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Pipeline{fetcher: fetcher, opts: opts, log: log}
}

// ProcessAll runs the pipeline over each candidate in listing order. A
// failing object is logged and skipped without advancing its checkpoint;
// the rest of the cycle continues (fail-forward, not fail-fast).
func (p *Pipeline) ProcessAll(ctx context.Context, objs []storage.Object) (processed, failed int) {
	for _, obj := range objs {
		if err := p.processOne(ctx, obj); err != nil {
			p.log.WithFields(logrus.Fields{
				"key":   obj.Key,
				"error": err,
			}).Error("object processing failed, continuing with next candidate")
			failed++
			continue
		}
		processed++
	}
	return processed, failed
}

func (p *Pipeline) processOne(ctx context.Context, obj storage.Object) error {
	rc, err := p.fetcher.ReadStream(ctx, obj.Key)
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}
	defer rc.Close()

	var src io.Reader = rc
	localPath := ""

	if p.opts.Post != nil && p.opts.Post.NeedsLocalCopy() {
		f, err := os.CreateTemp("", "s3ingest-*.part")
		if err != nil {
			return fmt.Errorf("spool temp: %w", err)
		}
		defer os.Remove(f.Name())
		defer f.Close()

		if _, err := io.Copy(f, rc); err != nil {
			return fmt.Errorf("spool %q: %w", obj.Key, err)
		}
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return fmt.Errorf("spool rewind: %w", err)
		}
		src = f
		localPath = f.Name()
	}

	var closers closeStack
	r := src
	if compression.IsCompressed(obj.Key) {
		r = gunzipReader(src, &closers)
	}

	err = p.opts.Codec.Decode(r, func(payload []byte) error {
		return p.opts.Sink.Emit(ctx, sink.Record{
			Bucket:       p.opts.Bucket,
			Key:          obj.Key,
			LastModified: obj.LastModified,
			Payload:      string(payload),
		})
	})
	closers.closeAll()
	if err != nil {
		return fmt.Errorf("decode: %w", err)
	}

	if p.opts.Post != nil {
		if err := p.opts.Post.Run(ctx, obj.Key, localPath); err != nil {
			return fmt.Errorf("post-process: %w", err)
		}
	}

	if err := p.opts.Checkpoint.Write(obj.LastModified); err != nil {
		return fmt.Errorf("advance checkpoint: %w", err)
	}

	p.log.WithField("key", obj.Key).Debug("object processed")
	return nil
}

type closeStack []io.Closer

func (cs *closeStack) add(c io.Closer) {
	*cs = append(*cs, c)
}

func (cs closeStack) closeAll() {
	for i := len(cs) - 1; i >= 0; i-- {
		_ = cs[i].Close()
	}
}

func gunzipReader(src io.Reader, closers *closeStack) io.Reader {
	pr, pw := io.Pipe()
	closers.add(pr)

	go func() {
		_, err := compression.Gunzip(pw, src)
		_ = pw.CloseWithError(err)
	}()

	return pr
}
