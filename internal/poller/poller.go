// Package poller drives the engine: one discovery-and-processing cycle,
// then a fixed sleep, repeated until shutdown.
package poller

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/eg-eng/logstash-input-s3/internal/storage"
)

// Lister produces this cycle's candidates.
type Lister interface {
	Candidates(ctx context.Context, now time.Time) ([]storage.Object, error)
}

// Assigner filters candidates down to this executor's share.
type Assigner interface {
	IsLocal(key string) bool
}

// Processor runs the ingestion pipeline over the local candidates.
type Processor interface {
	ProcessAll(ctx context.Context, objs []storage.Object) (processed, failed int)
}

type Options struct {
	Interval time.Duration
	DryRun   bool
	Logger   *logrus.Entry
}

type Poller struct {
	lister    Lister
	assigner  Assigner
	processor Processor
	opts      Options
	log       *logrus.Entry
}

func New(l Lister, a Assigner, p Processor, opts Options) *Poller {
	log := opts.Logger
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Poller{lister: l, assigner: a, processor: p, opts: opts, log: log}
}

// Run repeats cycles until ctx is done. Shutdown is honored at the sleep
// boundary; an in-flight cycle always runs to completion. A failing cycle is
// logged and retried on the next interval.
func (p *Poller) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			p.log.Info("shutdown requested")
			return nil
		default:
		}

		if err := p.RunOnce(ctx); err != nil {
			p.log.WithField("error", err).Error("cycle failed, will retry next interval")
		}

		sleepUntilNextPoll(ctx, p.opts.Interval)
	}
}

// RunOnce performs a single discovery-and-processing cycle.
func (p *Poller) RunOnce(ctx context.Context) error {
	objs, err := p.lister.Candidates(ctx, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("discover candidates: %w", err)
	}

	local := objs[:0:0]
	for _, obj := range objs {
		if p.assigner.IsLocal(obj.Key) {
			local = append(local, obj)
		}
	}

	if p.opts.DryRun {
		for _, obj := range local {
			p.log.WithFields(logrus.Fields{
				"key":           obj.Key,
				"last_modified": obj.LastModified.Format(time.RFC3339),
				"size":          obj.Size,
			}).Info("dry run: would process")
		}
		return nil
	}

	if len(local) == 0 {
		p.log.Debug("no local candidates this cycle")
		return nil
	}

	processed, failed := p.processor.ProcessAll(ctx, local)
	p.log.WithFields(logrus.Fields{
		"candidates": len(local),
		"processed":  processed,
		"failed":     failed,
	}).Info("cycle complete")
	return nil
}

func sleepUntilNextPoll(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
