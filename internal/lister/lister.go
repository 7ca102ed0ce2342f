// Package lister discovers candidate objects for one ingestion cycle:
// prefix-window expansion, checkpoint filtering, exclusion rules and
// deterministic ordering.
package lister

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/eg-eng/logstash-input-s3/internal/storage"
)

// DatePlaceholder is the token in a configured prefix that expands to a
// concrete YYYYMMDD day.
const DatePlaceholder = "%YYYYMMDD%"

// Mode is the lister's discovery mode. Backfill lists the explicit start
// date's prefix once, then the lister permanently transitions to rolling
// mode; the configuration itself is never mutated.
type Mode int

const (
	ModeRolling Mode = iota
	ModeBackfill
)

func (m Mode) String() string {
	if m == ModeBackfill {
		return "backfill"
	}
	return "rolling"
}

// Source is the slice of the object store the lister needs.
type Source interface {
	List(ctx context.Context, prefix string) ([]storage.Object, error)
}

// CheckpointReader reports the current watermark.
type CheckpointReader interface {
	Read() time.Time
}

// Exclusion drops keys the engine must not process: anything this process
// wrote back into the source bucket as a backup, and anything matching the
// configured pattern.
type Exclusion struct {
	// BackupPrefix is set only when the backup destination is the source
	// bucket itself.
	BackupPrefix string
	Pattern      *regexp.Regexp
}

func (e Exclusion) Excludes(key string) bool {
	if e.BackupPrefix != "" && strings.HasPrefix(key, e.BackupPrefix) {
		return true
	}
	if e.Pattern != nil && e.Pattern.MatchString(key) {
		return true
	}
	return false
}

type Options struct {
	Prefix    string
	StartDate time.Time // zero when no backfill is configured
	EndDate   time.Time // zero when the window never closes
	Exclusion Exclusion
	Logger    *logrus.Entry
}

type Lister struct {
	source Source
	mark   CheckpointReader
	opts   Options
	mode   Mode
	log    *logrus.Entry
}

func New(source Source, mark CheckpointReader, opts Options) *Lister {
	mode := ModeRolling
	if !opts.StartDate.IsZero() {
		mode = ModeBackfill
	}
	log := opts.Logger
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Lister{source: source, mark: mark, opts: opts, mode: mode, log: log}
}

func (l *Lister) Mode() Mode { return l.mode }

// Candidates produces this cycle's work: not-yet-processed, not-excluded
// objects under the active prefix window, ascending by last-modified with
// key order breaking ties. An empty result is normal.
func (l *Lister) Candidates(ctx context.Context, now time.Time) ([]storage.Object, error) {
	prefixes := l.cyclePrefixes(now)
	mark := l.mark.Read()
	seen := make(map[string]struct{})
	var out []storage.Object

	for _, prefix := range prefixes {
		objs, err := l.source.List(ctx, prefix)
		if err != nil {
			return nil, fmt.Errorf("list prefix %q: %w", prefix, err)
		}
		l.log.WithFields(logrus.Fields{"prefix": prefix, "objects": len(objs)}).Debug("listed prefix")

		for _, obj := range objs {
			if !obj.LastModified.After(mark) {
				continue
			}
			if l.opts.Exclusion.Excludes(obj.Key) {
				continue
			}
			if _, dup := seen[obj.Key]; dup {
				continue
			}
			seen[obj.Key] = struct{}{}
			out = append(out, obj)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].LastModified.Equal(out[j].LastModified) {
			return out[i].LastModified.Before(out[j].LastModified)
		}
		return out[i].Key < out[j].Key
	})

	if l.mode == ModeBackfill {
		// The explicit range disables itself once its first day's prefix has
		// been fully listed; the transition is one-way and happens here, not
		// by mutating configuration.
		l.mode = ModeRolling
		l.log.Info("backfill window listed once, switching to rolling mode")
	}
	return out, nil
}

// cyclePrefixes picks the concrete prefixes for one cycle. Backfill lists
// only the start date's prefix: the one-day-only behavior of the original
// engine is kept for compatibility (see DESIGN.md).
func (l *Lister) cyclePrefixes(now time.Time) []string {
	if l.mode == ModeBackfill {
		return []string{l.expand(l.opts.StartDate)}
	}

	if !l.opts.EndDate.IsZero() && now.After(l.opts.EndDate) {
		l.log.WithField("end_date", l.opts.EndDate.Format("2006-01-02")).Debug("listing window closed")
		return nil
	}

	today := l.expand(now)
	if !strings.Contains(l.opts.Prefix, DatePlaceholder) {
		// Literal prefix: today and yesterday would be identical listings.
		return []string{today}
	}
	yesterday := l.expand(now.AddDate(0, 0, -1))
	return []string{today, yesterday}
}

func (l *Lister) expand(day time.Time) string {
	return strings.ReplaceAll(l.opts.Prefix, DatePlaceholder, day.UTC().Format("20060102"))
}
