package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"regexp"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/eg-eng/logstash-input-s3/internal/checkpoint"
	"github.com/eg-eng/logstash-input-s3/internal/codec"
	"github.com/eg-eng/logstash-input-s3/internal/config"
	"github.com/eg-eng/logstash-input-s3/internal/ingest"
	"github.com/eg-eng/logstash-input-s3/internal/lister"
	"github.com/eg-eng/logstash-input-s3/internal/partition"
	"github.com/eg-eng/logstash-input-s3/internal/poller"
	"github.com/eg-eng/logstash-input-s3/internal/sink"
	s3store "github.com/eg-eng/logstash-input-s3/internal/storage/s3"
)

func main() {
	app := &cli.App{
		Name:  "s3ingest",
		Usage: "incremental, checkpointed ingestion of objects from an S3 bucket",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "poll the bucket forever, processing new objects each cycle",
				Flags: commonFlags(),
				Action: func(c *cli.Context) error {
					cfg, err := loadValidatedConfig(c)
					if err != nil {
						return err
					}
					p, err := buildPoller(c.Context, cfg)
					if err != nil {
						return err
					}
					return p.Run(c.Context)
				},
			},
			{
				Name:  "once",
				Usage: "run a single discovery-and-processing cycle, then exit",
				Flags: commonFlags(),
				Action: func(c *cli.Context) error {
					cfg, err := loadValidatedConfig(c)
					if err != nil {
						return err
					}
					p, err := buildPoller(c.Context, cfg)
					if err != nil {
						return err
					}
					return p.RunOnce(c.Context)
				},
			},
			{
				Name:  "check",
				Usage: "validate the configuration and exit",
				Flags: commonFlags(),
				Action: func(c *cli.Context) error {
					if _, err := loadValidatedConfig(c); err != nil {
						return err
					}
					fmt.Println("configuration ok")
					return nil
				},
			},
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func commonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "config",
			Aliases:  []string{"c"},
			Required: true,
			Usage:    "path to config yaml",
		},
		&cli.BoolFlag{
			Name:  "verbose",
			Usage: "enable debug logging",
		},
		&cli.BoolFlag{
			Name:  "dry-run",
			Usage: "list candidates without downloading or post-processing",
		},
	}
}

func loadValidatedConfig(c *cli.Context) (*config.Config, error) {
	if c.Bool("verbose") {
		logrus.SetLevel(logrus.DebugLevel)
	}

	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	if c.Bool("dry-run") {
		cfg.DryRun = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func buildPoller(ctx context.Context, cfg *config.Config) (*poller.Poller, error) {
	log := logrus.WithFields(logrus.Fields{
		"bucket":   cfg.Bucket,
		"executor": cfg.ExecutorID,
	})

	store, err := s3store.New(ctx, s3store.Options{
		Bucket:    cfg.Bucket,
		Region:    cfg.Region,
		Endpoint:  cfg.Endpoint,
		AccessKey: cfg.AccessKey,
		SecretKey: cfg.SecretKey,
	})
	if err != nil {
		return nil, err
	}

	if cfg.BackupToBucket != "" && cfg.BackupToBucket != cfg.Bucket {
		if err := ensureBucket(ctx, store, cfg.BackupToBucket); err != nil {
			return nil, err
		}
	}

	sincedb := cfg.SincedbPath
	if sincedb == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home for sincedb: %w", err)
		}
		sincedb = checkpoint.DefaultPath(filepath.Join(home, ".s3ingest"), cfg.Bucket, cfg.Prefix, cfg.ExecutorID)
	}
	mark := checkpoint.New(sincedb)
	log.WithField("sincedb", sincedb).Debug("checkpoint store ready")

	exclusion := lister.Exclusion{}
	if cfg.ExcludePattern != "" {
		// Compiles: Validate already checked it.
		exclusion.Pattern = regexp.MustCompile(cfg.ExcludePattern)
	}
	if cfg.BackupToBucket == cfg.Bucket && cfg.BackupAddPrefix != "" {
		exclusion.BackupPrefix = cfg.BackupAddPrefix
	}

	l := lister.New(store, mark, lister.Options{
		Prefix:    cfg.Prefix,
		StartDate: cfg.StartTime(),
		EndDate:   cfg.EndTime(),
		Exclusion: exclusion,
		Logger:    log,
	})

	part := partition.New(partition.XXHash{}, cfg.TotalExecutors, cfg.ExecutorID)

	cdc, err := codec.ByName(cfg.Codec)
	if err != nil {
		return nil, err
	}
	snk, err := sink.ByName(cfg.Sink, cfg.SinkURL, cfg.SinkHeaders)
	if err != nil {
		return nil, err
	}

	var post *ingest.PostProcessor
	policy := ingest.BackupPolicy{
		Bucket:      cfg.BackupToBucket,
		KeyPrefix:   cfg.BackupAddPrefix,
		Dir:         cfg.BackupToDir,
		DirCompress: cfg.BackupDirCompress,
		Delete:      cfg.Delete,
	}
	if policy.Bucket != "" || policy.Dir != "" || policy.Delete {
		post = ingest.NewPostProcessor(store, policy)
	}

	pipe := ingest.New(store, ingest.Options{
		Bucket:     cfg.Bucket,
		Codec:      cdc,
		Sink:       snk,
		Checkpoint: mark,
		Post:       post,
		Logger:     log,
	})

	return poller.New(l, part, pipe, poller.Options{
		Interval: cfg.PollInterval(),
		DryRun:   cfg.DryRun,
		Logger:   log,
	}), nil
}

func ensureBucket(ctx context.Context, store *s3store.Client, name string) error {
	exists, err := store.BucketExists(ctx, name)
	if err != nil {
		return fmt.Errorf("check backup bucket: %w", err)
	}
	if exists {
		return nil
	}
	if err := store.CreateBucket(ctx, name); err != nil {
		return fmt.Errorf("create backup bucket: %w", err)
	}
	return nil
}
