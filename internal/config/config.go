package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const dateLayout = "2006-01-02"

type Config struct {
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`

	// Prefix may embed the %YYYYMMDD% date placeholder.
	Prefix string `mapstructure:"prefix"`

	SincedbPath string `mapstructure:"sincedb_path"`

	BackupToBucket    string `mapstructure:"backup_to_bucket"`
	BackupAddPrefix   string `mapstructure:"backup_add_prefix"`
	BackupToDir       string `mapstructure:"backup_to_dir"`
	BackupDirCompress bool   `mapstructure:"backup_dir_compress"`
	Delete            bool   `mapstructure:"delete"`

	Interval       int    `mapstructure:"interval"` // seconds between cycles
	ExcludePattern string `mapstructure:"exclude_pattern"`
	StartDate      string `mapstructure:"start_date"` // YYYY-MM-DD, backfill
	EndDate        string `mapstructure:"end_date"`   // YYYY-MM-DD, window close
	DryRun         bool   `mapstructure:"dry_run"`

	Codec       string            `mapstructure:"codec"`
	Sink        string            `mapstructure:"sink"`
	SinkURL     string            `mapstructure:"sink_url"`
	SinkHeaders map[string]string `mapstructure:"sink_headers"`

	// Executor identity comes from the environment, is read exactly once at
	// load, and is immutable for the life of the process.
	TotalExecutors int `mapstructure:"-"`
	ExecutorID     int `mapstructure:"-"`
}

func Load(path string) (*Config, error) {
	// A .env file next to the process can hold credentials and executor
	// identity; absence is fine.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetDefault("interval", 60)
	v.SetDefault("codec", "plain")
	v.SetDefault("sink", "log")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	expandEnv(&cfg)

	cfg.TotalExecutors = envInt("TOTAL_EXECUTORS", 1)
	cfg.ExecutorID = envInt("EXECUTOR_ID", 0)

	return &cfg, nil
}

func expandEnv(cfg *Config) {
	cfg.Bucket = os.ExpandEnv(cfg.Bucket)
	cfg.Region = os.ExpandEnv(cfg.Region)
	cfg.Endpoint = os.ExpandEnv(cfg.Endpoint)
	cfg.AccessKey = os.ExpandEnv(cfg.AccessKey)
	cfg.SecretKey = os.ExpandEnv(cfg.SecretKey)
	cfg.Prefix = os.ExpandEnv(cfg.Prefix)
	cfg.SincedbPath = os.ExpandEnv(cfg.SincedbPath)
	cfg.BackupToBucket = os.ExpandEnv(cfg.BackupToBucket)
	cfg.BackupAddPrefix = os.ExpandEnv(cfg.BackupAddPrefix)
	cfg.BackupToDir = os.ExpandEnv(cfg.BackupToDir)
	cfg.SinkURL = os.ExpandEnv(cfg.SinkURL)
	for k, val := range cfg.SinkHeaders {
		cfg.SinkHeaders[k] = os.ExpandEnv(val)
	}
}

func envInt(name string, def int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

// PollInterval returns the configured cycle sleep.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Interval) * time.Second
}

// StartTime parses the backfill start date; zero when unset.
func (c *Config) StartTime() time.Time {
	return parseDate(c.StartDate)
}

// EndTime parses the window end date; zero when unset.
func (c *Config) EndTime() time.Time {
	return parseDate(c.EndDate)
}

func parseDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}
