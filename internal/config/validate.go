package config

import (
	"fmt"
	"regexp"
	"time"
)

// Validate fails fast on configuration the engine cannot safely run with.
// Errors here are fatal at startup, before the poll loop begins.
func (c *Config) Validate() error {
	if c.Bucket == "" {
		return fmt.Errorf("bucket is required")
	}
	if c.Region == "" && c.Endpoint == "" {
		return fmt.Errorf("region or endpoint is required")
	}
	if c.Interval <= 0 {
		return fmt.Errorf("interval must be > 0 seconds")
	}

	if c.ExcludePattern != "" {
		if _, err := regexp.Compile(c.ExcludePattern); err != nil {
			return fmt.Errorf("exclude_pattern does not compile: %w", err)
		}
	}

	var start, end time.Time
	if c.StartDate != "" {
		t, err := time.Parse(dateLayout, c.StartDate)
		if err != nil {
			return fmt.Errorf("start_date must be YYYY-MM-DD: %w", err)
		}
		start = t
	}
	if c.EndDate != "" {
		t, err := time.Parse(dateLayout, c.EndDate)
		if err != nil {
			return fmt.Errorf("end_date must be YYYY-MM-DD: %w", err)
		}
		end = t
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		return fmt.Errorf("end_date %s is before start_date %s", c.EndDate, c.StartDate)
	}

	if c.Delete && c.BackupToBucket == c.Bucket && c.BackupToBucket != "" && c.BackupAddPrefix == "" {
		return fmt.Errorf("delete with backup_to_bucket equal to bucket needs a backup_add_prefix (the move would overwrite its own source)")
	}

	if c.TotalExecutors < 1 {
		return fmt.Errorf("TOTAL_EXECUTORS must be >= 1")
	}
	if c.ExecutorID < 0 || c.ExecutorID >= c.TotalExecutors {
		return fmt.Errorf("EXECUTOR_ID %d out of range [0,%d)", c.ExecutorID, c.TotalExecutors)
	}

	return nil
}
