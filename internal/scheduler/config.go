package scheduler

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config controls scheduler intervals and the look-back width of the
// background syncs it triggers.
type Config struct {
	Enabled bool
	// RunInterval is the pause between scheduler passes.
	RunInterval time.Duration
	// SyncInterval is how stale an account's last sync may get before the
	// next pass picks it up.
	SyncInterval time.Duration
	// DaysBack is the look-back window handed to each triggered sync.
	DaysBack int
	// JobTimeout bounds one job pass across all due accounts.
	JobTimeout time.Duration
	// EnabledJobs restricts the pass to the named jobs; empty runs all.
	EnabledJobs []string
}

func DefaultConfig() Config {
	return Config{
		Enabled:      true,
		RunInterval:  15 * time.Minute,
		SyncInterval: 6 * time.Hour,
		DaysBack:     30,
		JobTimeout:   45 * time.Minute,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.SyncInterval <= 0 {
		c.SyncInterval = defaults.SyncInterval
	}
	if c.DaysBack <= 0 {
		c.DaysBack = defaults.DaysBack
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = defaults.JobTimeout
	}
	return c
}

func ProvideConfig() Config {
	cfg := DefaultConfig()
	if v := strings.TrimSpace(os.Getenv("SCHEDULER_ENABLED")); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			cfg.Enabled = parsed
		}
	}
	if v := strings.TrimSpace(os.Getenv("SCHEDULER_RUN_INTERVAL")); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.RunInterval = parsed
		}
	}
	if v := strings.TrimSpace(os.Getenv("SCHEDULER_SYNC_INTERVAL")); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.SyncInterval = parsed
		}
	}
	if v := strings.TrimSpace(os.Getenv("SCHEDULER_DAYS_BACK")); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.DaysBack = parsed
		}
	}
	if v := strings.TrimSpace(os.Getenv("SCHEDULER_JOB_TIMEOUT")); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.JobTimeout = parsed
		}
	}
	if v := strings.TrimSpace(os.Getenv("SCHEDULER_ENABLED_JOBS")); v != "" {
		for _, job := range strings.Split(v, ",") {
			if job = strings.TrimSpace(job); job != "" {
				cfg.EnabledJobs = append(cfg.EnabledJobs, job)
			}
		}
	}
	return cfg
}
