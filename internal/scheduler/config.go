package scheduler

import "time"

// Config controls scheduler intervals and batch sizes. Drip-specific tuning
// (batch size, reconcile attempt cap) comes from the hot-reloaded drip
// config; these are the process-level knobs.
type Config struct {
	RunInterval        time.Duration
	EmailBatchSize     int
	ReconcileBatchSize int
	JobTimeout         time.Duration
}

func DefaultConfig() Config {
	return Config{
		RunInterval:        time.Minute,
		EmailBatchSize:     50,
		ReconcileBatchSize: 25,
		JobTimeout:         30 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.EmailBatchSize <= 0 {
		c.EmailBatchSize = defaults.EmailBatchSize
	}
	if c.ReconcileBatchSize <= 0 {
		c.ReconcileBatchSize = defaults.ReconcileBatchSize
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = defaults.JobTimeout
	}
	return c
}
