package scheduler

import (
	"testing"
	"time"
)

func TestConfigWithDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()

	if cfg.RunInterval != time.Minute {
		t.Fatalf("expected 1m run interval, got %v", cfg.RunInterval)
	}
	if cfg.EmailBatchSize != 50 {
		t.Fatalf("expected email batch 50, got %d", cfg.EmailBatchSize)
	}
	if cfg.ReconcileBatchSize != 25 {
		t.Fatalf("expected reconcile batch 25, got %d", cfg.ReconcileBatchSize)
	}
	if cfg.JobTimeout != 30*time.Second {
		t.Fatalf("expected 30s job timeout, got %v", cfg.JobTimeout)
	}
}

func TestConfigWithDefaultsKeepsOverrides(t *testing.T) {
	cfg := Config{
		RunInterval:    5 * time.Second,
		EmailBatchSize: 10,
	}.withDefaults()

	if cfg.RunInterval != 5*time.Second {
		t.Fatalf("expected override kept, got %v", cfg.RunInterval)
	}
	if cfg.EmailBatchSize != 10 {
		t.Fatalf("expected override kept, got %d", cfg.EmailBatchSize)
	}
	if cfg.ReconcileBatchSize != 25 {
		t.Fatalf("expected default reconcile batch, got %d", cfg.ReconcileBatchSize)
	}
}
