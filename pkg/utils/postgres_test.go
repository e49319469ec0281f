package utils

import (
	"testing"
	"time"
)

func TestPostgresPoolConfigDefaults(t *testing.T) {
	cfg := PostgresPoolConfig{}.withDefaults()

	if cfg.MaxOpenConns != 10 || cfg.MaxIdleConns != 5 {
		t.Fatalf("unexpected pool sizes: %+v", cfg)
	}
	if cfg.ConnMaxLifetime != 30*time.Minute {
		t.Fatalf("unexpected lifetime: %v", cfg.ConnMaxLifetime)
	}
	if cfg.PingTimeout != 5*time.Second {
		t.Fatalf("unexpected ping timeout: %v", cfg.PingTimeout)
	}
}

func TestPostgresPoolConfigKeepsExplicitValues(t *testing.T) {
	cfg := PostgresPoolConfig{MaxOpenConns: 5, PingTimeout: time.Second}.withDefaults()

	if cfg.MaxOpenConns != 5 {
		t.Fatalf("expected explicit MaxOpenConns kept, got %d", cfg.MaxOpenConns)
	}
	if cfg.PingTimeout != time.Second {
		t.Fatalf("expected explicit PingTimeout kept, got %v", cfg.PingTimeout)
	}
}
