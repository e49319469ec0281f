package config

import (
	"testing"
	"time"
)

func TestValidate_ReportsMissingRequired(t *testing.T) {
	c := Config{}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestValidate_ProductionRequiresSSLMode(t *testing.T) {
	c := Config{
		App:  AppConfig{Env: "production", Port: 8080},
		DB:   DBConfig{Host: "localhost", Port: 5432, User: "postgres", Password: "x", Name: "dialer", SSLMode: ""},
		Auth: AuthConfig{JWTSecret: "secret", JWTIssuer: "iss", JWTAudience: "aud"},
	}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for production without DB_SSLMODE")
	}
}

func TestValidate_LocalDefaultsSSLMode(t *testing.T) {
	c := Config{
		App:  AppConfig{Env: "local", Port: 8080},
		DB:   DBConfig{Host: "localhost", Port: 5432, User: "postgres", Password: "x", Name: "dialer", SSLMode: ""},
		Auth: AuthConfig{JWTSecret: "secret"},
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.DB.SSLMode != "disable" {
		t.Fatalf("expected sslmode disable default, got %q", c.DB.SSLMode)
	}
}

func TestValidate_MirrorAndRedisAreOptional(t *testing.T) {
	c := Config{
		App:  AppConfig{Env: "local", Port: 8080},
		Auth: AuthConfig{JWTSecret: "secret"},
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error without DB/Redis, got %v", err)
	}
	if c.MirrorEnabled() {
		t.Fatalf("mirror should be disabled without DB_HOST")
	}
	if c.RateLimitEnabled() {
		t.Fatalf("rate limiting should be disabled without REDIS_HOST")
	}
}

func TestValidate_DialerDefaults(t *testing.T) {
	c := Config{
		App:  AppConfig{Env: "local", Port: 8080},
		Auth: AuthConfig{JWTSecret: "secret"},
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if c.Dialer.Concurrency != 2 {
		t.Fatalf("expected default concurrency 2, got %d", c.Dialer.Concurrency)
	}
	if c.Dialer.MinDialDelay != 1*time.Second || c.Dialer.MaxDialDelay != 3*time.Second {
		t.Fatalf("unexpected delay defaults: %v %v", c.Dialer.MinDialDelay, c.Dialer.MaxDialDelay)
	}
	if c.Dialer.SyncWait != 9*time.Second {
		t.Fatalf("expected 9s sync wait default, got %v", c.Dialer.SyncWait)
	}
}

func TestValidate_RejectsInvertedDelayRange(t *testing.T) {
	c := Config{
		App:  AppConfig{Env: "local", Port: 8080},
		Auth: AuthConfig{JWTSecret: "secret"},
		Dialer: DialerConfig{
			MinDialDelay: 5 * time.Second,
			MaxDialDelay: 2 * time.Second,
		},
	}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for max delay < min delay")
	}
}
