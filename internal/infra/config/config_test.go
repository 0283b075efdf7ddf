package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Env != "dev" {
		t.Fatalf("default env: %s", cfg.Env)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("default addr: %s", cfg.HTTPAddr)
	}
	if cfg.SessionTTL != 24*time.Hour {
		t.Fatalf("default session ttl: %v", cfg.SessionTTL)
	}
	if cfg.OutboxPollInterval != 500*time.Millisecond {
		t.Fatalf("default poll interval: %v", cfg.OutboxPollInterval)
	}
	want := []time.Duration{time.Second, 5 * time.Second, 30 * time.Second}
	if len(cfg.RetryBackoff) != len(want) {
		t.Fatalf("default backoff: %v", cfg.RetryBackoff)
	}
	for i, d := range want {
		if cfg.RetryBackoff[i] != d {
			t.Fatalf("backoff[%d] = %v, want %v", i, cfg.RetryBackoff[i], d)
		}
	}
	if cfg.DatabaseURL != "" || cfg.RedisAddr != "" || len(cfg.KafkaBrokers) != 0 {
		t.Fatal("external backends must be off by default")
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("APP_ENV", "prod")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("DATABASE_URL", "postgres://localhost/tradepost")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092,kafka-2:9092")
	t.Setenv("KAFKA_TOPIC_PREFIX", "prod.")
	t.Setenv("SESSION_TTL", "2h")
	t.Setenv("OUTBOX_POLL_INTERVAL", "1s")
	t.Setenv("RETRY_BACKOFF", "2s,10s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Env != "prod" || cfg.HTTPAddr != ":9090" {
		t.Fatalf("env overrides ignored: %+v", cfg)
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "kafka-2:9092" {
		t.Fatalf("brokers: %v", cfg.KafkaBrokers)
	}
	if cfg.SessionTTL != 2*time.Hour {
		t.Fatalf("session ttl: %v", cfg.SessionTTL)
	}
	if len(cfg.RetryBackoff) != 2 || cfg.RetryBackoff[0] != 2*time.Second {
		t.Fatalf("backoff: %v", cfg.RetryBackoff)
	}
}

func TestLoadRejectsBadDurations(t *testing.T) {
	t.Setenv("SESSION_TTL", "soon")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for invalid SESSION_TTL")
	}
}

func TestLoadRejectsBadBackoff(t *testing.T) {
	t.Setenv("RETRY_BACKOFF", "1s,nope")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for invalid RETRY_BACKOFF")
	}
}
