package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "DB_TYPE", "MAX_TURNS", "SESSION_TTL", "METRICS_ENABLED"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	if cfg.ServerPort != "8080" {
		t.Errorf("ServerPort = %q, want %q", cfg.ServerPort, "8080")
	}
	if cfg.DatabaseType != "sqlite" {
		t.Errorf("DatabaseType = %q, want %q", cfg.DatabaseType, "sqlite")
	}
	if cfg.MaxTurns != 3 {
		t.Errorf("MaxTurns = %d, want 3", cfg.MaxTurns)
	}
	if cfg.SessionTTL != 2*time.Hour {
		t.Errorf("SessionTTL = %v, want 2h", cfg.SessionTTL)
	}
	if !cfg.MetricsEnabled {
		t.Error("MetricsEnabled = false, want true")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("MAX_TURNS", "5")
	t.Setenv("SESSION_TTL", "45m")
	t.Setenv("METRICS_ENABLED", "false")
	t.Setenv("REDIS_DB", "not-a-number")

	cfg := Load()

	if cfg.ServerPort != "9090" {
		t.Errorf("ServerPort = %q, want %q", cfg.ServerPort, "9090")
	}
	if cfg.MaxTurns != 5 {
		t.Errorf("MaxTurns = %d, want 5", cfg.MaxTurns)
	}
	if cfg.SessionTTL != 45*time.Minute {
		t.Errorf("SessionTTL = %v, want 45m", cfg.SessionTTL)
	}
	if cfg.MetricsEnabled {
		t.Error("MetricsEnabled = true, want false")
	}
	if cfg.RedisDB != 0 {
		t.Errorf("RedisDB = %d, want fallback 0", cfg.RedisDB)
	}
}
