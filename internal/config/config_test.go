package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv(defaultDotenvPathEnvVar, filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("APP_ENV", "development")
	t.Setenv(upstreamBaseURLEnvVar, "https://api.example.test/")
	for _, key := range []string{
		"DATABASE_URL", "REDIS_URL", shutdownSecondsEnvVar, shutdownDurationEnvVar,
		idemTTLSecondsEnvVar, idemTTLDurEnvVar, upstreamSecondsEnvVar, upstreamDurationEnvVar,
		identityCacheTTLEnvVar, submitRateLimitEnvVar, sessionIdleEnvVar, sessionRetentionEnvVar,
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.UpstreamBaseURL != "https://api.example.test" {
		t.Fatalf("expected trailing slash trimmed, got %s", cfg.UpstreamBaseURL)
	}
	if cfg.UpstreamTimeout != defaultUpstreamTimeout {
		t.Fatalf("expected default upstream timeout, got %s", cfg.UpstreamTimeout)
	}
	if cfg.IdentityCacheTTL != 0 {
		t.Fatalf("expected no identity cache expiry, got %s", cfg.IdentityCacheTTL)
	}
	if cfg.SessionIdleTTL != defaultSessionIdleTTL || cfg.SessionRetention != defaultSessionRetention {
		t.Fatalf("unexpected session lifetimes %s / %s", cfg.SessionIdleTTL, cfg.SessionRetention)
	}
	if cfg.Address() != ":8080" {
		t.Fatalf("unexpected address %s", cfg.Address())
	}
}

func TestLoadRequiresUpstream(t *testing.T) {
	setBaseEnv(t)
	t.Setenv(upstreamBaseURLEnvVar, "")

	if _, err := Load(); err == nil {
		t.Fatal("expected missing upstream error")
	}
}

func TestLoadRequiresStoresOutsideDev(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("APP_ENV", "production")

	if _, err := Load(); err == nil {
		t.Fatal("expected missing DATABASE_URL error")
	}

	t.Setenv("DATABASE_URL", "postgres://localhost/botfut")
	if _, err := Load(); err == nil {
		t.Fatal("expected missing REDIS_URL error")
	}

	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	if _, err := Load(); err != nil {
		t.Fatalf("load: %v", err)
	}
}

func TestLoadDurations(t *testing.T) {
	setBaseEnv(t)
	t.Setenv(upstreamSecondsEnvVar, "3")
	t.Setenv(shutdownDurationEnvVar, "1500ms")
	t.Setenv(identityCacheTTLEnvVar, "1h")
	t.Setenv(sessionIdleEnvVar, "5m")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.UpstreamTimeout != 3*time.Second {
		t.Fatalf("expected 3s, got %s", cfg.UpstreamTimeout)
	}
	if cfg.ShutdownPeriod != 1500*time.Millisecond {
		t.Fatalf("expected 1.5s, got %s", cfg.ShutdownPeriod)
	}
	if cfg.IdentityCacheTTL != time.Hour {
		t.Fatalf("expected 1h, got %s", cfg.IdentityCacheTTL)
	}
	if cfg.SessionIdleTTL != 5*time.Minute {
		t.Fatalf("expected 5m idle TTL, got %s", cfg.SessionIdleTTL)
	}

	t.Setenv(upstreamSecondsEnvVar, "soon")
	if _, err := Load(); err == nil {
		t.Fatal("expected invalid duration error")
	}
}

func TestLoadReadsDotenv(t *testing.T) {
	setBaseEnv(t)
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("BOT_CONTACT=+55 21 98888-7777\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv(defaultDotenvPathEnvVar, path)
	t.Setenv("BOT_CONTACT", "")
	os.Unsetenv("BOT_CONTACT")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.BotContact != "+55 21 98888-7777" {
		t.Fatalf("expected bot contact from .env, got %q", cfg.BotContact)
	}
}
