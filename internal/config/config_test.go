package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func setBase(t *testing.T) {
	t.Setenv("APP_PORT", "8080")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("ACCESS_TOKEN_TTL_MIN", "15")
	t.Setenv("REFRESH_TOKEN_TTL_DAYS", "7")
}

func TestLoadMemoryDriver(t *testing.T) {
	setBase(t)
	t.Setenv("STORAGE_DRIVER", "Memory")
	t.Setenv("CORS_ALLOW_ORIGINS", "http://localhost:3000, https://app.example.com ,")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.StorageDriver != StorageMemory || cfg.AccessTTLMin != 15 || cfg.BcryptCost != 12 {
		t.Fatalf("cfg = %+v", cfg)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://app.example.com" {
		t.Fatalf("origins = %q", cfg.CORSOrigins)
	}
}

func TestLoadReportsEveryMissingVar(t *testing.T) {
	setBase(t)
	t.Setenv("STORAGE_DRIVER", "mysql")
	t.Setenv("ACCESS_TOKEN_TTL_MIN", "soon")
	for _, k := range []string{"DB_USER", "DB_HOST", "DB_PORT", "DB_NAME"} {
		t.Setenv(k, "")
	}
	_, err := Load()
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"DB_USER", "DB_HOST", "DB_PORT", "DB_NAME", "ACCESS_TOKEN_TTL_MIN"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	setBase(t)
	t.Setenv("STORAGE_DRIVER", "sqlite")
	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "STORAGE_DRIVER") {
		t.Fatalf("got %v", err)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("VENUE_TEST_FROM_FILE=yes\nVENUE_TEST_PRESET=file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("VENUE_TEST_PRESET", "env")
	t.Setenv("VENUE_TEST_FROM_FILE", "")
	os.Unsetenv("VENUE_TEST_FROM_FILE")

	if err := LoadDotEnv(path, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatal(err)
	}
	if got := os.Getenv("VENUE_TEST_FROM_FILE"); got != "yes" {
		t.Fatalf("from file = %q", got)
	}
	if got := os.Getenv("VENUE_TEST_PRESET"); got != "env" {
		t.Fatalf("existing var overridden: %q", got)
	}
}

func TestRateLimitNormalization(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_EVERY", "2s")
	t.Setenv("RATE_LIMIT_TTL", "1s")
	cfg := LoadRateLimitConfig()
	if cfg.Capacity != 1 || cfg.RefillTokens != 1 || cfg.RefillInterval != 2*time.Second || cfg.TTL != 10*time.Second {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestQueueConfigFallbackURL(t *testing.T) {
	t.Setenv("RABBITMQ_URL", "")
	t.Setenv("AMQP_URL", "amqp://u:p@broker:5672/")
	t.Setenv("QUEUE_ENABLED", "off")
	cfg := LoadQueueConfig()
	if cfg.URL != "amqp://u:p@broker:5672/" || cfg.Enabled {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestCacheMethods(t *testing.T) {
	t.Setenv("CACHE_METHODS", "get, head")
	cfg := LoadCacheConfig()
	if !cfg.Methods["GET"] || !cfg.Methods["HEAD"] || cfg.Methods["POST"] {
		t.Fatalf("methods = %v", cfg.Methods)
	}
}

func TestCacheStrategyFallback(t *testing.T) {
	t.Setenv("CACHE_KEY_STRATEGY", "by_moon_phase")
	t.Setenv("CACHE_METHODS", " , ")
	t.Setenv("CACHE_PREFIX", "c:")
	cfg := LoadCacheConfig()
	if cfg.KeyStrategy != "route_query" || cfg.Prefix != "c" || !cfg.Methods["GET"] {
		t.Fatalf("cfg = %+v", cfg)
	}
}
