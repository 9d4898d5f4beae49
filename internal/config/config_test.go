package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
server:
  port: 9090
  timeout_seconds: 120
scraper:
  user_agent: job-agent
  max_pages_default: 5
  serpapi_key: serp-secret
browser:
  headless: false
  tab_timeout_seconds: 45
ai:
  backend_url: http://backend:3000
  provider: openai
  timeout_seconds: 30
storage:
  provider: redis
  redis:
    addr: localhost:6379
    db: 2
archive:
  provider: gcs
  gcs_bucket: pages
  prefix: snapshots
logging:
  development: false
`
	if err := os.WriteFile(path, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Fatalf("expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Server.TimeoutSeconds != 120 || cfg.ServerTimeout() != 120*time.Second {
		t.Fatalf("expected server timeout override, got %d", cfg.Server.TimeoutSeconds)
	}
	if cfg.Scraper.MaxPagesDefault != 5 || cfg.Scraper.SerpAPIKey != "serp-secret" {
		t.Fatalf("expected scraper overrides to apply: %+v", cfg.Scraper)
	}
	if cfg.Browser.Headless {
		t.Fatal("expected headless override to apply")
	}
	if cfg.AI.Provider != "openai" || cfg.AITimeout() != 30*time.Second {
		t.Fatalf("expected ai overrides to apply: %+v", cfg.AI)
	}
	if cfg.Storage.Provider != "redis" || cfg.Storage.Redis.DB != 2 {
		t.Fatalf("expected redis storage config: %+v", cfg.Storage)
	}
	if cfg.Archive.Provider != "gcs" || cfg.Archive.GCSBucket != "pages" {
		t.Fatalf("expected gcs archive config: %+v", cfg.Archive)
	}
	if cfg.Logging.Development {
		t.Fatal("expected logging.development=false")
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Fatalf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Server.TimeoutSeconds != 300 {
		t.Fatalf("expected default server timeout 300s, got %d", cfg.Server.TimeoutSeconds)
	}
	if cfg.Storage.Provider != "memory" {
		t.Fatalf("expected default storage provider memory, got %s", cfg.Storage.Provider)
	}
	if cfg.Archive.Provider != "none" {
		t.Fatalf("expected default archive provider none, got %s", cfg.Archive.Provider)
	}
}

func TestValidateRejectsBadProviders(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	cfg.Storage.Provider = "cassandra"
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "storage.provider") {
		t.Fatalf("expected storage provider error, got %v", err)
	}

	cfg.Storage.Provider = "redis"
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "storage.redis.addr") {
		t.Fatalf("expected redis addr error, got %v", err)
	}

	cfg.Storage.Provider = "memory"
	cfg.PubSub.Enabled = true
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "pubsub") {
		t.Fatalf("expected pubsub error, got %v", err)
	}
}
