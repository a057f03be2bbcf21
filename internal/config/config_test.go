package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 5, cfg.Crawl.Concurrency)
	assert.Equal(t, 120, cfg.Crawl.RequestsPerMinute)
	assert.Equal(t, 5, cfg.Crawl.MaxAttempts)
	assert.Equal(t, 20, cfg.Crawl.SessionUsage())
	assert.Equal(t, 6000*time.Second, cfg.Crawl.HandlerTimeout)
	assert.Equal(t, 10*time.Second, cfg.Crawl.CaptureStepTimeout)
	assert.Equal(t, BackendNone, cfg.Records.Backend)
	assert.Equal(t, BackendNone, cfg.Storage.Backend)
	assert.Equal(t, BackendMemory, cfg.Seen.Backend)
	assert.False(t, cfg.Proxy.Enabled)
}

func TestLoadWithFileOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
environment: production
logging:
  development: false
  level: debug
clickhouse:
  url: http://clickhouse:8123
  user: crawler
  key: secret
records:
  backend: clickhouse
  navigation_dir: /var/tmc/navigations
storage:
  backend: gcs
  bucket: tm-artifacts
artifacts:
  failure_screenshot_dir: /var/tmc/failures
crawl:
  concurrency: 2
  max_attempts: 3
  session_pool_enabled: false
  handler_timeout: 90s
proxy:
  enabled: true
  host: proxy.internal
  port: "8000"
  url_template: "http://{{USERNAME}}-session-{{SESSION}}:{{PASSWORD}}@{{HOST}}:{{PORT}}"
seen:
  backend: redis
  redis_addr: localhost:6379
  ttl: 72h
`
	require.NoError(t, os.WriteFile(path, []byte(configYAML), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "http://clickhouse:8123", cfg.ClickHouse.URL)
	assert.Equal(t, 5, cfg.ClickHouse.MaxRetries)
	assert.Equal(t, "/var/tmc/navigations", cfg.Records.NavigationDir)
	assert.Equal(t, "tm-artifacts", cfg.Storage.Bucket)
	assert.Equal(t, "/var/tmc/failures", cfg.Artifacts.FailureScreenshotDir)
	assert.Equal(t, 2, cfg.Crawl.Concurrency)
	assert.Equal(t, 1, cfg.Crawl.SessionUsage())
	assert.Equal(t, 90*time.Second, cfg.Crawl.HandlerTimeout)
	assert.Equal(t, "8000", cfg.Proxy.Port)
	assert.Equal(t, 72*time.Hour, cfg.Seen.TTL)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("TMC_CRAWL_CONCURRENCY", "9")
	t.Setenv("TMC_STORAGE_BACKEND", "local")
	t.Setenv("TMC_STORAGE_LOCAL_BASE_DIR", t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.Crawl.Concurrency)
	assert.Equal(t, BackendLocal, cfg.Storage.Backend)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestConfigValidateErrors(t *testing.T) {
	base, err := Load("")
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"negative port", func(c *Config) { c.Server.Port = -1 }, "server.port"},
		{"concurrency", func(c *Config) { c.Crawl.Concurrency = 0 }, "crawl.concurrency"},
		{"attempts", func(c *Config) { c.Crawl.MaxAttempts = 0 }, "crawl.max_attempts"},
		{"session usage", func(c *Config) { c.Crawl.SessionMaxUsage = 0 }, "crawl.session_max_usage"},
		{"capture timeout", func(c *Config) { c.Crawl.CaptureStepTimeout = 0 }, "crawl.capture_step_timeout"},
		{"clickhouse url", func(c *Config) { c.Records.Backend = BackendClickHouse }, "clickhouse.url"},
		{"postgres dsn", func(c *Config) { c.Records.Backend = BackendPostgres }, "postgres.dsn"},
		{"pubsub topic", func(c *Config) { c.Records.Backend = BackendPubSub }, "pubsub.project_id"},
		{"records backend", func(c *Config) { c.Records.Backend = "kafka" }, "records.backend"},
		{"gcs bucket", func(c *Config) { c.Storage.Backend = BackendGCS }, "storage.bucket"},
		{"local dir", func(c *Config) { c.Storage.Backend = BackendLocal }, "storage.local_base_dir"},
		{"storage backend", func(c *Config) { c.Storage.Backend = "s3" }, "storage.backend"},
		{"proxy host", func(c *Config) { c.Proxy.Enabled = true }, "proxy.host"},
		{"redis addr", func(c *Config) { c.Seen.Backend = BackendRedis }, "seen.redis_addr"},
		{"seen backend", func(c *Config) { c.Seen.Backend = "disk" }, "seen.backend"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
