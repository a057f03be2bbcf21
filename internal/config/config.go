// Package config loads and validates crawler configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides, e.g. TMC_CRAWL_CONCURRENCY.
const EnvPrefix = "TMC"

// Backend names.
const (
	BackendNone       = "none"
	BackendMemory     = "memory"
	BackendLocal      = "local"
	BackendGCS        = "gcs"
	BackendClickHouse = "clickhouse"
	BackendPostgres   = "postgres"
	BackendPubSub     = "pubsub"
	BackendRedis      = "redis"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Environment string           `mapstructure:"environment"`
	Logging     LoggingConfig    `mapstructure:"logging"`
	Server      ServerConfig     `mapstructure:"server"`
	ClickHouse  ClickHouseConfig `mapstructure:"clickhouse"`
	Postgres    PostgresConfig   `mapstructure:"postgres"`
	PubSub      PubSubConfig     `mapstructure:"pubsub"`
	Records     RecordsConfig    `mapstructure:"records"`
	Storage     StorageConfig    `mapstructure:"storage"`
	Artifacts   ArtifactsConfig  `mapstructure:"artifacts"`
	Crawl       CrawlConfig      `mapstructure:"crawl"`
	Proxy       ProxyConfig      `mapstructure:"proxy"`
	Seen        SeenConfig       `mapstructure:"seen"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// ServerConfig controls the ops HTTP server. Port 0 disables it.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// ClickHouseConfig addresses the columnar record store.
type ClickHouseConfig struct {
	URL        string        `mapstructure:"url"`
	Database   string        `mapstructure:"database"`
	User       string        `mapstructure:"user"`
	Key        string        `mapstructure:"key"`
	MaxRetries int           `mapstructure:"max_retries"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// PostgresConfig addresses the relational record store.
type PostgresConfig struct {
	DSN             string        `mapstructure:"dsn"`
	Schema          string        `mapstructure:"schema"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	Migrate         bool          `mapstructure:"migrate"`
}

// PubSubConfig holds the topic records are fanned out to.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// RecordsConfig selects the record writer and the local mirror directories.
// An empty directory disables that mirror.
type RecordsConfig struct {
	Backend       string `mapstructure:"backend"`
	NavigationDir string `mapstructure:"navigation_dir"`
	MarkDir       string `mapstructure:"mark_dir"`
	CoverageDir   string `mapstructure:"coverage_dir"`
}

// StorageConfig selects the artifact blob store.
type StorageConfig struct {
	Backend      string `mapstructure:"backend"`
	Bucket       string `mapstructure:"bucket"`
	Prefix       string `mapstructure:"prefix"`
	LocalBaseDir string `mapstructure:"local_base_dir"`
}

// ArtifactsConfig names local directories that receive a copy of captured
// pages. Empty disables each mirror.
type ArtifactsConfig struct {
	FailureScreenshotDir string `mapstructure:"failure_screenshot_dir"`
	FailureContentDir    string `mapstructure:"failure_content_dir"`
	SuccessScreenshotDir string `mapstructure:"success_screenshot_dir"`
	SuccessContentDir    string `mapstructure:"success_content_dir"`
}

// CrawlConfig governs the engine, the browser and the session pool.
type CrawlConfig struct {
	Concurrency        int           `mapstructure:"concurrency"`
	RequestsPerMinute  int           `mapstructure:"requests_per_minute"`
	MaxAttempts        int           `mapstructure:"max_attempts"`
	SessionPoolEnabled bool          `mapstructure:"session_pool_enabled"`
	SessionMaxUsage    int           `mapstructure:"session_max_usage"`
	NavigationTimeout  time.Duration `mapstructure:"navigation_timeout"`
	HandlerTimeout     time.Duration `mapstructure:"handler_timeout"`
	CaptureStepTimeout time.Duration `mapstructure:"capture_step_timeout"`
	Headless           bool          `mapstructure:"headless"`
	Incognito          bool          `mapstructure:"incognito"`
	UserAgent          string        `mapstructure:"user_agent"`
	ChromePath         string        `mapstructure:"chrome_path"`
}

// SessionUsage is the checkout ceiling per session. A disabled pool hands
// out a fresh session for every attempt.
func (c CrawlConfig) SessionUsage() int {
	if !c.SessionPoolEnabled {
		return 1
	}
	return c.SessionMaxUsage
}

// ProxyConfig describes the upstream proxy.
type ProxyConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Host        string `mapstructure:"host"`
	Port        string `mapstructure:"port"`
	User        string `mapstructure:"user"`
	Password    string `mapstructure:"password"`
	URLTemplate string `mapstructure:"url_template"`
}

// SeenConfig selects the attempted-work registry.
type SeenConfig struct {
	Backend       string        `mapstructure:"backend"`
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	TTL           time.Duration `mapstructure:"ttl"`
	LRUSize       int           `mapstructure:"lru_size"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "info")
	v.SetDefault("server.port", 9090)
	v.SetDefault("clickhouse.url", "")
	v.SetDefault("clickhouse.database", "default")
	v.SetDefault("clickhouse.user", "default")
	v.SetDefault("clickhouse.key", "")
	v.SetDefault("clickhouse.max_retries", 5)
	v.SetDefault("clickhouse.timeout", "20s")
	v.SetDefault("postgres.dsn", "")
	v.SetDefault("postgres.schema", "public")
	v.SetDefault("postgres.max_conns", 4)
	v.SetDefault("postgres.min_conns", 0)
	v.SetDefault("postgres.max_conn_lifetime", "30m")
	v.SetDefault("postgres.migrate", true)
	v.SetDefault("pubsub.project_id", "")
	v.SetDefault("pubsub.topic", "")
	v.SetDefault("records.backend", BackendNone)
	v.SetDefault("records.navigation_dir", "")
	v.SetDefault("records.mark_dir", "")
	v.SetDefault("records.coverage_dir", "")
	v.SetDefault("storage.backend", BackendNone)
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.prefix", "")
	v.SetDefault("storage.local_base_dir", "")
	v.SetDefault("artifacts.failure_screenshot_dir", "")
	v.SetDefault("artifacts.failure_content_dir", "")
	v.SetDefault("artifacts.success_screenshot_dir", "")
	v.SetDefault("artifacts.success_content_dir", "")
	v.SetDefault("crawl.concurrency", 5)
	v.SetDefault("crawl.requests_per_minute", 120)
	v.SetDefault("crawl.max_attempts", 5)
	v.SetDefault("crawl.session_pool_enabled", true)
	v.SetDefault("crawl.session_max_usage", 20)
	v.SetDefault("crawl.navigation_timeout", "6000s")
	v.SetDefault("crawl.handler_timeout", "6000s")
	v.SetDefault("crawl.capture_step_timeout", "10s")
	v.SetDefault("crawl.headless", true)
	v.SetDefault("crawl.incognito", false)
	v.SetDefault("crawl.user_agent", "")
	v.SetDefault("crawl.chrome_path", "")
	v.SetDefault("proxy.enabled", false)
	v.SetDefault("proxy.host", "")
	v.SetDefault("proxy.port", "")
	v.SetDefault("proxy.user", "")
	v.SetDefault("proxy.password", "")
	v.SetDefault("proxy.url_template", "")
	v.SetDefault("seen.backend", BackendMemory)
	v.SetDefault("seen.redis_addr", "")
	v.SetDefault("seen.redis_password", "")
	v.SetDefault("seen.redis_db", 0)
	v.SetDefault("seen.ttl", "0s")
	v.SetDefault("seen.lru_size", 100_000)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port < 0 {
		return fmt.Errorf("server.port must be >= 0")
	}
	if c.Crawl.Concurrency <= 0 {
		return fmt.Errorf("crawl.concurrency must be > 0")
	}
	if c.Crawl.MaxAttempts <= 0 {
		return fmt.Errorf("crawl.max_attempts must be > 0")
	}
	if c.Crawl.SessionPoolEnabled && c.Crawl.SessionMaxUsage <= 0 {
		return fmt.Errorf("crawl.session_max_usage must be > 0 when the session pool is enabled")
	}
	if c.Crawl.CaptureStepTimeout <= 0 {
		return fmt.Errorf("crawl.capture_step_timeout must be > 0")
	}
	if err := c.validateRecords(); err != nil {
		return err
	}
	if err := c.validateStorage(); err != nil {
		return err
	}
	if c.Proxy.Enabled && (c.Proxy.Host == "" || c.Proxy.Port == "") {
		return fmt.Errorf("proxy.host and proxy.port must be set when the proxy is enabled")
	}
	switch c.Seen.Backend {
	case BackendMemory, BackendNone:
	case BackendRedis:
		if c.Seen.RedisAddr == "" {
			return fmt.Errorf("seen.redis_addr must be set for the redis backend")
		}
	default:
		return fmt.Errorf("seen.backend %q is not supported", c.Seen.Backend)
	}
	return nil
}

func (c Config) validateRecords() error {
	switch c.Records.Backend {
	case BackendNone, BackendMemory:
	case BackendClickHouse:
		if c.ClickHouse.URL == "" {
			return fmt.Errorf("clickhouse.url must be set for the clickhouse records backend")
		}
	case BackendPostgres:
		if c.Postgres.DSN == "" {
			return fmt.Errorf("postgres.dsn must be set for the postgres records backend")
		}
	case BackendPubSub:
		if c.PubSub.ProjectID == "" || c.PubSub.Topic == "" {
			return fmt.Errorf("pubsub.project_id and pubsub.topic must be set for the pubsub records backend")
		}
	default:
		return fmt.Errorf("records.backend %q is not supported", c.Records.Backend)
	}
	return nil
}

func (c Config) validateStorage() error {
	switch c.Storage.Backend {
	case BackendNone, BackendMemory:
	case BackendGCS:
		if c.Storage.Bucket == "" {
			return fmt.Errorf("storage.bucket must be set for the gcs storage backend")
		}
	case BackendLocal:
		if c.Storage.LocalBaseDir == "" {
			return fmt.Errorf("storage.local_base_dir must be set for the local storage backend")
		}
	default:
		return fmt.Errorf("storage.backend %q is not supported", c.Storage.Backend)
	}
	return nil
}
