// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Scraper ScraperConfig `mapstructure:"scraper"`
	Browser BrowserConfig `mapstructure:"browser"`
	AI      AIConfig      `mapstructure:"ai"`
	Storage StorageConfig `mapstructure:"storage"`
	PubSub  PubSubConfig  `mapstructure:"pubsub"`
	Archive ArchiveConfig `mapstructure:"archive"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port           int `mapstructure:"port"`
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

// ScraperConfig governs the source adapters.
type ScraperConfig struct {
	UserAgent              string `mapstructure:"user_agent"`
	MaxPagesDefault        int    `mapstructure:"max_pages_default"`
	LinkedInBaseURL        string `mapstructure:"linkedin_base_url"`
	SerpAPIKey             string `mapstructure:"serpapi_key"`
	SerpAPIBaseURL         string `mapstructure:"serpapi_base_url"`
	FranceTravailClientID  string `mapstructure:"francetravail_client_id"`
	FranceTravailSecret    string `mapstructure:"francetravail_client_secret"`
	FranceTravailTokenURL  string `mapstructure:"francetravail_token_url"`
	FranceTravailSearchURL string `mapstructure:"francetravail_search_url"`
}

// BrowserConfig configures the shared headless browser.
type BrowserConfig struct {
	ExecPath       string `mapstructure:"exec_path"`
	Headless       bool   `mapstructure:"headless"`
	TabTimeoutSec  int    `mapstructure:"tab_timeout_seconds"`
	UserAgent      string `mapstructure:"user_agent"`
	DisableSandbox bool   `mapstructure:"disable_sandbox"`
}

// AIConfig points at the scoring backend.
type AIConfig struct {
	BackendURL     string `mapstructure:"backend_url"`
	Provider       string `mapstructure:"provider"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// StorageConfig selects and configures the snapshot store.
type StorageConfig struct {
	Provider string         `mapstructure:"provider"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// PostgresConfig holds relational database parameters.
type PostgresConfig struct {
	DSN      string `mapstructure:"dsn"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// PubSubConfig holds metadata for scrape-completion notifications.
type PubSubConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// ArchiveConfig selects where raw page snapshots go.
type ArchiveConfig struct {
	Provider  string `mapstructure:"provider"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	Prefix    string `mapstructure:"prefix"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("JOBSCRAPER")
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
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.timeout_seconds", 300)
	v.SetDefault("scraper.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	v.SetDefault("scraper.max_pages_default", 3)
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.tab_timeout_seconds", 90)
	v.SetDefault("ai.backend_url", "http://localhost:3000")
	v.SetDefault("ai.provider", "gemini")
	v.SetDefault("ai.timeout_seconds", 45)
	v.SetDefault("storage.provider", "memory")
	v.SetDefault("archive.provider", "none")
	v.SetDefault("archive.prefix", "raw")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Server.TimeoutSeconds <= 0 {
		return fmt.Errorf("server.timeout_seconds must be > 0")
	}
	if c.Scraper.MaxPagesDefault <= 0 {
		return fmt.Errorf("scraper.max_pages_default must be > 0")
	}
	if c.AI.BackendURL == "" {
		return fmt.Errorf("ai.backend_url is required")
	}
	switch c.Storage.Provider {
	case "memory":
	case "redis":
		if c.Storage.Redis.Addr == "" {
			return fmt.Errorf("storage.redis.addr must be set when storage.provider is redis")
		}
	case "postgres":
		if c.Storage.Postgres.DSN == "" {
			return fmt.Errorf("storage.postgres.dsn must be set when storage.provider is postgres")
		}
	default:
		return fmt.Errorf("unknown storage.provider %q", c.Storage.Provider)
	}
	switch c.Archive.Provider {
	case "none", "memory":
	case "gcs":
		if c.Archive.GCSBucket == "" {
			return fmt.Errorf("archive.gcs_bucket must be set when archive.provider is gcs")
		}
	default:
		return fmt.Errorf("unknown archive.provider %q", c.Archive.Provider)
	}
	if c.PubSub.Enabled && (c.PubSub.ProjectID == "" || c.PubSub.TopicName == "") {
		return fmt.Errorf("pubsub.project_id and pubsub.topic_name must be set when pubsub is enabled")
	}
	return nil
}

// ServerTimeout converts the configured request budget into a duration.
func (c Config) ServerTimeout() time.Duration {
	return time.Duration(c.Server.TimeoutSeconds) * time.Second
}

// TabTimeout converts the browser tab budget into a duration.
func (c Config) TabTimeout() time.Duration {
	return time.Duration(c.Browser.TabTimeoutSec) * time.Second
}

// AITimeout converts the scoring call budget into a duration.
func (c Config) AITimeout() time.Duration {
	return time.Duration(c.AI.TimeoutSeconds) * time.Second
}
