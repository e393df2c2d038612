// Package config loads tracker configuration from YAML, .env files and
// TRACKER_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable (TRACKER_FEED_URL, ...).
const EnvPrefix = "TRACKER"

// FeedConfig holds websocket feed configuration
type FeedConfig struct {
	URL          string        `mapstructure:"url"`
	Chain        string        `mapstructure:"chain"`
	PingInterval time.Duration `mapstructure:"ping_interval"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
}

// XAPIConfig holds X GraphQL API configuration
type XAPIConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	Endpoint    string        `mapstructure:"endpoint"`
	BearerToken string        `mapstructure:"bearer_token"`
	CSRFToken   string        `mapstructure:"csrf_token"`
	Cookie      string        `mapstructure:"cookie"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// DatabaseConfig holds storage configuration. Empty DSNs select memory stores.
type DatabaseConfig struct {
	PostgresDSN   string `mapstructure:"postgres_dsn"`
	ClickhouseDSN string `mapstructure:"clickhouse_dsn"`
}

// WorkerConfig holds event dispatch configuration
type WorkerConfig struct {
	PoolSize  int `mapstructure:"pool_size"`  // number of pool-keyed shards
	QueueSize int `mapstructure:"queue_size"` // per-shard buffer
}

// ResolverConfig holds community resolver configuration
type ResolverConfig struct {
	MemoSize int `mapstructure:"memo_size"`
}

// Config holds configuration for the tracker binaries
type Config struct {
	Debug       bool           `mapstructure:"debug"`
	MetricsAddr string         `mapstructure:"metrics_addr"`
	Feed        FeedConfig     `mapstructure:"feed"`
	XAPI        XAPIConfig     `mapstructure:"x_api"`
	Database    DatabaseConfig `mapstructure:"database"`
	Worker      WorkerConfig   `mapstructure:"worker"`
	Resolver    ResolverConfig `mapstructure:"resolver"`
}

// Load reads configFile (optional), .env files under envPath and the
// environment, in increasing precedence.
func Load(configFile string, envPath string) (*Config, error) {
	v := configureViper(configFile, envPath)

	// Set defaults
	v.SetDefault("debug", false)
	v.SetDefault("metrics_addr", ":9090")
	v.SetDefault("feed.url", "wss://ws.mevx.io/api/v1/ws")
	v.SetDefault("feed.chain", "sol")
	v.SetDefault("feed.ping_interval", "30s")
	v.SetDefault("feed.read_timeout", "90s")
	v.SetDefault("x_api.base_url", "https://x.com/i/api/graphql")
	v.SetDefault("x_api.endpoint", "uBpODvS60xZ1q2L88d-W2A/CommunityQuery")
	v.SetDefault("x_api.timeout", "10s")
	v.SetDefault("worker.pool_size", 8)
	v.SetDefault("worker.queue_size", 256)
	v.SetDefault("resolver.memo_size", 4096)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
			// Config file not found, use environment variables
		} else {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values the binaries cannot run without.
func (c *Config) Validate() error {
	if c.Feed.URL == "" {
		return fmt.Errorf("feed.url is required")
	}
	if c.Worker.PoolSize < 1 {
		return fmt.Errorf("worker.pool_size must be >= 1, got %d", c.Worker.PoolSize)
	}
	if c.Worker.QueueSize < 0 {
		return fmt.Errorf("worker.queue_size must be >= 0, got %d", c.Worker.QueueSize)
	}
	if c.XAPI.Timeout <= 0 {
		return fmt.Errorf("x_api.timeout must be > 0, got %s", c.XAPI.Timeout)
	}
	return nil
}

// HasXCredentials reports whether admin lookups can authenticate.
func (c *XAPIConfig) HasXCredentials() bool {
	return c.BearerToken != "" && c.CSRFToken != "" && c.Cookie != ""
}

// configureViper returns a viper instance with the config file and environment variables set
func configureViper(configFile string, envPath string) *viper.Viper {
	v := viper.New()

	// Load environment variables
	loadEnv(envPath)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("config/")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindAllEnvVars(v)
	return v
}

// bindAllEnvVars explicitly binds every key so env-only setups unmarshal.
// The database DSN also honours the conventional DATABASE_URL.
func bindAllEnvVars(v *viper.Viper) {
	keys := []string{
		"debug",
		"metrics_addr",
		// Feed
		"feed.url",
		"feed.chain",
		"feed.ping_interval",
		"feed.read_timeout",
		// X API
		"x_api.base_url",
		"x_api.endpoint",
		"x_api.bearer_token",
		"x_api.csrf_token",
		"x_api.cookie",
		"x_api.timeout",
		// Database
		"database.clickhouse_dsn",
		// Worker
		"worker.pool_size",
		"worker.queue_size",
		// Resolver
		"resolver.memo_size",
	}

	for _, key := range keys {
		_ = v.BindEnv(key)
	}
	_ = v.BindEnv("database.postgres_dsn", EnvPrefix+"_DATABASE_POSTGRES_DSN", "DATABASE_URL")
}

// loadEnv loads .env then .env.local from envPath (default: current directory).
func loadEnv(envPath string) {
	for _, envFile := range []string{".env", ".env.local"} {
		_ = godotenv.Overload(filepath.Join(envPath, envFile)) // later files override earlier ones
	}
}
