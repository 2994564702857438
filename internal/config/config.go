package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds the application's configuration values.
// Tags like `envconfig:"APP_PORT"` specify the environment variable name.
// `default:""` provides a default value if the env var is not set.
type Config struct {
	AppEnv     string `envconfig:"APP_ENV" default:"development"` // e.g., development, staging, production
	LogLevel   string `envconfig:"LOG_LEVEL" default:"info"`      // e.g., debug, info, warn, error
	LogFormat  string `envconfig:"LOG_FORMAT" default:"text"`     // text or json
	HttpServer ServerConfig
	GrpcServer GrpcServerConfig
	Storage    StorageConfig
	Postgres   PostgresConfig
	Redis      RedisConfig
	Remote     RemoteConfig
	Catalog    CatalogConfig
}

// ServerConfig holds HTTP server-specific configurations.
type ServerConfig struct {
	Port         string        `envconfig:"HTTP_SERVER_PORT" default:"8080"`
	TimeoutRead  time.Duration `envconfig:"HTTP_SERVER_TIMEOUT_READ" default:"15s"`
	TimeoutWrite time.Duration `envconfig:"HTTP_SERVER_TIMEOUT_WRITE" default:"15s"`
	TimeoutIdle  time.Duration `envconfig:"HTTP_SERVER_TIMEOUT_IDLE" default:"60s"`
}

// GrpcServerConfig holds gRPC server-specific configurations.
type GrpcServerConfig struct {
	Port    string `envconfig:"GRPC_SERVER_PORT" default:"9090"`
	Enabled bool   `envconfig:"GRPC_SERVER_ENABLED" default:"true"`
}

// StorageConfig selects where cart and wishlist slots are persisted.
type StorageConfig struct {
	Backend string `envconfig:"STORAGE_BACKEND" default:"memory"` // memory, postgres or redis
	// SessionIdleTTL is how long an unused session stays cached in memory.
	SessionIdleTTL time.Duration `envconfig:"SESSION_IDLE_TTL" default:"30m"`
}

// PostgresConfig holds PostgreSQL database connection details.
// Only read when STORAGE_BACKEND=postgres.
type PostgresConfig struct {
	Host     string `envconfig:"POSTGRES_HOST" default:"localhost"`
	Port     string `envconfig:"POSTGRES_PORT" default:"5432"`
	User     string `envconfig:"POSTGRES_USER" default:"postgres"`
	Password string `envconfig:"POSTGRES_PASSWORD"`
	DBName   string `envconfig:"POSTGRES_DBNAME" default:"storefront"`
	SSLMode  string `envconfig:"POSTGRES_SSLMODE" default:"disable"`
}

// DSN constructs the Data Source Name string for connecting to PostgreSQL.
func (pc *PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		pc.Host, pc.Port, pc.User, pc.Password, pc.DBName, pc.SSLMode)
}

// RedisConfig holds Redis connection details. Only read when STORAGE_BACKEND=redis.
type RedisConfig struct {
	Addr     string        `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	Password string        `envconfig:"REDIS_PASSWORD"`
	DB       int           `envconfig:"REDIS_DB" default:"0"`
	Prefix   string        `envconfig:"REDIS_PREFIX" default:"storefront:"`
	SlotTTL  time.Duration `envconfig:"REDIS_SLOT_TTL" default:"720h"`
}

// RemoteConfig describes the upstream product API. An empty BaseURL disables it.
type RemoteConfig struct {
	BaseURL   string        `envconfig:"REMOTE_BASE_URL"`
	Timeout   time.Duration `envconfig:"REMOTE_TIMEOUT" default:"10s"`
	Retries   int           `envconfig:"REMOTE_RETRIES" default:"2"`
	RateLimit float64       `envconfig:"REMOTE_RATE_LIMIT" default:"20"` // requests per second
	Burst     int           `envconfig:"REMOTE_BURST" default:"5"`
	FetchSize int           `envconfig:"REMOTE_FETCH_SIZE" default:"100"`
}

// CatalogConfig controls local catalog data and normalization.
type CatalogConfig struct {
	MockPath          string `envconfig:"CATALOG_MOCK_PATH"` // empty uses the embedded catalog
	DisplaySizeSystem string `envconfig:"CATALOG_DISPLAY_SIZE_SYSTEM" default:"IND"`
	DefaultStock      int    `envconfig:"CATALOG_DEFAULT_STOCK" default:"10"`
}

// Load initializes the configuration from environment variables.
// It should be called once during application startup.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values envconfig cannot express in tags.
func (c *Config) Validate() error {
	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	switch c.Storage.Backend {
	case "memory", "postgres", "redis":
	default:
		return fmt.Errorf("invalid STORAGE_BACKEND: %q (expected memory|postgres|redis)", c.Storage.Backend)
	}
	if c.Storage.Backend == "postgres" && c.Postgres.Host == "" {
		return fmt.Errorf("POSTGRES_HOST is required when STORAGE_BACKEND=postgres")
	}
	if c.Storage.SessionIdleTTL < 2*time.Minute {
		return fmt.Errorf("invalid SESSION_IDLE_TTL: %s (minimum 2m)", c.Storage.SessionIdleTTL)
	}
	if c.Remote.FetchSize <= 0 {
		c.Remote.FetchSize = 100
	}
	if c.Remote.Retries < 0 {
		c.Remote.Retries = 0
	}
	if c.Catalog.DefaultStock < 0 {
		return fmt.Errorf("invalid CATALOG_DEFAULT_STOCK: %d", c.Catalog.DefaultStock)
	}
	return nil
}
