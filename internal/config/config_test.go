package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.AppEnv)
	assert.Equal(t, "8080", cfg.HttpServer.Port)
	assert.Equal(t, 15*time.Second, cfg.HttpServer.TimeoutRead)
	assert.Equal(t, "memory", cfg.Storage.Backend)
	assert.Equal(t, 30*time.Minute, cfg.Storage.SessionIdleTTL)
	assert.Equal(t, 100, cfg.Remote.FetchSize)
	assert.Equal(t, "IND", cfg.Catalog.DisplaySizeSystem)
	assert.Equal(t, 10, cfg.Catalog.DefaultStock)
	assert.Empty(t, cfg.Remote.BaseURL)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "Redis")
	t.Setenv("REDIS_ADDR", "cache:6379")
	t.Setenv("REMOTE_BASE_URL", "https://api.example.com")
	t.Setenv("REMOTE_RETRIES", "4")
	t.Setenv("CATALOG_DEFAULT_STOCK", "3")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "redis", cfg.Storage.Backend)
	assert.Equal(t, "cache:6379", cfg.Redis.Addr)
	assert.Equal(t, "https://api.example.com", cfg.Remote.BaseURL)
	assert.Equal(t, 4, cfg.Remote.Retries)
	assert.Equal(t, 3, cfg.Catalog.DefaultStock)
}

func TestLoad_InvalidBackend(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "floppy")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STORAGE_BACKEND")
}

func TestLoad_SessionIdleTTLMustOutlastRequests(t *testing.T) {
	t.Setenv("SESSION_IDLE_TTL", "30s")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SESSION_IDLE_TTL")
}

func TestPostgresConfig_DSN(t *testing.T) {
	pc := PostgresConfig{Host: "db", Port: "5432", User: "u", Password: "p", DBName: "shop", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=shop sslmode=disable", pc.DSN())
}
