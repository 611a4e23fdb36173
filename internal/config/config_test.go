package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/fluxao")
	t.Setenv("JWT_SECRET", "secret")

	cfg := Load()

	assert.Equal(t, "pgx", cfg.DatabaseDriver)
	assert.Equal(t, 100, cfg.MaxRequestsPerHour)
	assert.Equal(t, 50000, cfg.MaxTokensPerDay)
	assert.Equal(t, 2*time.Second, cfg.StoreTimeout())
	assert.Equal(t, time.Minute, cfg.MonitorInterval())
	assert.Equal(t, 7, cfg.LogRetentionDays)
	assert.Nil(t, cfg.CorsOrigins)
	assert.False(t, cfg.TrustProxyHeaders)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "file:test.db")
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("AI_MAX_REQUESTS_PER_HOUR", "25")
	t.Setenv("LOG_RETENTION_DAYS", "30")
	t.Setenv("CORS_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("STORE_TIMEOUT_MS", "not-a-number")
	t.Setenv("HTTP_TRUST_PROXY_HEADERS", "true")

	cfg := Load()

	assert.Equal(t, "sqlite", cfg.DatabaseDriver)
	assert.Equal(t, 25, cfg.MaxRequestsPerHour)
	assert.Equal(t, 7, cfg.LogRetentionDays)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CorsOrigins)
	assert.Equal(t, 2000, cfg.StoreTimeoutMs)
	assert.True(t, cfg.TrustProxyHeaders)
}

func TestLoad_MissingSecretPanics(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/fluxao")
	t.Setenv("JWT_SECRET", "")

	require.PanicsWithValue(t, "missing env var: JWT_SECRET", func() { Load() })
}
