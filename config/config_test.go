package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"DB_DRIVER", "DB_DSN", "DB_DEBUG", "REDIS_ADDR", "CACHE_PREFIX", "CACHE_TTL",
		"OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_SERVICE_NAME", "OTEL_ENVIRONMENT",
		"METRICS_ADDR", "NATS_PORT", "LOG_LEVEL", "SHUTDOWN_TIMEOUT",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, "products.db", cfg.Database.DSN)
	assert.False(t, cfg.Database.Debug)
	assert.False(t, cfg.Cache.Enabled())
	assert.Equal(t, "product:", cfg.Cache.Prefix)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
	assert.Empty(t, cfg.Telemetry.OTLPEndpoint)
	assert.Equal(t, "product-catalog", cfg.Telemetry.ServiceName)
	assert.Equal(t, ":9090", cfg.Telemetry.MetricsAddr)
	assert.Equal(t, 4222, cfg.NATSPort)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DB_DSN", "postgres://catalog@localhost/catalog")
	t.Setenv("DB_DEBUG", "true")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("CACHE_TTL", "90s")
	t.Setenv("NATS_PORT", "4333")
	t.Setenv("LOG_LEVEL", "WARN")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, "postgres://catalog@localhost/catalog", cfg.Database.DSN)
	assert.True(t, cfg.Database.Debug)
	assert.True(t, cfg.Cache.Enabled())
	assert.Equal(t, 90*time.Second, cfg.Cache.TTL)
	assert.Equal(t, 4333, cfg.NATSPort)
	assert.Equal(t, LogLevelWarn, cfg.LogLevel)
}

func TestLoad_InvalidValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_DRIVER", "mysql")
	t.Setenv("NATS_PORT", "not-a-port")
	t.Setenv("CACHE_TTL", "soon")
	t.Setenv("LOG_LEVEL", "verbose")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `LOG_LEVEL: unsupported level "verbose"`)
	assert.Contains(t, err.Error(), "DB_DRIVER")
	assert.Contains(t, err.Error(), "NATS_PORT")
	assert.Contains(t, err.Error(), "CACHE_TTL")
}

func TestLoad_LogLevels(t *testing.T) {
	for _, level := range []string{LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError} {
		t.Run(level, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("LOG_LEVEL", level)

			cfg, err := Load()
			require.NoError(t, err)
			assert.Equal(t, level, cfg.LogLevel)
		})
	}
}
