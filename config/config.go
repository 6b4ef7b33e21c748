// Package config loads the service configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the top-level service configuration.
type Config struct {
	Database        DatabaseConfig
	Cache           CacheConfig
	Telemetry       TelemetryConfig
	NATSPort        int
	LogLevel        string
	ShutdownTimeout time.Duration
}

// DatabaseConfig selects and configures the relational store.
type DatabaseConfig struct {
	// Driver is "sqlite" or "postgres".
	Driver string
	// DSN is the SQLite file path or the PostgreSQL connection string.
	DSN string
	// Debug enables GORM SQL logging.
	Debug bool
}

// CacheConfig configures the Redis cache plugin.
type CacheConfig struct {
	// RedisAddr is host:port. Empty disables caching.
	RedisAddr string
	Prefix    string
	TTL       time.Duration
}

// Enabled reports whether a Redis address was configured.
func (c CacheConfig) Enabled() bool {
	return c.RedisAddr != ""
}

// TelemetryConfig configures tracing and metrics export.
type TelemetryConfig struct {
	// OTLPEndpoint is the collector gRPC endpoint. Empty disables OTLP export.
	OTLPEndpoint string
	ServiceName  string
	Environment  string
	// MetricsAddr is the listen address of the Prometheus endpoint. Empty disables it.
	MetricsAddr string
}

// Supported database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Supported log levels.
const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

// Load reads the configuration from the environment, applying defaults.
func Load() (*Config, error) {
	var errs []error

	cfg := &Config{
		Database: DatabaseConfig{
			Driver: getEnv("DB_DRIVER", DriverSQLite),
			DSN:    getEnv("DB_DSN", "products.db"),
			Debug:  getEnvBool("DB_DEBUG", false, &errs),
		},
		Cache: CacheConfig{
			RedisAddr: getEnv("REDIS_ADDR", ""),
			Prefix:    getEnv("CACHE_PREFIX", "product:"),
			TTL:       getEnvDuration("CACHE_TTL", 5*time.Minute, &errs),
		},
		Telemetry: TelemetryConfig{
			OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			ServiceName:  getEnv("OTEL_SERVICE_NAME", "product-catalog"),
			Environment:  getEnv("OTEL_ENVIRONMENT", "development"),
			MetricsAddr:  getEnv("METRICS_ADDR", ":9090"),
		},
		NATSPort:        getEnvInt("NATS_PORT", 4222, &errs),
		LogLevel:        strings.ToLower(getEnv("LOG_LEVEL", LogLevelInfo)),
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 30*time.Second, &errs),
	}

	switch cfg.Database.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER: unsupported driver %q", cfg.Database.Driver))
	}

	switch cfg.LogLevel {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
	default:
		errs = append(errs, fmt.Errorf("LOG_LEVEL: unsupported level %q", cfg.LogLevel))
	}

	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// getEnv returns environment variable value or default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int, errs *[]error) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return defaultValue
	}
	return n
}

func getEnvBool(key string, defaultValue bool, errs *[]error) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return defaultValue
	}
	return b
}

func getEnvDuration(key string, defaultValue time.Duration, errs *[]error) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return defaultValue
	}
	return d
}
