package main

import (
	"context"
	"errors"
	"log"
	"os"

	"github.com/example/product-catalog/config"
	"github.com/example/product-catalog/modules/cache"
	"github.com/example/product-catalog/modules/metrics"
	"github.com/example/product-catalog/modules/product"
	"github.com/example/product-catalog/telemetry"
	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	app, err := mono.NewMonoApplication(
		mono.WithShutdownTimeout(cfg.ShutdownTimeout),
		mono.WithLogLevel(monoLogLevel(cfg.LogLevel)),
		mono.WithLogFormat(mono.LogFormatText),
		mono.WithNATSPort(cfg.NATSPort),
	)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}
	logger := app.Logger()

	tel, err := telemetry.Setup(context.Background(), cfg.Telemetry, logger.WithModule("telemetry"))
	if err != nil {
		log.Fatalf("Failed to initialize telemetry: %v", err)
	}

	productModule := product.NewModule(cfg.Database, logger.WithModule("product"))

	// Plugins start before and stop after regular modules; the product
	// module receives the cache through SetPlugin.
	var cachePlugin *cache.PluginModule
	if cfg.Cache.Enabled() {
		cachePlugin = cache.NewPluginModule(cfg.Cache, logger.WithModule("cache"))
		if err := app.RegisterPlugin(cachePlugin, "cache"); err != nil {
			log.Fatalf("Failed to register cache plugin: %v", err)
		}
	}

	if err := app.Register(productModule); err != nil {
		log.Fatalf("Failed to register product module: %v", err)
	}

	if cfg.Telemetry.MetricsAddr != "" {
		metricsModule := metrics.NewModule(cfg.Telemetry.MetricsAddr, tel.Registry, logger.WithModule("metrics"))
		metricsModule.AddHealthCheck("product", productModule)
		if cachePlugin != nil {
			metricsModule.AddHealthCheck("cache", cachePlugin)
		}
		if err := app.Register(metricsModule); err != nil {
			log.Fatalf("Failed to register metrics module: %v", err)
		}
	}

	if err := app.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	logger.Info("Product catalog started",
		"nats_port", cfg.NATSPort,
		"db_driver", cfg.Database.Driver,
		"cache", cfg.Cache.Enabled(),
		"metrics_addr", cfg.Telemetry.MetricsAddr)

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		cfg.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			// Telemetry flushes only after the app has drained.
			"mono-app": func(ctx context.Context) error {
				logger.Info("Graceful shutdown initiated")
				return stopInOrder(ctx, app.Stop, tel.Shutdown)
			},
		},
	)

	exitCode := <-wait
	log.Printf("Application exited with code: %d", exitCode)
	os.Exit(exitCode)
}

// monoLogLevel maps a validated LOG_LEVEL value to the mono level.
func monoLogLevel(level string) mono.LogLevel {
	switch level {
	case config.LogLevelDebug:
		return mono.LogLevelDebug
	case config.LogLevelWarn:
		return mono.LogLevelWarn
	case config.LogLevelError:
		return mono.LogLevelError
	default:
		return mono.LogLevelInfo
	}
}

// stopInOrder runs each stop after the previous one returns and joins
// their errors.
func stopInOrder(ctx context.Context, stops ...func(context.Context) error) error {
	var errs []error
	for _, stop := range stops {
		if err := stop(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
