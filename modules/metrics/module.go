// Package metrics serves the Prometheus scrape endpoint and an aggregated
// health report over HTTP.
package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const healthTimeout = 5 * time.Second

// Module exposes /metrics and /health on a dedicated listener.
type Module struct {
	addr     string
	registry *prometheus.Registry
	logger   types.Logger

	mu       sync.RWMutex
	checks   map[string]mono.HealthCheckableModule
	server   *http.Server
	listener net.Listener
}

// Compile-time interface checks.
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
)

// NewModule creates a metrics module listening on addr and serving registry.
func NewModule(addr string, registry *prometheus.Registry, logger types.Logger) *Module {
	return &Module{
		addr:     addr,
		registry: registry,
		logger:   logger,
		checks:   make(map[string]mono.HealthCheckableModule),
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "metrics"
}

// AddHealthCheck includes a module in the /health report.
func (m *Module) AddHealthCheck(name string, check mono.HealthCheckableModule) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checks[name] = check
}

// Handler returns the HTTP handler serving the module routes.
func (m *Module) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)

	r.Get("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		Registry: m.registry,
	}).ServeHTTP)
	r.Get("/health", m.handleHealth)

	return otelhttp.NewHandler(r, "metrics-server",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return fmt.Sprintf("%s %s", r.Method, r.URL.Path)
		}),
	)
}

// Addr returns the bound listen address once started.
func (m *Module) Addr() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.listener == nil {
		return m.addr
	}
	return m.listener.Addr().String()
}

// Start binds the listener and serves in the background.
func (m *Module) Start(_ context.Context) error {
	ln, err := net.Listen("tcp", m.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", m.addr, err)
	}

	server := &http.Server{
		Handler:           m.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	m.mu.Lock()
	m.listener = ln
	m.server = server
	m.mu.Unlock()

	go func() {
		m.logger.Info("Metrics server starting", "addr", ln.Addr().String())
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error("Metrics server error", "error", err)
		}
	}()
	return nil
}

// Stop gracefully shuts down the HTTP server.
func (m *Module) Stop(ctx context.Context) error {
	m.mu.RLock()
	server := m.server
	m.mu.RUnlock()

	if server == nil {
		return nil
	}
	m.logger.Info("Shutting down metrics server")
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown metrics server: %w", err)
	}
	return nil
}

// Health reports whether the server is listening.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.server == nil {
		return mono.HealthStatus{Healthy: false, Message: "server not started"}
	}
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{"addr": m.listener.Addr().String()},
	}
}

type healthReport struct {
	Healthy bool                         `json:"healthy"`
	Modules map[string]mono.HealthStatus `json:"modules"`
}

func (m *Module) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	m.mu.RLock()
	checks := make(map[string]mono.HealthCheckableModule, len(m.checks))
	for name, c := range m.checks {
		checks[name] = c
	}
	m.mu.RUnlock()

	report := healthReport{Healthy: true, Modules: make(map[string]mono.HealthStatus, len(checks))}
	for name, c := range checks {
		status := c.Health(ctx)
		report.Modules[name] = status
		if !status.Healthy {
			report.Healthy = false
		}
	}

	code := http.StatusOK
	if !report.Healthy {
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(report); err != nil {
		m.logger.Warn("Failed to write health report", "error", err)
	}
}
