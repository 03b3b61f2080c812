// Package monitoring wires a process-wide Prometheus-backed OpenTelemetry
// meter provider and exposes its scrape handler, so instruments created
// elsewhere in the engine (engine/infra/postgres's pool gauges, the
// scheduler and collector loop counters) land on a real registry instead
// of the otel no-op default.
package monitoring

import (
	"context"
	"fmt"
	"net/http"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/miniflow/miniflow/pkg/config"
)

const meterName = "miniflow"

// Service owns the meter provider backing every metric instrument created
// under engine/infra and the HTTP handler that serves them to Prometheus.
type Service struct {
	meter    metric.Meter
	registry *prom.Registry
	provider *sdkmetric.MeterProvider
	handler  http.Handler
}

// Setup installs a Prometheus-backed meter provider as the process-wide
// otel.GetMeterProvider() and registers it globally, returning a Service
// whose Handler serves cfg.Path. If cfg.Enabled is false, the global
// provider is left untouched (the otel default no-op) and the returned
// Service's Handler always answers 404, so wiring it into a router is
// still safe either way.
func Setup(_ context.Context, cfg config.MonitoringConfig) (*Service, error) {
	if !cfg.Enabled {
		return &Service{
			meter:   noop.NewMeterProvider().Meter(meterName),
			handler: http.NotFoundHandler(),
		}, nil
	}

	registry := prom.NewRegistry()
	exporter, err := prometheus.New(prometheus.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("monitoring: create prometheus exporter: %w", err)
	}
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	return &Service{
		meter:    provider.Meter(meterName),
		registry: registry,
		provider: provider,
		handler:  promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	}, nil
}

// Meter returns the meter new instruments should register against.
func (s *Service) Meter() metric.Meter {
	if s == nil {
		return noop.NewMeterProvider().Meter(meterName)
	}
	return s.meter
}

// Handler serves the Prometheus text exposition format for the registry
// this Service installed, or a 404 handler when monitoring is disabled.
func (s *Service) Handler() http.Handler {
	if s == nil || s.handler == nil {
		return http.NotFoundHandler()
	}
	return s.handler
}

// Shutdown flushes and stops the underlying meter provider. Safe to call on
// a disabled Service.
func (s *Service) Shutdown(ctx context.Context) error {
	if s == nil || s.provider == nil {
		return nil
	}
	if err := s.provider.Shutdown(ctx); err != nil {
		return fmt.Errorf("monitoring: shutdown meter provider: %w", err)
	}
	return nil
}
