package metrics

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// MeterName is the instrumentation scope of every license instrument.
const MeterName = "license-binding-server"

// LicenseMetrics counts license validations, lifecycle operations and notifications.
type LicenseMetrics struct {
	Validations   metric.Int64Counter
	Operations    metric.Int64Counter
	Notifications metric.Int64Counter
}

// InitializeLicenseMetrics creates all license instruments on meter.
func InitializeLicenseMetrics(meter metric.Meter) (*LicenseMetrics, error) {
	m := &LicenseMetrics{}

	var err error
	m.Validations, err = meter.Int64Counter(
		"license_validations",
		metric.WithDescription("License validation attempts by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create validations counter: %w", err)
	}

	m.Operations, err = meter.Int64Counter(
		"license_operations",
		metric.WithDescription("Completed license lifecycle operations by kind"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create operations counter: %w", err)
	}

	m.Notifications, err = meter.Int64Counter(
		"license_notifications",
		metric.WithDescription("Security and access notifications by event type"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create notifications counter: %w", err)
	}

	return m, nil
}

func (m *LicenseMetrics) RecordValidation(outcome string) {
	m.Validations.Add(context.Background(), 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (m *LicenseMetrics) RecordOperation(op string) {
	m.Operations.Add(context.Background(), 1, metric.WithAttributes(attribute.String("operation", op)))
}

// Notify counts a notification. It lets the metrics sit in a notifier fan-out.
func (m *LicenseMetrics) Notify(eventType, _, _ string) {
	m.Notifications.Add(context.Background(), 1, metric.WithAttributes(attribute.String("event_type", eventType)))
}

// Provider owns the meter provider backing the /metrics endpoint.
type Provider struct {
	MeterProvider *sdkmetric.MeterProvider
	Meter         metric.Meter
	Handler       http.Handler
}

// NewProvider wires an OpenTelemetry meter provider to a dedicated Prometheus registry.
func NewProvider() (*Provider, error) {
	registry := prometheus.NewRegistry()

	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	return &Provider{
		MeterProvider: mp,
		Meter:         mp.Meter(MeterName),
		Handler:       promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	}, nil
}

func (p *Provider) Shutdown(ctx context.Context) error {
	return p.MeterProvider.Shutdown(ctx)
}
