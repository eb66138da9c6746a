package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
)

// Observability records submission pipeline metrics through OpenTelemetry,
// exported on the default Prometheus registry.
type Observability struct {
	meterProvider *metric.MeterProvider
	meter         otelmetric.Meter
	leadCounter   otelmetric.Int64Counter
	leadDuration  otelmetric.Float64Histogram
}

func New(serviceName string) (*Observability, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return &Observability{}, fmt.Errorf("create prometheus exporter: %w", err)
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter(serviceName)

	leadCounter, err := meter.Int64Counter(
		"leads.processed",
		otelmetric.WithDescription("Number of lead submissions processed"),
	)
	if err != nil {
		return &Observability{}, err
	}

	leadDuration, err := meter.Float64Histogram(
		"leads.duration",
		otelmetric.WithDescription("Lead submission processing duration"),
		otelmetric.WithUnit("ms"),
	)
	if err != nil {
		return &Observability{}, err
	}

	return &Observability{
		meterProvider: provider,
		meter:         meter,
		leadCounter:   leadCounter,
		leadDuration:  leadDuration,
	}, nil
}

// RecordLead counts one processed submission. A nil receiver is a no-op.
func (o *Observability) RecordLead(ctx context.Context, form, outcome string, duration time.Duration) {
	if o == nil {
		return
	}
	attrs := otelmetric.WithAttributes(
		attribute.String("form", form),
		attribute.String("outcome", outcome),
	)
	if o.leadCounter != nil {
		o.leadCounter.Add(ctx, 1, attrs)
	}
	if o.leadDuration != nil {
		o.leadDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
	}
}

func (o *Observability) Shutdown(ctx context.Context) error {
	if o == nil || o.meterProvider == nil {
		return nil
	}
	return o.meterProvider.Shutdown(ctx)
}
