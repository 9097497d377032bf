package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records quarterdeck metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordPublish records one envelope published to the bus with the
	// subscriber count at publish time.
	RecordPublish(ctx context.Context, eventType string, subscribers int)

	// RecordDrop records an envelope dropped for a backlogged subscriber.
	RecordDrop(ctx context.Context, eventType string)

	// RecordDispatch records an action or signal dispatch with its
	// duration and error status.
	RecordDispatch(ctx context.Context, kind, name string, duration time.Duration, err error)

	// RecordStateWrite records a state store mutation.
	RecordStateWrite(ctx context.Context, expiring bool)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	published       metric.Int64Counter
	fanout          metric.Int64Histogram
	drops           metric.Int64Counter
	dispatches      metric.Int64Counter
	dispatchLatency metric.Float64Histogram
	dispatchErrors  metric.Int64Counter
	stateWrites     metric.Int64Counter
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

// getDefaultMetrics returns the default OTel metrics instance.
// Lazily initializes the metrics on first call.
func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

// newOtelMetrics creates a new OTel metrics instance.
func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("quarterdeck")

	published, err := meter.Int64Counter("quarterdeck.bus.published",
		metric.WithDescription("Number of envelopes published"),
	)
	if err != nil {
		return nil, err
	}

	fanout, err := meter.Int64Histogram("quarterdeck.bus.fanout",
		metric.WithDescription("Subscriber count at publish time"),
	)
	if err != nil {
		return nil, err
	}

	drops, err := meter.Int64Counter("quarterdeck.bus.drops",
		metric.WithDescription("Number of envelopes dropped for backlogged subscribers"),
	)
	if err != nil {
		return nil, err
	}

	dispatches, err := meter.Int64Counter("quarterdeck.dispatch.count",
		metric.WithDescription("Number of action/signal dispatches"),
	)
	if err != nil {
		return nil, err
	}

	dispatchLatency, err := meter.Float64Histogram("quarterdeck.dispatch.latency_ms",
		metric.WithDescription("Dispatch latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	dispatchErrors, err := meter.Int64Counter("quarterdeck.dispatch.errors",
		metric.WithDescription("Number of failed dispatches"),
	)
	if err != nil {
		return nil, err
	}

	stateWrites, err := meter.Int64Counter("quarterdeck.state.writes",
		metric.WithDescription("Number of state store writes"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		published:       published,
		fanout:          fanout,
		drops:           drops,
		dispatches:      dispatches,
		dispatchLatency: dispatchLatency,
		dispatchErrors:  dispatchErrors,
		stateWrites:     stateWrites,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses OpenTelemetry.
// If metrics initialization fails, returns a no-op recorder.
//
// The recorder uses the global OTel meter provider. Configure the provider
// before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

// RecordPublish records one published envelope.
func (m *otelMetrics) RecordPublish(ctx context.Context, eventType string, subscribers int) {
	attrs := []attribute.KeyValue{
		attribute.String("event_type", eventType),
	}
	m.published.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.fanout.Record(ctx, int64(subscribers), metric.WithAttributes(attrs...))
}

// RecordDrop records a dropped envelope.
func (m *otelMetrics) RecordDrop(ctx context.Context, eventType string) {
	m.drops.Add(ctx, 1, metric.WithAttributes(
		attribute.String("event_type", eventType),
	))
}

// RecordDispatch records an action or signal dispatch.
func (m *otelMetrics) RecordDispatch(ctx context.Context, kind, name string, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("kind", kind),
		attribute.String("name", name),
	}
	m.dispatches.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.dispatchLatency.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
	if err != nil {
		m.dispatchErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

// RecordStateWrite records a state store mutation.
func (m *otelMetrics) RecordStateWrite(ctx context.Context, expiring bool) {
	m.stateWrites.Add(ctx, 1, metric.WithAttributes(
		attribute.Bool("expiring", expiring),
	))
}
