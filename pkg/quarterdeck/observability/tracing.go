package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Tracer is the quarterdeck tracer instance.
// Uses the global OTel tracer provider.
var tracer = otel.Tracer("quarterdeck")

// SpanManager handles trace span lifecycle.
// Use NewSpanManager() for OTel tracing or NoopSpanManager{} when disabled.
type SpanManager interface {
	// StartDispatchSpan starts a span for an action/signal dispatch.
	StartDispatchSpan(ctx context.Context, kind, name string) (context.Context, trace.Span)

	// StartStreamSpan starts a span covering one observer connection.
	StartStreamSpan(ctx context.Context, subscriberID string) (context.Context, trace.Span)

	// EndSpanWithError completes a span, optionally recording an error.
	EndSpanWithError(span trace.Span, err error)

	// AddSpanEvent adds an event to the current span in context.
	AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue)
}

// otelSpanManager implements SpanManager using OpenTelemetry.
type otelSpanManager struct{}

// NewSpanManager returns a SpanManager that uses OpenTelemetry.
//
// The span manager uses the global OTel tracer provider. Configure the
// provider before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetTracerProvider(yourProvider)
func NewSpanManager() SpanManager {
	return &otelSpanManager{}
}

// StartDispatchSpan starts a span for an action/signal dispatch.
func (m *otelSpanManager) StartDispatchSpan(ctx context.Context, kind, name string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "quarterdeck.dispatch",
		trace.WithAttributes(
			attribute.String("dispatch.kind", kind),
			attribute.String("dispatch.name", name),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// StartStreamSpan starts a span covering one observer connection.
func (m *otelSpanManager) StartStreamSpan(ctx context.Context, subscriberID string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "quarterdeck.stream",
		trace.WithAttributes(
			attribute.String("subscriber.id", subscriberID),
		),
		trace.WithSpanKind(trace.SpanKindServer),
	)
}

// EndSpanWithError completes a span, recording err when non-nil.
func (m *otelSpanManager) EndSpanWithError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// AddSpanEvent adds an event to the current span in context.
func (m *otelSpanManager) AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	span.AddEvent(name, trace.WithAttributes(attrs...))
}
