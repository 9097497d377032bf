// Package observability provides structured logging, metrics, and
// tracing for quarterdeck.
//
// Features:
//   - Structured logging via slog (Go stdlib)
//   - Metrics via OpenTelemetry
//   - Tracing via OpenTelemetry
//
// All features are opt-in and have no-op implementations when disabled.
package observability

import (
	"log/slog"
	"os"
	"time"
)

// NewLogger builds the service's text logger at the given level.
func NewLogger(level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// EnrichLogger adds dispatch context to a logger. Returns a new logger
// with kind and name fields.
func EnrichLogger(logger *slog.Logger, kind, name string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(
		slog.String("kind", kind),
		slog.String("name", name),
	)
}

// LogDispatchStart logs the start of an action or signal dispatch.
func LogDispatchStart(logger *slog.Logger, kind, name string) {
	if logger == nil {
		return
	}
	logger.Debug("dispatch starting",
		slog.String("kind", kind),
		slog.String("name", name),
	)
}

// LogDispatchComplete logs a successful dispatch.
func LogDispatchComplete(logger *slog.Logger, kind, name string, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Debug("dispatch completed",
		slog.String("kind", kind),
		slog.String("name", name),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogDispatchError logs a failed dispatch.
func LogDispatchError(logger *slog.Logger, kind, name string, err error) {
	if logger == nil {
		return
	}
	logger.Error("dispatch failed",
		slog.String("kind", kind),
		slog.String("name", name),
		slog.String("error", err.Error()),
	)
}

// LogStateWrite logs a state mutation.
func LogStateWrite(logger *slog.Logger, key string, hasTTL bool) {
	if logger == nil {
		return
	}
	logger.Debug("state written",
		slog.String("key", key),
		slog.Bool("ttl", hasTTL),
	)
}

// TimedOperation measures the duration of an operation.
// Returns a function that, when called, returns the elapsed time in
// milliseconds.
func TimedOperation() func() float64 {
	start := time.Now()
	return func() float64 {
		return float64(time.Since(start).Milliseconds())
	}
}
