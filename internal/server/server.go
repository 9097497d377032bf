// Package server binds the quarterdeck core to HTTP. It translates
// requests into registry and orchestrator calls, maps the core's error
// kinds onto status codes, and streams published envelopes to long-lived
// observer connections as newline-delimited JSON.
//
// The server holds references to core components; it owns no state of
// its own beyond the listener.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	qerrors "github.com/randalmurphal/quarterdeck/pkg/quarterdeck/errors"
	"github.com/randalmurphal/quarterdeck/pkg/quarterdeck/event"
	"github.com/randalmurphal/quarterdeck/pkg/quarterdeck/observability"
	"github.com/randalmurphal/quarterdeck/pkg/quarterdeck/orchestrator"
)

// Server is the HTTP binding over one orchestrator.
type Server struct {
	orch    *orchestrator.Orchestrator
	logger  *slog.Logger
	metrics observability.MetricsRecorder
	spans   observability.SpanManager
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetrics sets the metrics recorder. Default: NoopMetrics.
func WithMetrics(m observability.MetricsRecorder) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithSpans sets the span manager. Default: NoopSpanManager.
func WithSpans(sm observability.SpanManager) Option {
	return func(s *Server) {
		s.spans = sm
	}
}

// New creates a server over the given orchestrator.
func New(orch *orchestrator.Orchestrator, opts ...Option) *Server {
	s := &Server{
		orch:    orch,
		logger:  slog.Default(),
		metrics: observability.NoopMetrics{},
		spans:   observability.NoopSpanManager{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run serves HTTP on addr until ctx is canceled, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	s.logger.Info("listening", slog.String("addr", addr))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// writeJSON encodes v as the response body with the given status.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Debug("response write failed", slog.String("error", err.Error()))
	}
}

// writeError maps a core error to its status code, writes the JSON error
// body, and publishes the standardized error envelope so the failure
// stays observable on the stream.
func (s *Server) writeError(w http.ResponseWriter, err error, sourceID string, details map[string]any) {
	kind := qerrors.Kind(err)

	status := http.StatusInternalServerError
	switch {
	case qerrors.IsNotFound(err):
		status = http.StatusNotFound
	case qerrors.IsValidation(err):
		status = http.StatusBadRequest
	}

	s.orch.Bus().Publish(event.NewError(kind, err.Error(),
		event.Source{Kind: "api", ID: sourceID}, details))

	if status == http.StatusInternalServerError {
		s.logger.Error("request failed",
			slog.String("source", sourceID),
			slog.String("error", err.Error()),
		)
	}

	s.writeJSON(w, status, map[string]any{
		"error":  kind,
		"detail": err.Error(),
	})
}

// decodePayload reads an optional JSON object body. An empty body is an
// empty payload; anything unparseable is a ValidationError.
func decodePayload(r *http.Request) (map[string]any, error) {
	payload := map[string]any{}
	if r.Body == nil {
		return payload, nil
	}
	err := json.NewDecoder(r.Body).Decode(&payload)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, qerrors.NewValidation("request body must be a JSON object")
	}
	return payload, nil
}
