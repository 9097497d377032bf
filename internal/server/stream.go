package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/randalmurphal/quarterdeck/pkg/quarterdeck/event"
)

// handleEvents serves the streaming endpoint: a long-lived connection
// that receives every envelope published after it subscribes, one JSON
// object per line. The connection is one bus subscription; a failed
// write unsubscribes it, and the client disconnecting does the same.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	// The sink runs on the subscription's delivery goroutine while this
	// handler goroutine waits; the mutex keeps writes off a torn-down
	// ResponseWriter after the handler returns, and holding it across
	// subscribe + WriteHeader keeps the first delivery behind the
	// response headers.
	var writeMu sync.Mutex
	gone := false
	defer func() {
		writeMu.Lock()
		gone = true
		writeMu.Unlock()
	}()

	writeMu.Lock()
	sub := s.orch.Bus().Subscribe(event.SinkFunc(func(env event.Envelope) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		if gone {
			return http.ErrHandlerTimeout
		}

		data, err := json.Marshal(env)
		if err != nil {
			return err
		}
		if _, err := w.Write(append(data, '\n')); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}))
	if sub == nil {
		writeMu.Unlock()
		http.Error(w, "subscriber limit reached", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()
	writeMu.Unlock()

	_, span := s.spans.StartStreamSpan(r.Context(), sub.ID())
	s.logger.Info("observer connected", slog.String("subscriber_id", sub.ID()))

	select {
	case <-r.Context().Done():
		sub.Unsubscribe()
	case <-sub.Done():
		// Removed by the bus: sink failure or backpressure disconnect.
	}

	s.spans.EndSpanWithError(span, nil)
	s.logger.Info("observer disconnected", slog.String("subscriber_id", sub.ID()))
}
