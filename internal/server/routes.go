package server

import (
	"net/http"
	"time"

	"github.com/randalmurphal/quarterdeck/pkg/quarterdeck/observability"
)

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)

	mux.HandleFunc("GET /actions", s.handleListActions)
	mux.HandleFunc("GET /actions/{name}", s.handleActionMetadata)
	mux.HandleFunc("POST /actions/{name}/run", s.handleRunAction)

	mux.HandleFunc("GET /signals", s.handleListSignals)
	mux.HandleFunc("GET /signals/{name}", s.handleSignalMetadata)
	mux.HandleFunc("POST /signals/{name}", s.handleSignal)

	mux.HandleFunc("GET /state", s.handleListState)
	mux.HandleFunc("GET /state/{key}", s.handleGetState)

	mux.HandleFunc("GET /agents", s.handleListAgents)
	mux.HandleFunc("POST /agents/{id}/start", s.handleStartAgent)
	mux.HandleFunc("POST /agents/{id}/cancel", s.handleCancelAgent)
	mux.HandleFunc("POST /agents/{id}/input", s.handleAgentInput)

	mux.HandleFunc("GET /events", s.handleEvents)

	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"subscribers": s.orch.Bus().SubscriberCount(),
	})
}

func (s *Server) handleListActions(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"actions": s.orch.Actions().Entries(),
	})
}

func (s *Server) handleActionMetadata(w http.ResponseWriter, r *http.Request) {
	meta, err := s.orch.Actions().Lookup(r.PathValue("name"))
	if err != nil {
		s.writeError(w, err, "actions.get", nil)
		return
	}
	s.writeJSON(w, http.StatusOK, meta)
}

func (s *Server) handleRunAction(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	payload, err := decodePayload(r)
	if err != nil {
		s.writeError(w, err, "actions.run", map[string]any{"action_name": name})
		return
	}

	s.dispatch(w, r, "action", name, payload, func() error {
		return s.orch.Actions().Run(r.Context(), name, payload)
	})
}

func (s *Server) handleListSignals(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"signals": s.orch.Signals().Entries(),
	})
}

func (s *Server) handleSignalMetadata(w http.ResponseWriter, r *http.Request) {
	meta, err := s.orch.Signals().Lookup(r.PathValue("name"))
	if err != nil {
		s.writeError(w, err, "signals.get", nil)
		return
	}
	s.writeJSON(w, http.StatusOK, meta)
}

func (s *Server) handleSignal(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	payload, err := decodePayload(r)
	if err != nil {
		s.writeError(w, err, "signals.handle", map[string]any{"signal_name": name})
		return
	}

	s.dispatch(w, r, "signal", name, payload, func() error {
		return s.orch.Signals().Handle(r.Context(), name, payload)
	})
}

// dispatch runs one action or signal invocation with logging, metrics,
// and a trace span around it.
func (s *Server) dispatch(w http.ResponseWriter, r *http.Request, kind, name string, payload map[string]any, invoke func() error) {
	ctx, span := s.spans.StartDispatchSpan(r.Context(), kind, name)
	done := observability.TimedOperation()
	observability.LogDispatchStart(s.logger, kind, name)

	err := invoke()

	elapsed := done()
	s.metrics.RecordDispatch(ctx, kind, name, durationMs(elapsed), err)
	s.spans.EndSpanWithError(span, err)

	if err != nil {
		observability.LogDispatchError(s.logger, kind, name, err)
		s.writeError(w, err, kind+"s.dispatch", map[string]any{
			"name":    name,
			"payload": payload,
		})
		return
	}

	observability.LogDispatchComplete(s.logger, kind, name, elapsed)
	s.writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) handleListState(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"state": s.orch.State().List(),
	})
}

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	entry, err := s.orch.State().Get(r.PathValue("key"))
	if err != nil {
		s.writeError(w, err, "state.get", nil)
		return
	}
	s.writeJSON(w, http.StatusOK, entry)
}

func (s *Server) handleListAgents(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"agents": s.orch.ListAgents(),
	})
}

func (s *Server) handleStartAgent(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.orch.StartAgent(r.Context(), id); err != nil {
		s.writeError(w, err, "agents.start", map[string]any{"agent_id": id})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"status": "started"})
}

func (s *Server) handleCancelAgent(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.orch.CancelAgent(r.Context(), id); err != nil {
		s.writeError(w, err, "agents.cancel", map[string]any{"agent_id": id})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"status": "cancelled"})
}

func (s *Server) handleAgentInput(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	payload, err := decodePayload(r)
	if err != nil {
		s.writeError(w, err, "agents.input", map[string]any{"agent_id": id})
		return
	}
	text, _ := payload["text"].(string)

	if err := s.orch.SendInput(r.Context(), id, text); err != nil {
		s.writeError(w, err, "agents.input", map[string]any{"agent_id": id})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"status": "input_sent"})
}

func durationMs(ms float64) time.Duration {
	return time.Duration(ms * float64(time.Millisecond))
}
