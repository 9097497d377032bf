package orchestrator

import (
	"context"

	"github.com/randalmurphal/quarterdeck/pkg/quarterdeck/event"
)

// Status is an agent lifecycle state.
type Status string

// Agent lifecycle states.
const (
	StatusIdle          Status = "idle"
	StatusRunning       Status = "running"
	StatusAwaitingInput Status = "awaiting_input"
	StatusError         Status = "error"
)

// Record is the orchestrator-owned view of an agent, published as the
// payload of every agent.status_changed envelope.
type Record struct {
	ID           string   `json:"id"`
	Type         string   `json:"type"`
	Status       Status   `json:"status"`
	Capabilities []string `json:"capabilities"`
}

// Notifier delivers an agent-originated envelope to the bus. The
// orchestrator attaches one at registration time.
type Notifier func(env event.Envelope)

// Agent is a long-lived worker the orchestrator tracks and routes
// commands to. Implementations publish their own lifecycle envelopes
// through the attached Notifier; internals beyond this contract are
// outside the core.
type Agent interface {
	ID() string
	Type() string
	Status() Status
	Capabilities() []string

	// Attach wires the agent's event emission to the bus. Called once,
	// before any command is routed to the agent.
	Attach(notify Notifier)

	Start(ctx context.Context) error
	Cancel(ctx context.Context) error
	ProvideInput(ctx context.Context, text string) error
}

// RecordOf snapshots an agent into its published record form.
func RecordOf(a Agent) Record {
	caps := a.Capabilities()
	if caps == nil {
		caps = []string{}
	}
	return Record{
		ID:           a.ID(),
		Type:         a.Type(),
		Status:       a.Status(),
		Capabilities: caps,
	}
}

// statusChanged builds the envelope published on every status transition.
func statusChanged(a Agent) event.Envelope {
	return event.New("agent.status_changed",
		event.Source{Kind: "agent", ID: a.ID()},
		map[string]any{"agent": RecordOf(a)},
	)
}
