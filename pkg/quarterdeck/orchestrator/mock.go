package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/randalmurphal/quarterdeck/pkg/quarterdeck/event"
)

// MockAgent simulates a simple lifecycle with input gating: running,
// awaiting input, running again, then idle. It exists for local
// development and tests; real agents implement the same Agent contract.
type MockAgent struct {
	id        string
	stepDelay time.Duration

	mu      sync.Mutex
	status  Status
	notify  Notifier
	input   chan string
	cancel  context.CancelFunc
	running bool
	gen     uint64
}

// MockOption configures a MockAgent.
type MockOption func(*MockAgent)

// WithStepDelay sets the simulated work duration per phase.
// Default: 500ms.
func WithStepDelay(d time.Duration) MockOption {
	return func(a *MockAgent) {
		a.stepDelay = d
	}
}

// NewMockAgent creates a mock agent. An empty id gets a generated one.
func NewMockAgent(id string, opts ...MockOption) *MockAgent {
	if id == "" {
		id = "mock-" + uuid.New().String()[:8]
	}
	a := &MockAgent{
		id:        id,
		stepDelay: 500 * time.Millisecond,
		status:    StatusIdle,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// ID implements Agent.
func (a *MockAgent) ID() string { return a.id }

// Type implements Agent.
func (a *MockAgent) Type() string { return "mock" }

// Capabilities implements Agent.
func (a *MockAgent) Capabilities() []string {
	return []string{"accepts_text", "cancellable"}
}

// Status implements Agent.
func (a *MockAgent) Status() Status {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.status
}

// Attach implements Agent.
func (a *MockAgent) Attach(notify Notifier) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.notify = notify
}

// Start launches one simulated run. Starting an already running agent is
// a no-op.
func (a *MockAgent) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return nil
	}
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	// Each run gets its own generation; a superseded run recognizes the
	// mismatch and leaves its successor's bookkeeping alone.
	a.gen++
	gen := a.gen
	a.running = true
	a.cancel = cancel
	a.input = make(chan string, 1)
	input := a.input
	a.mu.Unlock()

	go a.run(runCtx, gen, input)
	return nil
}

// Cancel stops the current run, returning the agent to idle. The
// canceled run's generation is retired immediately, so a restart right
// after Cancel cannot have its bookkeeping or status clobbered by the
// old run goroutine winding down.
func (a *MockAgent) Cancel(ctx context.Context) error {
	a.mu.Lock()
	cancel := a.cancel
	if cancel != nil {
		a.gen++
		a.cancel = nil
		a.running = false
		a.status = StatusIdle
	}
	a.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()

	a.emit(statusChanged(a))
	a.emit(event.New("agent.cancelled",
		event.Source{Kind: "agent", ID: a.id},
		map[string]any{"agent": RecordOf(a)},
	))
	return nil
}

// ProvideInput unblocks an agent awaiting input. Input sent in any other
// state is ignored.
func (a *MockAgent) ProvideInput(ctx context.Context, text string) error {
	a.mu.Lock()
	if a.status != StatusAwaitingInput || a.input == nil {
		a.mu.Unlock()
		return nil
	}
	input := a.input
	a.mu.Unlock()

	select {
	case input <- text:
	default:
	}

	a.emit(event.New("agent.input_received",
		event.Source{Kind: "agent", ID: a.id},
		map[string]any{"agent": RecordOf(a), "input": text},
	))
	return nil
}

func (a *MockAgent) run(ctx context.Context, gen uint64, input <-chan string) {
	defer a.finish(gen)

	a.setStatus(gen, StatusRunning)
	if !a.sleep(ctx) {
		return
	}

	a.setStatus(gen, StatusAwaitingInput)
	select {
	case <-input:
	case <-ctx.Done():
		return
	}

	a.setStatus(gen, StatusRunning)
	if !a.sleep(ctx) {
		return
	}

	if a.setStatus(gen, StatusIdle) {
		a.emit(event.New("agent.completed",
			event.Source{Kind: "agent", ID: a.id},
			map[string]any{"agent": RecordOf(a)},
		))
	}
}

// finish releases run bookkeeping, unless the run was superseded by a
// cancel or restart while winding down.
func (a *MockAgent) finish(gen uint64) {
	a.mu.Lock()
	if a.gen == gen {
		a.running = false
		a.cancel = nil
	}
	a.mu.Unlock()
}

func (a *MockAgent) sleep(ctx context.Context) bool {
	select {
	case <-time.After(a.stepDelay):
		return true
	case <-ctx.Done():
		return false
	}
}

// setStatus records status and emits agent.status_changed. It reports
// false without mutating anything when the run identified by gen is no
// longer current.
func (a *MockAgent) setStatus(gen uint64, status Status) bool {
	a.mu.Lock()
	if a.gen != gen {
		a.mu.Unlock()
		return false
	}
	a.status = status
	a.mu.Unlock()
	a.emit(statusChanged(a))
	return true
}

func (a *MockAgent) emit(env event.Envelope) {
	a.mu.Lock()
	notify := a.notify
	a.mu.Unlock()
	if notify != nil {
		notify(env)
	}
}
