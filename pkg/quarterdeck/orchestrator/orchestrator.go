package orchestrator

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/randalmurphal/quarterdeck/pkg/quarterdeck/errors"
	"github.com/randalmurphal/quarterdeck/pkg/quarterdeck/event"
	"github.com/randalmurphal/quarterdeck/pkg/quarterdeck/registry"
	"github.com/randalmurphal/quarterdeck/pkg/quarterdeck/state"
)

// Config configures an Orchestrator and the components it owns.
type Config struct {
	// Bus configures the owned event bus.
	Bus event.BusConfig

	// Store configures the owned state store.
	Store state.StoreConfig

	// Logger receives orchestrator diagnostics. Default: slog.Default().
	Logger *slog.Logger
}

// Orchestrator is the composition root: it owns one event bus, one state
// store, and the action and signal registries, and tracks agent
// lifecycle. Handlers and the transport layer receive these instances by
// reference; there are no ambient singletons, so tests construct isolated
// orchestrators per case.
type Orchestrator struct {
	bus     *event.Bus
	store   *state.Store
	actions *registry.Actions
	signals *registry.Signals
	logger  *slog.Logger

	mu     sync.RWMutex
	agents map[string]Agent
}

// New builds an orchestrator with its owned components wired together and
// the default agent actions registered.
func New(config Config) *Orchestrator {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if config.Bus.Logger == nil {
		config.Bus.Logger = logger
	}
	if config.Store.Logger == nil {
		config.Store.Logger = logger
	}

	bus := event.NewBus(config.Bus)
	o := &Orchestrator{
		bus:     bus,
		store:   state.NewStore(bus, config.Store),
		actions: registry.NewActions(),
		signals: registry.NewSignals(),
		logger:  logger,
		agents:  make(map[string]Agent),
	}
	o.registerDefaultActions()
	return o
}

// Bus returns the owned event bus.
func (o *Orchestrator) Bus() *event.Bus { return o.bus }

// State returns the owned state store.
func (o *Orchestrator) State() *state.Store { return o.store }

// Actions returns the owned action registry.
func (o *Orchestrator) Actions() *registry.Actions { return o.actions }

// Signals returns the owned signal registry.
func (o *Orchestrator) Signals() *registry.Signals { return o.signals }

// RegisterAgent adds an agent and attaches its event emission to the bus.
// Registering an id twice fails with DuplicateNameError.
func (o *Orchestrator) RegisterAgent(agent Agent) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	id := agent.ID()
	if _, exists := o.agents[id]; exists {
		return errors.NewDuplicateName("agent", id)
	}

	agent.Attach(o.bus.Publish)
	o.agents[id] = agent
	o.logger.Info("agent registered",
		slog.String("agent_id", id),
		slog.String("agent_type", agent.Type()),
	)
	return nil
}

// ListAgents returns the records of all registered agents, sorted by id.
func (o *Orchestrator) ListAgents() []Record {
	o.mu.RLock()
	defer o.mu.RUnlock()

	records := make([]Record, 0, len(o.agents))
	for _, agent := range o.agents {
		records = append(records, RecordOf(agent))
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	return records
}

// Agent returns the registered agent for id, or NotFoundError.
func (o *Orchestrator) Agent(id string) (Agent, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	agent, ok := o.agents[id]
	if !ok {
		return nil, errors.NewNotFound("agent", id)
	}
	return agent, nil
}

// StartAgent starts the agent with the given id.
func (o *Orchestrator) StartAgent(ctx context.Context, id string) error {
	agent, err := o.Agent(id)
	if err != nil {
		return err
	}
	return agent.Start(ctx)
}

// CancelAgent cancels the agent with the given id.
func (o *Orchestrator) CancelAgent(ctx context.Context, id string) error {
	agent, err := o.Agent(id)
	if err != nil {
		return err
	}
	return agent.Cancel(ctx)
}

// SendInput routes input text to the agent with the given id.
func (o *Orchestrator) SendInput(ctx context.Context, id, text string) error {
	agent, err := o.Agent(id)
	if err != nil {
		return err
	}
	return agent.ProvideInput(ctx, text)
}

// registerDefaultActions wires the built-in agent commands. Registration
// cannot conflict here because the registries are empty at this point.
func (o *Orchestrator) registerDefaultActions() {
	agentIDSchema := registry.Schema{
		"agent_id": {Type: registry.TypeString, Required: true},
	}

	_ = o.actions.Register("agent.start",
		func(ctx context.Context, payload map[string]any) error {
			return o.StartAgent(ctx, payload["agent_id"].(string))
		},
		registry.WithDescription("Start an agent by ID"),
		registry.WithSchema(agentIDSchema),
	)

	_ = o.actions.Register("agent.cancel",
		func(ctx context.Context, payload map[string]any) error {
			return o.CancelAgent(ctx, payload["agent_id"].(string))
		},
		registry.WithDescription("Cancel a running agent by ID"),
		registry.WithSchema(agentIDSchema),
	)

	_ = o.actions.Register("agent.input",
		func(ctx context.Context, payload map[string]any) error {
			return o.SendInput(ctx, payload["agent_id"].(string), payload["text"].(string))
		},
		registry.WithDescription("Provide input text to an agent"),
		registry.WithSchema(registry.Schema{
			"agent_id": {Type: registry.TypeString, Required: true},
			"text":     {Type: registry.TypeString, Required: true},
		}),
	)
}

// Close shuts down the owned bus and disconnects all subscribers.
func (o *Orchestrator) Close() {
	o.bus.Close()
}
