package registry

import (
	"context"
	"sort"
	"sync"

	"github.com/randalmurphal/quarterdeck/pkg/quarterdeck/errors"
)

// Handler is the capability a registry dispatches to: it accepts a
// validated payload, may block on its own I/O, and either succeeds or
// fails. Handlers return no value.
type Handler func(ctx context.Context, payload map[string]any) error

// Metadata is the discovery record for a registered handler.
type Metadata struct {
	Name          string `json:"name"`
	Description   string `json:"description"`
	PayloadSchema Schema `json:"payload_schema"`
}

// RegisterOption configures a Register call.
type RegisterOption func(*registerConfig)

type registerConfig struct {
	description string
	schema      Schema
}

// WithDescription sets the human-readable description.
func WithDescription(description string) RegisterOption {
	return func(cfg *registerConfig) {
		cfg.description = description
	}
}

// WithSchema declares the payload schema validated before every dispatch.
func WithSchema(schema Schema) RegisterOption {
	return func(cfg *registerConfig) {
		cfg.schema = schema
	}
}

// Registry owns one name->handler mapping plus discovery metadata.
// Names are unique: registering a duplicate fails rather than silently
// overwriting, so plugins cannot clobber each other.
//
// Dispatch is lookup-then-call. Validation runs before the handler, so a
// bad payload never produces partial side effects from that invocation.
// Concurrent invocations of the same name are not serialized; a handler
// that is not idempotent must guard its own state.
type Registry struct {
	kind string

	mu       sync.RWMutex
	handlers map[string]Handler
	meta     map[string]Metadata
}

// New creates a registry whose entries are described as kind
// ("action", "signal") in errors and discovery.
func New(kind string) *Registry {
	return &Registry{
		kind:     kind,
		handlers: make(map[string]Handler),
		meta:     make(map[string]Metadata),
	}
}

// Kind returns the registry's entry kind.
func (r *Registry) Kind() string {
	return r.kind
}

// Register adds a named handler. Returns DuplicateNameError if name is
// already taken; the first registration stays active.
func (r *Registry) Register(name string, handler Handler, opts ...RegisterOption) error {
	cfg := &registerConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.schema == nil {
		cfg.schema = Schema{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.handlers[name]; exists {
		return errors.NewDuplicateName(r.kind, name)
	}

	r.handlers[name] = handler
	r.meta[name] = Metadata{
		Name:          name,
		Description:   cfg.description,
		PayloadSchema: cfg.schema,
	}
	return nil
}

// Entries lists the metadata of every registered handler, sorted by name.
func (r *Registry) Entries() []Metadata {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]Metadata, 0, len(r.meta))
	for _, m := range r.meta {
		entries = append(entries, m)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries
}

// Lookup returns the metadata for name, or NotFoundError.
func (r *Registry) Lookup(name string) (Metadata, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.meta[name]
	if !ok {
		return Metadata{}, errors.NewNotFound(r.kind, name)
	}
	return m, nil
}

// Invoke validates payload against the entry's schema and calls the
// handler. Unknown names fail with NotFoundError; validation failures
// with ValidationError, before the handler runs. Handler errors surface
// unchanged: the registry does not catch or retry.
func (r *Registry) Invoke(ctx context.Context, name string, payload map[string]any) error {
	r.mu.RLock()
	handler, ok := r.handlers[name]
	meta := r.meta[name]
	r.mu.RUnlock()

	if !ok {
		return errors.NewNotFound(r.kind, name)
	}
	if payload == nil {
		payload = map[string]any{}
	}

	validated, err := meta.PayloadSchema.Validate(payload)
	if err != nil {
		return err
	}

	return handler(ctx, validated)
}

// Actions is the registry of named commands clients invoke to cause side
// effects.
type Actions struct {
	*Registry
}

// NewActions creates an empty action registry.
func NewActions() *Actions {
	return &Actions{Registry: New("action")}
}

// Run validates and invokes the named action.
func (a *Actions) Run(ctx context.Context, name string, payload map[string]any) error {
	return a.Invoke(ctx, name, payload)
}

// Signals is the registry of named handlers for externally originated
// events such as webhooks.
type Signals struct {
	*Registry
}

// NewSignals creates an empty signal registry.
func NewSignals() *Signals {
	return &Signals{Registry: New("signal")}
}

// Handle validates and invokes the named signal handler.
func (s *Signals) Handle(ctx context.Context, name string, payload map[string]any) error {
	return s.Invoke(ctx, name, payload)
}
