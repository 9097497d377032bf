// Package plugin defines the registration entry point handed to plugins
// at startup. A plugin is a function that receives the Host, which holds
// references to the registries, state store, bus, and orchestrator, and
// registers its actions and signals against it. A DuplicateNameError
// during load indicates a
// misconfigured deployment and aborts startup.
package plugin

import (
	"fmt"
	"log/slog"

	"github.com/randalmurphal/quarterdeck/pkg/quarterdeck/event"
	"github.com/randalmurphal/quarterdeck/pkg/quarterdeck/orchestrator"
	"github.com/randalmurphal/quarterdeck/pkg/quarterdeck/registry"
	"github.com/randalmurphal/quarterdeck/pkg/quarterdeck/state"
)

// Host is the handle a plugin registers against. It carries references to
// the orchestrator-owned components; plugins never construct their own.
type Host struct {
	Actions      *registry.Actions
	Signals      *registry.Signals
	State        *state.Store
	Events       *event.Bus
	Orchestrator *orchestrator.Orchestrator
}

// RegisterFunc is a plugin's registration entry point.
type RegisterFunc func(h *Host) error

// NewHost builds the plugin host for an orchestrator.
func NewHost(o *orchestrator.Orchestrator) *Host {
	return &Host{
		Actions:      o.Actions(),
		Signals:      o.Signals(),
		State:        o.State(),
		Events:       o.Bus(),
		Orchestrator: o,
	}
}

// Load runs each plugin's registration function in order. The first
// failure, including any registration conflict, aborts the load and is
// returned.
func Load(h *Host, logger *slog.Logger, plugins ...RegisterFunc) error {
	if logger == nil {
		logger = slog.Default()
	}
	for i, register := range plugins {
		if err := register(h); err != nil {
			return fmt.Errorf("load plugin %d: %w", i, err)
		}
	}
	logger.Info("plugins loaded",
		slog.Int("plugins", len(plugins)),
		slog.Int("actions", len(h.Actions.Entries())),
		slog.Int("signals", len(h.Signals.Entries())),
	)
	return nil
}
