// Package orchestrator is the top-level composition root. It owns one
// event bus, one state store, and the action and signal registries, and
// tracks agent lifecycle. Agent status transitions are published as
// agent.status_changed envelopes carrying the full agent record.
package orchestrator
