package event

import (
	"time"
)

// DefaultVersion is the envelope schema version stamped on new envelopes.
const DefaultVersion = "1.0"

// Source attributes an envelope to its origin.
type Source struct {
	Kind string `json:"kind"`
	ID   string `json:"id"`
}

// Envelope is the versioned, attributed wrapper around every published
// event. Envelopes are immutable once constructed.
type Envelope struct {
	Type    string         `json:"type"`
	Source  Source         `json:"source"`
	Payload map[string]any `json:"payload"`
	TS      float64        `json:"ts"`
	Version string         `json:"version"`
}

// Option configures envelope construction.
type Option func(*envelopeConfig)

type envelopeConfig struct {
	timestamp time.Time
	version   string
}

// WithTimestamp sets a specific timestamp (default: time.Now()).
func WithTimestamp(t time.Time) Option {
	return func(cfg *envelopeConfig) {
		cfg.timestamp = t
	}
}

// WithVersion overrides the schema version.
func WithVersion(v string) Option {
	return func(cfg *envelopeConfig) {
		cfg.version = v
	}
}

// New builds an envelope with the given type, source attribution, and
// payload. The timestamp is seconds since epoch, set at construction.
// A nil payload is normalized to an empty map so the wire form always
// carries a payload object.
func New(eventType string, source Source, payload map[string]any, opts ...Option) Envelope {
	cfg := &envelopeConfig{
		timestamp: time.Now(),
		version:   DefaultVersion,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	if payload == nil {
		payload = map[string]any{}
	}

	return Envelope{
		Type:    eventType,
		Source:  source,
		Payload: payload,
		TS:      float64(cfg.timestamp.UnixNano()) / 1e9,
		Version: cfg.version,
	}
}

// NewError builds the standardized "error" envelope published whenever a
// handler failure must stay observable.
func NewError(errType, message string, source Source, details map[string]any, opts ...Option) Envelope {
	if details == nil {
		details = map[string]any{}
	}
	return New("error", source, map[string]any{
		"error_type": errType,
		"message":    message,
		"details":    details,
	}, opts...)
}
