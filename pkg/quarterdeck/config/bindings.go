package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Binding maps one control-surface key to an action invocation and an
// optional state key whose value lights the key's indicator.
type Binding struct {
	Key          string         `json:"key"`
	Action       string         `json:"action"`
	Payload      map[string]any `json:"payload,omitempty"`
	IndicatorKey string         `json:"indicator_key,omitempty"`
}

// DefaultBindings is the binding set used when no bindings file is
// configured or the configured file does not exist.
var DefaultBindings = []Binding{
	{
		Key:          "front-door",
		Action:       "ui.open_url",
		Payload:      map[string]any{"url": "https://homeassistant.local"},
		IndicatorKey: "camera.front_door.motion",
	},
	{
		Key:     "mock-1-start",
		Action:  "agent.start",
		Payload: map[string]any{"agent_id": "mock-1"},
	},
}

// LoadBindings reads the JSON bindings file at path. An empty path or a
// missing file yields DefaultBindings; a malformed file is an error.
func LoadBindings(path string) ([]Binding, error) {
	if path == "" {
		return DefaultBindings, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultBindings, nil
		}
		return nil, fmt.Errorf("read bindings file: %w", err)
	}

	var bindings []Binding
	if err := json.Unmarshal(data, &bindings); err != nil {
		return nil, fmt.Errorf("parse bindings file %s: %w", path, err)
	}

	for i, b := range bindings {
		if b.Key == "" {
			return nil, fmt.Errorf("binding %d: missing key", i)
		}
		if b.Action == "" {
			return nil, fmt.Errorf("binding %d: missing action", i)
		}
	}
	return bindings, nil
}
