package event_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/quarterdeck/pkg/quarterdeck/event"
)

func TestNew(t *testing.T) {
	before := float64(time.Now().UnixNano()) / 1e9
	env := event.New("state.changed",
		event.Source{Kind: "state", ID: "camera.front_door.motion"},
		map[string]any{"key": "camera.front_door.motion"},
	)
	after := float64(time.Now().UnixNano()) / 1e9

	assert.Equal(t, "state.changed", env.Type)
	assert.Equal(t, event.Source{Kind: "state", ID: "camera.front_door.motion"}, env.Source)
	assert.Equal(t, "camera.front_door.motion", env.Payload["key"])
	assert.Equal(t, event.DefaultVersion, env.Version)
	assert.GreaterOrEqual(t, env.TS, before)
	assert.LessOrEqual(t, env.TS, after)
}

func TestNewNilPayload(t *testing.T) {
	env := event.New("ping", event.Source{Kind: "test", ID: "t"}, nil)
	require.NotNil(t, env.Payload)
	assert.Empty(t, env.Payload)
}

func TestNewOptions(t *testing.T) {
	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	env := event.New("ping", event.Source{Kind: "test", ID: "t"}, nil,
		event.WithTimestamp(at),
		event.WithVersion("2.0"),
	)

	assert.Equal(t, float64(at.Unix()), env.TS)
	assert.Equal(t, "2.0", env.Version)
}

func TestNewError(t *testing.T) {
	env := event.NewError("ValidationError", "missing required field(s)",
		event.Source{Kind: "api", ID: "actions.run"},
		map[string]any{"field": "room"},
	)

	assert.Equal(t, "error", env.Type)
	assert.Equal(t, "ValidationError", env.Payload["error_type"])
	assert.Equal(t, "missing required field(s)", env.Payload["message"])
	assert.Equal(t, map[string]any{"field": "room"}, env.Payload["details"])
}

func TestNewErrorNilDetails(t *testing.T) {
	env := event.NewError("InternalError", "boom", event.Source{Kind: "api", ID: "x"}, nil)
	assert.Equal(t, map[string]any{}, env.Payload["details"])
}

// The wire form is one JSON object per envelope with exactly the fields
// type, source, payload, ts, version.
func TestEnvelopeWireFields(t *testing.T) {
	env := event.New("agent.status_changed",
		event.Source{Kind: "agent", ID: "mock-1"},
		map[string]any{"agent": map[string]any{"id": "mock-1"}},
	)

	data, err := json.Marshal(env)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Len(t, decoded, 5)
	for _, field := range []string{"type", "source", "payload", "ts", "version"} {
		assert.Contains(t, decoded, field)
	}

	source, ok := decoded["source"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "agent", source["kind"])
	assert.Equal(t, "mock-1", source["id"])
}
