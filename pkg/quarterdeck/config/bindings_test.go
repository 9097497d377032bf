package config_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/quarterdeck/pkg/quarterdeck/config"
)

func TestLoadBindingsEmptyPath(t *testing.T) {
	bindings, err := config.LoadBindings("")
	require.NoError(t, err)
	assert.Equal(t, config.DefaultBindings, bindings)
}

func TestLoadBindingsMissingFile(t *testing.T) {
	bindings, err := config.LoadBindings(filepath.Join(t.TempDir(), "bindings.json"))
	require.NoError(t, err)
	assert.Equal(t, config.DefaultBindings, bindings)
}

func TestLoadBindingsFromFile(t *testing.T) {
	path := writeFile(t, "bindings.json", `[
  {
    "key": "garage",
    "action": "ui.open_url",
    "payload": {"url": "http://garage.local"},
    "indicator_key": "camera.garage.motion"
  },
  {
    "key": "mock-2-start",
    "action": "agent.start",
    "payload": {"agent_id": "mock-2"}
  }
]`)

	bindings, err := config.LoadBindings(path)
	require.NoError(t, err)
	require.Len(t, bindings, 2)

	assert.Equal(t, "garage", bindings[0].Key)
	assert.Equal(t, "ui.open_url", bindings[0].Action)
	assert.Equal(t, map[string]any{"url": "http://garage.local"}, bindings[0].Payload)
	assert.Equal(t, "camera.garage.motion", bindings[0].IndicatorKey)

	assert.Equal(t, "mock-2-start", bindings[1].Key)
	assert.Empty(t, bindings[1].IndicatorKey)
}

func TestLoadBindingsMalformed(t *testing.T) {
	path := writeFile(t, "bindings.json", `{"not": "an array"}`)

	_, err := config.LoadBindings(path)
	assert.ErrorContains(t, err, "parse bindings file")
}

func TestLoadBindingsValidates(t *testing.T) {
	missingKey := writeFile(t, "missing_key.json", `[{"action": "ui.open_url"}]`)
	_, err := config.LoadBindings(missingKey)
	assert.ErrorContains(t, err, "missing key")

	missingAction := writeFile(t, "missing_action.json", `[{"key": "garage"}]`)
	_, err = config.LoadBindings(missingAction)
	assert.ErrorContains(t, err, "missing action")
}

func TestDefaultBindingsShape(t *testing.T) {
	for _, b := range config.DefaultBindings {
		assert.NotEmpty(t, b.Key)
		assert.NotEmpty(t, b.Action)
	}
}
