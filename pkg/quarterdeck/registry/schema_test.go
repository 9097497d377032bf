package registry_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/quarterdeck/pkg/quarterdeck/errors"
	"github.com/randalmurphal/quarterdeck/pkg/quarterdeck/registry"
)

func TestValidateFillsDefaults(t *testing.T) {
	schema := registry.Schema{
		"key":    {Type: registry.TypeString, Default: "camera.front_door.motion"},
		"active": {Type: registry.TypeBoolean, Default: true},
	}

	validated, err := schema.Validate(map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, "camera.front_door.motion", validated["key"])
	assert.Equal(t, true, validated["active"])
}

func TestValidateDoesNotMutateInput(t *testing.T) {
	schema := registry.Schema{
		"room": {Type: registry.TypeString, Default: "kitchen"},
	}
	payload := map[string]any{"brightness": 80}

	validated, err := schema.Validate(payload)
	require.NoError(t, err)
	assert.Equal(t, "kitchen", validated["room"])
	assert.NotContains(t, payload, "room")
}

func TestValidateMissingRequired(t *testing.T) {
	schema := registry.Schema{
		"url":  {Type: registry.TypeString, Required: true},
		"tab":  {Type: registry.TypeString, Required: true},
		"wait": {Type: registry.TypeBoolean},
	}

	_, err := schema.Validate(map[string]any{"wait": false})
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))

	var ve *errors.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, []string{"tab", "url"}, ve.Fields, "all missing fields reported, sorted")
}

func TestValidateExplicitNullTreatedAsAbsent(t *testing.T) {
	schema := registry.Schema{
		"room": {Type: registry.TypeString, Default: "kitchen"},
		"url":  {Type: registry.TypeString, Required: true},
	}

	// Null takes the default rather than failing the type check.
	validated, err := schema.Validate(map[string]any{"room": nil, "url": "http://x"})
	require.NoError(t, err)
	assert.Equal(t, "kitchen", validated["room"])

	// Null on a required field without a default is a missing field.
	_, err = schema.Validate(map[string]any{"url": nil})
	require.Error(t, err)
	var ve *errors.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, []string{"url"}, ve.Fields)
}

func TestValidateTypeMismatch(t *testing.T) {
	schema := registry.Schema{
		"url": {Type: registry.TypeString, Required: true},
	}

	_, err := schema.Validate(map[string]any{"url": 42})
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))

	var ve *errors.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, []string{"url"}, ve.Fields)
}

func TestValidateTypeChecks(t *testing.T) {
	tests := []struct {
		name     string
		declared string
		value    any
		ok       bool
	}{
		{"string ok", registry.TypeString, "hi", true},
		{"string rejects number", registry.TypeString, 1.5, false},
		{"boolean ok", registry.TypeBoolean, true, true},
		{"boolean rejects string", registry.TypeBoolean, "true", false},
		{"number accepts float", registry.TypeNumber, 2.5, true},
		{"number accepts int", registry.TypeNumber, 3, true},
		{"number rejects string", registry.TypeNumber, "3", false},
		{"integer accepts int", registry.TypeInteger, 7, true},
		{"integer accepts whole float", registry.TypeInteger, float64(7), true},
		{"integer rejects fraction", registry.TypeInteger, 7.5, false},
		{"object ok", registry.TypeObject, map[string]any{"a": 1}, true},
		{"object rejects array", registry.TypeObject, []any{1}, false},
		{"array ok", registry.TypeArray, []any{1, 2}, true},
		{"array rejects object", registry.TypeArray, map[string]any{}, false},
		{"unknown type accepts anything", "blob", struct{}{}, true},
		{"empty type accepts anything", "", 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			schema := registry.Schema{"v": {Type: tt.declared, Required: true}}
			_, err := schema.Validate(map[string]any{"v": tt.value})
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.True(t, errors.IsValidation(err))
			}
		})
	}
}

func TestValidateExtraFieldsPassThrough(t *testing.T) {
	schema := registry.Schema{
		"url": {Type: registry.TypeString, Required: true},
	}

	validated, err := schema.Validate(map[string]any{
		"url":   "http://localhost",
		"extra": "kept",
	})
	require.NoError(t, err)
	assert.Equal(t, "kept", validated["extra"])
}
