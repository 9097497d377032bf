package registry

import (
	"fmt"
	"sort"

	"github.com/randalmurphal/quarterdeck/pkg/quarterdeck/errors"
)

// Field declares one payload field: its JSON type, whether it must be
// present, and an optional default filled in when it is absent.
type Field struct {
	Type     string `json:"type"`
	Required bool   `json:"required"`
	Default  any    `json:"default,omitempty"`
}

// Schema maps payload field names to their declarations.
type Schema map[string]Field

// Supported field type names. They describe JSON-decoded values, so
// "number" accepts any numeric representation and "integer" requires a
// whole number.
const (
	TypeString  = "string"
	TypeBoolean = "boolean"
	TypeNumber  = "number"
	TypeInteger = "integer"
	TypeObject  = "object"
	TypeArray   = "array"
)

// Validate checks payload against the schema and returns a copy with
// defaults filled in. It reports every offending field at once rather
// than stopping at the first.
func (s Schema) Validate(payload map[string]any) (map[string]any, error) {
	validated := make(map[string]any, len(payload)+len(s))
	for k, v := range payload {
		validated[k] = v
	}

	var missing, mistyped []string
	for name, field := range s {
		value, present := validated[name]
		if present && value == nil {
			// Explicit null counts as absent.
			delete(validated, name)
			present = false
		}
		if !present {
			if field.Default != nil {
				validated[name] = field.Default
				continue
			}
			if field.Required {
				missing = append(missing, name)
			}
			continue
		}
		if !matchesType(value, field.Type) {
			mistyped = append(mistyped, name)
		}
	}

	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, errors.NewValidation("missing required field(s)", missing...)
	}
	if len(mistyped) > 0 {
		sort.Strings(mistyped)
		first := s[mistyped[0]]
		return nil, errors.NewValidation(
			fmt.Sprintf("value does not match declared type %q", first.Type),
			mistyped...,
		)
	}

	return validated, nil
}

// matchesType reports whether a JSON-decoded value satisfies the declared
// type name. An empty or unknown declared type accepts anything, matching
// the permissiveness of schema-less registration.
func matchesType(value any, declared string) bool {
	switch declared {
	case TypeString:
		_, ok := value.(string)
		return ok
	case TypeBoolean:
		_, ok := value.(bool)
		return ok
	case TypeNumber:
		return isNumeric(value)
	case TypeInteger:
		switch n := value.(type) {
		case int, int32, int64:
			return true
		case float64:
			return n == float64(int64(n))
		case float32:
			return n == float32(int64(n))
		default:
			return false
		}
	case TypeObject:
		_, ok := value.(map[string]any)
		return ok
	case TypeArray:
		_, ok := value.([]any)
		return ok
	default:
		return true
	}
}

func isNumeric(value any) bool {
	switch value.(type) {
	case int, int32, int64, float32, float64:
		return true
	default:
		return false
	}
}
