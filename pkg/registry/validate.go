package registry

import (
	"encoding/json"
	"fmt"
)

// inputSchema is the subset of JSON schema the catalog cares about:
// required property names and primitive property types.
type inputSchema struct {
	Type       string                    `json:"type"`
	Properties map[string]propertySchema `json:"properties"`
	Required   []string                  `json:"required"`
}

type propertySchema struct {
	Type string `json:"type"`
}

// validateArgs checks the argument map against a tool's input schema
// before dispatch: every required key must be present, and every supplied
// value must match its declared primitive type. A missing or unparseable
// schema disables validation for that tool.
func validateArgs(schema json.RawMessage, args map[string]any) error {
	if len(schema) == 0 {
		return nil
	}

	var s inputSchema
	if err := json.Unmarshal(schema, &s); err != nil {
		return nil
	}

	for _, key := range s.Required {
		if _, ok := args[key]; !ok {
			return fmt.Errorf("missing required argument %q", key)
		}
	}

	for key, val := range args {
		prop, ok := s.Properties[key]
		if !ok || prop.Type == "" {
			continue
		}
		if !matchesType(prop.Type, val) {
			return fmt.Errorf("argument %q must be of type %s", key, prop.Type)
		}
	}

	return nil
}

// matchesType checks a decoded JSON value against a schema type name.
// JSON numbers decode as float64, so "integer" additionally requires a
// whole value.
func matchesType(typ string, val any) bool {
	if val == nil {
		return true
	}

	switch typ {
	case "string":
		_, ok := val.(string)
		return ok
	case "number":
		return isJSONNumber(val)
	case "integer":
		switch n := val.(type) {
		case float64:
			return n == float64(int64(n))
		case int, int64, json.Number:
			return true
		default:
			return false
		}
	case "boolean":
		_, ok := val.(bool)
		return ok
	case "array":
		_, ok := val.([]any)
		return ok
	case "object":
		_, ok := val.(map[string]any)
		return ok
	default:
		return true
	}
}

func isJSONNumber(val any) bool {
	switch val.(type) {
	case float64, float32, int, int64, json.Number:
		return true
	default:
		return false
	}
}
