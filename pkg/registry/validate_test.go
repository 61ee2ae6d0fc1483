package registry

import (
	"encoding/json"
	"testing"
)

func TestValidateArgs(t *testing.T) {
	schema := json.RawMessage(`{
		"type": "object",
		"properties": {
			"name": {"type": "string"},
			"count": {"type": "integer"},
			"ratio": {"type": "number"},
			"deep": {"type": "object"},
			"tags": {"type": "array"},
			"dry_run": {"type": "boolean"}
		},
		"required": ["name"]
	}`)

	tests := []struct {
		name    string
		args    map[string]any
		wantErr bool
	}{
		{"all valid", map[string]any{"name": "x", "count": 3.0, "ratio": 1.5, "dry_run": true}, false},
		{"required only", map[string]any{"name": "x"}, false},
		{"missing required", map[string]any{"count": 3.0}, true},
		{"wrong string type", map[string]any{"name": 7.0}, true},
		{"fractional integer", map[string]any{"name": "x", "count": 3.5}, true},
		{"whole float as integer", map[string]any{"name": "x", "count": 4.0}, false},
		{"bool mismatch", map[string]any{"name": "x", "dry_run": "yes"}, true},
		{"array ok", map[string]any{"name": "x", "tags": []any{"a"}}, false},
		{"object ok", map[string]any{"name": "x", "deep": map[string]any{}}, false},
		{"undeclared key passes", map[string]any{"name": "x", "extra": 1}, false},
		{"null value passes", map[string]any{"name": "x", "count": nil}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateArgs(schema, tt.args)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateArgs() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateArgs_NoSchema(t *testing.T) {
	if err := validateArgs(nil, map[string]any{"anything": 1}); err != nil {
		t.Errorf("validateArgs(nil schema) = %v, want nil", err)
	}
	if err := validateArgs(json.RawMessage(`not json`), nil); err != nil {
		t.Errorf("validateArgs(bad schema) = %v, want nil (validation disabled)", err)
	}
}
