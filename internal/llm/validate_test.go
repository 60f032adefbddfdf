package llm

import (
	"encoding/json"
	"errors"
	"testing"
)

func testSchema() *Schema {
	return &Schema{
		Name:        "test-person",
		Description: "A person",
		Definition: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"name":  map[string]any{"type": "string"},
				"age":   map[string]any{"type": "integer", "minimum": 0},
				"level": map[string]any{"type": "string", "enum": []any{"beginner", "advanced"}},
			},
			"required": []any{"name", "age"},
		},
	}
}

func TestValidateResponse(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{"valid", `{"name":"Ada","age":36,"level":"advanced"}`, false},
		{"optional omitted", `{"name":"Bob","age":8}`, false},
		{"missing required", `{"name":"Charlie"}`, true},
		{"wrong type", `{"name":"Dave","age":"ten"}`, true},
		{"below minimum", `{"name":"Eve","age":-1}`, true},
		{"bad enum", `{"name":"Fay","age":9,"level":"expert"}`, true},
		{"malformed", `{not json}`, true},
		{"empty", ``, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateResponse(testSchema(), json.RawMessage(tt.raw))
			if (err != nil) != tt.wantErr {
				t.Fatalf("validateResponse() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				var inv *ErrInvalidResponse
				if !errors.As(err, &inv) {
					t.Fatalf("error type = %T, want *ErrInvalidResponse", err)
				}
				if string(inv.Content) != tt.raw {
					t.Fatalf("error content = %q, want raw response", inv.Content)
				}
			}
		})
	}
}

func TestValidateResponse_NilSchema(t *testing.T) {
	if err := validateResponse(nil, json.RawMessage(`{"anything":"goes"}`)); err != nil {
		t.Fatalf("expected no error with nil schema, got: %v", err)
	}
}

func TestValidateResponse_ArrayBounds(t *testing.T) {
	schema := &Schema{
		Name: "test-options",
		Definition: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"options": map[string]any{
					"type":     "array",
					"minItems": 2,
					"maxItems": 4,
					"items":    map[string]any{"type": "string"},
				},
			},
			"required": []any{"options"},
		},
	}
	if err := validateResponse(schema, json.RawMessage(`{"options":["a","b","c"]}`)); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	for _, raw := range []string{`{"options":["a"]}`, `{"options":["a","b","c","d","e"]}`, `{"options":[1,2]}`} {
		if err := validateResponse(schema, json.RawMessage(raw)); err == nil {
			t.Errorf("expected error for %s", raw)
		}
	}
}
