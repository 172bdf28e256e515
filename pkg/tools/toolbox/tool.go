package toolbox

import (
	"context"
	"encoding/json"
	"fmt"
)

// Handler executes a tool with the given JSON input and returns a text result.
type Handler func(ctx context.Context, input json.RawMessage) (string, error)

// Tool represents an executable tool with a name, description, JSON Schema, and handler.
type Tool struct {
	Name        string
	Description string
	InputSchema json.RawMessage
	Handler     Handler
}

// ValidateArguments checks raw against the tool's schema: it must be a JSON
// object (empty input counts as {}) and every property listed in the
// schema's "required" array must be present. Nested constraints are left to
// the handler.
func (t Tool) ValidateArguments(raw string) error {
	if raw == "" {
		raw = "{}"
	}

	var args map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return fmt.Errorf("invalid arguments for %s: %w", t.Name, err)
	}

	if len(t.InputSchema) == 0 {
		return nil
	}

	var schema struct {
		Required []string `json:"required"`
	}
	if err := json.Unmarshal(t.InputSchema, &schema); err != nil {
		return nil
	}

	for _, field := range schema.Required {
		if _, ok := args[field]; !ok {
			return fmt.Errorf("invalid arguments for %s: missing required field %q", t.Name, field)
		}
	}
	return nil
}
