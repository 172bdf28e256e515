package toolbox

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToolHandler(t *testing.T) {
	tool := Tool{
		Name:        "echo",
		Description: "Echoes input back",
		InputSchema: json.RawMessage(`{"type":"object","properties":{"text":{"type":"string"}}}`),
		Handler: func(_ context.Context, input json.RawMessage) (string, error) {
			var params struct {
				Text string `json:"text"`
			}
			if err := json.Unmarshal(input, &params); err != nil {
				return "", err
			}
			return params.Text, nil
		},
	}

	result, err := tool.Handler(context.Background(), json.RawMessage(`{"text":"hello"}`))
	require.NoError(t, err)
	assert.Equal(t, "hello", result)
}

func TestValidateArguments(t *testing.T) {
	tool := Tool{
		Name:        "write_file",
		InputSchema: json.RawMessage(`{"type":"object","properties":{"path":{"type":"string"},"content":{"type":"string"}},"required":["path","content"]}`),
	}

	tests := []struct {
		name    string
		raw     string
		wantErr string
	}{
		{"valid", `{"path":"a.txt","content":"hi"}`, ""},
		{"missing one required", `{"path":"a.txt"}`, `missing required field "content"`},
		{"missing all required", `{}`, `missing required field "path"`},
		{"malformed json", `{"path":`, "invalid arguments"},
		{"not an object", `[1,2]`, "invalid arguments"},
		{"empty treated as object", ``, `missing required field "path"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tool.ValidateArguments(tt.raw)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateArguments_NoSchema(t *testing.T) {
	tool := Tool{Name: "free"}

	assert.NoError(t, tool.ValidateArguments(`{"anything":1}`))
	assert.NoError(t, tool.ValidateArguments(""))
	assert.Error(t, tool.ValidateArguments("not json"))
}
