package openai_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/loqui-dev/loqui/pkg/chats/chat"
	"github.com/loqui-dev/loqui/pkg/chats/content"
	"github.com/loqui-dev/loqui/pkg/chats/message"
	"github.com/loqui-dev/loqui/pkg/chats/role"
	"github.com/loqui-dev/loqui/pkg/tools/toolbox"
	"github.com/loqui-dev/loqui/pkg/transport"
	"github.com/loqui-dev/loqui/pkg/transport/openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *openai.Adapter) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	a := openai.New(srv.URL, "test-key", "gpt-4o")

	return srv, a
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Errorf("failed to encode response: %v", err)
	}
}

func readBody(t *testing.T, r *http.Request) map[string]any {
	t.Helper()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}

	var req map[string]any
	if err := json.Unmarshal(body, &req); err != nil {
		t.Fatalf("failed to unmarshal body: %v", err)
	}

	return req
}

func textResponse(text string) map[string]any {
	return map[string]any{
		"choices": []map[string]any{
			{
				"message":       map[string]any{"role": "assistant", "content": text},
				"finish_reason": "stop",
			},
		},
		"usage": map[string]any{
			"prompt_tokens":     10,
			"completion_tokens": 5,
		},
	}
}

func TestComplete_SimpleText(t *testing.T) {
	_, adapter := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		req := readBody(t, r)
		assert.Equal(t, "gpt-4o", req["model"])

		msgs, ok := req["messages"].([]any)
		assert.True(t, ok)
		assert.Len(t, msgs, 2) // system + user

		first, _ := msgs[0].(map[string]any)
		assert.Equal(t, "system", first["role"])

		writeJSON(t, w, textResponse("Hello there!"))
	})

	c := chat.New(
		message.NewText("", role.System, "You are helpful."),
		message.NewText("user", role.User, "Hi"),
	)

	msg, err := adapter.Complete(context.Background(), c, nil)
	require.NoError(t, err)

	assert.Equal(t, role.Assistant, msg.Role)
	assert.Equal(t, "Hello there!", msg.TextContent())

	usage, ok := adapter.Usage.Last()
	assert.True(t, ok)
	assert.Equal(t, 15, usage.Total())
}

func TestComplete_ToolDefinitionsAndChoice(t *testing.T) {
	_, adapter := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		req := readBody(t, r)

		tools, ok := req["tools"].([]any)
		require.True(t, ok)
		require.Len(t, tools, 1)

		tool, _ := tools[0].(map[string]any)
		assert.Equal(t, "function", tool["type"])
		fn, _ := tool["function"].(map[string]any)
		assert.Equal(t, "calculator", fn["name"])

		assert.Equal(t, "auto", req["tool_choice"])

		writeJSON(t, w, map[string]any{
			"choices": []map[string]any{
				{
					"message": map[string]any{
						"role": "assistant",
						"tool_calls": []map[string]any{
							{
								"id":   "call_1",
								"type": "function",
								"function": map[string]any{
									"name":      "calculator",
									"arguments": `{"expression":"2+3"}`,
								},
							},
						},
					},
					"finish_reason": "tool_calls",
				},
			},
		})
	})

	tools := []toolbox.Tool{{
		Name:        "calculator",
		Description: "Evaluate arithmetic",
		InputSchema: json.RawMessage(`{"type":"object","properties":{"expression":{"type":"string"}},"required":["expression"]}`),
	}}

	c := chat.New(message.NewText("user", role.User, "what is 2+3?"))

	msg, err := adapter.Complete(context.Background(), c, tools)
	require.NoError(t, err)

	calls := msg.ToolCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "call_1", calls[0].ID)
	assert.Equal(t, "calculator", calls[0].Name)
	assert.JSONEq(t, `{"expression":"2+3"}`, calls[0].Arguments)
}

func TestComplete_SerializesHistoryWithToolMessages(t *testing.T) {
	_, adapter := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		req := readBody(t, r)

		msgs, _ := req["messages"].([]any)
		require.Len(t, msgs, 4)

		asst, _ := msgs[1].(map[string]any)
		assert.Equal(t, "assistant", asst["role"])
		calls, _ := asst["tool_calls"].([]any)
		require.Len(t, calls, 1)

		toolMsg, _ := msgs[2].(map[string]any)
		assert.Equal(t, "tool", toolMsg["role"])
		assert.Equal(t, "call_1", toolMsg["tool_call_id"])
		assert.Equal(t, "5", toolMsg["content"])

		writeJSON(t, w, textResponse("2+3 is 5"))
	})

	c := chat.New(message.NewText("user", role.User, "what is 2+3?"))
	require.NoError(t, c.Append(
		message.New("", role.Assistant, content.ToolCall{ID: "call_1", Name: "calculator", Arguments: `{"expression":"2+3"}`}),
		message.NewToolResult("", content.ToolResult{ToolCallID: "call_1", Content: "5"}),
		message.NewText("user", role.User, "thanks"),
	))

	msg, err := adapter.Complete(context.Background(), c, nil)
	require.NoError(t, err)
	assert.Equal(t, "2+3 is 5", msg.TextContent())
}

func TestComplete_EmptyChoices(t *testing.T) {
	_, adapter := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, map[string]any{"choices": []any{}})
	})

	c := chat.New(message.NewText("user", role.User, "hi"))

	_, err := adapter.Complete(context.Background(), c, nil)
	var derr *transport.DecodeError
	assert.ErrorAs(t, err, &derr)
}

func TestComplete_ServerError(t *testing.T) {
	_, adapter := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	})

	c := chat.New(message.NewText("user", role.User, "hi"))

	_, err := adapter.Complete(context.Background(), c, nil)
	var terr *transport.Error
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, http.StatusServiceUnavailable, terr.StatusCode)
}

func TestListModels(t *testing.T) {
	_, adapter := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/models", r.URL.Path)
		assert.Equal(t, http.MethodGet, r.Method)
		writeJSON(t, w, map[string]any{
			"data": []map[string]any{{"id": "gpt-4o"}, {"id": "gpt-4o-mini"}},
		})
	})

	models, err := adapter.ListModels(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"gpt-4o", "gpt-4o-mini"}, models)
}

func TestStream_TextDeltas(t *testing.T) {
	_, adapter := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		req := readBody(t, r)
		assert.Equal(t, true, req["stream"])

		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"Hel\"}}]}\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"lo\"}}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	})

	c := chat.New(message.NewText("user", role.User, "hi"))

	stream, err := adapter.Stream(context.Background(), c, nil)
	require.NoError(t, err)
	defer stream.Close() //nolint:errcheck

	var fragments []transport.Fragment
	for {
		f, err := stream.Recv()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		fragments = append(fragments, f)
	}

	require.Len(t, fragments, 3)
	assert.Equal(t, "Hel", fragments[0].TextDelta)
	assert.Equal(t, "lo", fragments[1].TextDelta)
	assert.True(t, fragments[2].TurnComplete)
}

func TestStream_ToolCallDeltas(t *testing.T) {
	_, adapter := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"tool_calls\":[{\"index\":0,\"id\":\"call_1\",\"function\":{\"name\":\"shell\",\"arguments\":\"\"}}]}}]}\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"tool_calls\":[{\"index\":0,\"function\":{\"arguments\":\"{\\\"command\\\":\"}}]}}]}\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"tool_calls\":[{\"index\":0,\"function\":{\"arguments\":\"\\\"ls\\\"}\"}}]}}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	})

	c := chat.New(message.NewText("user", role.User, "list files"))

	stream, err := adapter.Stream(context.Background(), c, nil)
	require.NoError(t, err)
	defer stream.Close() //nolint:errcheck

	acc := transport.NewAccumulator()
	for {
		f, err := stream.Recv()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		acc.Add(f)
	}

	require.True(t, acc.Complete())
	calls := acc.Message("").ToolCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "call_1", calls[0].ID)
	assert.Equal(t, "shell", calls[0].Name)
	assert.JSONEq(t, `{"command":"ls"}`, calls[0].Arguments)
}

func TestStream_TruncatedWithoutDone(t *testing.T) {
	_, adapter := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"Hel\"}}]}\n\n")
	})

	c := chat.New(message.NewText("user", role.User, "hi"))

	stream, err := adapter.Stream(context.Background(), c, nil)
	require.NoError(t, err)
	defer stream.Close() //nolint:errcheck

	f, err := stream.Recv()
	require.NoError(t, err)
	assert.Equal(t, "Hel", f.TextDelta)

	_, err = stream.Recv()
	assert.ErrorIs(t, err, transport.ErrStreamTruncated)
}

func TestStream_MalformedChunk(t *testing.T) {
	_, adapter := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {not json}\n\n")
	})

	c := chat.New(message.NewText("user", role.User, "hi"))

	stream, err := adapter.Stream(context.Background(), c, nil)
	require.NoError(t, err)
	defer stream.Close() //nolint:errcheck

	_, err = stream.Recv()
	var derr *transport.DecodeError
	assert.ErrorAs(t, err, &derr)
}

func TestStream_HTTPErrorBeforeStream(t *testing.T) {
	_, adapter := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "bad key", http.StatusUnauthorized)
	})

	c := chat.New(message.NewText("user", role.User, "hi"))

	_, err := adapter.Stream(context.Background(), c, nil)
	var terr *transport.Error
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, http.StatusUnauthorized, terr.StatusCode)
}
