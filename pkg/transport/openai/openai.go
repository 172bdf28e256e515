// Package openai implements the transport client for OpenAI-compatible
// chat-completions APIs. DeepSeek, Grok, Groq, and any other compatible
// endpoint are served by the same adapter with a different base URL.
package openai

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/loqui-dev/loqui/pkg/chats/chat"
	"github.com/loqui-dev/loqui/pkg/chats/content"
	"github.com/loqui-dev/loqui/pkg/chats/message"
	"github.com/loqui-dev/loqui/pkg/chats/role"
	"github.com/loqui-dev/loqui/pkg/tools/toolbox"
	"github.com/loqui-dev/loqui/pkg/transport"
)

const (
	completionsPath = "/v1/chat/completions"
	modelsPath      = "/v1/models"
)

var (
	_ transport.Client      = (*Adapter)(nil)
	_ transport.ModelLister = (*Adapter)(nil)
)

// Adapter implements transport.Client for the OpenAI chat-completions API.
type Adapter struct {
	transport.Endpoint

	Model       string
	Temperature float64
	MaxTokens   int
}

// New creates an Adapter for the given endpoint. The baseURL must not have
// a trailing slash, e.g. "https://api.openai.com".
func New(baseURL, apiKey, model string) *Adapter {
	a := &Adapter{Model: model, MaxTokens: 4096}
	a.BaseURL = baseURL
	a.Auth = transport.Auth{Key: apiKey}

	return a
}

// NewForKind creates an Adapter from a provider preset. For KindCompatible
// the baseURL argument is required; for preset kinds it overrides the
// default when non-empty.
func NewForKind(kind Kind, baseURL, apiKey, model string) (*Adapter, error) {
	if baseURL == "" {
		var err error
		baseURL, err = kind.DefaultBaseURL()
		if err != nil {
			return nil, err
		}
	}
	return New(baseURL, apiKey, model), nil
}

// Complete sends the conversation in a single exchange and returns the
// assistant's reply.
func (a *Adapter) Complete(ctx context.Context, c *chat.Chat, tools []toolbox.Tool) (message.Message, error) {
	req := a.buildRequest(c, tools, false)

	var resp apiResponse
	if err := a.PostJSON(ctx, "complete", completionsPath, req, &resp); err != nil {
		return message.Message{}, err
	}

	if resp.Usage != nil {
		a.Usage.Add(transport.TokenCount{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		})
	}

	if len(resp.Choices) == 0 {
		return message.Message{}, &transport.DecodeError{Op: "complete", Err: fmt.Errorf("empty choices in response")}
	}

	return parseChoice(resp.Choices[0]), nil
}

// ListModels returns the model IDs the endpoint offers.
func (a *Adapter) ListModels(ctx context.Context) ([]string, error) {
	var resp struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := a.GetJSON(ctx, "list models", modelsPath, &resp); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(resp.Data))
	for _, m := range resp.Data {
		ids = append(ids, m.ID)
	}
	return ids, nil
}

// --- request types ---

type apiRequest struct {
	Model       string       `json:"model"`
	Messages    []apiMessage `json:"messages"`
	MaxTokens   int          `json:"max_tokens,omitempty"`
	Temperature *float64     `json:"temperature,omitempty"`
	Tools       []apiToolDef `json:"tools,omitempty"`
	ToolChoice  string       `json:"tool_choice,omitempty"`
	Stream      bool         `json:"stream,omitempty"`
}

type apiMessage struct {
	Role       string        `json:"role"`
	Content    *string       `json:"content"`
	ToolCalls  []apiToolCall `json:"tool_calls,omitempty"`
	ToolCallID string        `json:"tool_call_id,omitempty"`
}

type apiToolCall struct {
	ID       string          `json:"id"`
	Type     string          `json:"type"`
	Function apiToolFunction `json:"function"`
}

type apiToolFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type apiToolDef struct {
	Type     string         `json:"type"`
	Function apiToolDefFunc `json:"function"`
}

type apiToolDefFunc struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters"`
}

// --- response types ---

type apiResponse struct {
	Choices []apiChoice `json:"choices"`
	Usage   *apiUsage   `json:"usage"`
}

type apiChoice struct {
	Message      apiRespMessage `json:"message"`
	FinishReason string         `json:"finish_reason"`
}

type apiRespMessage struct {
	Role      string        `json:"role"`
	Content   *string       `json:"content"`
	ToolCalls []apiToolCall `json:"tool_calls,omitempty"`
}

type apiUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

// --- conversion helpers ---

func (a *Adapter) buildRequest(c *chat.Chat, tools []toolbox.Tool, stream bool) apiRequest {
	req := apiRequest{
		Model:     a.Model,
		MaxTokens: a.MaxTokens,
		Stream:    stream,
	}

	if a.Temperature != 0 {
		t := a.Temperature
		req.Temperature = &t
	}

	if len(tools) > 0 {
		req.Tools = make([]apiToolDef, len(tools))
		for i, t := range tools {
			schema := t.InputSchema
			if schema == nil {
				schema = json.RawMessage(`{"type":"object"}`)
			}
			req.Tools[i] = apiToolDef{
				Type: "function",
				Function: apiToolDefFunc{
					Name:        t.Name,
					Description: t.Description,
					Parameters:  schema,
				},
			}
		}
		req.ToolChoice = "auto"
	}

	for _, m := range c.Messages() {
		appendMessages(&req.Messages, m)
	}

	return req
}

func appendMessages(msgs *[]apiMessage, m message.Message) {
	switch m.Role {
	case role.System:
		text := m.TextContent()
		*msgs = append(*msgs, apiMessage{Role: "system", Content: &text})

	case role.User:
		text := m.TextContent()
		*msgs = append(*msgs, apiMessage{Role: "user", Content: &text})

	case role.Assistant:
		var toolCalls []apiToolCall
		var text string

		for _, p := range m.Parts {
			switch v := p.(type) {
			case content.Text:
				text += v.Text
			case content.ToolCall:
				toolCalls = append(toolCalls, apiToolCall{
					ID:   v.ID,
					Type: "function",
					Function: apiToolFunction{
						Name:      v.Name,
						Arguments: v.Arguments,
					},
				})
			}
		}

		msg := apiMessage{Role: "assistant"}
		if text != "" {
			msg.Content = &text
		}
		if len(toolCalls) > 0 {
			msg.ToolCalls = toolCalls
		}

		*msgs = append(*msgs, msg)

	case role.Tool:
		for _, p := range m.Parts {
			if tr, ok := p.(content.ToolResult); ok {
				*msgs = append(*msgs, apiMessage{
					Role:       "tool",
					Content:    &tr.Content,
					ToolCallID: tr.ToolCallID,
				})
			}
		}
	}
}

func parseChoice(choice apiChoice) message.Message {
	var parts []content.Part

	if choice.Message.Content != nil && *choice.Message.Content != "" {
		parts = append(parts, content.Text{Text: *choice.Message.Content})
	}

	for _, tc := range choice.Message.ToolCalls {
		parts = append(parts, content.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}

	return message.New("", role.Assistant, parts...)
}
