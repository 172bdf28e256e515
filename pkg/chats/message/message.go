// Package message defines the message type exchanged in conversations.
package message

import (
	"strings"

	"github.com/loqui-dev/loqui/pkg/chats/content"
	"github.com/loqui-dev/loqui/pkg/chats/role"
)

// Message is a single conversation entry: who sent it, in which role, and
// its content parts. Metadata carries out-of-band data (model name, token
// usage) that never reaches the provider.
type Message struct {
	Sender   string
	Role     role.Role
	Parts    []content.Part
	Metadata map[string]any
}

// New creates a message from the given parts.
func New(sender string, r role.Role, parts ...content.Part) Message {
	return Message{Sender: sender, Role: r, Parts: parts}
}

// NewText creates a message with a single text part.
func NewText(sender string, r role.Role, text string) Message {
	return New(sender, r, content.Text{Text: text})
}

// NewToolResult creates a tool-role message carrying a single tool result.
func NewToolResult(sender string, tr content.ToolResult) Message {
	return New(sender, role.Tool, tr)
}

// TextContent concatenates all text parts of the message.
func (m Message) TextContent() string {
	var sb strings.Builder
	for _, p := range m.Parts {
		if t, ok := p.(content.Text); ok {
			sb.WriteString(t.Text)
		}
	}
	return sb.String()
}

// ToolCalls returns all tool call parts in emission order.
func (m Message) ToolCalls() []content.ToolCall {
	var calls []content.ToolCall
	for _, p := range m.Parts {
		if tc, ok := p.(content.ToolCall); ok {
			calls = append(calls, tc)
		}
	}
	return calls
}

// ToolResults returns all tool result parts in order.
func (m Message) ToolResults() []content.ToolResult {
	var results []content.ToolResult
	for _, p := range m.Parts {
		if tr, ok := p.(content.ToolResult); ok {
			results = append(results, tr)
		}
	}
	return results
}

// SetMeta stores a metadata value, allocating the map on first use.
func (m *Message) SetMeta(key string, value any) {
	if m.Metadata == nil {
		m.Metadata = make(map[string]any)
	}
	m.Metadata[key] = value
}

// GetMeta retrieves a metadata value.
func (m Message) GetMeta(key string) (any, bool) {
	v, ok := m.Metadata[key]
	return v, ok
}
