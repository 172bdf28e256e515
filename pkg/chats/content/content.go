// Package content defines the content parts that make up chat messages.
package content

// Part is a piece of content within a message.
// External packages can implement this interface to add custom content types.
type Part interface {
	PartKind() string
}

// Text is a plain text content part.
type Text struct {
	Text string
}

func (t Text) PartKind() string { return "text" }

// ToolCall represents an assistant's request to invoke a tool.
// Arguments holds the raw JSON string to avoid unnecessary deserialization;
// it may be incomplete or malformed when the model emits broken JSON, and
// the registry is responsible for surfacing that back to the model.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

func (tc ToolCall) PartKind() string { return "tool_call" }

// ToolResult holds the output of a tool invocation. IsError marks results
// that describe a failure; the model sees them like any other result.
type ToolResult struct {
	ToolCallID string
	Content    string
	IsError    bool
}

func (tr ToolResult) PartKind() string { return "tool_result" }
