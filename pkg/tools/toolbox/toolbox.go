// Package toolbox provides the registry of tools the model may invoke.
package toolbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/loqui-dev/loqui/pkg/chats/content"
)

// ErrDuplicateTool is returned when registering a tool whose name is taken.
var ErrDuplicateTool = errors.New("toolbox: duplicate tool name")

// ToolBox holds a collection of tools. Tool names are unique; the
// orchestration loop uses Call to execute tool calls, and never sees a Go
// error from it: every failure mode is folded into an error-flagged
// ToolResult the model can read and react to.
type ToolBox struct {
	tools   map[string]Tool
	timeout time.Duration
}

// New creates a new ToolBox ready for use.
func New() *ToolBox {
	return &ToolBox{
		tools: make(map[string]Tool),
	}
}

// SetTimeout sets a per-call execution timeout. Zero disables it.
func (tb *ToolBox) SetTimeout(d time.Duration) {
	tb.timeout = d
}

// Register adds one or more tools to the ToolBox. Registering a name that
// already exists fails with ErrDuplicateTool; earlier tools in the batch
// stay registered.
func (tb *ToolBox) Register(tools ...Tool) error {
	for _, t := range tools {
		if _, exists := tb.tools[t.Name]; exists {
			return fmt.Errorf("%w: %s", ErrDuplicateTool, t.Name)
		}
		tb.tools[t.Name] = t
	}
	return nil
}

// Get returns a tool by name and a boolean indicating whether it was found.
func (tb *ToolBox) Get(name string) (Tool, bool) {
	t, ok := tb.tools[name]
	return t, ok
}

// Merge registers all tools from another ToolBox into this one, failing
// with ErrDuplicateTool on the first name collision.
func (tb *ToolBox) Merge(other *ToolBox) error {
	return tb.Register(other.Tools()...)
}

// Tools returns all registered tools sorted by name. The order is stable so
// that identical conversations produce identical request payloads.
func (tb *ToolBox) Tools() []Tool {
	result := make([]Tool, 0, len(tb.tools))
	for _, t := range tb.tools {
		result = append(result, t)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// Len returns the number of registered tools.
func (tb *ToolBox) Len() int {
	return len(tb.tools)
}

// Call executes a tool call and returns a ToolResult. Unknown tools,
// malformed or incomplete arguments, handler errors, and timeouts all
// produce a result with IsError set instead of failing the caller.
func (tb *ToolBox) Call(ctx context.Context, tc content.ToolCall) content.ToolResult {
	t, ok := tb.tools[tc.Name]
	if !ok {
		return content.ToolResult{
			ToolCallID: tc.ID,
			Content:    fmt.Sprintf("tool not found: %s", tc.Name),
			IsError:    true,
		}
	}

	if err := t.ValidateArguments(tc.Arguments); err != nil {
		return content.ToolResult{
			ToolCallID: tc.ID,
			Content:    err.Error(),
			IsError:    true,
		}
	}

	if tb.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, tb.timeout)
		defer cancel()
	}

	args := tc.Arguments
	if args == "" {
		args = "{}"
	}

	result, err := runHandler(ctx, t.Handler, json.RawMessage(args))
	if err != nil {
		msg := err.Error()
		if errors.Is(err, context.DeadlineExceeded) && tb.timeout > 0 {
			msg = fmt.Sprintf("tool %s timed out after %s", tc.Name, tb.timeout)
		}
		return content.ToolResult{
			ToolCallID: tc.ID,
			Content:    msg,
			IsError:    true,
		}
	}

	return content.ToolResult{
		ToolCallID: tc.ID,
		Content:    result,
	}
}

// runHandler runs the handler and honors ctx even when the handler does not.
func runHandler(ctx context.Context, h Handler, input json.RawMessage) (string, error) {
	type outcome struct {
		result string
		err    error
	}

	ch := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- outcome{err: fmt.Errorf("tool panicked: %v", r)}
			}
		}()
		r, err := h(ctx, input)
		ch <- outcome{r, err}
	}()

	select {
	case out := <-ch:
		return out.result, out.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
