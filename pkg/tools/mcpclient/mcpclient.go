// Package mcpclient connects to MCP servers and exposes their tools as
// toolbox tools so the orchestrator can call them like any built-in.
package mcpclient

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"

	"github.com/loqui-dev/loqui/pkg/tools/toolbox"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Client is a connected session with a single MCP server.
type Client struct {
	client  *mcp.Client
	session *mcp.ClientSession
}

// NewCommand spawns an MCP server process and returns a connected client.
// The SDK performs the initialization handshake during Connect.
func NewCommand(ctx context.Context, command string, args ...string) (*Client, error) {
	transport := &mcp.CommandTransport{
		Command: exec.Command(command, args...), //nolint:gosec // command comes from user configuration
	}

	return newFromTransport(ctx, transport)
}

// NewSSE connects to an SSE-based MCP server at the given URL.
func NewSSE(ctx context.Context, url string) (*Client, error) {
	transport := &mcp.SSEClientTransport{Endpoint: url}

	return newFromTransport(ctx, transport)
}

// newFromTransport creates a Client over the given transport. Split out so
// tests can connect through InMemoryTransport.
func newFromTransport(ctx context.Context, transport mcp.Transport) (*Client, error) {
	client := mcp.NewClient(&mcp.Implementation{
		Name:    "loqui",
		Version: "0.1.0",
	}, nil)

	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		return nil, fmt.Errorf("mcpclient: connect: %w", err)
	}

	return &Client{client: client, session: session}, nil
}

// Tools fetches the server's tool list and returns each one as a
// toolbox.Tool whose Handler calls back through CallTool.
func (c *Client) Tools(ctx context.Context) ([]toolbox.Tool, error) {
	result, err := c.session.ListTools(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("mcpclient: list tools: %w", err)
	}

	tools := make([]toolbox.Tool, 0, len(result.Tools))
	for _, sdkTool := range result.Tools {
		t, err := convertTool(sdkTool, c)
		if err != nil {
			return nil, fmt.Errorf("mcpclient: convert tool %q: %w", sdkTool.Name, err)
		}
		tools = append(tools, t)
	}

	return tools, nil
}

// Toolbox fetches the server's tools and registers them into a fresh
// ToolBox. Registration fails if the server declares two tools with the
// same name.
func (c *Client) Toolbox(ctx context.Context) (*toolbox.ToolBox, error) {
	tools, err := c.Tools(ctx)
	if err != nil {
		return nil, err
	}

	tb := toolbox.New()
	if err := tb.Register(tools...); err != nil {
		return nil, fmt.Errorf("mcpclient: %w", err)
	}

	return tb, nil
}

// CallTool invokes a named tool on the server with the given arguments and
// returns the concatenated text content of the result.
func (c *Client) CallTool(ctx context.Context, name string, arguments json.RawMessage) (string, error) {
	var args map[string]any
	if len(arguments) > 0 {
		if err := json.Unmarshal(arguments, &args); err != nil {
			return "", fmt.Errorf("mcpclient: unmarshal arguments: %w", err)
		}
	}

	result, err := c.session.CallTool(ctx, &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		return "", fmt.Errorf("mcpclient: call tool: %w", err)
	}

	text := extractText(result)

	if result.IsError {
		return "", fmt.Errorf("mcpclient: tool error: %s", text)
	}

	return text, nil
}

// Close terminates the session. For command transports the SDK closes the
// server's stdin, waits, and escalates through SIGTERM/SIGKILL.
func (c *Client) Close() error {
	return c.session.Close()
}

// convertTool converts an SDK *mcp.Tool to a toolbox.Tool. The handler
// closure calls CallTool on the client.
func convertTool(sdkTool *mcp.Tool, c *Client) (toolbox.Tool, error) {
	schemaBytes, err := json.Marshal(sdkTool.InputSchema)
	if err != nil {
		return toolbox.Tool{}, fmt.Errorf("marshal input schema: %w", err)
	}

	name := sdkTool.Name

	return toolbox.Tool{
		Name:        sdkTool.Name,
		Description: sdkTool.Description,
		InputSchema: json.RawMessage(schemaBytes),
		Handler: func(ctx context.Context, input json.RawMessage) (string, error) {
			return c.CallTool(ctx, name, input)
		},
	}, nil
}

// extractText joins all TextContent items from a CallToolResult with newlines.
func extractText(result *mcp.CallToolResult) string {
	var texts []string
	for _, item := range result.Content {
		if tc, ok := item.(*mcp.TextContent); ok {
			texts = append(texts, tc.Text)
		}
	}

	return strings.Join(texts, "\n")
}
