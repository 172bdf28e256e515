// Package tools provides tool execution and MCP (Model Context Protocol) integration.
//
// It is organized into sub-packages:
//   - [github.com/loqui-dev/loqui/pkg/tools/toolbox]: the Tool type and the ToolBox registry for registering, listing, and calling tools
//   - [github.com/loqui-dev/loqui/pkg/tools/builtin]: built-in tools (shell, calculator, file access)
//   - [github.com/loqui-dev/loqui/pkg/tools/mcpclient]: client for external MCP servers
//
// The toolbox sub-package is the foundation layer. Both builtin and
// mcpclient produce toolbox.Tool values; the mcpclient package is a thin
// wrapper around the official MCP Go SDK
// (github.com/modelcontextprotocol/go-sdk).
package tools
