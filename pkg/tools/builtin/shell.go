package builtin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	osexec "os/exec"
	"strings"

	"github.com/loqui-dev/loqui/pkg/tools/toolbox"
)

type shellInput struct {
	Command string `json:"command"`
}

func (b *Builtin) shellTool() toolbox.Tool {
	return toolbox.Tool{
		Name:        "shell",
		Description: "Execute a shell command and return its combined stdout and stderr. Commands run through `sh -c` in the configured working directory.",
		InputSchema: json.RawMessage(`{"type":"object","properties":{"command":{"type":"string","description":"The shell command to execute"}},"required":["command"]}`),
		Handler:     b.handleShell,
	}
}

func (b *Builtin) handleShell(ctx context.Context, input json.RawMessage) (string, error) {
	var in shellInput
	if err := json.Unmarshal(input, &in); err != nil {
		return "", fmt.Errorf("shell: invalid input: %w", err)
	}

	if in.Command == "" {
		return "", fmt.Errorf("shell: command is required")
	}

	cmd := osexec.CommandContext(ctx, "sh", "-c", in.Command) //nolint:gosec // running model-issued commands is this tool's purpose
	cmd.Dir = b.workdir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	var result strings.Builder
	if stdout.Len() > 0 {
		result.WriteString(stdout.String())
	}

	if stderr.Len() > 0 {
		if result.Len() > 0 {
			result.WriteString("\n")
		}

		result.WriteString(stderr.String())
	}

	if err != nil {
		return "", fmt.Errorf("shell: %w\n%s", err, result.String())
	}

	return result.String(), nil
}
