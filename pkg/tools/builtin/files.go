package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/loqui-dev/loqui/pkg/tools/toolbox"
)

const maxReadSize = 10 << 20 // 10 MB

type readFileInput struct {
	Path string `json:"path"`
}

type writeFileInput struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

func (b *Builtin) readFileTool() toolbox.Tool {
	return toolbox.Tool{
		Name:        "read_file",
		Description: "Read the contents of a file at the given path. Returns the full file content as text.",
		InputSchema: json.RawMessage(`{"type":"object","properties":{"path":{"type":"string","description":"Path to the file to read"}},"required":["path"]}`),
		Handler:     b.handleReadFile,
	}
}

func (b *Builtin) handleReadFile(_ context.Context, input json.RawMessage) (string, error) {
	var in readFileInput
	if err := json.Unmarshal(input, &in); err != nil {
		return "", fmt.Errorf("read_file: invalid input: %w", err)
	}

	if in.Path == "" {
		return "", fmt.Errorf("read_file: path is required")
	}

	file, err := os.Open(b.resolve(in.Path))
	if err != nil {
		return "", fmt.Errorf("read_file: %w", err)
	}
	defer file.Close() //nolint:errcheck // best-effort close on read

	data, err := io.ReadAll(io.LimitReader(file, int64(maxReadSize)+1))
	if err != nil {
		return "", fmt.Errorf("read_file: %w", err)
	}

	if len(data) > maxReadSize {
		return "", fmt.Errorf("read_file: file exceeds maximum read size of 10 MB")
	}

	return string(data), nil
}

func (b *Builtin) writeFileTool() toolbox.Tool {
	return toolbox.Tool{
		Name:        "write_file",
		Description: "Write content to a file, creating parent directories as needed. Overwriting an existing file reports a unified diff of the change.",
		InputSchema: json.RawMessage(`{"type":"object","properties":{"path":{"type":"string","description":"Path to the file to write"},"content":{"type":"string","description":"Content to write to the file"}},"required":["path","content"]}`),
		Handler:     b.handleWriteFile,
	}
}

func (b *Builtin) handleWriteFile(_ context.Context, input json.RawMessage) (string, error) {
	var in writeFileInput
	if err := json.Unmarshal(input, &in); err != nil {
		return "", fmt.Errorf("write_file: invalid input: %w", err)
	}

	if in.Path == "" {
		return "", fmt.Errorf("write_file: path is required")
	}

	abs := b.resolve(in.Path)

	// Existing content feeds the diff; empty when the file is new.
	oldContent := ""
	existed := false
	if data, readErr := os.ReadFile(abs); readErr == nil {
		oldContent = string(data)
		existed = true
	}

	if err := os.MkdirAll(filepath.Dir(abs), 0o750); err != nil {
		return "", fmt.Errorf("write_file: create dirs: %w", err)
	}

	if err := os.WriteFile(abs, []byte(in.Content), fileMode(abs)); err != nil {
		return "", fmt.Errorf("write_file: %w", err)
	}

	if !existed {
		return fmt.Sprintf("created %s (%d bytes)", in.Path, len(in.Content)), nil
	}

	diff := computeDiff(in.Path, oldContent, in.Content)
	if diff == "" {
		return fmt.Sprintf("wrote %s (unchanged)", in.Path), nil
	}
	return fmt.Sprintf("wrote %s\n%s", in.Path, diff), nil
}

// resolve joins a relative path with the working directory.
func (b *Builtin) resolve(path string) string {
	if filepath.IsAbs(path) || b.workdir == "" {
		return path
	}
	return filepath.Join(b.workdir, path)
}

// fileMode returns the existing file's permission bits, or 0o600 for new files.
func fileMode(path string) os.FileMode {
	info, err := os.Stat(path)
	if err != nil {
		return 0o600
	}

	return info.Mode().Perm()
}

// computeDiff returns a unified diff between oldContent and newContent
// labeled with the given path. Returns an empty string when equal.
func computeDiff(path, oldContent, newContent string) string {
	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(oldContent),
		B:        difflib.SplitLines(newContent),
		FromFile: path,
		ToFile:   path,
		Context:  3,
	}

	result, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return fmt.Sprintf("(diff error: %v)", err)
	}

	return result
}
