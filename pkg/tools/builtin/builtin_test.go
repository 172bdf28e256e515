package builtin

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTools_Selection(t *testing.T) {
	tb, err := Tools(Options{Shell: true, Calculator: true, Filesystem: true})
	require.NoError(t, err)
	assert.Equal(t, 4, tb.Len())

	tb, err = Tools(Options{Calculator: true})
	require.NoError(t, err)
	assert.Equal(t, 1, tb.Len())
	_, ok := tb.Get("calculator")
	assert.True(t, ok)
}

func TestShell_Echo(t *testing.T) {
	b := New("")

	out, err := b.handleShell(context.Background(), json.RawMessage(`{"command":"echo hello"}`))
	require.NoError(t, err)
	assert.Equal(t, "hello\n", out)
}

func TestShell_Workdir(t *testing.T) {
	dir := t.TempDir()
	b := New(dir)

	out, err := b.handleShell(context.Background(), json.RawMessage(`{"command":"pwd"}`))
	require.NoError(t, err)
	assert.Contains(t, out, filepath.Base(dir))
}

func TestShell_FailureIncludesOutput(t *testing.T) {
	b := New("")

	_, err := b.handleShell(context.Background(), json.RawMessage(`{"command":"echo oops >&2; exit 3"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "oops")
	assert.Contains(t, err.Error(), "exit status 3")
}

func TestShell_MissingCommand(t *testing.T) {
	b := New("")

	_, err := b.handleShell(context.Background(), json.RawMessage(`{}`))
	assert.ErrorContains(t, err, "command is required")
}

func TestCalculator(t *testing.T) {
	b := New("")

	tests := []struct {
		expr string
		want string
	}{
		{"2+3", "5"},
		{"2 + 3 * 4", "14"},
		{"(2 + 3) * 4", "20"},
		{"10 / 4", "2.5"},
		{"-5 + 2", "-3"},
		{"10 % 3", "1"},
		{"1.5 * 2", "3"},
		{"--3", "3"},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			out, err := b.handleCalculator(context.Background(), json.RawMessage(`{"expression":"`+tt.expr+`"}`))
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestCalculator_Errors(t *testing.T) {
	b := New("")

	tests := []struct {
		name string
		expr string
		want string
	}{
		{"division by zero", "1/0", "division by zero"},
		{"dangling operator", "2+", "unexpected end"},
		{"unbalanced parens", "(2+3", "missing closing parenthesis"},
		{"garbage", "2+x", "unexpected character"},
		{"empty", "  ", "expression is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := b.handleCalculator(context.Background(), json.RawMessage(`{"expression":"`+tt.expr+`"}`))
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "note.txt")
	require.NoError(t, os.WriteFile(path, []byte("contents"), 0o600))

	b := New(dir)

	out, err := b.handleReadFile(context.Background(), json.RawMessage(`{"path":"note.txt"}`))
	require.NoError(t, err)
	assert.Equal(t, "contents", out)
}

func TestReadFile_Missing(t *testing.T) {
	b := New(t.TempDir())

	_, err := b.handleReadFile(context.Background(), json.RawMessage(`{"path":"nope.txt"}`))
	assert.Error(t, err)
}

func TestWriteFile_CreatesWithDirs(t *testing.T) {
	dir := t.TempDir()
	b := New(dir)

	out, err := b.handleWriteFile(context.Background(), json.RawMessage(`{"path":"sub/new.txt","content":"hi"}`))
	require.NoError(t, err)
	assert.Contains(t, out, "created sub/new.txt")

	data, err := os.ReadFile(filepath.Join(dir, "sub", "new.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hi", string(data))
}

func TestWriteFile_OverwriteReportsDiff(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")
	require.NoError(t, os.WriteFile(path, []byte("old line\n"), 0o600))

	b := New(dir)

	out, err := b.handleWriteFile(context.Background(), json.RawMessage(`{"path":"f.txt","content":"new line\n"}`))
	require.NoError(t, err)
	assert.Contains(t, out, "-old line")
	assert.Contains(t, out, "+new line")
}

func TestWriteFile_UnchangedContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")
	require.NoError(t, os.WriteFile(path, []byte("same\n"), 0o600))

	b := New(dir)

	out, err := b.handleWriteFile(context.Background(), json.RawMessage(`{"path":"f.txt","content":"same\n"}`))
	require.NoError(t, err)
	assert.Contains(t, out, "unchanged")
}
