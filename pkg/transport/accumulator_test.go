package transport

import (
	"testing"

	"github.com/loqui-dev/loqui/pkg/chats/role"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccumulator_TextOnly(t *testing.T) {
	a := NewAccumulator()
	a.Add(Fragment{TextDelta: "Hel"})
	a.Add(Fragment{TextDelta: "lo"})
	a.Add(Fragment{TurnComplete: true})

	require.True(t, a.Complete())

	msg := a.Message("bot")
	assert.Equal(t, "bot", msg.Sender)
	assert.Equal(t, role.Assistant, msg.Role)
	assert.Equal(t, "Hello", msg.TextContent())
	assert.Empty(t, msg.ToolCalls())
}

func TestAccumulator_ToolCallDeltas(t *testing.T) {
	a := NewAccumulator()
	a.Add(Fragment{ToolCallDelta: &ToolCallDelta{Index: 0, ID: "call_1", Name: "calculator"}})
	a.Add(Fragment{ToolCallDelta: &ToolCallDelta{Index: 0, ArgumentsDelta: `{"expres`}})
	a.Add(Fragment{ToolCallDelta: &ToolCallDelta{Index: 0, ArgumentsDelta: `sion":"2+3"}`}})
	a.Add(Fragment{TurnComplete: true})

	msg := a.Message("")
	calls := msg.ToolCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "call_1", calls[0].ID)
	assert.Equal(t, "calculator", calls[0].Name)
	assert.JSONEq(t, `{"expression":"2+3"}`, calls[0].Arguments)
}

func TestAccumulator_InterleavedCallsOrderedByIndex(t *testing.T) {
	a := NewAccumulator()
	a.Add(Fragment{ToolCallDelta: &ToolCallDelta{Index: 1, ID: "call_b", Name: "b"}})
	a.Add(Fragment{ToolCallDelta: &ToolCallDelta{Index: 0, ID: "call_a", Name: "a"}})
	a.Add(Fragment{ToolCallDelta: &ToolCallDelta{Index: 1, ArgumentsDelta: `{}`}})
	a.Add(Fragment{ToolCallDelta: &ToolCallDelta{Index: 0, ArgumentsDelta: `{}`}})
	a.Add(Fragment{TurnComplete: true})

	calls := a.Message("").ToolCalls()
	require.Len(t, calls, 2)
	assert.Equal(t, "call_a", calls[0].ID)
	assert.Equal(t, "call_b", calls[1].ID)
}

func TestAccumulator_TextAndCalls(t *testing.T) {
	a := NewAccumulator()
	a.Add(Fragment{TextDelta: "let me check"})
	a.Add(Fragment{ToolCallDelta: &ToolCallDelta{Index: 0, ID: "call_1", Name: "shell", ArgumentsDelta: `{"command":"ls"}`}})
	a.Add(Fragment{TurnComplete: true})

	msg := a.Message("")
	assert.Equal(t, "let me check", msg.TextContent())
	assert.Len(t, msg.ToolCalls(), 1)
}

func TestAccumulator_IncompleteTurn(t *testing.T) {
	a := NewAccumulator()
	a.Add(Fragment{TextDelta: "partial"})

	assert.False(t, a.Complete())
	assert.Equal(t, "partial", a.Text())
}
