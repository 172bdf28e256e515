package main

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/loqui-dev/loqui/pkg/chats/content"
	"github.com/loqui-dev/loqui/pkg/chats/message"
	"github.com/loqui-dev/loqui/pkg/chats/role"
)

// chatViewModel renders the live portion of the conversation: streamed text
// and in-flight tool calls. Committed content (final answers, finished tool
// calls, thinking text) is printed to the terminal scrollback via
// tea.Println and is not part of this view.
type chatViewModel struct {
	streamBuf     string             // streamed text of the turn in progress
	pending       []content.ToolCall // tool calls currently executing
	processing    bool
	spinnerIdx    int
	processingMsg string
	width         int
}

func newChatView() chatViewModel {
	return chatViewModel{}
}

// View renders the live area only.
func (m chatViewModel) View() string {
	var sb strings.Builder

	if m.streamBuf != "" {
		sb.WriteString(streamStyle.Render(m.streamBuf))
		sb.WriteString("\n")
	}

	frame := spinnerFrames[m.spinnerIdx%len(spinnerFrames)]
	for _, tc := range m.pending {
		fmt.Fprintf(&sb, "  %s %s%s\n",
			spinnerStyle.Render(frame),
			toolNameStyle.Render(tc.Name),
			dimStyle.Render("("+truncate(tc.Arguments, 60)+")"),
		)
	}

	if m.processing && len(m.pending) == 0 && m.streamBuf == "" {
		fmt.Fprintf(&sb, "  %s %s\n",
			spinnerStyle.Render(frame),
			spinnerStyle.Render(m.processingMsg),
		)
	}

	return sb.String()
}

// addMessage processes a committed chat message and returns a tea.Println
// command for content that belongs in the scrollback.
func (m *chatViewModel) addMessage(msg message.Message) tea.Cmd {
	switch msg.Role {
	case role.System, role.User, role.Tool:
		return nil
	case role.Assistant:
		return m.processAssistantMessage(msg)
	}
	return nil
}

func (m *chatViewModel) processAssistantMessage(msg message.Message) tea.Cmd {
	// The turn is committed; drop the streamed preview of it.
	m.streamBuf = ""

	calls := msg.ToolCalls()
	text := msg.TextContent()

	if len(calls) > 0 {
		// Text alongside tool calls is the model thinking out loud.
		if text != "" {
			return tea.Println(toolResultStyle.Render(strings.TrimSpace(text)))
		}
		return nil
	}

	if text != "" {
		rendered := renderMarkdown(text)
		line := "\n" + answerBlockStyle.Render(
			answerPrefixStyle.Render("loqui > ")+rendered,
		)
		return tea.Println(line)
	}
	return nil
}

// toolInvoked marks a tool call as in flight.
func (m *chatViewModel) toolInvoked(tc content.ToolCall) {
	m.pending = append(m.pending, tc)
}

// toolResult commits a finished tool call to the scrollback.
func (m *chatViewModel) toolResult(tr content.ToolResult) tea.Cmd {
	call := m.takePending(tr.ToolCallID)
	return tea.Println(formatToolLine(call, tr))
}

// takePending removes and returns the pending call matching id. Falls back
// to the oldest pending call when the id is unknown.
func (m *chatViewModel) takePending(id string) content.ToolCall {
	for i, tc := range m.pending {
		if tc.ID == id {
			m.pending = append(m.pending[:i], m.pending[i+1:]...)
			return tc
		}
	}
	if len(m.pending) > 0 {
		tc := m.pending[0]
		m.pending = m.pending[1:]
		return tc
	}
	return content.ToolCall{ID: id}
}

// formatToolLine renders one finished tool call for the scrollback.
func formatToolLine(tc content.ToolCall, tr content.ToolResult) string {
	head := treeCorner + toolNameStyle.Render(tc.Name) +
		dimStyle.Render("("+truncate(tc.Arguments, 60)+")")

	if tr.IsError {
		return head + " " + toolErrorStyle.Render("✗ "+truncate(tr.Content, 80))
	}
	return head + " " + toolResultStyle.Render("→ "+truncate(tr.Content, 80))
}

// textChunk appends a streamed delta to the live preview.
func (m *chatViewModel) textChunk(delta string) {
	m.streamBuf += delta
}

// setProcessing toggles the working state and picks a spinner message.
func (m *chatViewModel) setProcessing(on bool) {
	m.processing = on
	if on {
		m.processingMsg = randomThinkingMessage()
	} else {
		m.streamBuf = ""
		m.pending = nil
	}
}

// advanceSpinner steps the animation one frame.
func (m *chatViewModel) advanceSpinner() {
	m.spinnerIdx++
}

func (m *chatViewModel) setWidth(w int) {
	m.width = w
}
