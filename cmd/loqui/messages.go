package main

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/loqui-dev/loqui/pkg/chats/content"
	"github.com/loqui-dev/loqui/pkg/chats/message"
)

// chatMessageMsg delivers a new chat message from the bridge goroutine.
type chatMessageMsg struct {
	msg message.Message
}

// textChunkMsg delivers one streamed text delta.
type textChunkMsg struct {
	delta string
}

// toolInvokedMsg signals that a tool call is about to execute.
type toolInvokedMsg struct {
	call content.ToolCall
}

// toolResultMsg signals that a tool call finished.
type toolResultMsg struct {
	result content.ToolResult
}

// inputSubmitMsg carries the text the user submitted from the input box.
type inputSubmitMsg struct {
	text string
}

// sendCompleteMsg is returned by the tea.Cmd that calls sess.Send.
type sendCompleteMsg struct {
	err      error
	duration time.Duration
}

// programReadyMsg passes the *tea.Program to the model so it can start
// bridge goroutines.
type programReadyMsg struct {
	program *tea.Program
}

// initDrainMsg fires after a short delay so that stale terminal responses
// (e.g. OSC 11 background-color replies) are discarded before focusing input.
type initDrainMsg struct{}

// tickMsg drives the spinner animation.
type tickMsg time.Time
