// Package chat provides the mutable conversation container at the heart of
// a tool-calling session. A Chat is an append-only log of messages that
// enforces tool-result linkage: a tool message may only be appended when it
// answers a pending tool call of the latest assistant message.
package chat

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/loqui-dev/loqui/pkg/chats/content"
	"github.com/loqui-dev/loqui/pkg/chats/message"
	"github.com/loqui-dev/loqui/pkg/chats/role"
)

// ErrOrphanToolResult is returned by Append when a tool message does not
// answer a pending tool call of the most recent assistant message.
var ErrOrphanToolResult = errors.New("chat: tool result does not match a pending tool call")

// Chat is a mutable conversation container. The zero value is ready to use.
// Chat is safe for concurrent use.
type Chat struct {
	mu       sync.RWMutex
	messages []message.Message
	appended chan struct{} // closed and replaced on every append
}

// New creates a Chat pre-populated with the given messages. Linkage is not
// checked here; New is for reloading logs that were valid when saved.
func New(msgs ...message.Message) *Chat {
	return &Chat{messages: msgs}
}

// Append adds one or more messages to the conversation. Tool-role messages
// are validated against the pending tool calls of the latest assistant
// message; on a linkage violation nothing from the batch is appended.
func (c *Chat) Append(msgs ...message.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	staged := c.messages
	for _, m := range msgs {
		if m.Role == role.Tool {
			if err := checkLinkage(staged, m); err != nil {
				return err
			}
		}
		staged = append(staged, m)
	}

	c.messages = staged
	c.signal()
	return nil
}

// checkLinkage verifies that every tool result in m answers a tool call of
// the most recent assistant message and has not been answered already.
func checkLinkage(msgs []message.Message, m message.Message) error {
	results := m.ToolResults()
	if len(results) == 0 {
		return fmt.Errorf("%w: tool message has no tool result", ErrOrphanToolResult)
	}

	// Walk back to the latest assistant message, collecting the IDs of tool
	// results that already sit between it and the end of the log.
	answered := make(map[string]bool)
	var calls []content.ToolCall
	for i := len(msgs) - 1; i >= 0; i-- {
		switch msgs[i].Role {
		case role.Tool:
			for _, tr := range msgs[i].ToolResults() {
				answered[tr.ToolCallID] = true
			}
			continue
		case role.Assistant:
			calls = msgs[i].ToolCalls()
		}
		break
	}

	pending := make(map[string]bool, len(calls))
	for _, tc := range calls {
		if !answered[tc.ID] {
			pending[tc.ID] = true
		}
	}

	for _, tr := range results {
		if !pending[tr.ToolCallID] {
			return fmt.Errorf("%w: id %q", ErrOrphanToolResult, tr.ToolCallID)
		}
		delete(pending, tr.ToolCallID)
	}
	return nil
}

// Len returns the number of messages in the conversation.
func (c *Chat) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.messages)
}

// At returns the message at the given index.
// It panics if the index is out of range.
func (c *Chat) At(index int) message.Message {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.messages[index]
}

// Last returns the most recent message and true, or a zero Message and false
// if the conversation is empty.
func (c *Chat) Last() (message.Message, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.messages) == 0 {
		return message.Message{}, false
	}
	return c.messages[len(c.messages)-1], true
}

// Messages returns a copy of all messages in the conversation.
func (c *Chat) Messages() []message.Message {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cp := make([]message.Message, len(c.messages))
	copy(cp, c.messages)
	return cp
}

// Each iterates over a snapshot of the messages, calling fn for each one.
// If fn returns false, iteration stops early.
func (c *Chat) Each(fn func(int, message.Message) bool) {
	for i, m := range c.Messages() {
		if !fn(i, m) {
			return
		}
	}
}

// SystemPrompt returns the text content of the first system message, or an
// empty string if there is none.
func (c *Chat) SystemPrompt() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, m := range c.messages {
		if m.Role == role.System {
			return m.TextContent()
		}
	}
	return ""
}

// Reset clears the conversation. A non-empty systemPrompt reseeds the log
// with a fresh system message.
func (c *Chat) Reset(systemPrompt string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = nil
	if systemPrompt != "" {
		c.messages = []message.Message{message.NewText("", role.System, systemPrompt)}
	}
	c.signal()
}

// Size returns the conversation's content size in bytes: text, tool call
// arguments, and tool result contents. Structural overhead is not counted.
func (c *Chat) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var total int
	for _, m := range c.messages {
		total += messageSize(m)
	}
	return total
}

func messageSize(m message.Message) int {
	var n int
	for _, p := range m.Parts {
		switch v := p.(type) {
		case content.Text:
			n += len(v.Text)
		case content.ToolCall:
			n += len(v.Name) + len(v.Arguments)
		case content.ToolResult:
			n += len(v.Content)
		}
	}
	return n
}

// TruncateToBudget drops the oldest messages until Size() fits within
// budget bytes. System messages are never dropped. An assistant message
// that carries tool calls is dropped together with its tool results so the
// remaining log still satisfies linkage. A budget <= 0 disables truncation.
// It returns the number of messages dropped.
func (c *Chat) TruncateToBudget(budget int) int {
	if budget <= 0 {
		return 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	total := 0
	for _, m := range c.messages {
		total += messageSize(m)
	}

	dropped := 0
	for total > budget {
		idx := -1
		for i, m := range c.messages {
			if m.Role != role.System {
				idx = i
				break
			}
		}
		if idx == -1 {
			break
		}

		end := idx + 1
		if len(c.messages[idx].ToolCalls()) > 0 {
			for end < len(c.messages) && c.messages[end].Role == role.Tool {
				end++
			}
		}

		for _, m := range c.messages[idx:end] {
			total -= messageSize(m)
		}
		dropped += end - idx
		c.messages = append(c.messages[:idx], c.messages[end:]...)
	}
	return dropped
}

// Since returns the messages appended after cursor and the new cursor. A
// cursor of 0 yields the whole conversation. Cursors past the end (after a
// Reset) restart from the beginning.
func (c *Chat) Since(cursor int) ([]message.Message, int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if cursor < 0 || cursor > len(c.messages) {
		cursor = 0
	}
	cp := make([]message.Message, len(c.messages)-cursor)
	copy(cp, c.messages[cursor:])
	return cp, len(c.messages)
}

// Wait blocks until the conversation grows past cursor or ctx is done.
func (c *Chat) Wait(ctx context.Context, cursor int) error {
	for {
		c.mu.Lock()
		if cursor < len(c.messages) || cursor > len(c.messages) {
			c.mu.Unlock()
			return nil
		}
		if c.appended == nil {
			c.appended = make(chan struct{})
		}
		ch := c.appended
		c.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// signal wakes all Wait callers. Callers must hold the write lock.
func (c *Chat) signal() {
	if c.appended != nil {
		close(c.appended)
		c.appended = nil
	}
}
