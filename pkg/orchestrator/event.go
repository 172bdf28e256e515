package orchestrator

import (
	"sync"
	"time"
)

// EventKind identifies the type of loop event.
type EventKind string

const (
	// EventMessageAdded fires for every message appended to the chat.
	// Data is the message.Message.
	EventMessageAdded EventKind = "message_added"
	// EventTextChunk fires for each streamed text delta. Data is the string.
	EventTextChunk EventKind = "text_chunk"
	// EventToolInvoked fires before a tool executes. Data is the content.ToolCall.
	EventToolInvoked EventKind = "tool_invoked"
	// EventToolResult fires after a tool executes. Data is the content.ToolResult.
	EventToolResult EventKind = "tool_result"
	// EventFinalAnswer fires when a round produces no tool calls. Data is
	// the final message.Message.
	EventFinalAnswer EventKind = "final_answer"
	// EventRoundLimit fires when the loop hits its round limit. Data is the
	// number of rounds run.
	EventRoundLimit EventKind = "round_limit"
	// EventFailed fires when a round dies on a transport error. Data is the error.
	EventFailed EventKind = "failed"
)

// Event is an immutable notification of loop activity.
type Event struct {
	Kind      EventKind
	Timestamp time.Time
	Data      any
}

// Subscription receives events from an EventBus.
type Subscription struct {
	C  <-chan Event
	ch chan Event
}

// EventBus fans out events to all active subscribers. It is safe for
// concurrent use.
type EventBus struct {
	mu   sync.RWMutex
	subs map[*Subscription]struct{}
}

// NewEventBus creates an EventBus ready for use.
func NewEventBus() *EventBus {
	return &EventBus{
		subs: make(map[*Subscription]struct{}),
	}
}

// Subscribe creates a new subscription with the given channel buffer size.
// The caller should read from sub.C and eventually call Unsubscribe.
func (b *EventBus) Subscribe(bufSize int) *Subscription {
	ch := make(chan Event, bufSize)
	sub := &Subscription{C: ch, ch: ch}

	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()

	return sub
}

// Unsubscribe removes the subscription and closes its channel.
func (b *EventBus) Unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subs[sub]; ok {
		delete(b.subs, sub)
		close(sub.ch)
	}
}

// Publish sends an event to all subscribers. If a subscriber's buffer is
// full the event is dropped for that subscriber so slow consumers never
// stall the loop.
func (b *EventBus) Publish(e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subs {
		select {
		case sub.ch <- e:
		default:
		}
	}
}
