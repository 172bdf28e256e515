// Package orchestrator runs the tool-calling loop: send the conversation,
// collect the assistant's turn, execute any tool calls in order, and repeat
// until the model answers without calling tools or the round limit trips.
//
// The loop owns all chat mutation during a run. A round that fails on the
// transport leaves the conversation exactly as it was, so the caller can
// retry and produce a byte-identical request. Tool failures are not loop
// failures: they travel back to the model as error-flagged tool results.
package orchestrator

import (
	"context"
	"errors"
	"io"

	"github.com/loqui-dev/loqui/pkg/chats/chat"
	"github.com/loqui-dev/loqui/pkg/chats/message"
	"github.com/loqui-dev/loqui/pkg/chats/role"
	"github.com/loqui-dev/loqui/pkg/tools/toolbox"
	"github.com/loqui-dev/loqui/pkg/transport"
)

// DefaultMaxRounds bounds the loop when Options.MaxRounds is zero.
const DefaultMaxRounds = 24

// ErrRoundLimit is returned when the loop exceeds its round limit without
// the model producing a final answer. The conversation up to that point is
// kept intact.
var ErrRoundLimit = errors.New("orchestrator: round limit exceeded")

// Options configures an Orchestrator.
type Options struct {
	MaxRounds     int    // Loop limit (0 = DefaultMaxRounds).
	Stream        bool   // Use the streaming exchange path.
	HistoryBudget int    // Truncate the chat to this many content bytes before each round (0 = off).
	Sender        string // Sender recorded on assistant and tool messages.
}

// Orchestrator drives one conversation against one transport client.
type Orchestrator struct {
	client  transport.Client
	chat    *chat.Chat
	toolbox *toolbox.ToolBox
	bus     *EventBus
	options Options
}

// New creates an Orchestrator. A nil bus gets a fresh one; a nil toolbox
// means the model is offered no tools.
func New(client transport.Client, c *chat.Chat, tb *toolbox.ToolBox, bus *EventBus, opts Options) *Orchestrator {
	if bus == nil {
		bus = NewEventBus()
	}
	if tb == nil {
		tb = toolbox.New()
	}
	if opts.Sender == "" {
		opts.Sender = "assistant"
	}
	return &Orchestrator{
		client:  client,
		chat:    c,
		toolbox: tb,
		bus:     bus,
		options: opts,
	}
}

// Chat returns the conversation the orchestrator drives.
func (o *Orchestrator) Chat() *chat.Chat { return o.chat }

// Events returns the orchestrator's event bus.
func (o *Orchestrator) Events() *EventBus { return o.bus }

// Run executes the loop until a final answer, the round limit, or a
// transport failure. The returned message is the final assistant answer;
// on error it is the zero Message.
func (o *Orchestrator) Run(ctx context.Context) (message.Message, error) {
	tools := o.toolbox.Tools()

	maxRounds := o.options.MaxRounds
	if maxRounds <= 0 {
		maxRounds = DefaultMaxRounds
	}

	for round := 0; round < maxRounds; round++ {
		if o.options.HistoryBudget > 0 {
			o.chat.TruncateToBudget(o.options.HistoryBudget)
		}

		reply, err := o.exchange(ctx, tools)
		if err != nil {
			o.bus.Publish(Event{Kind: EventFailed, Data: err})
			return message.Message{}, err
		}

		reply.Sender = o.options.Sender
		if err := o.append(reply); err != nil {
			o.bus.Publish(Event{Kind: EventFailed, Data: err})
			return message.Message{}, err
		}

		calls := reply.ToolCalls()
		if len(calls) == 0 {
			o.bus.Publish(Event{Kind: EventFinalAnswer, Data: reply})
			return reply, nil
		}

		for _, tc := range calls {
			o.bus.Publish(Event{Kind: EventToolInvoked, Data: tc})

			result := o.toolbox.Call(ctx, tc)
			o.bus.Publish(Event{Kind: EventToolResult, Data: result})

			if err := o.append(message.New(o.options.Sender, role.Tool, result)); err != nil {
				o.bus.Publish(Event{Kind: EventFailed, Data: err})
				return message.Message{}, err
			}
		}
	}

	o.bus.Publish(Event{Kind: EventRoundLimit, Data: maxRounds})
	return message.Message{}, ErrRoundLimit
}

// exchange performs one model exchange without touching the chat.
func (o *Orchestrator) exchange(ctx context.Context, tools []toolbox.Tool) (message.Message, error) {
	if !o.options.Stream {
		return o.client.Complete(ctx, o.chat, tools)
	}

	stream, err := o.client.Stream(ctx, o.chat, tools)
	if err != nil {
		return message.Message{}, err
	}
	defer stream.Close() //nolint:errcheck // double close is harmless

	acc := transport.NewAccumulator()
	for {
		f, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Accumulated fragments are discarded with the accumulator.
			return message.Message{}, err
		}

		if f.TextDelta != "" {
			o.bus.Publish(Event{Kind: EventTextChunk, Data: f.TextDelta})
		}
		acc.Add(f)
	}

	if !acc.Complete() {
		return message.Message{}, &transport.Error{Op: "stream", Err: errors.New("stream ended before turn completed")}
	}

	return acc.Message(o.options.Sender), nil
}

func (o *Orchestrator) append(m message.Message) error {
	if err := o.chat.Append(m); err != nil {
		return err
	}
	o.bus.Publish(Event{Kind: EventMessageAdded, Data: m})
	return nil
}
