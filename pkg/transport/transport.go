// Package transport defines the boundary between the orchestration loop and
// a remote chat-completion API. A Client turns a conversation into one
// assistant message, either in a single exchange or as a stream of
// fragments that the Accumulator reassembles.
package transport

import (
	"context"

	"github.com/loqui-dev/loqui/pkg/chats/chat"
	"github.com/loqui-dev/loqui/pkg/chats/message"
	"github.com/loqui-dev/loqui/pkg/tools/toolbox"
)

// Client sends conversations to a chat-completion API. The tools parameter
// declares which tools the model may call; implementations must serialize
// them in the order given.
type Client interface {
	// Complete performs a non-streaming exchange and returns the
	// assistant's message.
	Complete(ctx context.Context, c *chat.Chat, tools []toolbox.Tool) (message.Message, error)

	// Stream starts a streaming exchange. The returned Stream yields
	// fragments until a TurnComplete fragment, then io.EOF.
	Stream(ctx context.Context, c *chat.Chat, tools []toolbox.Tool) (Stream, error)
}

// ModelLister lists the model identifiers a provider offers.
type ModelLister interface {
	ListModels(ctx context.Context) ([]string, error)
}

// Stream yields the fragments of one streamed assistant turn.
type Stream interface {
	// Recv returns the next fragment. After a TurnComplete fragment it
	// returns io.EOF. A mid-stream failure surfaces as a *Error or
	// *DecodeError.
	Recv() (Fragment, error)

	// Close releases the underlying connection. Safe to call more than once.
	Close() error
}

// Fragment is one piece of a streamed assistant turn. Exactly one of the
// three variants is set.
type Fragment struct {
	// TextDelta is a chunk of visible assistant text.
	TextDelta string

	// ToolCallDelta extends a pending tool call.
	ToolCallDelta *ToolCallDelta

	// TurnComplete marks the end of the turn.
	TurnComplete bool
}

// ToolCallDelta carries an incremental update to the tool call at Index.
// ID and Name are set once, on the first delta for that index; later deltas
// append ArgumentsDelta to the call's argument buffer.
type ToolCallDelta struct {
	Index          int
	ID             string
	Name           string
	ArgumentsDelta string
}
