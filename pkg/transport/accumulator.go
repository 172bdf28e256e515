package transport

import (
	"sort"
	"strings"

	"github.com/loqui-dev/loqui/pkg/chats/content"
	"github.com/loqui-dev/loqui/pkg/chats/message"
	"github.com/loqui-dev/loqui/pkg/chats/role"
)

// Accumulator reassembles a streamed turn into a single assistant message.
// Text deltas are concatenated in arrival order; tool call deltas are
// grouped by index, with argument deltas appended to each call's buffer.
// Nothing is observable until the turn completes: a canceled stream is
// simply dropped by never calling Message.
type Accumulator struct {
	text     strings.Builder
	calls    map[int]*pendingCall
	complete bool
}

type pendingCall struct {
	id   string
	name string
	args strings.Builder
}

// NewAccumulator creates an empty Accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{calls: make(map[int]*pendingCall)}
}

// Add folds one fragment into the accumulated turn.
func (a *Accumulator) Add(f Fragment) {
	switch {
	case f.TurnComplete:
		a.complete = true
	case f.ToolCallDelta != nil:
		d := f.ToolCallDelta
		pc, ok := a.calls[d.Index]
		if !ok {
			pc = &pendingCall{}
			a.calls[d.Index] = pc
		}
		if d.ID != "" {
			pc.id = d.ID
		}
		if d.Name != "" {
			pc.name = d.Name
		}
		pc.args.WriteString(d.ArgumentsDelta)
	case f.TextDelta != "":
		a.text.WriteString(f.TextDelta)
	}
}

// Complete reports whether a TurnComplete fragment has been seen.
func (a *Accumulator) Complete() bool {
	return a.complete
}

// Text returns the text accumulated so far.
func (a *Accumulator) Text() string {
	return a.text.String()
}

// Message builds the assistant message from the accumulated fragments.
// Tool calls are emitted in index order.
func (a *Accumulator) Message(sender string) message.Message {
	parts := make([]content.Part, 0, 1+len(a.calls))
	if a.text.Len() > 0 {
		parts = append(parts, content.Text{Text: a.text.String()})
	}

	indexes := make([]int, 0, len(a.calls))
	for i := range a.calls {
		indexes = append(indexes, i)
	}
	sort.Ints(indexes)

	for _, i := range indexes {
		pc := a.calls[i]
		parts = append(parts, content.ToolCall{
			ID:        pc.id,
			Name:      pc.name,
			Arguments: pc.args.String(),
		})
	}

	return message.New(sender, role.Assistant, parts...)
}
