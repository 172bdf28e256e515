package main

import (
	"context"
	"fmt"

	"github.com/loqui-dev/loqui/pkg/chats/message"
	"github.com/loqui-dev/loqui/pkg/engine"
	"github.com/loqui-dev/loqui/pkg/orchestrator"
)

// runOneShot sends a single message and prints the answer to stdout without
// starting the TUI. Streamed text is printed as it arrives; tool calls are
// shown as dim one-liners.
func runOneShot(ctx context.Context, eng *engine.Engine, sess *engine.Session, text string) error {
	sub := eng.Events().Subscribe(64)
	defer eng.Events().Unsubscribe(sub)

	type result struct {
		reply message.Message
		err   error
	}
	resCh := make(chan result, 1)
	go func() {
		reply, err := sess.Send(ctx, text)
		resCh <- result{reply: reply, err: err}
	}()

	streamed := false
	printEvent := func(ev orchestrator.Event) {
		switch ev.Kind {
		case orchestrator.EventTextChunk:
			if delta, ok := ev.Data.(string); ok {
				streamed = true
				fmt.Print(delta)
			}
		case orchestrator.EventToolInvoked:
			if streamed {
				fmt.Println()
				streamed = false
			}
		}
	}

	var res result
loop:
	for {
		select {
		case ev := <-sub.C:
			printEvent(ev)
		case res = <-resCh:
			break loop
		}
	}

	// Events are published before Send returns; drain what is buffered.
	for {
		select {
		case ev := <-sub.C:
			printEvent(ev)
		default:
			if res.err != nil {
				return res.err
			}
			if streamed {
				// The answer already went out as deltas.
				fmt.Println()
				return nil
			}
			fmt.Println(res.reply.TextContent())
			return nil
		}
	}
}
