package main

import (
	"context"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/loqui-dev/loqui/pkg/chats/chat"
	"github.com/loqui-dev/loqui/pkg/chats/content"
	"github.com/loqui-dev/loqui/pkg/orchestrator"
)

// startBridge launches the event watcher and chat watcher goroutines. Both
// goroutines only call p.Send() and never touch model state directly. The
// returned cancel function stops the bridge and waits for both goroutines
// to exit, so no stale messages arrive after it returns.
func startBridge(ctx context.Context, p *tea.Program, c *chat.Chat, events *orchestrator.EventBus) context.CancelFunc {
	bridgeCtx, cancel := context.WithCancel(ctx)

	var wg sync.WaitGroup
	sub := events.Subscribe(64)

	// Event watcher: converts loop events to bubbletea messages.
	wg.Go(func() {
		defer events.Unsubscribe(sub)
		for {
			select {
			case <-bridgeCtx.Done():
				return
			case ev, ok := <-sub.C:
				if !ok {
					return
				}
				switch ev.Kind {
				case orchestrator.EventTextChunk:
					if delta, ok := ev.Data.(string); ok {
						p.Send(textChunkMsg{delta: delta})
					}

				case orchestrator.EventToolInvoked:
					if tc, ok := ev.Data.(content.ToolCall); ok {
						p.Send(toolInvokedMsg{call: tc})
					}

				case orchestrator.EventToolResult:
					if tr, ok := ev.Data.(content.ToolResult); ok {
						p.Send(toolResultMsg{result: tr})
					}
				}
			}
		}
	})

	// Chat watcher: detects new messages via Wait/Since and forwards them.
	wg.Go(func() {
		cursor := c.Len()
		for {
			err := c.Wait(bridgeCtx, cursor)

			// Always drain pending messages, even on cancellation.
			msgs, next := c.Since(cursor)
			cursor = next
			for _, msg := range msgs {
				p.Send(chatMessageMsg{msg: msg})
			}

			if err != nil {
				return
			}
		}
	})

	return func() {
		cancel()
		wg.Wait()
	}
}
