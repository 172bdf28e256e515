package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/loqui-dev/loqui/pkg/chats/chat"
	"github.com/loqui-dev/loqui/pkg/chats/message"
	"github.com/loqui-dev/loqui/pkg/chats/role"
	"github.com/loqui-dev/loqui/pkg/history"
	"github.com/loqui-dev/loqui/pkg/orchestrator"
)

// Session represents one interactive conversation. It owns the chat through
// its orchestrator and saves the conversation after each completed turn.
// Only one Send call may be active at a time.
type Session struct {
	id    string
	orch  *orchestrator.Orchestrator
	store *history.Store

	mu     sync.Mutex
	active bool
}

func newSession(id string, orch *orchestrator.Orchestrator, store *history.Store) *Session {
	return &Session{
		id:    id,
		orch:  orch,
		store: store,
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Chat returns the underlying conversation for direct observation.
func (s *Session) Chat() *chat.Chat { return s.orch.Chat() }

// Send appends a user message and runs the tool-calling loop to completion.
// It returns the final assistant answer. When the loop fails on the
// transport, the user message stays in the chat so the caller can retry
// with Retry rather than Send.
func (s *Session) Send(ctx context.Context, text string) (message.Message, error) {
	if err := s.acquire(); err != nil {
		return message.Message{}, err
	}
	defer s.release()

	if err := s.orch.Chat().Append(message.NewText("user", role.User, text)); err != nil {
		return message.Message{}, err
	}

	return s.run(ctx)
}

// Retry re-runs the loop on the conversation as it stands, without adding a
// new user message. Useful after a transport failure.
func (s *Session) Retry(ctx context.Context) (message.Message, error) {
	if err := s.acquire(); err != nil {
		return message.Message{}, err
	}
	defer s.release()

	return s.run(ctx)
}

func (s *Session) run(ctx context.Context) (message.Message, error) {
	reply, err := s.orch.Run(ctx)
	if err != nil {
		return message.Message{}, err
	}

	if s.store != nil {
		if err := s.store.Save(s.id, s.orch.Chat()); err != nil {
			return message.Message{}, err
		}
	}

	return reply, nil
}

// Clear resets the conversation to just the system prompt and removes the
// stored session file if one exists.
func (s *Session) Clear() error {
	if err := s.acquire(); err != nil {
		return err
	}
	defer s.release()

	c := s.orch.Chat()
	c.Reset(c.SystemPrompt())

	if s.store != nil {
		if err := s.store.Delete(s.id); err != nil && !errors.Is(err, history.ErrNotFound) {
			return err
		}
	}
	return nil
}

func (s *Session) acquire() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active {
		return fmt.Errorf("engine: session %s: another Send is already active", s.id)
	}
	s.active = true
	return nil
}

func (s *Session) release() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.active = false
}
