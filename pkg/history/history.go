// Package history persists conversations as JSON session files so a chat
// can be resumed across runs. Each session is one file named <id>.json in
// the store directory; writes are atomic (temp file + rename).
package history

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/loqui-dev/loqui/pkg/chats/chat"
	"github.com/loqui-dev/loqui/pkg/chats/content"
	"github.com/loqui-dev/loqui/pkg/chats/message"
	"github.com/loqui-dev/loqui/pkg/chats/role"
)

// ErrNotFound is returned when a session id has no file.
var ErrNotFound = errors.New("history: session not found")

// Store reads and writes session files under a single directory.
type Store struct {
	dir string
}

// NewStore creates a Store rooted at dir, creating it if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("history: create dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the store's directory.
func (s *Store) Dir() string { return s.dir }

// NewID returns a fresh session id, sortable by creation time.
func NewID() string {
	var suffix [3]byte
	_, _ = rand.Read(suffix[:])
	return time.Now().UTC().Format("20060102-150405") + "-" + hex.EncodeToString(suffix[:])
}

// Info describes a stored session.
type Info struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	UpdatedAt time.Time `json:"updated_at"`
	Messages  int       `json:"messages"`
}

// --- on-disk format ---

type sessionRecord struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	UpdatedAt time.Time       `json:"updated_at"`
	Messages  []messageRecord `json:"messages"`
}

type messageRecord struct {
	Role        string             `json:"role"`
	Sender      string             `json:"sender,omitempty"`
	Content     string             `json:"content,omitempty"`
	ToolCalls   []toolCallRecord   `json:"tool_calls,omitempty"`
	ToolResults []toolResultRecord `json:"tool_results,omitempty"`
}

type toolCallRecord struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type toolResultRecord struct {
	ToolCallID string `json:"tool_call_id"`
	Content    string `json:"content"`
	IsError    bool   `json:"is_error,omitempty"`
}

// Save writes the conversation under the given id, replacing any previous
// contents.
func (s *Store) Save(id string, c *chat.Chat) error {
	rec := sessionRecord{
		ID:        id,
		Title:     titleFor(c),
		UpdatedAt: time.Now().UTC(),
	}
	for _, m := range c.Messages() {
		rec.Messages = append(rec.Messages, encodeMessage(m))
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("history: marshal session: %w", err)
	}

	path := s.path(id)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("history: write session: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("history: write session: %w", err)
	}
	return nil
}

// Load rebuilds the conversation stored under id.
func (s *Store) Load(id string) (*chat.Chat, error) {
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("history: read session: %w", err)
	}

	var rec sessionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("history: parse session %s: %w", id, err)
	}

	msgs := make([]message.Message, 0, len(rec.Messages))
	for _, mr := range rec.Messages {
		m, err := decodeMessage(mr)
		if err != nil {
			return nil, fmt.Errorf("history: session %s: %w", id, err)
		}
		msgs = append(msgs, m)
	}
	return chat.New(msgs...), nil
}

// Last returns the id of the most recently updated session.
func (s *Store) Last() (string, error) {
	infos, err := s.List()
	if err != nil {
		return "", err
	}
	if len(infos) == 0 {
		return "", ErrNotFound
	}
	return infos[0].ID, nil
}

// List returns all stored sessions, newest first.
func (s *Store) List() ([]Info, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("history: list sessions: %w", err)
	}

	var infos []Info
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(s.dir, name))
		if err != nil {
			continue
		}
		var rec sessionRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			continue
		}
		infos = append(infos, Info{
			ID:        rec.ID,
			Title:     rec.Title,
			UpdatedAt: rec.UpdatedAt,
			Messages:  len(rec.Messages),
		})
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].UpdatedAt.After(infos[j].UpdatedAt) })
	return infos, nil
}

// Delete removes the session stored under id.
func (s *Store) Delete(id string) error {
	err := os.Remove(s.path(id))
	if os.IsNotExist(err) {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return err
}

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// titleFor derives a session title from the first user message.
func titleFor(c *chat.Chat) string {
	title := ""
	c.Each(func(_ int, m message.Message) bool {
		if m.Role == role.User {
			title = m.TextContent()
			return false
		}
		return true
	})

	title = strings.Join(strings.Fields(title), " ")
	r := []rune(title)
	if len(r) > 60 {
		return string(r[:60]) + "..."
	}
	return title
}

func encodeMessage(m message.Message) messageRecord {
	mr := messageRecord{
		Role:    m.Role.String(),
		Sender:  m.Sender,
		Content: m.TextContent(),
	}
	for _, tc := range m.ToolCalls() {
		mr.ToolCalls = append(mr.ToolCalls, toolCallRecord{ID: tc.ID, Name: tc.Name, Arguments: tc.Arguments})
	}
	for _, tr := range m.ToolResults() {
		mr.ToolResults = append(mr.ToolResults, toolResultRecord{ToolCallID: tr.ToolCallID, Content: tr.Content, IsError: tr.IsError})
	}
	return mr
}

func decodeMessage(mr messageRecord) (message.Message, error) {
	r, err := role.Parse(mr.Role)
	if err != nil {
		return message.Message{}, err
	}

	var parts []content.Part
	if mr.Content != "" {
		parts = append(parts, content.Text{Text: mr.Content})
	}
	for _, tc := range mr.ToolCalls {
		parts = append(parts, content.ToolCall{ID: tc.ID, Name: tc.Name, Arguments: tc.Arguments})
	}
	for _, tr := range mr.ToolResults {
		parts = append(parts, content.ToolResult{ToolCallID: tr.ToolCallID, Content: tr.Content, IsError: tr.IsError})
	}

	return message.New(mr.Sender, r, parts...), nil
}
