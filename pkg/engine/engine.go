package engine

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/loqui-dev/loqui/pkg/chats/chat"
	"github.com/loqui-dev/loqui/pkg/chats/message"
	"github.com/loqui-dev/loqui/pkg/chats/role"
	"github.com/loqui-dev/loqui/pkg/history"
	"github.com/loqui-dev/loqui/pkg/orchestrator"
	"github.com/loqui-dev/loqui/pkg/tools/builtin"
	"github.com/loqui-dev/loqui/pkg/tools/mcpclient"
	"github.com/loqui-dev/loqui/pkg/tools/toolbox"
	"github.com/loqui-dev/loqui/pkg/transport/openai"
)

// Engine is the composition root. It assembles the provider adapter, the
// toolbox (built-ins plus MCP servers), and the history store from
// configuration, and hands out sessions.
type Engine struct {
	cfg        Config
	events     *orchestrator.EventBus
	adapter    *openai.Adapter
	toolbox    *toolbox.ToolBox
	store      *history.Store
	mcpClients []*mcpclient.Client
}

// New creates an Engine from the given configuration. It validates the
// config, builds the provider adapter, registers built-in tools, and
// connects MCP servers.
func New(ctx context.Context, cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:    cfg,
		events: orchestrator.NewEventBus(),
	}

	adapter, err := buildAdapter(cfg.Provider)
	if err != nil {
		return nil, err
	}
	e.adapter = adapter

	tb, err := builtin.Tools(builtin.Options{
		Shell:      cfg.Tools.Shell,
		Calculator: cfg.Tools.Calculator,
		Filesystem: cfg.Tools.Filesystem,
		Workdir:    cfg.Tools.Workdir,
	})
	if err != nil {
		return nil, fmt.Errorf("engine: built-in tools: %w", err)
	}

	timeout, err := cfg.ToolTimeout()
	if err != nil {
		return nil, err
	}
	tb.SetTimeout(timeout)
	e.toolbox = tb

	for _, mc := range cfg.MCPServers {
		client, err := connectMCP(ctx, mc)
		if err != nil {
			_ = e.Close()
			return nil, fmt.Errorf("engine: mcp %q: %w", mc.Name, err)
		}
		e.mcpClients = append(e.mcpClients, client)

		tools, err := client.Tools(ctx)
		if err != nil {
			_ = e.Close()
			return nil, fmt.Errorf("engine: mcp %q: list tools: %w", mc.Name, err)
		}
		if err := e.toolbox.Register(tools...); err != nil {
			_ = e.Close()
			return nil, fmt.Errorf("engine: mcp %q: %w", mc.Name, err)
		}
	}

	if cfg.HistoryEnabled() {
		dir := cfg.History.Dir
		if dir == "" {
			dir = ".loqui/sessions"
		}
		store, err := history.NewStore(dir)
		if err != nil {
			_ = e.Close()
			return nil, err
		}
		e.store = store
	}

	return e, nil
}

// Events returns the engine's event bus. All sessions publish to it.
func (e *Engine) Events() *orchestrator.EventBus { return e.events }

// Adapter returns the provider adapter, e.g. for listing models.
func (e *Engine) Adapter() *openai.Adapter { return e.adapter }

// Toolbox returns the assembled toolbox.
func (e *Engine) Toolbox() *toolbox.ToolBox { return e.toolbox }

// History returns the session store, or nil when persistence is disabled.
func (e *Engine) History() *history.Store { return e.store }

// NewSession starts a fresh conversation seeded with the configured system
// prompt.
func (e *Engine) NewSession() *Session {
	c := chat.New()
	if sp := e.cfg.Chat.SystemPrompt; sp != "" {
		c = chat.New(message.NewText("", role.System, sp))
	}

	return e.newSession(history.NewID(), c)
}

// ResumeSession reloads a stored conversation. An empty id resumes the most
// recently updated session.
func (e *Engine) ResumeSession(id string) (*Session, error) {
	if e.store == nil {
		return nil, fmt.Errorf("engine: history is disabled")
	}

	if id == "" {
		var err error
		id, err = e.store.Last()
		if err != nil {
			return nil, err
		}
	}

	c, err := e.store.Load(id)
	if err != nil {
		return nil, err
	}

	return e.newSession(id, c), nil
}

func (e *Engine) newSession(id string, c *chat.Chat) *Session {
	orch := orchestrator.New(e.adapter, c, e.toolbox, e.events, orchestrator.Options{
		MaxRounds:     e.cfg.Chat.MaxRounds,
		Stream:        e.cfg.Streaming(),
		HistoryBudget: e.cfg.Chat.HistoryBudget,
	})

	return newSession(id, orch, e.store)
}

// Close shuts down MCP clients and releases resources.
func (e *Engine) Close() error {
	var firstErr error
	for _, c := range e.mcpClients {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// buildAdapter creates the provider adapter, filling the API key from the
// kind's conventional environment variable when the config leaves it empty.
func buildAdapter(pc ProviderConfig) (*openai.Adapter, error) {
	kind := openai.Kind(pc.Kind)

	apiKey := pc.APIKey
	if apiKey == "" {
		apiKey = keyFromEnv(kind)
	}

	a, err := openai.NewForKind(kind, pc.BaseURL, apiKey, pc.Model)
	if err != nil {
		return nil, fmt.Errorf("engine: provider: %w", err)
	}

	if pc.Temperature != nil {
		a.Temperature = *pc.Temperature
	}
	if pc.MaxTokens > 0 {
		a.MaxTokens = pc.MaxTokens
	}

	return a, nil
}

// keyFromEnv reads the kind's conventional API key variable.
func keyFromEnv(kind openai.Kind) string {
	env := kind.DefaultKeyEnv()
	if env == "" {
		return ""
	}
	return os.Getenv(env)
}

// connectMCP dials one configured MCP server.
func connectMCP(ctx context.Context, mc MCPConfig) (*mcpclient.Client, error) {
	if mc.URL != "" {
		return mcpclient.NewSSE(ctx, mc.URL)
	}
	return mcpclient.NewCommand(ctx, mc.Command, mc.Args...)
}

// MaskKey renders an API key safe to display, keeping a short prefix and
// suffix. Short keys are masked entirely.
func MaskKey(key string) string {
	if key == "" {
		return "(not set)"
	}
	if len(key) <= 12 {
		return strings.Repeat("*", len(key))
	}
	return key[:6] + "..." + key[len(key)-4:]
}
