package engine

import (
	"fmt"
	"os"
	"time"

	"github.com/loqui-dev/loqui/pkg/transport/openai"
	"gopkg.in/yaml.v3"
)

// Config is the top-level engine configuration.
type Config struct {
	LoquiDir   string         `yaml:"-"` // Set by CLI, not from YAML.
	Provider   ProviderConfig `yaml:"provider"`
	MCPServers []MCPConfig    `yaml:"mcp_servers"`
	Tools      ToolsConfig    `yaml:"tools"`
	Chat       ChatConfig     `yaml:"chat"`
	History    HistoryConfig  `yaml:"history"`
}

// ProviderConfig describes the chat-completion API to talk to.
type ProviderConfig struct {
	Kind        string   `yaml:"kind"`
	BaseURL     string   `yaml:"base_url"`
	APIKey      string   `yaml:"api_key"` //nolint:gosec // configuration field, not a hardcoded secret
	Model       string   `yaml:"model"`
	Temperature *float64 `yaml:"temperature"`
	MaxTokens   int      `yaml:"max_tokens"`
}

// MCPConfig describes an MCP server to connect to. Either Command (stdio
// transport) or URL (SSE transport) must be set, not both.
type MCPConfig struct {
	Name    string   `yaml:"name"`
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
	URL     string   `yaml:"url"`
}

// ToolsConfig toggles the built-in tools.
type ToolsConfig struct {
	Shell      bool   `yaml:"shell"`
	Calculator bool   `yaml:"calculator"`
	Filesystem bool   `yaml:"filesystem"`
	Workdir    string `yaml:"workdir"`
}

// ChatConfig holds conversation-loop settings.
type ChatConfig struct {
	SystemPrompt  string `yaml:"system_prompt"`
	MaxRounds     int    `yaml:"max_rounds"`
	Stream        *bool  `yaml:"stream"`
	ToolTimeout   string `yaml:"tool_timeout"`
	HistoryBudget int    `yaml:"history_budget"`
}

// HistoryConfig controls session persistence.
type HistoryConfig struct {
	Enabled *bool  `yaml:"enabled"`
	Dir     string `yaml:"dir"`
}

// LoadConfig reads a YAML file and returns a Config.
// Environment variables referenced as ${VAR} or $VAR in the YAML are expanded
// before parsing. This allows API keys to be kept in environment variables
// (e.g. loaded from a .env file) rather than committed in the config.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is caller-provided configuration, not user input
	if err != nil {
		return Config{}, fmt.Errorf("engine: load config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return Config{}, fmt.Errorf("engine: parse config: %w", err)
	}

	return cfg, nil
}

// Streaming reports whether streamed completions should be used. Defaults to
// true when the config does not say otherwise.
func (c Config) Streaming() bool {
	if c.Chat.Stream == nil {
		return true
	}
	return *c.Chat.Stream
}

// HistoryEnabled reports whether session persistence is on. Defaults to true.
func (c Config) HistoryEnabled() bool {
	if c.History.Enabled == nil {
		return true
	}
	return *c.History.Enabled
}

// ToolTimeout parses the configured per-tool timeout. Zero means no limit.
func (c Config) ToolTimeout() (time.Duration, error) {
	if c.Chat.ToolTimeout == "" {
		return 0, nil
	}

	d, err := time.ParseDuration(c.Chat.ToolTimeout)
	if err != nil {
		return 0, fmt.Errorf("engine: config: invalid tool_timeout %q: %w", c.Chat.ToolTimeout, err)
	}
	return d, nil
}

// Validate checks that the configuration is internally consistent.
func (c Config) Validate() error {
	p := c.Provider
	if p.Kind == "" {
		return fmt.Errorf("engine: config: provider kind is required")
	}
	kind := openai.Kind(p.Kind)
	if !kind.Valid() {
		return fmt.Errorf("engine: config: unknown provider kind %q", p.Kind)
	}
	if p.Model == "" {
		return fmt.Errorf("engine: config: provider model is required")
	}
	if kind == openai.KindCompatible && p.BaseURL == "" {
		return fmt.Errorf("engine: config: provider %q requires base_url", p.Kind)
	}
	if p.MaxTokens < 0 {
		return fmt.Errorf("engine: config: max_tokens must not be negative")
	}

	mcpNames := make(map[string]struct{}, len(c.MCPServers))
	for _, m := range c.MCPServers {
		if m.Name == "" {
			return fmt.Errorf("engine: config: mcp server name is required")
		}
		if m.Command == "" && m.URL == "" {
			return fmt.Errorf("engine: config: mcp server %q: command or url is required", m.Name)
		}
		if m.Command != "" && m.URL != "" {
			return fmt.Errorf("engine: config: mcp server %q: command and url are mutually exclusive", m.Name)
		}
		if _, dup := mcpNames[m.Name]; dup {
			return fmt.Errorf("engine: config: duplicate mcp server name %q", m.Name)
		}
		mcpNames[m.Name] = struct{}{}
	}

	if c.Chat.MaxRounds < 0 {
		return fmt.Errorf("engine: config: max_rounds must not be negative")
	}
	if c.Chat.HistoryBudget < 0 {
		return fmt.Errorf("engine: config: history_budget must not be negative")
	}
	if _, err := c.ToolTimeout(); err != nil {
		return err
	}

	return nil
}
