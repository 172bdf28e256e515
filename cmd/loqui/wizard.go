package main

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/huh"
	"github.com/loqui-dev/loqui/pkg/transport/openai"
	"gopkg.in/yaml.v3"
)

type wizardAnswers struct {
	Kind         string
	BaseURL      string
	APIKey       string //nolint:gosec // env var reference, not a secret
	Model        string
	SystemPrompt string
	Tools        []string
	MaxRounds    string
	Stream       bool
}

type providerDefault struct {
	APIKey string //nolint:gosec // env var reference template, not a secret
	Model  string
}

//nolint:gosec // env var reference templates, not hardcoded secrets
var providerDefaults = map[string]providerDefault{
	"openai":   {APIKey: "${OPENAI_API_KEY}", Model: "gpt-4o-mini"},
	"deepseek": {APIKey: "${DEEPSEEK_API_KEY}", Model: "deepseek-chat"},
	"grok":     {APIKey: "${XAI_API_KEY}", Model: "grok-3-mini"},
	"groq":     {APIKey: "${GROQ_API_KEY}", Model: "llama-3.3-70b-versatile"},
}

// runWizard walks the user through a minimal config and returns it as YAML.
func runWizard() ([]byte, error) {
	a := wizardAnswers{
		SystemPrompt: "You are a helpful assistant. Be concise and accurate.",
		Tools:        []string{"shell", "calculator", "filesystem"},
		MaxRounds:    "24",
		Stream:       true,
	}

	kindOpts := make([]huh.Option[string], 0, len(openai.Kinds()))
	for _, k := range openai.Kinds() {
		kindOpts = append(kindOpts, huh.NewOption(string(k), string(k)))
	}

	if err := huh.NewForm(huh.NewGroup(
		huh.NewSelect[string]().
			Title("Provider").
			Options(kindOpts...).
			Value(&a.Kind),
	)).Run(); err != nil {
		return nil, err
	}

	defaults := providerDefaults[a.Kind]
	a.APIKey = defaults.APIKey
	a.Model = defaults.Model

	var fields []huh.Field
	if a.Kind == string(openai.KindCompatible) {
		fields = append(fields, huh.NewInput().Title("Base URL").Value(&a.BaseURL).Validate(validateNonEmpty))
	}
	fields = append(fields,
		huh.NewInput().Title("API key (or ${ENV_VAR} reference)").Value(&a.APIKey),
		huh.NewInput().Title("Model").Value(&a.Model),
		huh.NewText().Title("System prompt").Value(&a.SystemPrompt),
		huh.NewMultiSelect[string]().
			Title("Built-in tools").
			Options(
				huh.NewOption("Shell", "shell").Selected(true),
				huh.NewOption("Calculator", "calculator").Selected(true),
				huh.NewOption("Filesystem", "filesystem").Selected(true),
			).
			Value(&a.Tools),
		huh.NewInput().Title("Max tool-calling rounds").Value(&a.MaxRounds).Validate(validatePositiveInt),
		huh.NewConfirm().Title("Stream responses?").Value(&a.Stream),
	)

	if err := huh.NewForm(huh.NewGroup(fields...)).Run(); err != nil {
		return nil, err
	}

	return marshalWizardConfig(a)
}

func validatePositiveInt(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return fmt.Errorf("must be a positive integer")
	}
	return nil
}

func validateNonEmpty(s string) error {
	if s == "" {
		return fmt.Errorf("must not be empty")
	}
	return nil
}

// YAML output types. Kept separate from engine.Config so the generated file
// contains only the keys the wizard asked about.

type configYAML struct {
	Provider providerYAML `yaml:"provider"`
	Tools    toolsYAML    `yaml:"tools"`
	Chat     chatYAML     `yaml:"chat"`
}

type providerYAML struct {
	Kind    string `yaml:"kind"`
	BaseURL string `yaml:"base_url,omitempty"`
	APIKey  string `yaml:"api_key"` //nolint:gosec // env var reference, not a secret
	Model   string `yaml:"model"`
}

type toolsYAML struct {
	Shell      bool `yaml:"shell"`
	Calculator bool `yaml:"calculator"`
	Filesystem bool `yaml:"filesystem"`
}

type chatYAML struct {
	SystemPrompt string `yaml:"system_prompt"`
	MaxRounds    int    `yaml:"max_rounds"`
	Stream       bool   `yaml:"stream"`
}

func marshalWizardConfig(a wizardAnswers) ([]byte, error) {
	maxRounds, _ := strconv.Atoi(a.MaxRounds)

	enabled := make(map[string]bool, len(a.Tools))
	for _, t := range a.Tools {
		enabled[t] = true
	}

	yc := configYAML{
		Provider: providerYAML{
			Kind:    a.Kind,
			BaseURL: a.BaseURL,
			APIKey:  a.APIKey,
			Model:   a.Model,
		},
		Tools: toolsYAML{
			Shell:      enabled["shell"],
			Calculator: enabled["calculator"],
			Filesystem: enabled["filesystem"],
		},
		Chat: chatYAML{
			SystemPrompt: a.SystemPrompt,
			MaxRounds:    maxRounds,
			Stream:       a.Stream,
		},
	}

	return yaml.Marshal(yc)
}
