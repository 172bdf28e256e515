package openai

import "fmt"

// Kind names a provider preset. All presets speak the OpenAI-compatible
// chat-completions protocol and differ only in base URL and key source.
type Kind string

const (
	KindOpenAI     Kind = "openai"
	KindDeepSeek   Kind = "deepseek"
	KindGrok       Kind = "grok"
	KindGroq       Kind = "groq"
	KindCompatible Kind = "openai-compatible"
)

type preset struct {
	baseURL string
	keyEnv  string
}

var presets = map[Kind]preset{
	KindOpenAI:   {baseURL: "https://api.openai.com", keyEnv: "OPENAI_API_KEY"},
	KindDeepSeek: {baseURL: "https://api.deepseek.com", keyEnv: "DEEPSEEK_API_KEY"},
	KindGrok:     {baseURL: "https://api.x.ai", keyEnv: "XAI_API_KEY"},
	KindGroq:     {baseURL: "https://api.groq.com/openai", keyEnv: "GROQ_API_KEY"},
}

// Valid reports whether k names a known provider kind.
func (k Kind) Valid() bool {
	if k == KindCompatible {
		return true
	}
	_, ok := presets[k]
	return ok
}

// DefaultBaseURL returns the preset base URL for k. KindCompatible has no
// preset; its base URL must come from configuration.
func (k Kind) DefaultBaseURL() (string, error) {
	p, ok := presets[k]
	if !ok {
		return "", fmt.Errorf("openai: no default base URL for provider kind %q", k)
	}
	return p.baseURL, nil
}

// DefaultKeyEnv returns the conventional environment variable holding the
// API key for k, or an empty string when there is none.
func (k Kind) DefaultKeyEnv() string {
	return presets[k].keyEnv
}

// Kinds lists all known provider kinds.
func Kinds() []Kind {
	return []Kind{KindOpenAI, KindDeepSeek, KindGrok, KindGroq, KindCompatible}
}
