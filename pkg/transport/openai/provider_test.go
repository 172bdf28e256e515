package openai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKind_Valid(t *testing.T) {
	for _, k := range Kinds() {
		assert.True(t, k.Valid(), string(k))
	}
	assert.False(t, Kind("anthropic").Valid())
}

func TestKind_DefaultBaseURL(t *testing.T) {
	url, err := KindDeepSeek.DefaultBaseURL()
	require.NoError(t, err)
	assert.Equal(t, "https://api.deepseek.com", url)

	_, err = KindCompatible.DefaultBaseURL()
	assert.Error(t, err)
}

func TestNewForKind(t *testing.T) {
	a, err := NewForKind(KindGroq, "", "key", "llama-3.3-70b")
	require.NoError(t, err)
	assert.Equal(t, "https://api.groq.com/openai", a.BaseURL)

	a, err = NewForKind(KindOpenAI, "https://proxy.internal", "key", "gpt-4o")
	require.NoError(t, err)
	assert.Equal(t, "https://proxy.internal", a.BaseURL)

	_, err = NewForKind(KindCompatible, "", "key", "m")
	assert.Error(t, err)
}

func TestKind_DefaultKeyEnv(t *testing.T) {
	assert.Equal(t, "OPENAI_API_KEY", KindOpenAI.DefaultKeyEnv())
	assert.Equal(t, "DEEPSEEK_API_KEY", KindDeepSeek.DefaultKeyEnv())
	assert.Empty(t, KindCompatible.DefaultKeyEnv())
}
