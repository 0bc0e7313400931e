package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RitaRen1003/medical-rag-system/internal/config"
)

func TestNewClientUnsupportedProvider(t *testing.T) {
	_, _, err := NewClient(context.Background(), config.LLMConfig{Provider: "watson"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported llm provider")
}

func TestNewClientOpenAI(t *testing.T) {
	gen, emb, err := NewClient(context.Background(), config.LLMConfig{
		Provider: "openai",
		APIKey:   "sk-test",
		Model:    "gpt-4o",
	})
	require.NoError(t, err)
	assert.NotNil(t, gen)
	assert.NotNil(t, emb)
}

func TestNewClientClaudeHasNoEmbedder(t *testing.T) {
	gen, emb, err := NewClient(context.Background(), config.LLMConfig{
		Provider: "claude",
		APIKey:   "sk-ant-test",
		Model:    "claude-sonnet-4-20250514",
	})
	require.NoError(t, err)
	assert.NotNil(t, gen)
	assert.Nil(t, emb)
}

func TestNewClientOllamaWithoutKey(t *testing.T) {
	gen, emb, err := NewClient(context.Background(), config.LLMConfig{
		Provider: "ollama",
		Model:    "llama3",
		BaseURL:  "http://localhost:11434",
	})
	require.NoError(t, err)
	assert.NotNil(t, gen)
	assert.NotNil(t, emb)
}
