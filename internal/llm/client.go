package llm

import (
	"context"
)

// LLMClient produces a completion for a prompt. system carries the system
// instruction and may be empty.
type LLMClient interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}

// EmbedderClient turns text into a vector for similarity ranking.
type EmbedderClient interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
