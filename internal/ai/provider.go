// Package ai provides embeddings, letter summarization, and question
// answering backed by an OpenAI-compatible API, with a deterministic fake
// for offline and dry-run use.
package ai

import (
	"context"
	"time"
)

// Provider produces embeddings and generated text for letters.
type Provider interface {
	// Embed returns the embedding vector for text.
	Embed(ctx context.Context, text string) ([]float32, error)
	// EmbedBatch returns one embedding per input text.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	// Summarize generates an executive summary of a letter's full text.
	Summarize(ctx context.Context, letterText string) (string, error)
	// ExtractMetadata classifies a letter and extracts its product facts.
	// Classification fields stay empty when summary is missing or too short.
	ExtractMetadata(ctx context.Context, letterText, summary string) (*LetterMetadata, error)
	// Answer generates an answer to question grounded in the given context blocks.
	Answer(ctx context.Context, question string, blocks []ContextBlock) (string, error)
	// ChatModel and EmbeddingModel name the models behind the provider.
	ChatModel() string
	EmbeddingModel() string
}

// Config holds provider settings.
type Config struct {
	BaseURL        string
	APIKey         string
	ChatModel      string
	EmbeddingModel string
	MaxRetries     int
	Timeout        time.Duration
	CacheSize      int
}

func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = "https://api.openai.com/v1"
	}
	if c.ChatModel == "" {
		c.ChatModel = "gpt-4o-mini"
	}
	if c.EmbeddingModel == "" {
		c.EmbeddingModel = "text-embedding-3-small"
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
}

// MaxEmbedChars caps the text sent for document embedding. The embedding
// models take about 8k tokens, roughly 30000 characters.
const MaxEmbedChars = 30000
