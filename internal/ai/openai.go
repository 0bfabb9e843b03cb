package ai

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/armish/crl.help/pkg/utils"
)

// OpenAIProvider talks to an OpenAI-compatible API for embeddings and chat
// completions, with exponential backoff retries and an LRU embedding cache.
type OpenAIProvider struct {
	client *openai.Client
	cfg    Config
	cache  *EmbeddingCache
	logger *zap.Logger
}

// NewOpenAIProvider creates a provider from cfg. The API key is required;
// base URL, models, retries, and timeout fall back to defaults.
func NewOpenAIProvider(cfg Config, logger *zap.Logger) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required (set OPENAI_API_KEY)")
	}
	cfg.applyDefaults()

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = cfg.BaseURL
	clientConfig.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &OpenAIProvider{
		client: openai.NewClientWithConfig(clientConfig),
		cfg:    cfg,
		cache:  NewEmbeddingCache(cfg.CacheSize),
		logger: logger,
	}, nil
}

// Embed returns the embedding for text, using the cache when available.
// Text longer than MaxEmbedChars is truncated before the API call.
func (p *OpenAIProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if len(text) > MaxEmbedChars {
		p.logger.Warn("text truncated for embedding",
			zap.Int("original_chars", len(text)),
			zap.Int("max_chars", MaxEmbedChars))
		text = text[:MaxEmbedChars]
	}
	if cached, ok := p.cache.Get(text); ok {
		return cached, nil
	}

	var result []float32
	err := p.doWithRetry(ctx, func() error {
		resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input: []string{text},
			Model: openai.EmbeddingModel(p.cfg.EmbeddingModel),
		})
		if err != nil {
			return err
		}
		if len(resp.Data) == 0 {
			return fmt.Errorf("empty embedding response")
		}
		result = resp.Data[0].Embedding
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate embedding: %w", err)
	}

	p.cache.Set(text, result)
	return result, nil
}

// EmbedBatch calls Embed for each text.
func (p *OpenAIProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		emb, err := p.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		embeddings[i] = emb
	}
	return embeddings, nil
}

// Summarize generates an executive summary of a letter's full text.
func (p *OpenAIProvider) Summarize(ctx context.Context, letterText string) (string, error) {
	if letterText == "" {
		return "", fmt.Errorf("letter text cannot be empty")
	}
	summary, err := p.chat(ctx, summarySystemPrompt, buildSummaryPrompt(letterText), 0.3, summaryWords*2)
	if err != nil {
		return "", fmt.Errorf("failed to generate summary: %w", err)
	}
	p.logger.Debug("generated summary", zap.Int("chars", len(summary)))
	return summary, nil
}

// Answer generates an answer grounded in the given context blocks.
func (p *OpenAIProvider) Answer(ctx context.Context, question string, blocks []ContextBlock) (string, error) {
	answer, err := p.chat(ctx, answerSystemPrompt, buildAnswerPrompt(question, blocks), 0.5, 800)
	if err != nil {
		return "", fmt.Errorf("failed to generate answer: %w", err)
	}
	p.logger.Debug("generated answer",
		zap.Int("context_blocks", len(blocks)),
		zap.String("question", utils.Truncate(question, 100)))
	return answer, nil
}

// ChatModel returns the chat completion model name.
func (p *OpenAIProvider) ChatModel() string { return p.cfg.ChatModel }

// EmbeddingModel returns the embedding model name.
func (p *OpenAIProvider) EmbeddingModel() string { return p.cfg.EmbeddingModel }

func (p *OpenAIProvider) chat(ctx context.Context, system, user string, temperature float32, maxTokens int) (string, error) {
	return p.chatMessages(ctx, []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: system},
		{Role: openai.ChatMessageRoleUser, Content: user},
	}, temperature, maxTokens)
}

func (p *OpenAIProvider) chatMessages(ctx context.Context, messages []openai.ChatCompletionMessage, temperature float32, maxTokens int) (string, error) {
	var result string
	err := p.doWithRetry(ctx, func() error {
		resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:       p.cfg.ChatModel,
			Messages:    messages,
			Temperature: temperature,
			MaxTokens:   maxTokens,
		})
		if err != nil {
			return err
		}
		if len(resp.Choices) == 0 {
			return fmt.Errorf("empty chat response")
		}
		result = resp.Choices[0].Message.Content
		return nil
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(result), nil
}

// doWithRetry executes fn with exponential backoff (1s, 2s, 4s, ...),
// honoring context cancellation between attempts.
func (p *OpenAIProvider) doWithRetry(ctx context.Context, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt < p.cfg.MaxRetries; attempt++ {
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			if attempt < p.cfg.MaxRetries-1 {
				wait := time.Duration(math.Pow(2, float64(attempt))) * time.Second
				p.logger.Debug("AI request failed, retrying",
					zap.Int("attempt", attempt+1),
					zap.Duration("wait", wait),
					zap.Error(err))
				select {
				case <-time.After(wait):
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}
	}
	return lastErr
}
