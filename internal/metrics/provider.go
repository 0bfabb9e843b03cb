package metrics

import (
	"context"

	"github.com/armish/crl.help/internal/ai"
)

// InstrumentedProvider wraps an ai.Provider and counts every call by kind
// and outcome.
type InstrumentedProvider struct {
	inner     ai.Provider
	collector *Collector
}

// InstrumentProvider wraps inner so all calls are recorded on collector.
func InstrumentProvider(inner ai.Provider, collector *Collector) *InstrumentedProvider {
	return &InstrumentedProvider{inner: inner, collector: collector}
}

func (p *InstrumentedProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := p.inner.Embed(ctx, text)
	p.collector.RecordAICall("embedding", callStatus(err))
	return vec, err
}

func (p *InstrumentedProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vecs, err := p.inner.EmbedBatch(ctx, texts)
	p.collector.RecordAICall("embedding", callStatus(err))
	return vecs, err
}

func (p *InstrumentedProvider) Summarize(ctx context.Context, letterText string) (string, error) {
	summary, err := p.inner.Summarize(ctx, letterText)
	p.collector.RecordAICall("summary", callStatus(err))
	return summary, err
}

func (p *InstrumentedProvider) ExtractMetadata(ctx context.Context, letterText, summary string) (*ai.LetterMetadata, error) {
	meta, err := p.inner.ExtractMetadata(ctx, letterText, summary)
	p.collector.RecordAICall("metadata", callStatus(err))
	return meta, err
}

func (p *InstrumentedProvider) Answer(ctx context.Context, question string, blocks []ai.ContextBlock) (string, error) {
	answer, err := p.inner.Answer(ctx, question, blocks)
	p.collector.RecordAICall("answer", callStatus(err))
	return answer, err
}

func (p *InstrumentedProvider) ChatModel() string { return p.inner.ChatModel() }

func (p *InstrumentedProvider) EmbeddingModel() string { return p.inner.EmbeddingModel() }

func callStatus(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
