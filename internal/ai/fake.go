package ai

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
)

// FakeProvider is a deterministic provider for dry-run mode and tests. The
// same text always gets the same unit-length embedding, so retrieval stays
// meaningful without any API calls.
type FakeProvider struct {
	dimension int
}

// fakeSummaryChars bounds the text echoed back as a dry-run summary.
const fakeSummaryChars = 500

// NewFakeProvider returns a provider producing embeddings of the given
// dimension. Non-positive dimensions default to 1536, matching
// text-embedding-3-small.
func NewFakeProvider(dimension int) *FakeProvider {
	if dimension <= 0 {
		dimension = 1536
	}
	return &FakeProvider{dimension: dimension}
}

// Embed returns a deterministic unit-length vector derived from the text hash.
func (f *FakeProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	h := fnv.New32a()
	_, _ = h.Write([]byte(text))
	seed := float64(h.Sum32())

	emb := make([]float32, f.dimension)
	for i := range emb {
		emb[i] = float32(math.Sin(seed*float64(i+1))*0.1 + 0.01)
	}
	var sum float64
	for _, v := range emb {
		sum += float64(v) * float64(v)
	}
	if sum > 0 {
		norm := 1.0 / math.Sqrt(sum)
		for i := range emb {
			emb[i] *= float32(norm)
		}
	}
	return emb, nil
}

// EmbedBatch calls Embed for each text.
func (f *FakeProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		emb, err := f.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		embeddings[i] = emb
	}
	return embeddings, nil
}

// Summarize echoes the head of the letter text, cut at a word boundary.
func (f *FakeProvider) Summarize(ctx context.Context, letterText string) (string, error) {
	if letterText == "" {
		return "", fmt.Errorf("letter text cannot be empty")
	}
	return "[DRY-RUN SUMMARY] " + headOfText(letterText, fakeSummaryChars), nil
}

// ExtractMetadata classifies deterministically: the summary hash picks the
// labels, so the same letter always lands in the same category.
func (f *FakeProvider) ExtractMetadata(ctx context.Context, letterText, summary string) (*LetterMetadata, error) {
	meta := &LetterMetadata{}
	if len(strings.TrimSpace(summary)) >= minSummaryChars {
		h := fnv.New32a()
		_, _ = h.Write([]byte(summary))
		meta.TherapeuticCategory = TherapeuticCategories[h.Sum32()%uint32(len(TherapeuticCategories))]
		meta.DeficiencyReason = DeficiencyReasons[(h.Sum32()>>8)%uint32(len(DeficiencyReasons))]
	}
	if len(strings.TrimSpace(letterText)) >= minLetterChars {
		meta.ProductName = "Unknown"
		meta.Indications = "Unknown"
	}
	return meta, nil
}

// Answer returns a canned answer naming the retrieved context.
func (f *FakeProvider) Answer(ctx context.Context, question string, blocks []ContextBlock) (string, error) {
	return fmt.Sprintf("[DRY-RUN ANSWER] Based on %d retrieved letters: %s",
		len(blocks), headOfText(question, 200)), nil
}

// ChatModel identifies the fake chat backend.
func (f *FakeProvider) ChatModel() string { return "dry-run" }

// EmbeddingModel identifies the fake embedding backend.
func (f *FakeProvider) EmbeddingModel() string { return "dry-run" }

// headOfText returns the first maxChars of s, preferring to break at a word
// boundary in the final fifth of the window.
func headOfText(s string, maxChars int) string {
	if len(s) <= maxChars {
		return s
	}
	head := s[:maxChars]
	if i := strings.LastIndex(head, " "); i > maxChars*4/5 {
		head = head[:i]
	}
	return head + "..."
}
