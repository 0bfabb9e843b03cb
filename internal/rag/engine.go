// Package rag answers questions about the letter corpus by retrieving the
// most similar letters and grounding a generated answer in them.
package rag

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/armish/crl.help/internal/ai"
	"github.com/armish/crl.help/internal/config"
	"github.com/armish/crl.help/internal/models"
	"github.com/armish/crl.help/internal/storage"
	"github.com/armish/crl.help/internal/vector"
	"github.com/armish/crl.help/pkg/utils"
)

// noResultsAnswer is returned when retrieval finds nothing to ground an
// answer in.
const noResultsAnswer = "I couldn't find any relevant CRLs to answer this question. " +
	"Please try rephrasing or ask about a different topic."

// Engine orchestrates retrieval-augmented question answering: embed the
// question, rank stored letter embeddings against it, and hand the best
// letters to the provider as context.
type Engine struct {
	store    storage.Storage
	provider ai.Provider
	cfg      config.AIConfig
	metric   vector.Metric
	logger   *zap.Logger
}

// NewEngine creates a Q&A engine. The ranking metric comes from
// cfg.RAGMetric, defaulting to cosine.
func NewEngine(store storage.Storage, provider ai.Provider, cfg config.AIConfig, logger *zap.Logger) (*Engine, error) {
	metric, err := vector.ParseMetric(cfg.RAGMetric)
	if err != nil {
		return nil, err
	}
	return &Engine{
		store:    store,
		provider: provider,
		cfg:      cfg,
		metric:   metric,
		logger:   logger,
	}, nil
}

// hit is one retrieved letter with its similarity score.
type hit struct {
	crl   *models.CRL
	score float64
}

// Ask answers a question grounded in the most similar letters. topK bounds
// how many letters feed the answer; values below 1 fall back to the
// configured default. When no embeddings exist yet the canned no-results
// answer is returned rather than an error, so a fresh deployment degrades
// gracefully.
func (e *Engine) Ask(ctx context.Context, question string, topK int) (*models.QAResponse, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("question cannot be empty")
	}
	if topK < 1 {
		topK = e.cfg.RAGTopK
	}

	e.logger.Info("answering question",
		zap.String("question", utils.Truncate(question, 100)),
		zap.Int("top_k", topK))

	queryEmb, err := e.provider.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("failed to embed question: %w", err)
	}

	hits, err := e.retrieve(ctx, queryEmb, topK)
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return &models.QAResponse{
			Question:     question,
			Answer:       noResultsAnswer,
			RelevantCRLs: []models.RelevantCRL{},
			Confidence:   0,
			Model:        e.provider.ChatModel(),
		}, nil
	}

	blocks := make([]ai.ContextBlock, len(hits))
	relevant := make([]models.RelevantCRL, len(hits))
	scores := make([]float64, len(hits))
	for i, h := range hits {
		blocks[i] = ai.ContextBlock{
			ApplicationNumber: h.crl.ApplicationNumber,
			CompanyName:       h.crl.CompanyName,
			LetterDate:        h.crl.LetterDate,
			Text:              h.crl.LetterText,
		}
		relevant[i] = models.RelevantCRL{
			ID:          h.crl.ID,
			CompanyName: h.crl.CompanyName,
			ProductName: h.crl.ProductName,
			LetterYear:  h.crl.LetterYear,
			Score:       h.score,
		}
		scores[i] = h.score
	}

	answer, err := e.provider.Answer(ctx, question, blocks)
	if err != nil {
		return nil, fmt.Errorf("failed to generate answer: %w", err)
	}

	resp := &models.QAResponse{
		Question:     question,
		Answer:       answer,
		RelevantCRLs: relevant,
		Confidence:   confidence(scores),
		Model:        e.provider.ChatModel(),
	}

	if !e.cfg.DryRun {
		rec := &models.QARecord{
			ID:         uuid.New().String(),
			Question:   question,
			Answer:     answer,
			Confidence: resp.Confidence,
			Model:      resp.Model,
		}
		if err := e.store.CreateQARecord(ctx, rec); err != nil {
			e.logger.Warn("failed to save question to history", zap.Error(err))
		}
	}

	e.logger.Info("generated answer",
		zap.Int("relevant_crls", len(relevant)),
		zap.Float64("confidence", resp.Confidence))
	return resp, nil
}

// History returns the most recent question/answer pairs.
func (e *Engine) History(ctx context.Context, limit int) ([]*models.QARecord, error) {
	return e.store.RecentQARecords(ctx, limit)
}

// retrieve ranks all stored summary embeddings against the query vector and
// loads the letters behind the best matches. Matches whose letter has been
// deleted since the embedding was stored are skipped.
func (e *Engine) retrieve(ctx context.Context, queryEmb []float32, topK int) ([]hit, error) {
	embs, err := e.store.EmbeddingsByType(ctx, models.EmbeddingTypeSummary)
	if err != nil {
		return nil, fmt.Errorf("failed to load embeddings: %w", err)
	}
	if len(embs) == 0 {
		e.logger.Warn("no embeddings stored, cannot retrieve context")
		return nil, nil
	}

	candidates := make([]vector.Candidate, len(embs))
	for i, emb := range embs {
		candidates[i] = vector.Candidate{ID: emb.CRLID, Vector: vector.FromFloat32(emb.Vector)}
	}
	matches, err := vector.TopK(vector.FromFloat32(queryEmb), candidates, topK, e.metric)
	if err != nil {
		return nil, fmt.Errorf("failed to rank letters: %w", err)
	}

	ids := make([]string, len(matches))
	for i, m := range matches {
		ids[i] = m.ID
	}
	crls, err := e.store.GetCRLsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load letters: %w", err)
	}
	byID := make(map[string]*models.CRL, len(crls))
	for _, crl := range crls {
		byID[crl.ID] = crl
	}

	hits := make([]hit, 0, len(matches))
	for _, m := range matches {
		crl, ok := byID[m.ID]
		if !ok {
			continue
		}
		hits = append(hits, hit{crl: crl, score: m.Score})
		e.logger.Debug("retrieved letter",
			zap.String("crl_id", m.ID),
			zap.Float64("score", m.Score))
	}
	return hits, nil
}

// confidence folds similarity scores into a 0..1 estimate. Cosine scores
// span -1..1, so the top score shifts and halves; with three or more hits
// the normalized top-3 mean is averaged in so a lone outlier cannot claim
// full confidence.
func confidence(scores []float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	c := (scores[0] + 1) / 2
	if len(scores) >= 3 {
		avg := (scores[0] + scores[1] + scores[2]) / 3
		c = (c + (avg+1)/2) / 2
	}
	return math.Round(c*1000) / 1000
}
