// Package enrich backfills AI-derived letter data: executive summaries,
// classification metadata, and embedding vectors.
package enrich

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/armish/crl.help/internal/ai"
	"github.com/armish/crl.help/internal/keyword"
	"github.com/armish/crl.help/internal/models"
	"github.com/armish/crl.help/internal/storage"
)

// progressEvery is how often the enrichment loops log progress.
const progressEvery = 10

// Stats counts the outcomes of one enrichment pass.
type Stats struct {
	Total   int `json:"total"`
	Success int `json:"success"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

// Service runs enrichment passes over stored letters. Each pass selects the
// letters still missing its data, so reruns only pay for what is absent.
type Service struct {
	store    storage.Storage
	index    keyword.Index
	provider ai.Provider
	logger   *zap.Logger
}

// NewService creates the enrichment service.
func NewService(store storage.Storage, index keyword.Index, provider ai.Provider, logger *zap.Logger) *Service {
	return &Service{store: store, index: index, provider: provider, logger: logger}
}

// Summaries generates executive summaries for letters that have none and
// refreshes their keyword index entries. limit <= 0 processes everything.
func (s *Service) Summaries(ctx context.Context, limit int) (*Stats, error) {
	crls, err := s.store.CRLsMissingSummary(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list letters missing summaries: %w", err)
	}
	stats := &Stats{Total: len(crls)}
	s.logger.Info("generating summaries",
		zap.Int("letters", len(crls)), zap.String("model", s.provider.ChatModel()))

	for i, crl := range crls {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		s.progress("summaries", i, stats)

		if strings.TrimSpace(crl.LetterText) == "" {
			s.logger.Warn("skipping letter with no text", zap.String("id", crl.ID))
			stats.Skipped++
			continue
		}

		text, err := s.provider.Summarize(ctx, crl.LetterText)
		if err != nil {
			s.logger.Error("failed to summarize letter",
				zap.String("id", crl.ID), zap.Error(err))
			stats.Failed++
			continue
		}
		sum := &models.Summary{CRLID: crl.ID, SummaryText: text, Model: s.provider.ChatModel()}
		if err := s.store.UpsertSummary(ctx, sum); err != nil {
			s.logger.Error("failed to store summary",
				zap.String("id", crl.ID), zap.Error(err))
			stats.Failed++
			continue
		}
		// The summary is an indexed search field; refresh the entry now
		// rather than waiting for the next ingestion run.
		if err := s.index.Index(ctx, crl.ID, keyword.DocFromCRL(crl, text)); err != nil {
			s.logger.Warn("failed to refresh index entry",
				zap.String("id", crl.ID), zap.Error(err))
		}
		stats.Success++
	}

	s.logger.Info("summary generation finished",
		zap.Int("total", stats.Total), zap.Int("success", stats.Success),
		zap.Int("failed", stats.Failed), zap.Int("skipped", stats.Skipped))
	return stats, nil
}

// Metadata fills classification fields for letters missing any, keeping
// values that are already set. Letters without a summary get their product
// fields now and their category fields on a later pass.
func (s *Service) Metadata(ctx context.Context, limit int) (*Stats, error) {
	crls, err := s.store.CRLsMissingMetadata(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list letters missing metadata: %w", err)
	}
	stats := &Stats{Total: len(crls)}
	if len(crls) == 0 {
		return stats, nil
	}

	ids := make([]string, len(crls))
	for i, crl := range crls {
		ids[i] = crl.ID
	}
	summaries, err := s.store.GetSummariesByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load summaries: %w", err)
	}
	s.logger.Info("extracting letter metadata", zap.Int("letters", len(crls)))

	for i, crl := range crls {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		s.progress("metadata", i, stats)

		summaryText := ""
		if sum, ok := summaries[crl.ID]; ok {
			summaryText = sum.SummaryText
		}
		meta, err := s.provider.ExtractMetadata(ctx, crl.LetterText, summaryText)
		if err != nil {
			s.logger.Error("failed to extract metadata",
				zap.String("id", crl.ID), zap.Error(err))
			stats.Failed++
			continue
		}
		if !applyMetadata(crl, meta) {
			stats.Skipped++
			continue
		}
		if err := s.store.UpdateCRL(ctx, crl); err != nil {
			s.logger.Error("failed to store metadata",
				zap.String("id", crl.ID), zap.Error(err))
			stats.Failed++
			continue
		}
		if err := s.index.Index(ctx, crl.ID, keyword.DocFromCRL(crl, summaryText)); err != nil {
			s.logger.Warn("failed to refresh index entry",
				zap.String("id", crl.ID), zap.Error(err))
		}
		stats.Success++
	}

	s.logger.Info("metadata extraction finished",
		zap.Int("total", stats.Total), zap.Int("success", stats.Success),
		zap.Int("failed", stats.Failed), zap.Int("skipped", stats.Skipped))
	return stats, nil
}

// applyMetadata copies extracted values into unset fields only, reporting
// whether anything changed.
func applyMetadata(crl *models.CRL, meta *ai.LetterMetadata) bool {
	changed := false
	if crl.TherapeuticCategory == "" && meta.TherapeuticCategory != "" {
		crl.TherapeuticCategory = meta.TherapeuticCategory
		changed = true
	}
	if crl.DeficiencyReason == "" && meta.DeficiencyReason != "" {
		crl.DeficiencyReason = meta.DeficiencyReason
		changed = true
	}
	if crl.ProductName == "" && meta.ProductName != "" {
		crl.ProductName = meta.ProductName
		changed = true
	}
	if crl.Indications == "" && meta.Indications != "" {
		crl.Indications = meta.Indications
		changed = true
	}
	return changed
}

// Embeddings generates vectors of the given type for letters missing them.
// Summary vectors embed the stored summary, full-text vectors the letter
// itself.
func (s *Service) Embeddings(ctx context.Context, embeddingType string, limit int) (*Stats, error) {
	if embeddingType != models.EmbeddingTypeSummary && embeddingType != models.EmbeddingTypeFullText {
		return nil, fmt.Errorf("unknown embedding type %q", embeddingType)
	}
	crls, err := s.store.CRLsMissingEmbedding(ctx, embeddingType, limit)
	if err != nil {
		return nil, fmt.Errorf("list letters missing embeddings: %w", err)
	}
	stats := &Stats{Total: len(crls)}
	if len(crls) == 0 {
		return stats, nil
	}

	var summaries map[string]*models.Summary
	if embeddingType == models.EmbeddingTypeSummary {
		ids := make([]string, len(crls))
		for i, crl := range crls {
			ids[i] = crl.ID
		}
		if summaries, err = s.store.GetSummariesByIDs(ctx, ids); err != nil {
			return nil, fmt.Errorf("load summaries: %w", err)
		}
	}
	s.logger.Info("generating embeddings",
		zap.String("type", embeddingType), zap.Int("letters", len(crls)),
		zap.String("model", s.provider.EmbeddingModel()))

	for i, crl := range crls {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		s.progress("embeddings", i, stats)

		text := crl.LetterText
		if embeddingType == models.EmbeddingTypeSummary {
			text = ""
			if sum, ok := summaries[crl.ID]; ok {
				text = sum.SummaryText
			}
		}
		if strings.TrimSpace(text) == "" {
			// Summary vectors wait until the summary pass has run.
			s.logger.Debug("nothing to embed yet",
				zap.String("id", crl.ID), zap.String("type", embeddingType))
			stats.Skipped++
			continue
		}

		vec, err := s.provider.Embed(ctx, text)
		if err != nil {
			s.logger.Error("failed to embed letter",
				zap.String("id", crl.ID), zap.Error(err))
			stats.Failed++
			continue
		}
		if len(vec) == 0 || allZero(vec) {
			s.logger.Error("provider returned an unusable vector",
				zap.String("id", crl.ID))
			stats.Failed++
			continue
		}
		emb := &models.Embedding{
			CRLID:         crl.ID,
			EmbeddingType: embeddingType,
			Vector:        vec,
			Model:         s.provider.EmbeddingModel(),
		}
		if err := s.store.UpsertEmbedding(ctx, emb); err != nil {
			s.logger.Error("failed to store embedding",
				zap.String("id", crl.ID), zap.Error(err))
			stats.Failed++
			continue
		}
		stats.Success++
	}

	s.logger.Info("embedding generation finished",
		zap.String("type", embeddingType),
		zap.Int("total", stats.Total), zap.Int("success", stats.Success),
		zap.Int("failed", stats.Failed), zap.Int("skipped", stats.Skipped))
	return stats, nil
}

func (s *Service) progress(stage string, done int, stats *Stats) {
	if done > 0 && done%progressEvery == 0 {
		s.logger.Info("enrichment progress",
			zap.String("stage", stage),
			zap.Int("done", done),
			zap.Int("total", stats.Total),
			zap.Int("success", stats.Success),
			zap.Int("failed", stats.Failed),
			zap.Int("skipped", stats.Skipped))
	}
}

func allZero(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}
