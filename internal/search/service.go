// Package search provides keyword search over the letter corpus with match
// attribution, context snippets, and spell suggestions.
package search

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/armish/crl.help/internal/keyword"
	"github.com/armish/crl.help/internal/models"
	"github.com/armish/crl.help/internal/storage"
)

// searchField is one searchable letter field and its value accessor.
type searchField struct {
	name  string
	value func(crl *models.CRL, summary string) string
}

// searchFields are scanned in order when attributing matches to fields.
var searchFields = []searchField{
	{"company_name", func(c *models.CRL, _ string) string { return c.CompanyName }},
	{"product_name", func(c *models.CRL, _ string) string { return c.ProductName }},
	{"therapeutic_category", func(c *models.CRL, _ string) string { return c.TherapeuticCategory }},
	{"deficiency_reason", func(c *models.CRL, _ string) string { return c.DeficiencyReason }},
	{"summary", func(_ *models.CRL, s string) string { return s }},
	{"text", func(c *models.CRL, _ string) string { return c.LetterText }},
}

// Service runs keyword searches over the index and decorates hits with data
// from storage.
type Service struct {
	store  storage.Storage
	index  keyword.Index
	spell  *keyword.SpellChecker
	logger *zap.Logger
}

// NewService creates a search service. spell may be nil to disable
// "did you mean" suggestions.
func NewService(store storage.Storage, index keyword.Index, spell *keyword.SpellChecker, logger *zap.Logger) *Service {
	return &Service{store: store, index: index, spell: spell, logger: logger}
}

// Search runs a keyword search and reports, for each hit, which fields the
// query matched with a context snippet per field. An empty result set gets
// spelling suggestions when the vocabulary has a close term.
func (s *Service) Search(ctx context.Context, query *models.SearchQuery) (*models.SearchResponse, error) {
	start := time.Now()
	if err := query.Validate(); err != nil {
		return nil, err
	}

	hits, total, err := s.index.Search(ctx, query.Query, query.Limit, query.Offset)
	if err != nil {
		return nil, fmt.Errorf("keyword search failed: %w", err)
	}

	ids := make([]string, len(hits))
	for i, hit := range hits {
		ids[i] = hit.ID
	}
	crls, err := s.store.GetCRLsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load letters: %w", err)
	}
	byID := make(map[string]*models.CRL, len(crls))
	for _, crl := range crls {
		byID[crl.ID] = crl
	}
	summaries, err := s.store.GetSummariesByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load summaries: %w", err)
	}

	terms := keyword.Tokenize(query.Query)
	results := make([]*models.SearchResult, 0, len(hits))
	for _, hit := range hits {
		crl, ok := byID[hit.ID]
		if !ok {
			// index ahead of storage; skip the hit rather than fail the page
			s.logger.Warn("indexed letter missing from storage", zap.String("id", hit.ID))
			continue
		}
		var summaryText string
		if sum := summaries[hit.ID]; sum != nil {
			summaryText = sum.SummaryText
		}
		results = append(results, buildResult(crl, summaryText, hit.Score, query, terms))
	}

	resp := &models.SearchResponse{
		Query:     query.Query,
		Total:     int(total),
		Limit:     query.Limit,
		Offset:    query.Offset,
		HasMore:   query.Offset+len(results) < int(total),
		Results:   results,
		QueryTime: time.Since(start).Milliseconds(),
	}
	if total == 0 && s.spell != nil {
		resp.Suggestions = s.spell.GetTopSuggestions(query.Query, 5)
	}

	s.logger.Debug("keyword search completed",
		zap.String("query", query.Query),
		zap.Int("results", len(results)),
		zap.Int("total", resp.Total),
		zap.Int64("query_time_ms", resp.QueryTime))
	return resp, nil
}

// buildResult projects a letter into a search result with match attribution.
// MatchedFields and MatchSnippets stay non-nil so they serialize as [] and {}.
func buildResult(crl *models.CRL, summaryText string, score float64, query *models.SearchQuery, terms []string) *models.SearchResult {
	result := &models.SearchResult{
		ID:                  crl.ID,
		ApplicationNumber:   crl.ApplicationNumber,
		CompanyName:         crl.CompanyName,
		ProductName:         crl.ProductName,
		LetterDate:          crl.LetterDate,
		LetterYear:          crl.LetterYear,
		ApplicationType:     crl.ApplicationType,
		TherapeuticCategory: crl.TherapeuticCategory,
		DeficiencyReason:    crl.DeficiencyReason,
		Summary:             summaryText,
		Score:               score,
		MatchedFields:       []string{},
		MatchSnippets:       map[string]models.Snippet{},
	}
	for _, field := range searchFields {
		value := field.value(crl, summaryText)
		if value == "" {
			continue
		}
		snip, ok := matchSnippet(value, query.Query, terms, query.ContextChars)
		if !ok {
			continue
		}
		result.MatchedFields = append(result.MatchedFields, field.name)
		result.MatchSnippets[field.name] = snip
	}
	return result
}

// RefreshSpellings reloads the spell checker vocabulary from the index.
// Call after ingest rebuilds the index.
func (s *Service) RefreshSpellings() error {
	if s.spell == nil {
		return nil
	}
	return s.spell.RefreshCache()
}
