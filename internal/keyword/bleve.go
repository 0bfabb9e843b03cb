// Package keyword provides the Bleve implementation of the letter index.
package keyword

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
)

// indexedFields are the Doc fields carried by the mapping, in the order the
// search layer scans them for snippets.
var indexedFields = []string{
	"application_number", "company_name", "product_name",
	"therapeutic_category", "deficiency_reason", "summary", "text",
}

// BleveIndex implements Index using Bleve.
type BleveIndex struct {
	index bleve.Index
}

// NewBleveIndex creates or opens a Bleve index at path. An existing index is
// opened and reused so unchanged letters are not re-indexed on restart. If
// the mapping changes in code, remove the index directory to force a rebuild.
func NewBleveIndex(path string) (*BleveIndex, error) {
	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open Bleve index: %w", openErr)
		}
		return &BleveIndex{index: index}, nil
	}

	im := bleve.NewIndexMapping()
	docMapping := bleve.NewDocumentMapping()
	// Standard analyzer (lowercase + tokenize, no stemming) so a query like
	// "labeling" matches the exact word; the English analyzer stems
	// "labeling" -> "label" and regulatory vocabulary degrades badly.
	textFieldMapping := bleve.NewTextFieldMapping()
	textFieldMapping.Analyzer = standard.Name
	for _, field := range indexedFields {
		docMapping.AddFieldMappingsAt(field, textFieldMapping)
	}
	im.AddDocumentMapping("letter", docMapping)
	im.DefaultType = "letter"
	im.DefaultMapping = docMapping

	index, err := bleve.New(path, im)
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

// Index indexes one letter by id.
func (b *BleveIndex) Index(ctx context.Context, id string, doc *Doc) error {
	return b.index.Index(id, doc)
}

// IndexBatch indexes many letters in one Bleve batch. Used by ingest when
// rebuilding after a dataset refresh.
func (b *BleveIndex) IndexBatch(ctx context.Context, docs map[string]*Doc) error {
	batch := b.index.NewBatch()
	for id, doc := range docs {
		if err := batch.Index(id, doc); err != nil {
			return fmt.Errorf("failed to add %s to batch: %w", id, err)
		}
	}
	return b.index.Batch(batch)
}

// Search runs a match query over all indexed fields and returns up to limit
// hits starting at offset, plus the total match count.
func (b *BleveIndex) Search(ctx context.Context, query string, limit, offset int) ([]*Hit, uint64, error) {
	q := bleve.NewMatchQuery(query)
	req := bleve.NewSearchRequest(q)
	req.Size = limit
	req.From = offset

	results, err := b.index.Search(req)
	if err != nil {
		return nil, 0, fmt.Errorf("Bleve search failed: %w", err)
	}
	hits := make([]*Hit, len(results.Hits))
	for i, hit := range results.Hits {
		hits[i] = &Hit{ID: hit.ID, Score: hit.Score}
	}
	return hits, results.Total, nil
}

// Delete removes a letter from the index.
func (b *BleveIndex) Delete(ctx context.Context, id string) error {
	return b.index.Delete(id)
}

// DocCount returns the number of indexed letters.
func (b *BleveIndex) DocCount() (uint64, error) {
	return b.index.DocCount()
}

// Close closes the Bleve index.
func (b *BleveIndex) Close() error {
	return b.index.Close()
}

// Tokenize splits a query into lowercase terms.
func Tokenize(query string) []string {
	words := strings.Fields(strings.ToLower(query))
	terms := make([]string, 0, len(words))
	for _, w := range words {
		if w = strings.TrimSpace(w); w != "" {
			terms = append(terms, w)
		}
	}
	return terms
}

// GetAllTerms returns the unique terms of the fields users actually type
// queries against. Feeds the spell checker dictionary.
func (b *BleveIndex) GetAllTerms() ([]string, error) {
	var terms []string
	seen := make(map[string]struct{})
	for _, field := range []string{"text", "company_name", "product_name"} {
		dict, err := b.index.FieldDict(field)
		if err != nil {
			continue
		}
		for {
			entry, err := dict.Next()
			if err != nil || entry == nil {
				break
			}
			if _, ok := seen[entry.Term]; !ok {
				terms = append(terms, entry.Term)
				seen[entry.Term] = struct{}{}
			}
		}
		_ = dict.Close()
	}
	return terms, nil
}

// GetTermFrequency returns the number of letters containing the term.
func (b *BleveIndex) GetTermFrequency(term string) (int, error) {
	req := bleve.NewSearchRequest(bleve.NewMatchQuery(term))
	req.Size = 0
	results, err := b.index.Search(req)
	if err != nil {
		return 0, fmt.Errorf("failed to search for term frequency: %w", err)
	}
	return int(results.Total), nil
}

// ContainsTerm checks if a term exists in the index.
func (b *BleveIndex) ContainsTerm(term string) (bool, error) {
	freq, err := b.GetTermFrequency(term)
	if err != nil {
		return false, err
	}
	return freq > 0, nil
}
