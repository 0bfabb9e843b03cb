// Package keyword provides full-text indexing and search over letters.
package keyword

import (
	"context"

	"github.com/armish/crl.help/internal/models"
)

// Doc is the indexed representation of a letter. The json tags double as
// Bleve field names.
type Doc struct {
	ApplicationNumber   string `json:"application_number"`
	CompanyName         string `json:"company_name"`
	ProductName         string `json:"product_name"`
	TherapeuticCategory string `json:"therapeutic_category"`
	DeficiencyReason    string `json:"deficiency_reason"`
	Summary             string `json:"summary"`
	Text                string `json:"text"`
}

// DocFromCRL builds the indexable document for a letter. summary may be
// empty until enrichment has run.
func DocFromCRL(crl *models.CRL, summary string) *Doc {
	return &Doc{
		ApplicationNumber:   crl.ApplicationNumber,
		CompanyName:         crl.CompanyName,
		ProductName:         crl.ProductName,
		TherapeuticCategory: crl.TherapeuticCategory,
		DeficiencyReason:    crl.DeficiencyReason,
		Summary:             summary,
		Text:                crl.LetterText,
	}
}

// Hit is a single keyword search hit.
type Hit struct {
	ID    string
	Score float64
}

// Index defines keyword search operations over the letter corpus.
type Index interface {
	Index(ctx context.Context, id string, doc *Doc) error
	IndexBatch(ctx context.Context, docs map[string]*Doc) error
	Search(ctx context.Context, query string, limit, offset int) ([]*Hit, uint64, error)
	Delete(ctx context.Context, id string) error
	DocCount() (uint64, error)
	Close() error
}

// TermDictionary exposes the index vocabulary for spell checking.
type TermDictionary interface {
	// GetAllTerms returns all unique terms in the index.
	GetAllTerms() ([]string, error)
	// GetTermFrequency returns the document frequency for a term.
	GetTermFrequency(term string) (int, error)
	// ContainsTerm checks if a term exists in the index.
	ContainsTerm(term string) (bool, error)
}
