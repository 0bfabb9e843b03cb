package models

import (
	"fmt"
	"strings"
)

// sortColumns whitelists the columns the list endpoint may order by.
var sortColumns = map[string]bool{
	"letter_date":        true,
	"letter_year":        true,
	"company_name":       true,
	"application_number": true,
	"product_name":       true,
}

// ListFilter carries the filter, sort, and paging parameters for listing CRLs.
type ListFilter struct {
	ApprovalStatus      string `json:"approval_status,omitempty"`
	LetterYear          int    `json:"letter_year,omitempty"`
	LetterType          string `json:"letter_type,omitempty"`
	ApplicationType     string `json:"application_type,omitempty"`
	TherapeuticCategory string `json:"therapeutic_category,omitempty"`
	DeficiencyReason    string `json:"deficiency_reason,omitempty"`
	CompanyName         string `json:"company_name,omitempty"` // substring match
	SearchText          string `json:"search_text,omitempty"`  // substring match on letter text
	SortBy              string `json:"sort_by,omitempty"`
	SortOrder           string `json:"sort_order,omitempty"`
	Limit               int    `json:"limit,omitempty"`
	Offset              int    `json:"offset,omitempty"`
}

// Validate normalizes paging and ordering. Limit defaults to 50 and is
// clamped to [1, 100]; unknown sort columns and orders are rejected rather
// than silently reinterpreted.
func (f *ListFilter) Validate() error {
	if f.Limit <= 0 {
		f.Limit = 50
	}
	if f.Limit > 100 {
		f.Limit = 100
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	if f.SortBy == "" {
		f.SortBy = "letter_date"
	}
	if !sortColumns[f.SortBy] {
		return fmt.Errorf("invalid sort column: %s", f.SortBy)
	}
	switch strings.ToUpper(f.SortOrder) {
	case "":
		f.SortOrder = "DESC"
	case "ASC", "DESC":
		f.SortOrder = strings.ToUpper(f.SortOrder)
	default:
		return fmt.Errorf("invalid sort order: %s", f.SortOrder)
	}
	if f.ApprovalStatus != "" && f.ApprovalStatus != "approved" && f.ApprovalStatus != "unapproved" {
		return fmt.Errorf("invalid approval status: %s", f.ApprovalStatus)
	}
	return nil
}

// SearchQuery is a keyword search request.
type SearchQuery struct {
	Query        string `json:"query"`
	Limit        int    `json:"limit,omitempty"`
	Offset       int    `json:"offset,omitempty"`
	ContextChars int    `json:"context_chars,omitempty"` // snippet window on each side of a match
}

// Validate ensures the query is non-empty and normalizes limits.
func (q *SearchQuery) Validate() error {
	if strings.TrimSpace(q.Query) == "" {
		return fmt.Errorf("query cannot be empty")
	}
	if q.Limit <= 0 {
		q.Limit = 50
	}
	if q.Limit > 100 {
		q.Limit = 100
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	if q.ContextChars <= 0 {
		q.ContextChars = 100
	}
	if q.ContextChars > 500 {
		q.ContextChars = 500
	}
	return nil
}

// QARequest is a question for the retrieval-augmented answering endpoint.
type QARequest struct {
	Question string `json:"question"`
	TopK     int    `json:"top_k,omitempty"`
}

// Validate checks the question length and normalizes the retrieval fan-out.
func (r *QARequest) Validate() error {
	n := len(strings.TrimSpace(r.Question))
	if n < 5 || n > 500 {
		return fmt.Errorf("question must be between 5 and 500 characters")
	}
	if r.TopK <= 0 {
		r.TopK = 5
	}
	if r.TopK > 20 {
		r.TopK = 20
	}
	return nil
}
