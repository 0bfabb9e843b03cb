package models

// CRLList is the paged response for the list endpoint.
type CRLList struct {
	Total   int    `json:"total"`
	Limit   int    `json:"limit"`
	Offset  int    `json:"offset"`
	HasMore bool   `json:"has_more"`
	Items   []*CRL `json:"items"`
}

// CRLDetail is a single letter with its summary attached when one exists.
type CRLDetail struct {
	CRL     *CRL     `json:"crl"`
	Summary *Summary `json:"summary,omitempty"`
}

// Snippet is one keyword match with its surrounding context. Before and
// After carry ellipses when the window was cut mid-text.
type Snippet struct {
	Before string `json:"before"`
	Match  string `json:"match"`
	After  string `json:"after"`
}

// SearchResult is a single letter hit for a keyword search. MatchedFields
// lists the fields the query matched; MatchSnippets carries one context
// snippet per matched field.
type SearchResult struct {
	ID                  string             `json:"id"`
	ApplicationNumber   string             `json:"application_number"`
	CompanyName         string             `json:"company_name"`
	ProductName         string             `json:"product_name,omitempty"`
	LetterDate          string             `json:"letter_date"`
	LetterYear          int                `json:"letter_year"`
	ApplicationType     string             `json:"application_type,omitempty"`
	TherapeuticCategory string             `json:"therapeutic_category,omitempty"`
	DeficiencyReason    string             `json:"deficiency_reason,omitempty"`
	Summary             string             `json:"summary,omitempty"`
	Score               float64            `json:"score"`
	MatchedFields       []string           `json:"matched_fields"`
	MatchSnippets       map[string]Snippet `json:"match_snippets"`
}

// SearchResponse is the response for a keyword search request.
type SearchResponse struct {
	Query     string          `json:"query"`
	Total     int             `json:"total"`
	Limit     int             `json:"limit"`
	Offset    int             `json:"offset"`
	HasMore   bool            `json:"has_more"`
	Results   []*SearchResult `json:"results"`
	QueryTime int64           `json:"query_time_ms"`
	// Suggestions contains "Did you mean?" spellings when a term matched nothing.
	Suggestions []string `json:"suggestions,omitempty"`
}
