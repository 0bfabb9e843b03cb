// Package models defines core data structures for CRL records, queries, and
// API responses.
package models

import "time"

// CRL represents a single FDA Complete Response Letter record.
type CRL struct {
	ID                  string    `json:"id" db:"id"`
	ApplicationNumber   string    `json:"application_number" db:"application_number"`
	CompanyName         string    `json:"company_name" db:"company_name"`
	LetterDate          string    `json:"letter_date" db:"letter_date"` // ISO YYYY-MM-DD
	LetterYear          int       `json:"letter_year" db:"letter_year"`
	ApplicationType     string    `json:"application_type" db:"application_type"` // NDA, BLA, ANDA, ...
	LetterType          string    `json:"letter_type" db:"letter_type"`
	ApprovalStatus      string    `json:"approval_status" db:"approval_status"` // approved | unapproved | unknown
	TherapeuticCategory string    `json:"therapeutic_category" db:"therapeutic_category"`
	ProductName         string    `json:"product_name" db:"product_name"`
	Indications         string    `json:"indications" db:"indications"`
	DeficiencyReason    string    `json:"deficiency_reason" db:"deficiency_reason"`
	ApproverCenter      string    `json:"approver_center" db:"approver_center"`
	ApproverName        string    `json:"approver_name" db:"approver_name"`
	LetterText          string    `json:"letter_text,omitempty" db:"letter_text"`
	SourceFile          string    `json:"source_file,omitempty" db:"source_file"`
	CreatedAt           time.Time `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time `json:"updated_at" db:"updated_at"`
}

// Summary is an AI-generated executive summary of a letter.
type Summary struct {
	CRLID       string    `json:"crl_id" db:"crl_id"`
	SummaryText string    `json:"summary_text" db:"summary_text"`
	Model       string    `json:"model" db:"model"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// Embedding type tags distinguish which text of a letter was embedded.
const (
	EmbeddingTypeSummary  = "summary"
	EmbeddingTypeFullText = "full_text"
)

// Embedding is a stored embedding vector for one letter.
type Embedding struct {
	CRLID         string    `json:"crl_id" db:"crl_id"`
	EmbeddingType string    `json:"embedding_type" db:"embedding_type"`
	Vector        []float32 `json:"-" db:"-"`
	Model         string    `json:"model" db:"model"`
	Dimension     int       `json:"dimension" db:"dimension"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// IngestionRun records one dataset refresh.
type IngestionRun struct {
	ID               string     `json:"id" db:"id"`
	Source           string     `json:"source" db:"source"`
	DatasetUpdated   string     `json:"dataset_updated,omitempty" db:"dataset_updated"`
	StartedAt        time.Time  `json:"started_at" db:"started_at"`
	FinishedAt       *time.Time `json:"finished_at,omitempty" db:"finished_at"`
	RecordsTotal     int        `json:"records_total" db:"records_total"`
	RecordsNew       int        `json:"records_new" db:"records_new"`
	RecordsUpdated   int        `json:"records_updated" db:"records_updated"`
	RecordsUnchanged int        `json:"records_unchanged" db:"records_unchanged"`
	RecordsFailed    int        `json:"records_failed" db:"records_failed"`
	Status           string     `json:"status" db:"status"` // running | completed | failed
	Error            string     `json:"error,omitempty" db:"error"`
}
