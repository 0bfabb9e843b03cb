// Package storage defines the persistence interface for CRL records,
// summaries, embeddings, and Q&A history.
package storage

import (
	"context"
	"errors"

	"github.com/armish/crl.help/internal/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Storage defines persistence operations for the CRL corpus.
type Storage interface {
	// CRL operations
	CreateCRL(ctx context.Context, crl *models.CRL) error
	UpdateCRL(ctx context.Context, crl *models.CRL) error
	GetCRL(ctx context.Context, id string) (*models.CRL, error)
	GetCRLsByIDs(ctx context.Context, ids []string) ([]*models.CRL, error)
	CRLIDs(ctx context.Context) ([]string, error)
	ListCRLs(ctx context.Context, filter *models.ListFilter) ([]*models.CRL, int, error)
	AllCRLs(ctx context.Context, filter *models.ListFilter, max int) ([]*models.CRL, error)
	CRLsMissingMetadata(ctx context.Context, limit int) ([]*models.CRL, error)

	// Summary operations
	UpsertSummary(ctx context.Context, summary *models.Summary) error
	GetSummary(ctx context.Context, crlID string) (*models.Summary, error)
	GetSummariesByIDs(ctx context.Context, crlIDs []string) (map[string]*models.Summary, error)
	CRLsMissingSummary(ctx context.Context, limit int) ([]*models.CRL, error)

	// Embedding operations
	UpsertEmbedding(ctx context.Context, emb *models.Embedding) error
	EmbeddingsByType(ctx context.Context, embeddingType string) ([]*models.Embedding, error)
	CRLsMissingEmbedding(ctx context.Context, embeddingType string, limit int) ([]*models.CRL, error)

	// Q&A history
	CreateQARecord(ctx context.Context, rec *models.QARecord) error
	RecentQARecords(ctx context.Context, limit int) ([]*models.QARecord, error)

	// Ingestion runs
	CreateIngestionRun(ctx context.Context, run *models.IngestionRun) error
	FinishIngestionRun(ctx context.Context, run *models.IngestionRun) error
	LastCompletedRun(ctx context.Context) (*models.IngestionRun, error)

	// Stats
	CountCRLs(ctx context.Context) (int, error)
	CountSummaries(ctx context.Context) (int, error)
	CountEmbeddings(ctx context.Context) (int, error)
	StatsOverview(ctx context.Context) (*models.StatsOverview, error)
	CompanyStats(ctx context.Context, limit int) ([]*models.CompanyStats, error)
	CountCompanies(ctx context.Context) (int, error)

	Ping(ctx context.Context) error
	Close() error
}
