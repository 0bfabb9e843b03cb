// Package storage provides the SQLite implementation of the Storage interface.
package storage

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/armish/crl.help/internal/models"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS crls (
		id TEXT PRIMARY KEY,
		application_number TEXT NOT NULL,
		company_name TEXT,
		letter_date TEXT,
		letter_year INTEGER,
		application_type TEXT,
		letter_type TEXT,
		approval_status TEXT,
		therapeutic_category TEXT,
		product_name TEXT,
		indications TEXT,
		deficiency_reason TEXT,
		approver_center TEXT,
		approver_name TEXT,
		letter_text TEXT,
		source_file TEXT,
		created_at TIMESTAMP,
		updated_at TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_crls_letter_date ON crls(letter_date);
	CREATE INDEX IF NOT EXISTS idx_crls_letter_year ON crls(letter_year);
	CREATE INDEX IF NOT EXISTS idx_crls_company_name ON crls(company_name);
	CREATE INDEX IF NOT EXISTS idx_crls_approval_status ON crls(approval_status);

	CREATE TABLE IF NOT EXISTS crl_summaries (
		crl_id TEXT PRIMARY KEY,
		summary_text TEXT NOT NULL,
		model TEXT,
		created_at TIMESTAMP,
		FOREIGN KEY (crl_id) REFERENCES crls(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS crl_embeddings (
		crl_id TEXT NOT NULL,
		embedding_type TEXT NOT NULL,
		vector BLOB NOT NULL,
		model TEXT,
		dimension INTEGER NOT NULL,
		created_at TIMESTAMP,
		PRIMARY KEY (crl_id, embedding_type),
		FOREIGN KEY (crl_id) REFERENCES crls(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS qa_history (
		id TEXT PRIMARY KEY,
		question TEXT NOT NULL,
		answer TEXT NOT NULL,
		confidence REAL,
		model TEXT,
		created_at TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_qa_history_created_at ON qa_history(created_at);

	CREATE TABLE IF NOT EXISTS ingestion_runs (
		id TEXT PRIMARY KEY,
		source TEXT,
		dataset_updated TEXT,
		started_at TIMESTAMP NOT NULL,
		finished_at TIMESTAMP,
		records_total INTEGER DEFAULT 0,
		records_new INTEGER DEFAULT 0,
		records_updated INTEGER DEFAULT 0,
		records_unchanged INTEGER DEFAULT 0,
		records_failed INTEGER DEFAULT 0,
		status TEXT NOT NULL,
		error TEXT
	);
	`
	_, err := db.Exec(schema)
	return err
}

// crlColumns lists every column of the crls table in scan order.
const crlColumns = `id, application_number, company_name, letter_date, letter_year,
	application_type, letter_type, approval_status, therapeutic_category, product_name,
	indications, deficiency_reason, approver_center, approver_name, letter_text,
	source_file, created_at, updated_at`

// crlListColumns omits letter_text, which can run to tens of kilobytes per row.
const crlListColumns = `id, application_number, company_name, letter_date, letter_year,
	application_type, letter_type, approval_status, therapeutic_category, product_name,
	indications, deficiency_reason, approver_center, approver_name,
	source_file, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCRL(r rowScanner) (*models.CRL, error) {
	var c models.CRL
	err := r.Scan(&c.ID, &c.ApplicationNumber, &c.CompanyName, &c.LetterDate, &c.LetterYear,
		&c.ApplicationType, &c.LetterType, &c.ApprovalStatus, &c.TherapeuticCategory, &c.ProductName,
		&c.Indications, &c.DeficiencyReason, &c.ApproverCenter, &c.ApproverName, &c.LetterText,
		&c.SourceFile, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func scanCRLListed(r rowScanner) (*models.CRL, error) {
	var c models.CRL
	err := r.Scan(&c.ID, &c.ApplicationNumber, &c.CompanyName, &c.LetterDate, &c.LetterYear,
		&c.ApplicationType, &c.LetterType, &c.ApprovalStatus, &c.TherapeuticCategory, &c.ProductName,
		&c.Indications, &c.DeficiencyReason, &c.ApproverCenter, &c.ApproverName,
		&c.SourceFile, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateCRL inserts a new letter record.
func (s *SQLiteStorage) CreateCRL(ctx context.Context, crl *models.CRL) error {
	now := time.Now()
	crl.CreatedAt = now
	crl.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO crls (`+crlColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		crl.ID, crl.ApplicationNumber, crl.CompanyName, crl.LetterDate, crl.LetterYear,
		crl.ApplicationType, crl.LetterType, crl.ApprovalStatus, crl.TherapeuticCategory, crl.ProductName,
		crl.Indications, crl.DeficiencyReason, crl.ApproverCenter, crl.ApproverName, crl.LetterText,
		crl.SourceFile, crl.CreatedAt, crl.UpdatedAt,
	)
	return err
}

// UpdateCRL replaces an existing letter record by id.
func (s *SQLiteStorage) UpdateCRL(ctx context.Context, crl *models.CRL) error {
	crl.UpdatedAt = time.Now()

	result, err := s.db.ExecContext(ctx,
		`UPDATE crls SET application_number = ?, company_name = ?, letter_date = ?, letter_year = ?,
		 application_type = ?, letter_type = ?, approval_status = ?, therapeutic_category = ?,
		 product_name = ?, indications = ?, deficiency_reason = ?, approver_center = ?,
		 approver_name = ?, letter_text = ?, source_file = ?, updated_at = ?
		 WHERE id = ?`,
		crl.ApplicationNumber, crl.CompanyName, crl.LetterDate, crl.LetterYear,
		crl.ApplicationType, crl.LetterType, crl.ApprovalStatus, crl.TherapeuticCategory,
		crl.ProductName, crl.Indications, crl.DeficiencyReason, crl.ApproverCenter,
		crl.ApproverName, crl.LetterText, crl.SourceFile, crl.UpdatedAt,
		crl.ID,
	)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("crl %s: %w", crl.ID, ErrNotFound)
	}
	return nil
}

// GetCRL returns a letter by id, including its full text.
func (s *SQLiteStorage) GetCRL(ctx context.Context, id string) (*models.CRL, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+crlColumns+` FROM crls WHERE id = ?`, id)
	crl, err := scanCRL(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("crl %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return crl, nil
}

// GetCRLsByIDs returns the letters for the given ids, full text included.
// Missing ids are simply absent from the result.
func (s *SQLiteStorage) GetCRLsByIDs(ctx context.Context, ids []string) ([]*models.CRL, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := strings.Repeat("?, ", len(ids)-1) + "?"
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+crlColumns+` FROM crls WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var crls []*models.CRL
	for rows.Next() {
		crl, err := scanCRL(rows)
		if err != nil {
			return nil, err
		}
		crls = append(crls, crl)
	}
	return crls, rows.Err()
}

// CRLIDs returns the ids of all stored letters. Used by ingestion to detect
// which incoming records already exist without loading full rows.
func (s *SQLiteStorage) CRLIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM crls`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// buildWhere translates a ListFilter into a WHERE clause and its arguments.
func buildWhere(filter *models.ListFilter) (string, []interface{}) {
	if filter == nil {
		return "", nil
	}
	var conds []string
	var args []interface{}
	if filter.ApprovalStatus != "" {
		conds = append(conds, "approval_status = ?")
		args = append(args, filter.ApprovalStatus)
	}
	if filter.LetterYear != 0 {
		conds = append(conds, "letter_year = ?")
		args = append(args, filter.LetterYear)
	}
	if filter.LetterType != "" {
		conds = append(conds, "letter_type = ?")
		args = append(args, filter.LetterType)
	}
	if filter.ApplicationType != "" {
		conds = append(conds, "application_type = ?")
		args = append(args, filter.ApplicationType)
	}
	if filter.TherapeuticCategory != "" {
		conds = append(conds, "therapeutic_category = ?")
		args = append(args, filter.TherapeuticCategory)
	}
	if filter.DeficiencyReason != "" {
		conds = append(conds, "deficiency_reason = ?")
		args = append(args, filter.DeficiencyReason)
	}
	if filter.CompanyName != "" {
		conds = append(conds, "company_name LIKE ?")
		args = append(args, "%"+filter.CompanyName+"%")
	}
	if filter.SearchText != "" {
		conds = append(conds, "letter_text LIKE ?")
		args = append(args, "%"+filter.SearchText+"%")
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// ListCRLs returns a page of letters matching the filter plus the total match
// count. The filter must have been validated, which whitelists the sort
// column and order interpolated here.
func (s *SQLiteStorage) ListCRLs(ctx context.Context, filter *models.ListFilter) ([]*models.CRL, int, error) {
	where, args := buildWhere(filter)

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM crls"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := "SELECT " + crlListColumns + " FROM crls" + where +
		" ORDER BY " + filter.SortBy + " " + filter.SortOrder + ", id" +
		" LIMIT ? OFFSET ?"
	rows, err := s.db.QueryContext(ctx, query, append(args, filter.Limit, filter.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var crls []*models.CRL
	for rows.Next() {
		crl, err := scanCRLListed(rows)
		if err != nil {
			return nil, 0, err
		}
		crls = append(crls, crl)
	}
	return crls, total, rows.Err()
}

// AllCRLs returns every letter matching the filter up to max rows, full text
// included. Used by export and index rebuilds; paging fields on the filter
// are ignored. A validated filter's sort column and order are honored,
// otherwise rows come newest first.
func (s *SQLiteStorage) AllCRLs(ctx context.Context, filter *models.ListFilter, max int) ([]*models.CRL, error) {
	where, args := buildWhere(filter)
	orderBy := " ORDER BY letter_date DESC, id"
	if filter != nil && filter.SortBy != "" && filter.SortOrder != "" {
		orderBy = " ORDER BY " + filter.SortBy + " " + filter.SortOrder + ", id"
	}
	query := "SELECT " + crlColumns + " FROM crls" + where + orderBy
	if max > 0 {
		query += " LIMIT ?"
		args = append(args, max)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var crls []*models.CRL
	for rows.Next() {
		crl, err := scanCRL(rows)
		if err != nil {
			return nil, err
		}
		crls = append(crls, crl)
	}
	return crls, rows.Err()
}

// UpsertSummary inserts or replaces the summary for a letter.
func (s *SQLiteStorage) UpsertSummary(ctx context.Context, summary *models.Summary) error {
	summary.CreatedAt = time.Now()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO crl_summaries (crl_id, summary_text, model, created_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(crl_id) DO UPDATE SET summary_text = excluded.summary_text,
		 model = excluded.model, created_at = excluded.created_at`,
		summary.CRLID, summary.SummaryText, summary.Model, summary.CreatedAt,
	)
	return err
}

// GetSummary returns the summary for a letter.
func (s *SQLiteStorage) GetSummary(ctx context.Context, crlID string) (*models.Summary, error) {
	var sum models.Summary
	err := s.db.QueryRowContext(ctx,
		`SELECT crl_id, summary_text, model, created_at FROM crl_summaries WHERE crl_id = ?`,
		crlID,
	).Scan(&sum.CRLID, &sum.SummaryText, &sum.Model, &sum.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("summary for %s: %w", crlID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &sum, nil
}

// GetSummariesByIDs returns the summaries for the given letters, keyed by
// letter id. Letters without a summary are absent from the map.
func (s *SQLiteStorage) GetSummariesByIDs(ctx context.Context, crlIDs []string) (map[string]*models.Summary, error) {
	if len(crlIDs) == 0 {
		return map[string]*models.Summary{}, nil
	}
	placeholders := strings.Repeat("?, ", len(crlIDs)-1) + "?"
	args := make([]interface{}, len(crlIDs))
	for i, id := range crlIDs {
		args[i] = id
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT crl_id, summary_text, model, created_at FROM crl_summaries
		 WHERE crl_id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summaries := make(map[string]*models.Summary, len(crlIDs))
	for rows.Next() {
		var sum models.Summary
		if err := rows.Scan(&sum.CRLID, &sum.SummaryText, &sum.Model, &sum.CreatedAt); err != nil {
			return nil, err
		}
		summaries[sum.CRLID] = &sum
	}
	return summaries, rows.Err()
}

// CRLsMissingSummary returns letters without a stored summary.
func (s *SQLiteStorage) CRLsMissingSummary(ctx context.Context, limit int) ([]*models.CRL, error) {
	query := `SELECT ` + crlColumns + ` FROM crls
		 WHERE id NOT IN (SELECT crl_id FROM crl_summaries)
		 ORDER BY letter_date DESC, id`
	var args []interface{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var crls []*models.CRL
	for rows.Next() {
		crl, err := scanCRL(rows)
		if err != nil {
			return nil, err
		}
		crls = append(crls, crl)
	}
	return crls, rows.Err()
}

// UpsertEmbedding inserts or replaces an embedding vector.
func (s *SQLiteStorage) UpsertEmbedding(ctx context.Context, emb *models.Embedding) error {
	if len(emb.Vector) == 0 {
		return fmt.Errorf("embedding for %s has no vector", emb.CRLID)
	}
	emb.Dimension = len(emb.Vector)
	emb.CreatedAt = time.Now()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO crl_embeddings (crl_id, embedding_type, vector, model, dimension, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(crl_id, embedding_type) DO UPDATE SET vector = excluded.vector,
		 model = excluded.model, dimension = excluded.dimension, created_at = excluded.created_at`,
		emb.CRLID, emb.EmbeddingType, encodeVector(emb.Vector), emb.Model, emb.Dimension, emb.CreatedAt,
	)
	return err
}

// EmbeddingsByType returns all stored embeddings with the given type tag,
// vectors decoded. This is the candidate set for retrieval.
func (s *SQLiteStorage) EmbeddingsByType(ctx context.Context, embeddingType string) ([]*models.Embedding, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT crl_id, embedding_type, vector, model, dimension, created_at
		 FROM crl_embeddings WHERE embedding_type = ?`,
		embeddingType,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var embs []*models.Embedding
	for rows.Next() {
		var emb models.Embedding
		var blob []byte
		if err := rows.Scan(&emb.CRLID, &emb.EmbeddingType, &blob, &emb.Model, &emb.Dimension, &emb.CreatedAt); err != nil {
			return nil, err
		}
		vec, err := decodeVector(blob, emb.Dimension)
		if err != nil {
			return nil, fmt.Errorf("embedding for %s: %w", emb.CRLID, err)
		}
		emb.Vector = vec
		embs = append(embs, &emb)
	}
	return embs, rows.Err()
}

// CRLsMissingEmbedding returns letters without an embedding of the given type.
func (s *SQLiteStorage) CRLsMissingEmbedding(ctx context.Context, embeddingType string, limit int) ([]*models.CRL, error) {
	query := `SELECT ` + crlColumns + ` FROM crls
		 WHERE id NOT IN (SELECT crl_id FROM crl_embeddings WHERE embedding_type = ?)
		 ORDER BY letter_date DESC, id`
	args := []interface{}{embeddingType}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var crls []*models.CRL
	for rows.Next() {
		crl, err := scanCRL(rows)
		if err != nil {
			return nil, err
		}
		crls = append(crls, crl)
	}
	return crls, rows.Err()
}

// CRLsMissingMetadata returns letters with at least one unfilled
// classification field, newest first.
func (s *SQLiteStorage) CRLsMissingMetadata(ctx context.Context, limit int) ([]*models.CRL, error) {
	query := `SELECT ` + crlColumns + ` FROM crls
		 WHERE therapeutic_category = '' OR deficiency_reason = ''
		    OR product_name = '' OR indications = ''
		 ORDER BY letter_date DESC, id`
	var args []interface{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var crls []*models.CRL
	for rows.Next() {
		crl, err := scanCRL(rows)
		if err != nil {
			return nil, err
		}
		crls = append(crls, crl)
	}
	return crls, rows.Err()
}

// CreateQARecord persists a question/answer pair.
func (s *SQLiteStorage) CreateQARecord(ctx context.Context, rec *models.QARecord) error {
	rec.CreatedAt = time.Now()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO qa_history (id, question, answer, confidence, model, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Question, rec.Answer, rec.Confidence, rec.Model, rec.CreatedAt,
	)
	return err
}

// RecentQARecords returns the most recent question/answer pairs.
func (s *SQLiteStorage) RecentQARecords(ctx context.Context, limit int) ([]*models.QARecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, question, answer, confidence, model, created_at
		 FROM qa_history ORDER BY created_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []*models.QARecord
	for rows.Next() {
		var rec models.QARecord
		if err := rows.Scan(&rec.ID, &rec.Question, &rec.Answer, &rec.Confidence, &rec.Model, &rec.CreatedAt); err != nil {
			return nil, err
		}
		recs = append(recs, &rec)
	}
	return recs, rows.Err()
}

// CreateIngestionRun records the start of a dataset refresh.
func (s *SQLiteStorage) CreateIngestionRun(ctx context.Context, run *models.IngestionRun) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO ingestion_runs (id, source, started_at, status)
		 VALUES (?, ?, ?, ?)`,
		run.ID, run.Source, run.StartedAt, run.Status,
	)
	return err
}

// FinishIngestionRun records the outcome of a dataset refresh.
func (s *SQLiteStorage) FinishIngestionRun(ctx context.Context, run *models.IngestionRun) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE ingestion_runs SET dataset_updated = ?, finished_at = ?, records_total = ?,
		 records_new = ?, records_updated = ?, records_unchanged = ?, records_failed = ?,
		 status = ?, error = ? WHERE id = ?`,
		run.DatasetUpdated, run.FinishedAt, run.RecordsTotal,
		run.RecordsNew, run.RecordsUpdated, run.RecordsUnchanged, run.RecordsFailed,
		run.Status, run.Error, run.ID,
	)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("ingestion run %s: %w", run.ID, ErrNotFound)
	}
	return nil
}

// LastCompletedRun returns the most recently finished successful refresh,
// or ErrNotFound when none has completed yet.
func (s *SQLiteStorage) LastCompletedRun(ctx context.Context) (*models.IngestionRun, error) {
	var run models.IngestionRun
	var datasetUpdated, errText sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, source, dataset_updated, started_at, finished_at, records_total, records_new,
		 records_updated, records_unchanged, records_failed, status, error
		 FROM ingestion_runs WHERE status = 'completed' AND finished_at IS NOT NULL
		 ORDER BY finished_at DESC LIMIT 1`,
	).Scan(&run.ID, &run.Source, &datasetUpdated, &run.StartedAt, &run.FinishedAt, &run.RecordsTotal, &run.RecordsNew,
		&run.RecordsUpdated, &run.RecordsUnchanged, &run.RecordsFailed, &run.Status, &errText)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("completed ingestion run: %w", ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	run.DatasetUpdated = datasetUpdated.String
	run.Error = errText.String
	return &run, nil
}

// CountCRLs returns the total number of letters.
func (s *SQLiteStorage) CountCRLs(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM crls`).Scan(&count)
	return count, err
}

// CountSummaries returns the total number of stored summaries.
func (s *SQLiteStorage) CountSummaries(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM crl_summaries`).Scan(&count)
	return count, err
}

// CountEmbeddings returns the total number of stored embedding vectors.
func (s *SQLiteStorage) CountEmbeddings(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM crl_embeddings`).Scan(&count)
	return count, err
}

// StatsOverview aggregates corpus-wide counts and per-label rollups.
func (s *SQLiteStorage) StatsOverview(ctx context.Context) (*models.StatsOverview, error) {
	var overview models.StatsOverview
	var err error

	if overview.TotalCRLs, err = s.CountCRLs(ctx); err != nil {
		return nil, err
	}
	if overview.TotalSummaries, err = s.CountSummaries(ctx); err != nil {
		return nil, err
	}
	if overview.TotalEmbeddings, err = s.CountEmbeddings(ctx); err != nil {
		return nil, err
	}

	if overview.ByYear, err = s.countsBy(ctx,
		`SELECT CAST(letter_year AS TEXT), COUNT(*) FROM crls WHERE letter_year > 0
		 GROUP BY letter_year ORDER BY letter_year DESC`); err != nil {
		return nil, err
	}
	if overview.ByApprovalStatus, err = s.countsBy(ctx,
		`SELECT approval_status, COUNT(*) FROM crls WHERE approval_status != ''
		 GROUP BY approval_status ORDER BY COUNT(*) DESC`); err != nil {
		return nil, err
	}
	if overview.ByApplicationType, err = s.countsBy(ctx,
		`SELECT application_type, COUNT(*) FROM crls WHERE application_type != ''
		 GROUP BY application_type ORDER BY COUNT(*) DESC`); err != nil {
		return nil, err
	}
	return &overview, nil
}

func (s *SQLiteStorage) countsBy(ctx context.Context, query string) ([]models.CountByLabel, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []models.CountByLabel
	for rows.Next() {
		var c models.CountByLabel
		if err := rows.Scan(&c.Label, &c.Count); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

// CompanyStats returns per-company letter counts, busiest companies first.
func (s *SQLiteStorage) CompanyStats(ctx context.Context, limit int) ([]*models.CompanyStats, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT company_name, COUNT(*),
		 SUM(CASE WHEN approval_status = 'approved' THEN 1 ELSE 0 END),
		 SUM(CASE WHEN approval_status = 'unapproved' THEN 1 ELSE 0 END)
		 FROM crls WHERE company_name != ''
		 GROUP BY company_name ORDER BY COUNT(*) DESC, company_name LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []*models.CompanyStats
	for rows.Next() {
		var cs models.CompanyStats
		if err := rows.Scan(&cs.CompanyName, &cs.TotalLetters, &cs.Approved, &cs.Unapproved); err != nil {
			return nil, err
		}
		stats = append(stats, &cs)
	}
	return stats, rows.Err()
}

// CountCompanies returns the number of distinct companies in the corpus.
func (s *SQLiteStorage) CountCompanies(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT company_name) FROM crls WHERE company_name != ''`).Scan(&count)
	return count, err
}

// Ping verifies the database connection.
func (s *SQLiteStorage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// encodeVector packs a vector as little-endian float32 bytes for BLOB storage.
func encodeVector(v []float32) []byte {
	const size = 4
	out := make([]byte, len(v)*size)
	for i, x := range v {
		binary.LittleEndian.PutUint32(out[i*size:(i+1)*size], math.Float32bits(x))
	}
	return out
}

// decodeVector unpacks a BLOB written by encodeVector, checking the stored
// dimension against the blob length.
func decodeVector(b []byte, dimension int) ([]float32, error) {
	const size = 4
	if len(b)%size != 0 {
		return nil, fmt.Errorf("vector blob length %d not a multiple of %d", len(b), size)
	}
	if dimension > 0 && len(b)/size != dimension {
		return nil, fmt.Errorf("vector blob holds %d values, dimension column says %d", len(b)/size, dimension)
	}
	out := make([]float32, len(b)/size)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*size : (i+1)*size]))
	}
	return out, nil
}
