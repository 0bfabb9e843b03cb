// Package ingest provides the dataset refresh pipeline: fetch, convert,
// store, and reindex.
package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/armish/crl.help/internal/config"
	"github.com/armish/crl.help/internal/extract"
	"github.com/armish/crl.help/internal/fileid"
	"github.com/armish/crl.help/internal/keyword"
	"github.com/armish/crl.help/internal/models"
	"github.com/armish/crl.help/internal/storage"
)

// Service runs dataset refreshes against storage and the keyword index.
type Service struct {
	store     storage.Storage
	index     keyword.Index
	dl        *Downloader
	proc      *Processor
	extractor *extract.Extractor
	cfg       config.DataConfig
	logger    *zap.Logger
}

// NewService creates the ingestion service. cfg supplies the data directory
// and the bulk download URLs.
func NewService(store storage.Storage, index keyword.Index, cfg config.DataConfig, logger *zap.Logger) *Service {
	return &Service{
		store:     store,
		index:     index,
		dl:        NewDownloader(cfg.Dir, logger),
		proc:      NewProcessor(logger),
		extractor: extract.NewExtractor(),
		cfg:       cfg,
		logger:    logger,
	}
}

// Run refreshes the corpus from the FDA bulk files: both the approved and
// the unapproved feeds are fetched, converted, and loaded, and the keyword
// index is rebuilt from the loaded records. When useCache is true a
// previously extracted payload is reused instead of downloading.
// The returned run carries the per-record counters.
func (s *Service) Run(ctx context.Context, useCache bool) (*models.IngestionRun, error) {
	run := &models.IngestionRun{
		ID:        uuid.New().String(),
		Source:    "fda-bulk",
		StartedAt: time.Now(),
		Status:    "running",
	}
	if err := s.store.CreateIngestionRun(ctx, run); err != nil {
		return nil, fmt.Errorf("record ingestion run: %w", err)
	}

	sources := []struct{ label, url string }{
		{"approved", s.cfg.ApprovedURL},
		{"unapproved", s.cfg.UnapprovedURL},
	}
	var feeds []Feed
	for _, src := range sources {
		if src.url == "" {
			continue
		}
		payload, err := s.fetch(ctx, src.url, useCache)
		if err != nil {
			return s.fail(ctx, run, fmt.Errorf("fetch %s feed: %w", src.label, err))
		}
		if payload.Meta.LastUpdated > run.DatasetUpdated {
			run.DatasetUpdated = payload.Meta.LastUpdated
		}
		feeds = append(feeds, Feed{Label: src.label, Records: payload.Results})
	}

	crls := s.proc.Process(feeds...)
	run.RecordsTotal = len(crls)
	if err := s.load(ctx, run, crls); err != nil {
		return s.fail(ctx, run, err)
	}
	return s.finish(ctx, run)
}

// importExts are the letter file formats accepted by ImportDir.
var importExts = map[string]struct{}{
	".pdf":  {},
	".docx": {},
	".odt":  {},
	".rtf":  {},
	".txt":  {},
	".md":   {},
}

// ImportDir ingests letters from local files under dir. Records get a
// stable id from the file path and stay unclassified until enrichment
// fills in their metadata.
func (s *Service) ImportDir(ctx context.Context, dir string) (*models.IngestionRun, error) {
	run := &models.IngestionRun{
		ID:        uuid.New().String(),
		Source:    "local",
		StartedAt: time.Now(),
		Status:    "running",
	}
	if err := s.store.CreateIngestionRun(ctx, run); err != nil {
		return nil, fmt.Errorf("record ingestion run: %w", err)
	}

	var crls []*models.CRL
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, ok := importExts[strings.ToLower(filepath.Ext(path))]; !ok {
			return nil
		}
		run.RecordsTotal++
		crl, err := s.importFile(path)
		if err != nil {
			s.logger.Warn("skipping letter file",
				zap.String("path", path), zap.Error(err))
			run.RecordsFailed++
			return nil
		}
		crls = append(crls, crl)
		return nil
	})
	if err != nil {
		return s.fail(ctx, run, fmt.Errorf("walk %s: %w", dir, err))
	}

	if err := s.load(ctx, run, crls); err != nil {
		return s.fail(ctx, run, err)
	}
	return s.finish(ctx, run)
}

func (s *Service) importFile(path string) (*models.CRL, error) {
	text, err := s.extractor.Extract(path)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("no text extracted")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	return &models.CRL{
		ID:             fileid.LetterID(abs),
		ApprovalStatus: "unknown",
		LetterText:     text,
		SourceFile:     filepath.Base(path),
	}, nil
}

func (s *Service) fetch(ctx context.Context, url string, useCache bool) (*Payload, error) {
	if useCache {
		if payload, ok := s.dl.Cached(url); ok {
			return payload, nil
		}
	}
	return s.dl.Fetch(ctx, url)
}

// load stores the converted records and rebuilds the keyword index from
// them. A record whose id already exists is updated when its letter text
// changed and counted unchanged otherwise; store errors are tolerated per
// record. Unchanged and updated records keep their enrichment fields.
func (s *Service) load(ctx context.Context, run *models.IngestionRun, crls []*models.CRL) error {
	existingIDs, err := s.store.CRLIDs(ctx)
	if err != nil {
		return fmt.Errorf("list existing ids: %w", err)
	}
	existing := make(map[string]struct{}, len(existingIDs))
	for _, id := range existingIDs {
		existing[id] = struct{}{}
	}

	stored := make([]*models.CRL, 0, len(crls))
	for i, crl := range crls {
		if err := ctx.Err(); err != nil {
			return err
		}

		if _, ok := existing[crl.ID]; !ok {
			if err := s.store.CreateCRL(ctx, crl); err != nil {
				s.logger.Error("failed to store letter",
					zap.String("id", crl.ID), zap.Error(err))
				run.RecordsFailed++
				continue
			}
			run.RecordsNew++
			stored = append(stored, crl)
		} else {
			prev, err := s.store.GetCRL(ctx, crl.ID)
			if err != nil {
				s.logger.Error("failed to read existing letter",
					zap.String("id", crl.ID), zap.Error(err))
				run.RecordsFailed++
				continue
			}
			if prev.LetterText == crl.LetterText {
				run.RecordsUnchanged++
				stored = append(stored, prev)
			} else {
				// Enrichment fields live only in the database, carry them over.
				crl.TherapeuticCategory = prev.TherapeuticCategory
				crl.ProductName = prev.ProductName
				crl.Indications = prev.Indications
				crl.DeficiencyReason = prev.DeficiencyReason
				if err := s.store.UpdateCRL(ctx, crl); err != nil {
					s.logger.Error("failed to update letter",
						zap.String("id", crl.ID), zap.Error(err))
					run.RecordsFailed++
					continue
				}
				run.RecordsUpdated++
				stored = append(stored, crl)
			}
		}

		if (i+1)%50 == 0 {
			s.logger.Debug("stored letters",
				zap.Int("done", i+1), zap.Int("total", len(crls)))
		}
	}

	return s.reindex(ctx, stored)
}

// reindex rewrites the keyword index entries for the given letters,
// including every unchanged record so a wiped index gets repopulated.
func (s *Service) reindex(ctx context.Context, crls []*models.CRL) error {
	if len(crls) == 0 {
		return nil
	}
	ids := make([]string, len(crls))
	for i, crl := range crls {
		ids[i] = crl.ID
	}
	summaries, err := s.store.GetSummariesByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("load summaries for index: %w", err)
	}

	docs := make(map[string]*keyword.Doc, len(crls))
	for _, crl := range crls {
		summaryText := ""
		if sum, ok := summaries[crl.ID]; ok {
			summaryText = sum.SummaryText
		}
		docs[crl.ID] = keyword.DocFromCRL(crl, summaryText)
	}
	if err := s.index.IndexBatch(ctx, docs); err != nil {
		return fmt.Errorf("refresh keyword index: %w", err)
	}
	s.logger.Info("keyword index refreshed", zap.Int("documents", len(docs)))
	return nil
}

func (s *Service) finish(ctx context.Context, run *models.IngestionRun) (*models.IngestionRun, error) {
	now := time.Now()
	run.FinishedAt = &now
	run.Status = "completed"
	if err := s.store.FinishIngestionRun(ctx, run); err != nil {
		return nil, fmt.Errorf("finish ingestion run: %w", err)
	}
	s.logger.Info("ingestion completed",
		zap.String("source", run.Source),
		zap.Int("total", run.RecordsTotal),
		zap.Int("new", run.RecordsNew),
		zap.Int("updated", run.RecordsUpdated),
		zap.Int("unchanged", run.RecordsUnchanged),
		zap.Int("failed", run.RecordsFailed))
	return run, nil
}

// fail marks the run failed and records the cause. The bookkeeping write
// uses a detached context so it still lands when ctx was canceled.
func (s *Service) fail(ctx context.Context, run *models.IngestionRun, cause error) (*models.IngestionRun, error) {
	now := time.Now()
	run.FinishedAt = &now
	run.Status = "failed"
	run.Error = cause.Error()
	if err := s.store.FinishIngestionRun(context.WithoutCancel(ctx), run); err != nil {
		s.logger.Error("failed to record failed ingestion run", zap.Error(err))
	}
	return run, cause
}
