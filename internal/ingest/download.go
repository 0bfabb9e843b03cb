// Package ingest downloads the FDA CRL bulk dataset and loads its records
// into storage and the keyword index.
package ingest

import (
	"archive/zip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Payload is one decoded FDA bulk dataset file.
type Payload struct {
	Meta    Meta     `json:"meta"`
	Results []Record `json:"results"`
}

// Meta describes a dataset export.
type Meta struct {
	Disclaimer  string `json:"disclaimer,omitempty"`
	LastUpdated string `json:"last_updated"`
}

// Record is one raw CRL record as published in the FDA bulk files. Dates
// and years arrive as strings in mixed formats; the processor normalizes
// them.
type Record struct {
	ApplicationNumber []string `json:"application_number"`
	LetterDate        string   `json:"letter_date"`
	LetterYear        string   `json:"letter_year"`
	LetterType        string   `json:"letter_type"`
	ApprovalStatus    string   `json:"approval_status"`
	CompanyName       string   `json:"company_name"`
	CompanyAddress    string   `json:"company_address"`
	CompanyRep        string   `json:"company_rep"`
	ApproverName      string   `json:"approver_name"`
	ApproverCenter    []string `json:"approver_center"`
	ApproverTitle     string   `json:"approver_title"`
	FileName          string   `json:"file_name"`
	Text              string   `json:"text"`
}

const (
	downloadTimeout  = 120 * time.Second
	downloadAttempts = 3
	maxRetryWait     = 10 * time.Second
)

// Downloader fetches the FDA bulk zip archives and keeps the extracted JSON
// payloads under the data directory, one cached copy per source.
type Downloader struct {
	client  *http.Client
	dataDir string
	logger  *zap.Logger
}

// NewDownloader creates a downloader that stores archives and extracted
// payloads under dataDir.
func NewDownloader(dataDir string, logger *zap.Logger) *Downloader {
	return &Downloader{
		client:  &http.Client{Timeout: downloadTimeout},
		dataDir: dataDir,
		logger:  logger,
	}
}

// Fetch downloads the zip archive at url, extracts its JSON payload into
// the data directory, and returns the decoded dataset. Failed downloads are
// retried with exponential backoff.
func (d *Downloader) Fetch(ctx context.Context, url string) (*Payload, error) {
	if err := os.MkdirAll(d.dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	zipPath := filepath.Join(d.dataDir, path.Base(url))
	if err := d.download(ctx, url, zipPath); err != nil {
		return nil, err
	}
	jsonPath := filepath.Join(d.dataDir, jsonName(url))
	if err := d.extractJSON(zipPath, jsonPath); err != nil {
		return nil, err
	}
	return d.readPayload(jsonPath)
}

// Cached returns the previously extracted payload for url, if a readable
// one exists in the data directory.
func (d *Downloader) Cached(url string) (*Payload, bool) {
	jsonPath := filepath.Join(d.dataDir, jsonName(url))
	payload, err := d.readPayload(jsonPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			d.logger.Warn("ignoring unreadable cached dataset",
				zap.String("path", jsonPath), zap.Error(err))
		}
		return nil, false
	}
	d.logger.Info("using cached dataset",
		zap.String("file", filepath.Base(jsonPath)),
		zap.Int("records", len(payload.Results)))
	return payload, true
}

func (d *Downloader) download(ctx context.Context, url, dest string) error {
	var lastErr error
	for attempt := 0; attempt < downloadAttempts; attempt++ {
		if err := d.downloadOnce(ctx, url, dest); err == nil {
			return nil
		} else {
			lastErr = err
			if attempt < downloadAttempts-1 {
				wait := time.Duration(2<<attempt) * time.Second
				if wait > maxRetryWait {
					wait = maxRetryWait
				}
				d.logger.Warn("download failed, retrying",
					zap.String("url", url),
					zap.Int("attempt", attempt+1),
					zap.Duration("wait", wait),
					zap.Error(err))
				select {
				case <-time.After(wait):
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}
	}
	return fmt.Errorf("download %s: %w", url, lastErr)
}

func (d *Downloader) downloadOnce(ctx context.Context, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	n, err := io.Copy(out, resp.Body)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return err
	}
	d.logger.Info("downloaded dataset archive",
		zap.String("url", url), zap.Int64("bytes", n))
	return nil
}

// extractJSON copies the JSON member of the zip archive to jsonPath. The
// bulk archives carry exactly one JSON file; if several are present the
// first is used.
func (d *Downloader) extractJSON(zipPath, jsonPath string) error {
	zr, err := zip.OpenReader(zipPath)
	if err != nil {
		return fmt.Errorf("open archive %s: %w", filepath.Base(zipPath), err)
	}
	defer zr.Close()

	var jsonFiles []*zip.File
	for _, f := range zr.File {
		if strings.HasSuffix(f.Name, ".json") {
			jsonFiles = append(jsonFiles, f)
		}
	}
	if len(jsonFiles) == 0 {
		return fmt.Errorf("no JSON file in archive %s", filepath.Base(zipPath))
	}
	if len(jsonFiles) > 1 {
		d.logger.Warn("multiple JSON files in archive, using first",
			zap.String("zip", filepath.Base(zipPath)),
			zap.String("using", jsonFiles[0].Name))
	}

	src, err := jsonFiles[0].Open()
	if err != nil {
		return fmt.Errorf("open %s in archive: %w", jsonFiles[0].Name, err)
	}
	defer src.Close()

	out, err := os.Create(jsonPath)
	if err != nil {
		return err
	}
	_, err = io.Copy(out, src)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("extract %s: %w", jsonFiles[0].Name, err)
	}
	return nil
}

// readPayload decodes and validates a dataset file. Both the meta block and
// the results array must be present.
func (d *Downloader) readPayload(jsonPath string) (*Payload, error) {
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, err
	}

	var probe struct {
		Meta    json.RawMessage `json:"meta"`
		Results json.RawMessage `json:"results"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(jsonPath), err)
	}
	if probe.Meta == nil || probe.Results == nil {
		return nil, fmt.Errorf("%s: missing meta or results", filepath.Base(jsonPath))
	}

	var payload Payload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(jsonPath), err)
	}
	d.logger.Info("loaded dataset",
		zap.String("file", filepath.Base(jsonPath)),
		zap.Int("records", len(payload.Results)),
		zap.String("last_updated", payload.Meta.LastUpdated))
	return &payload, nil
}

// jsonName is the cached payload filename for a source url, the archive
// name with a .json extension.
func jsonName(url string) string {
	base := path.Base(url)
	return strings.TrimSuffix(base, path.Ext(base)) + ".json"
}
