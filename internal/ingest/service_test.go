package ingest

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/armish/crl.help/internal/config"
	"github.com/armish/crl.help/internal/keyword"
	"github.com/armish/crl.help/internal/storage"
)

func datasetBody(lastUpdated string, records ...string) string {
	return fmt.Sprintf(`{"meta": {"last_updated": %q}, "results": [%s]}`,
		lastUpdated, strings.Join(records, ","))
}

func datasetRecord(appNum, date, fileName, text string) string {
	return fmt.Sprintf(`{
		"application_number": [%q],
		"letter_date": %q,
		"letter_type": "Complete Response",
		"company_name": "Acme Pharma",
		"file_name": %q,
		"text": %q
	}`, appNum, date, fileName, text)
}

type serviceFixture struct {
	svc      *Service
	store    storage.Storage
	index    keyword.Index
	approved atomic.Value // archive bytes served for the approved feed
	srv      *httptest.Server
}

func newServiceFixture(t *testing.T, approvedJSON, unapprovedJSON string) *serviceFixture {
	t.Helper()
	f := &serviceFixture{}
	f.approved.Store(buildZip(t, []zipEntry{{"approved_CRLs.json", approvedJSON}}))
	unapprovedZip := buildZip(t, []zipEntry{{"unapproved_CRLs.json", unapprovedJSON}})

	mux := http.NewServeMux()
	mux.HandleFunc("/approved_CRLs.zip", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(f.approved.Load().([]byte))
	})
	mux.HandleFunc("/unapproved_CRLs.zip", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(unapprovedZip)
	})
	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)

	dir := t.TempDir()
	store, err := storage.NewSQLiteStorage(filepath.Join(dir, "crl.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })

	index, err := keyword.NewBleveIndex(filepath.Join(dir, "index.bleve"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = index.Close() })

	cfg := config.DataConfig{
		Dir:           filepath.Join(dir, "data"),
		ApprovedURL:   f.srv.URL + "/approved_CRLs.zip",
		UnapprovedURL: f.srv.URL + "/unapproved_CRLs.zip",
	}
	f.svc = NewService(store, index, cfg, zap.NewNop())
	f.store = store
	f.index = index
	return f
}

func TestService_Run(t *testing.T) {
	approved := datasetBody("2025-08-01",
		datasetRecord("NDA 212725", "3/5/2021", "a.pdf", "Dear Sponsor, clinical deficiencies were identified."),
		datasetRecord("BLA 761234", "20200615", "b.pdf", "Dear Sponsor, facility inspection issues remain."),
	)
	unapproved := datasetBody("2025-07-01",
		datasetRecord("ANDA 090001", "01/15/2019", "c.pdf", "Dear Sponsor, labeling revisions are required."),
	)
	f := newServiceFixture(t, approved, unapproved)
	ctx := context.Background()

	run, err := f.svc.Run(ctx, false)
	if err != nil {
		t.Fatal(err)
	}
	if run.Status != "completed" {
		t.Errorf("Status = %q", run.Status)
	}
	if run.RecordsTotal != 3 || run.RecordsNew != 3 {
		t.Errorf("counts = %+v", run)
	}
	if run.RecordsUpdated != 0 || run.RecordsUnchanged != 0 || run.RecordsFailed != 0 {
		t.Errorf("counts = %+v", run)
	}
	if run.DatasetUpdated != "2025-08-01" {
		t.Errorf("DatasetUpdated = %q, want newest across feeds", run.DatasetUpdated)
	}
	if run.FinishedAt == nil {
		t.Error("FinishedAt not set")
	}

	crl, err := f.store.GetCRL(ctx, "NDA212725_20210305")
	if err != nil {
		t.Fatal(err)
	}
	if crl.CompanyName != "Acme Pharma" || crl.ApprovalStatus != "approved" {
		t.Errorf("stored record = %+v", crl)
	}
	if crl.LetterDate != "2021-03-05" || crl.ApplicationType != "NDA" {
		t.Errorf("stored record = %+v", crl)
	}
	if _, err := f.store.GetCRL(ctx, "ANDA090001_20190115"); err != nil {
		t.Errorf("unapproved feed record missing: %v", err)
	}

	count, err := f.index.DocCount()
	if err != nil {
		t.Fatal(err)
	}
	if count != 3 {
		t.Errorf("DocCount = %d, want 3", count)
	}

	last, err := f.store.LastCompletedRun(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if last.ID != run.ID || last.DatasetUpdated != "2025-08-01" {
		t.Errorf("persisted run = %+v", last)
	}
}

func TestService_Run_unchangedOnRerun(t *testing.T) {
	approved := datasetBody("2025-08-01",
		datasetRecord("NDA 212725", "3/5/2021", "a.pdf", "Dear Sponsor, clinical deficiencies were identified."),
	)
	unapproved := datasetBody("2025-07-01")
	f := newServiceFixture(t, approved, unapproved)
	ctx := context.Background()

	if _, err := f.svc.Run(ctx, false); err != nil {
		t.Fatal(err)
	}
	run, err := f.svc.Run(ctx, false)
	if err != nil {
		t.Fatal(err)
	}
	if run.RecordsNew != 0 || run.RecordsUpdated != 0 || run.RecordsUnchanged != 1 {
		t.Errorf("counts = new %d updated %d unchanged %d",
			run.RecordsNew, run.RecordsUpdated, run.RecordsUnchanged)
	}

	// Ids are deterministic, so a rerun never duplicates rows.
	n, err := f.store.CountCRLs(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("CountCRLs = %d, want 1", n)
	}
	count, _ := f.index.DocCount()
	if count != 1 {
		t.Errorf("DocCount = %d, want 1", count)
	}
}

func TestService_Run_updateKeepsEnrichment(t *testing.T) {
	approved := datasetBody("2025-08-01",
		datasetRecord("NDA 212725", "3/5/2021", "a.pdf", "Dear Sponsor, clinical deficiencies were identified."),
	)
	unapproved := datasetBody("2025-07-01")
	f := newServiceFixture(t, approved, unapproved)
	ctx := context.Background()

	if _, err := f.svc.Run(ctx, false); err != nil {
		t.Fatal(err)
	}

	// Simulate enrichment having classified the letter.
	crl, err := f.store.GetCRL(ctx, "NDA212725_20210305")
	if err != nil {
		t.Fatal(err)
	}
	crl.TherapeuticCategory = "Small molecules"
	crl.ProductName = "Acmezumab"
	crl.Indications = "Hypertension"
	crl.DeficiencyReason = "Clinical"
	if err := f.store.UpdateCRL(ctx, crl); err != nil {
		t.Fatal(err)
	}

	// The next dataset revision carries corrected letter text.
	f.approved.Store(buildZip(t, []zipEntry{{"approved_CRLs.json", datasetBody("2025-08-15",
		datasetRecord("NDA 212725", "3/5/2021", "a.pdf", "Dear Sponsor, clinical and labeling deficiencies were identified."),
	)}}))

	run, err := f.svc.Run(ctx, false)
	if err != nil {
		t.Fatal(err)
	}
	if run.RecordsUpdated != 1 || run.RecordsNew != 0 || run.RecordsUnchanged != 0 {
		t.Errorf("counts = %+v", run)
	}
	if run.DatasetUpdated != "2025-08-15" {
		t.Errorf("DatasetUpdated = %q", run.DatasetUpdated)
	}

	got, err := f.store.GetCRL(ctx, "NDA212725_20210305")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got.LetterText, "labeling") {
		t.Errorf("letter text not updated: %q", got.LetterText)
	}
	if got.TherapeuticCategory != "Small molecules" || got.ProductName != "Acmezumab" {
		t.Errorf("enrichment fields lost: %+v", got)
	}
	if got.Indications != "Hypertension" || got.DeficiencyReason != "Clinical" {
		t.Errorf("enrichment fields lost: %+v", got)
	}
}

func TestService_Run_usesCache(t *testing.T) {
	approved := datasetBody("2025-08-01",
		datasetRecord("NDA 212725", "3/5/2021", "a.pdf", "Dear Sponsor, clinical deficiencies were identified."),
	)
	unapproved := datasetBody("2025-07-01")
	f := newServiceFixture(t, approved, unapproved)
	ctx := context.Background()

	if _, err := f.svc.Run(ctx, false); err != nil {
		t.Fatal(err)
	}

	// With extracted payloads on disk a cached run needs no network at all.
	f.srv.Close()
	run, err := f.svc.Run(ctx, true)
	if err != nil {
		t.Fatal(err)
	}
	if run.RecordsUnchanged != 1 {
		t.Errorf("RecordsUnchanged = %d, want 1", run.RecordsUnchanged)
	}
}

func TestService_Run_fetchFailure(t *testing.T) {
	f := newServiceFixture(t, datasetBody("2025-08-01"), datasetBody("2025-07-01"))

	// Point the approved feed at a dead port; the short deadline cuts the
	// retry backoff so the run fails quickly.
	f.svc.cfg.ApprovedURL = "http://127.0.0.1:1/approved_CRLs.zip"
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	run, err := f.svc.Run(ctx, false)
	if err == nil {
		t.Fatal("expected error")
	}
	if run == nil || run.Status != "failed" {
		t.Fatalf("run = %+v", run)
	}
	if run.Error == "" {
		t.Error("Error not recorded on failed run")
	}
}

func TestService_ImportDir(t *testing.T) {
	f := newServiceFixture(t, datasetBody("2025-08-01"), datasetBody("2025-07-01"))
	ctx := context.Background()

	dir := t.TempDir()
	write := func(name, body string) {
		t.Helper()
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write("a.txt", "Dear Sponsor, we identified deficiencies in the application.")
	write("notes.md", "Complete response letter regarding manufacturing issues.")
	write("sub/c.txt", "Dear Sponsor, the facility inspection found violations.")
	write("ignore.bin", "binary payload")
	write("broken.docx", "not a zip archive")

	run, err := f.svc.ImportDir(ctx, dir)
	if err != nil {
		t.Fatal(err)
	}
	if run.Source != "local" || run.Status != "completed" {
		t.Errorf("run = %+v", run)
	}
	if run.RecordsTotal != 4 {
		t.Errorf("RecordsTotal = %d, want 4 importable files", run.RecordsTotal)
	}
	if run.RecordsNew != 3 || run.RecordsFailed != 1 {
		t.Errorf("new = %d failed = %d", run.RecordsNew, run.RecordsFailed)
	}

	ids, err := f.store.CRLIDs(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 3 {
		t.Fatalf("stored %d records, want 3", len(ids))
	}
	for _, id := range ids {
		if !strings.HasPrefix(id, "local:") {
			t.Errorf("id %q missing local prefix", id)
		}
	}

	var found bool
	for _, id := range ids {
		crl, err := f.store.GetCRL(ctx, id)
		if err != nil {
			t.Fatal(err)
		}
		if crl.ApprovalStatus != "unknown" {
			t.Errorf("ApprovalStatus = %q, want unknown", crl.ApprovalStatus)
		}
		if crl.SourceFile == "a.txt" {
			found = true
			if !strings.Contains(crl.LetterText, "deficiencies") {
				t.Errorf("LetterText = %q", crl.LetterText)
			}
		}
	}
	if !found {
		t.Error("a.txt not imported")
	}

	count, _ := f.index.DocCount()
	if count != 3 {
		t.Errorf("DocCount = %d, want 3", count)
	}

	// Re-importing the same directory changes nothing.
	rerun, err := f.svc.ImportDir(ctx, dir)
	if err != nil {
		t.Fatal(err)
	}
	if rerun.RecordsNew != 0 || rerun.RecordsUnchanged != 3 {
		t.Errorf("rerun counts = %+v", rerun)
	}
}
