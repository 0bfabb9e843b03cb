package server

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/armish/crl.help/internal/ai"
	"github.com/armish/crl.help/internal/config"
	"github.com/armish/crl.help/internal/keyword"
	"github.com/armish/crl.help/internal/metrics"
	"github.com/armish/crl.help/internal/models"
	"github.com/armish/crl.help/internal/rag"
	"github.com/armish/crl.help/internal/search"
	"github.com/armish/crl.help/internal/storage"
)

type fixture struct {
	srv      *Server
	store    storage.Storage
	index    *keyword.BleveIndex
	provider ai.Provider
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewSQLiteStorage(filepath.Join(dir, "crl.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	index, err := keyword.NewBleveIndex(filepath.Join(dir, "bleve"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { index.Close() })

	logger := zap.NewNop()
	provider := ai.NewFakeProvider(32)
	cfg := &config.Config{
		Server: config.ServerConfig{Host: "127.0.0.1", Port: 8080},
		AI:     config.AIConfig{RAGTopK: 5, RAGMetric: "cosine"},
		Export: config.ExportConfig{MaxRows: 1000},
	}
	engine, err := rag.NewEngine(store, provider, cfg.AI, logger)
	if err != nil {
		t.Fatal(err)
	}
	searcher := search.NewService(store, index, nil, logger)
	srv := NewServer(store, searcher, engine, metrics.NewCollector(), cfg, logger)
	return &fixture{srv: srv, store: store, index: index, provider: provider}
}

func (f *fixture) do(t *testing.T, method, target string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	w := httptest.NewRecorder()
	f.srv.Router().ServeHTTP(w, req)
	return w
}

// seed loads two letters, one summary, and keyword index entries.
func (f *fixture) seed(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	a := &models.CRL{
		ID:                  "NDA212725_20210305",
		ApplicationNumber:   "NDA 212725",
		CompanyName:         "Acme Pharma",
		LetterDate:          "2021-03-05",
		LetterYear:          2021,
		ApplicationType:     "NDA",
		ApprovalStatus:      "approved",
		TherapeuticCategory: "Small molecules",
		ProductName:         "Acmezumab",
		DeficiencyReason:    "Clinical",
		LetterText:          "We have completed our review and cannot approve this application in its present form. Clinical deficiencies were identified in the pivotal trial.",
	}
	b := &models.CRL{
		ID:                "BLA761234_20220810",
		ApplicationNumber: "BLA 761234",
		CompanyName:       "Beta Biologics",
		LetterDate:        "2022-08-10",
		LetterYear:        2022,
		ApplicationType:   "BLA",
		ApprovalStatus:    "unapproved",
		ProductName:       "Betacept",
		LetterText:        "Manufacturing facility deficiencies must be resolved before this product can be approved.",
	}
	summary := "The FDA cited clinical deficiencies in the pivotal trial."
	for _, crl := range []*models.CRL{a, b} {
		if err := f.store.CreateCRL(ctx, crl); err != nil {
			t.Fatal(err)
		}
	}
	if err := f.store.UpsertSummary(ctx, &models.Summary{CRLID: a.ID, SummaryText: summary, Model: "test"}); err != nil {
		t.Fatal(err)
	}
	if err := f.index.Index(ctx, a.ID, keyword.DocFromCRL(a, summary)); err != nil {
		t.Fatal(err)
	}
	if err := f.index.Index(ctx, b.ID, keyword.DocFromCRL(b, "")); err != nil {
		t.Fatal(err)
	}
}

// seedEmbedding stores a summary-type embedding computed from text.
func (f *fixture) seedEmbedding(t *testing.T, crlID, text string) {
	t.Helper()
	ctx := context.Background()
	vec, err := f.provider.Embed(ctx, text)
	if err != nil {
		t.Fatal(err)
	}
	err = f.store.UpsertEmbedding(ctx, &models.Embedding{
		CRLID:         crlID,
		EmbeddingType: models.EmbeddingTypeSummary,
		Vector:        vec,
		Model:         f.provider.EmbeddingModel(),
		Dimension:     len(vec),
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestHandleHealth(t *testing.T) {
	f := newFixture(t)
	f.seed(t)

	ctx := context.Background()
	finished := time.Now()
	run := &models.IngestionRun{ID: "run-1", Source: "fda-bulk", StartedAt: finished.Add(-time.Minute), Status: "running"}
	if err := f.store.CreateIngestionRun(ctx, run); err != nil {
		t.Fatal(err)
	}
	run.Status = "completed"
	run.FinishedAt = &finished
	run.DatasetUpdated = "2025-07-01"
	if err := f.store.FinishIngestionRun(ctx, run); err != nil {
		t.Fatal(err)
	}

	w := f.do(t, http.MethodGet, "/api/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	var out models.HealthStatus
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.Status != "healthy" || out.Database != "connected" {
		t.Errorf("health: %+v", out)
	}
	if out.TotalCRLs != 2 || out.TotalSummaries != 1 {
		t.Errorf("counts: %+v", out)
	}
	if out.LastDataUpdate != "2025-07-01" {
		t.Errorf("last update: got %q", out.LastDataUpdate)
	}
}

func TestHandleHealth_databaseDown(t *testing.T) {
	f := newFixture(t)
	// Closing the store makes every count query fail.
	if err := f.store.Close(); err != nil {
		t.Fatal(err)
	}
	w := f.do(t, http.MethodGet, "/api/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	var out models.HealthStatus
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.Status != "unhealthy" || out.Database != "error" || out.TotalCRLs != 0 {
		t.Errorf("degraded health: %+v", out)
	}
}

func TestHandleListCRLs(t *testing.T) {
	f := newFixture(t)
	f.seed(t)

	w := f.do(t, http.MethodGet, "/api/crls", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	var out models.CRLList
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.Total != 2 || len(out.Items) != 2 || out.HasMore {
		t.Errorf("list: total=%d items=%d has_more=%v", out.Total, len(out.Items), out.HasMore)
	}
	// Default order is letter_date descending.
	if out.Items[0].ID != "BLA761234_20220810" {
		t.Errorf("first item: got %s", out.Items[0].ID)
	}

	w = f.do(t, http.MethodGet, "/api/crls?limit=1", nil)
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if len(out.Items) != 1 || !out.HasMore {
		t.Errorf("paged list: items=%d has_more=%v", len(out.Items), out.HasMore)
	}

	w = f.do(t, http.MethodGet, "/api/crls?approval_status=approved", nil)
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.Total != 1 || out.Items[0].CompanyName != "Acme Pharma" {
		t.Errorf("filtered list: %+v", out)
	}
}

func TestHandleListCRLs_badParams(t *testing.T) {
	f := newFixture(t)
	for _, target := range []string{
		"/api/crls?limit=abc",
		"/api/crls?sort_by=drop_table",
		"/api/crls?approval_status=maybe",
	} {
		w := f.do(t, http.MethodGet, target, nil)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: got %d, want 400", target, w.Code)
		}
	}
}

func TestHandleGetCRL(t *testing.T) {
	f := newFixture(t)
	f.seed(t)

	w := f.do(t, http.MethodGet, "/api/crls/NDA212725_20210305", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	var out models.CRLDetail
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.CRL == nil || out.CRL.CompanyName != "Acme Pharma" {
		t.Fatalf("detail: %+v", out)
	}
	if out.CRL.LetterText != "" {
		t.Error("detail should not carry the full letter text")
	}
	if out.Summary == nil || !strings.Contains(out.Summary.SummaryText, "clinical deficiencies") {
		t.Errorf("summary: %+v", out.Summary)
	}

	// The second letter has no summary yet.
	w = f.do(t, http.MethodGet, "/api/crls/BLA761234_20220810", nil)
	out = models.CRLDetail{}
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.Summary != nil {
		t.Errorf("unexpected summary: %+v", out.Summary)
	}
}

func TestHandleGetCRL_notFound(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, http.MethodGet, "/api/crls/missing", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want 404", w.Code)
	}
}

func TestHandleGetCRLText(t *testing.T) {
	f := newFixture(t)
	f.seed(t)

	w := f.do(t, http.MethodGet, "/api/crls/NDA212725_20210305/text", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	var out models.CRL
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.LetterText, "cannot approve") {
		t.Errorf("letter text: got %q", out.LetterText)
	}

	w = f.do(t, http.MethodGet, "/api/crls/missing/text", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want 404", w.Code)
	}
}

func TestHandleSearch(t *testing.T) {
	f := newFixture(t)
	f.seed(t)

	w := f.do(t, http.MethodGet, "/api/search?q=clinical", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	var out models.SearchResponse
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.Total != 1 || len(out.Results) != 1 {
		t.Fatalf("search: total=%d results=%d", out.Total, len(out.Results))
	}
	if out.Results[0].ID != "NDA212725_20210305" {
		t.Errorf("hit: got %s", out.Results[0].ID)
	}
	if len(out.Results[0].MatchedFields) == 0 {
		t.Error("expected matched fields")
	}
}

func TestHandleSearch_emptyQuery(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, http.MethodGet, "/api/search", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", w.Code)
	}
}

func TestHandleStatsOverview(t *testing.T) {
	f := newFixture(t)
	f.seed(t)

	w := f.do(t, http.MethodGet, "/api/stats/overview", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	var out models.StatsOverview
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.TotalCRLs != 2 || out.TotalSummaries != 1 {
		t.Errorf("totals: %+v", out)
	}
	if len(out.ByYear) != 2 || out.ByYear[0].Label != "2022" {
		t.Errorf("by year: %+v", out.ByYear)
	}
}

func TestHandleCompanyStats(t *testing.T) {
	f := newFixture(t)
	f.seed(t)

	w := f.do(t, http.MethodGet, "/api/stats/companies", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	var out models.CompanyList
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.TotalCompanies != 2 || len(out.Companies) != 2 {
		t.Fatalf("companies: %+v", out)
	}
	// Ties on letter count break alphabetically.
	if out.Companies[0].CompanyName != "Acme Pharma" {
		t.Errorf("top company: got %s", out.Companies[0].CompanyName)
	}
}

func TestHandleExportCSV(t *testing.T) {
	f := newFixture(t)
	f.seed(t)

	w := f.do(t, http.MethodGet, "/api/export/csv?approval_status=approved", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/csv" {
		t.Errorf("content type: got %q", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.HasPrefix(cd, "attachment; filename=crl_export_") {
		t.Errorf("content disposition: got %q", cd)
	}
	rows, err := csv.NewReader(w.Body).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows: got %d, want header plus one letter", len(rows))
	}
	if rows[1][2] != "Acme Pharma" {
		t.Errorf("company cell: got %q", rows[1][2])
	}
}

func TestHandleExportCSV_includeSummary(t *testing.T) {
	f := newFixture(t)
	f.seed(t)

	w := f.do(t, http.MethodGet, "/api/export/csv?include_summary=true", nil)
	rows, err := csv.NewReader(w.Body).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows[0]) != 15 || rows[0][14] != "Executive summary" {
		t.Fatalf("header: %v", rows[0])
	}
	// Default order puts the 2022 letter first; only the 2021 one has a summary.
	if rows[1][14] != "" || rows[2][14] == "" {
		t.Errorf("summary cells: %q / %q", rows[1][14], rows[2][14])
	}
}

func TestHandleExport_noMatches(t *testing.T) {
	f := newFixture(t)
	f.seed(t)

	w := f.do(t, http.MethodGet, "/api/export/csv?letter_year=1999", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want 404", w.Code)
	}
}

func TestHandleExportExcel(t *testing.T) {
	f := newFixture(t)
	f.seed(t)

	w := f.do(t, http.MethodGet, "/api/export/excel", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	want := "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	if ct := w.Header().Get("Content-Type"); ct != want {
		t.Errorf("content type: got %q", ct)
	}
	book, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	defer book.Close()
	rows, err := book.GetRows("CRL Export")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows: got %d", len(rows))
	}
	if rows[0][0] != "ID" || rows[1][2] != "Beta Biologics" {
		t.Errorf("cells: %v / %v", rows[0][0], rows[1][2])
	}
}

func TestHandleAsk(t *testing.T) {
	f := newFixture(t)
	f.seed(t)
	question := "What are common clinical deficiencies in new drug applications?"
	// Embedding the question text itself makes the first letter the top hit.
	f.seedEmbedding(t, "NDA212725_20210305", question)
	f.seedEmbedding(t, "BLA761234_20220810", "Manufacturing facility deficiencies.")

	body, _ := json.Marshal(models.QARequest{Question: question})
	w := f.do(t, http.MethodPost, "/api/qa", bytes.NewReader(body))
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", w.Code, w.Body.String())
	}
	var out models.QAResponse
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.Question != question {
		t.Errorf("question echo: got %q", out.Question)
	}
	if !strings.HasPrefix(out.Answer, "[DRY-RUN ANSWER]") {
		t.Errorf("answer: got %q", out.Answer)
	}
	if len(out.RelevantCRLs) != 2 || out.RelevantCRLs[0].ID != "NDA212725_20210305" {
		t.Errorf("relevant letters: %+v", out.RelevantCRLs)
	}
	if out.Confidence <= 0 || out.Confidence > 1 {
		t.Errorf("confidence: got %v", out.Confidence)
	}
}

func TestHandleAsk_validation(t *testing.T) {
	f := newFixture(t)

	body, _ := json.Marshal(models.QARequest{Question: "hi"})
	w := f.do(t, http.MethodPost, "/api/qa", bytes.NewReader(body))
	if w.Code != http.StatusBadRequest {
		t.Errorf("short question: got %d, want 400", w.Code)
	}

	w = f.do(t, http.MethodPost, "/api/qa", strings.NewReader("{not json"))
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad body: got %d, want 400", w.Code)
	}
}

func TestHandleAsk_aiDisabled(t *testing.T) {
	f := newFixture(t)
	srv := NewServer(f.store, nil, nil, metrics.NewCollector(), f.srv.config, zap.NewNop())

	body, _ := json.Marshal(models.QARequest{Question: "What are common deficiencies?"})
	req := httptest.NewRequest(http.MethodPost, "/api/qa", bytes.NewReader(body))
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("qa: got %d, want 503", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/qa/history", nil)
	w = httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("history: got %d, want 503", w.Code)
	}
}

func TestHandleQAHistory(t *testing.T) {
	f := newFixture(t)
	f.seed(t)
	question := "What are common clinical deficiencies in new drug applications?"
	f.seedEmbedding(t, "NDA212725_20210305", question)

	body, _ := json.Marshal(models.QARequest{Question: question})
	if w := f.do(t, http.MethodPost, "/api/qa", bytes.NewReader(body)); w.Code != http.StatusOK {
		t.Fatalf("ask: got %d", w.Code)
	}

	w := f.do(t, http.MethodGet, "/api/qa/history", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	var out models.QAHistory
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.Total != 1 || len(out.Items) != 1 {
		t.Fatalf("history: %+v", out)
	}
	if out.Items[0].Question != question {
		t.Errorf("recorded question: got %q", out.Items[0].Question)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t)
	// One instrumented request so the counter family exists.
	f.do(t, http.MethodGet, "/api/health", nil)

	w := f.do(t, http.MethodGet, "/metrics", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "crlhelp_requests_total") {
		t.Error("expected request counter in metrics output")
	}
}
