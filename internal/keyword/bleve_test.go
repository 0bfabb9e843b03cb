package keyword

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func newTestIndex(t *testing.T) *BleveIndex {
	t.Helper()
	idx, err := NewBleveIndex(filepath.Join(t.TempDir(), "bleve"))
	if err != nil {
		t.Fatalf("NewBleveIndex: %v", err)
	}
	t.Cleanup(func() {
		_ = idx.Close()
	})
	return idx
}

func TestBleveIndex_SearchFindsLetterText(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	docID := "NDA-212345_2021-03-15"
	doc := &Doc{
		ApplicationNumber: "NDA-212345",
		CompanyName:       "Acme Pharmaceuticals",
		ProductName:       "Acmezol",
		Text:              "We have completed our review. Deficiencies in the sterility assurance program were identified.",
	}
	if err := idx.Index(ctx, docID, doc); err != nil {
		t.Fatalf("Index: %v", err)
	}

	hits, total, err := idx.Search(ctx, "sterility", 10, 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if total != 1 || len(hits) != 1 {
		t.Fatalf("Search sterility: total=%d hits=%d, want 1/1", total, len(hits))
	}
	if hits[0].ID != docID {
		t.Errorf("hit ID = %q, want %q", hits[0].ID, docID)
	}
	if hits[0].Score <= 0 {
		t.Errorf("hit score = %f, want > 0", hits[0].Score)
	}

	// Queries are lowercased by the analyzer.
	if _, total, err = idx.Search(ctx, "Sterility", 10, 0); err != nil || total != 1 {
		t.Errorf("Search Sterility: total=%d err=%v, want 1/nil", total, err)
	}

	// Standard analyzer does not stem, so the singular form of an indexed
	// plural does not match.
	if _, total, err = idx.Search(ctx, "deficiency", 10, 0); err != nil || total != 0 {
		t.Errorf("Search deficiency: total=%d err=%v, want 0/nil", total, err)
	}
}

func TestBleveIndex_SearchCoversAllFields(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	docID := "BLA-761234_2022-07-01"
	doc := &Doc{
		ApplicationNumber:   "BLA-761234",
		CompanyName:         "Zenith Biologics",
		ProductName:         "Cardiomax",
		TherapeuticCategory: "cardiology",
		DeficiencyReason:    "immunogenicity concerns",
		Summary:             "FDA cited unresolved bioburden excursions at the drug substance facility.",
		Text:                "The stability data provided do not support the proposed shelf life.",
	}
	if err := idx.Index(ctx, docID, doc); err != nil {
		t.Fatalf("Index: %v", err)
	}

	queries := []struct {
		field string
		query string
	}{
		{"application_number", "761234"},
		{"company_name", "zenith"},
		{"product_name", "cardiomax"},
		{"therapeutic_category", "cardiology"},
		{"deficiency_reason", "immunogenicity"},
		{"summary", "bioburden"},
		{"text", "stability"},
	}
	for _, tt := range queries {
		t.Run(tt.field, func(t *testing.T) {
			hits, total, err := idx.Search(ctx, tt.query, 10, 0)
			if err != nil {
				t.Fatalf("Search %q: %v", tt.query, err)
			}
			if total != 1 || len(hits) != 1 || hits[0].ID != docID {
				t.Errorf("Search %q: total=%d hits=%d, want the letter", tt.query, total, len(hits))
			}
		})
	}
}

func TestBleveIndex_SearchPaging(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		doc := &Doc{
			CompanyName: "Company " + id,
			Text:        "The recall procedures were found inadequate.",
		}
		if err := idx.Index(ctx, id, doc); err != nil {
			t.Fatalf("Index %s: %v", id, err)
		}
	}

	page1, total, err := idx.Search(ctx, "recall", 2, 0)
	if err != nil {
		t.Fatalf("Search page 1: %v", err)
	}
	if total != 3 {
		t.Errorf("total = %d, want 3", total)
	}
	if len(page1) != 2 {
		t.Fatalf("page 1 has %d hits, want 2", len(page1))
	}

	page2, total, err := idx.Search(ctx, "recall", 2, 2)
	if err != nil {
		t.Fatalf("Search page 2: %v", err)
	}
	if total != 3 {
		t.Errorf("page 2 total = %d, want 3", total)
	}
	if len(page2) != 1 {
		t.Fatalf("page 2 has %d hits, want 1", len(page2))
	}

	seen := map[string]bool{}
	for _, h := range append(page1, page2...) {
		if seen[h.ID] {
			t.Errorf("hit %q returned on both pages", h.ID)
		}
		seen[h.ID] = true
	}
	if len(seen) != 3 {
		t.Errorf("pages covered %d distinct letters, want 3", len(seen))
	}
}

func TestBleveIndex_IndexBatch(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	docs := map[string]*Doc{
		"NDA-1_2020-01-01": {CompanyName: "Alpha Labs", Text: "clinical hold issues"},
		"NDA-2_2020-02-01": {CompanyName: "Beta Pharma", Text: "labeling revisions required"},
		"NDA-3_2020-03-01": {CompanyName: "Gamma Bio", Text: "facility inspection findings"},
	}
	if err := idx.IndexBatch(ctx, docs); err != nil {
		t.Fatalf("IndexBatch: %v", err)
	}

	count, err := idx.DocCount()
	if err != nil {
		t.Fatalf("DocCount: %v", err)
	}
	if count != 3 {
		t.Errorf("DocCount = %d, want 3", count)
	}

	hits, _, err := idx.Search(ctx, "labeling", 10, 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 || hits[0].ID != "NDA-2_2020-02-01" {
		t.Errorf("Search labeling = %v, want NDA-2_2020-02-01", hits)
	}
}

func TestBleveIndex_Delete(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	doc := &Doc{CompanyName: "Acme", Text: "onlyinthisletter"}
	if err := idx.Index(ctx, "doc1", doc); err != nil {
		t.Fatalf("Index: %v", err)
	}

	if err := idx.Delete(ctx, "doc1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	hits, total, err := idx.Search(ctx, "onlyinthisletter", 10, 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if total != 0 || len(hits) != 0 {
		t.Errorf("after delete: total=%d hits=%d, want 0/0", total, len(hits))
	}
}

func TestBleveIndex_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	indexPath := filepath.Join(dir, "bleve")

	idx1, err := NewBleveIndex(indexPath)
	if err != nil {
		t.Fatalf("NewBleveIndex: %v", err)
	}
	ctx := context.Background()
	doc := &Doc{CompanyName: "Acme", Text: "persistedmarker"}
	if err := idx1.Index(ctx, "doc1", doc); err != nil {
		t.Fatalf("Index: %v", err)
	}
	if err := idx1.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// Reopening keeps previously indexed letters so restarts do not force
	// a rebuild.
	idx2, err := NewBleveIndex(indexPath)
	if err != nil {
		t.Fatalf("NewBleveIndex (reopen): %v", err)
	}
	defer func() {
		_ = idx2.Close()
	}()

	hits, total, err := idx2.Search(ctx, "persistedmarker", 10, 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if total != 1 || len(hits) != 1 || hits[0].ID != "doc1" {
		t.Errorf("after reopen: total=%d hits=%d, want the persisted letter", total, len(hits))
	}
}

func TestNewBleveIndex_createsDir(t *testing.T) {
	dir := t.TempDir()
	indexPath := filepath.Join(dir, "sub", "bleve")

	idx, err := NewBleveIndex(indexPath)
	if err != nil {
		t.Fatalf("NewBleveIndex: %v", err)
	}
	_ = idx.Close()

	if _, err := os.Stat(indexPath); err != nil {
		t.Errorf("index path should exist: %v", err)
	}
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"lowercases", "Clinical TRIAL Data", []string{"clinical", "trial", "data"}},
		{"collapses whitespace", "  sterility   assurance  ", []string{"sterility", "assurance"}},
		{"empty", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.query)
			if len(got) != len(tt.want) {
				t.Fatalf("Tokenize(%q) = %v, want %v", tt.query, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Tokenize(%q)[%d] = %q, want %q", tt.query, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestBleveIndex_TermDictionary(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	docs := map[string]*Doc{
		"doc1": {
			CompanyName:         "Acme Pharmaceuticals",
			ProductName:         "Acmezol",
			TherapeuticCategory: "oncology",
			Text:                "sterility failures were observed",
		},
		"doc2": {
			CompanyName: "Zenith Biologics",
			Text:        "sterility concerns remain",
		},
	}
	if err := idx.IndexBatch(ctx, docs); err != nil {
		t.Fatalf("IndexBatch: %v", err)
	}

	terms, err := idx.GetAllTerms()
	if err != nil {
		t.Fatalf("GetAllTerms: %v", err)
	}
	termSet := make(map[string]bool, len(terms))
	for _, term := range terms {
		termSet[term] = true
	}
	for _, want := range []string{"sterility", "acme", "acmezol", "zenith"} {
		if !termSet[want] {
			t.Errorf("GetAllTerms missing %q", want)
		}
	}
	// Category terms are not part of the spell-check vocabulary.
	if termSet["oncology"] {
		t.Error("GetAllTerms should not include therapeutic category terms")
	}

	freq, err := idx.GetTermFrequency("sterility")
	if err != nil {
		t.Fatalf("GetTermFrequency: %v", err)
	}
	if freq != 2 {
		t.Errorf("GetTermFrequency(sterility) = %d, want 2", freq)
	}

	ok, err := idx.ContainsTerm("sterility")
	if err != nil || !ok {
		t.Errorf("ContainsTerm(sterility) = %v/%v, want true", ok, err)
	}
	ok, err = idx.ContainsTerm("zzznope")
	if err != nil || ok {
		t.Errorf("ContainsTerm(zzznope) = %v/%v, want false", ok, err)
	}
}
