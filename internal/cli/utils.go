// Package cli renders command output for the crlhelp binary.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/armish/crl.help/internal/enrich"
	"github.com/armish/crl.help/internal/models"
)

// OutputFormat selects how command results are rendered.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseFormat maps a flag value to an OutputFormat.
func ParseFormat(s string) (OutputFormat, error) {
	switch s {
	case "", "text":
		return OutputText, nil
	case "json":
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q; use text or json", s)
	}
}

func writeJSON(w io.Writer, data interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

// WriteSearchResults writes keyword search results to w in the given format.
// Use OutputJSON for parseable output consumable by other apps.
func WriteSearchResults(w io.Writer, response *models.SearchResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, response)
	}
	fmt.Fprintf(w, "\nFound %d results in %dms\n", response.Total, response.QueryTime)
	if len(response.Suggestions) > 0 {
		fmt.Fprintf(w, "Did you mean: %s?\n", strings.Join(response.Suggestions, ", "))
	}
	fmt.Fprintln(w)
	for i, result := range response.Results {
		writeOneResult(w, response.Offset+i+1, result)
	}
	return nil
}

func writeOneResult(w io.Writer, rank int, result *models.SearchResult) {
	fmt.Fprintln(w, "─────────────────────────────────────────────────────────")
	fmt.Fprintf(w, "%d. %s (score %.4f)\n", rank, result.ID, result.Score)
	fmt.Fprintf(w, "   %s", result.CompanyName)
	if result.ProductName != "" {
		fmt.Fprintf(w, " / %s", result.ProductName)
	}
	if result.LetterDate != "" {
		fmt.Fprintf(w, " / %s", result.LetterDate)
	}
	fmt.Fprintln(w)
	for _, field := range result.MatchedFields {
		snip := result.MatchSnippets[field]
		fmt.Fprintf(w, "   [%s] %s%s%s\n", field, snip.Before, snip.Match, snip.After)
	}
	fmt.Fprintln(w)
}

// WriteAnswer writes a generated answer with its supporting letters to w.
func WriteAnswer(w io.Writer, response *models.QAResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, response)
	}
	fmt.Fprintf(w, "\n%s\n\n", response.Answer)
	fmt.Fprintf(w, "Confidence: %.3f (model %s)\n", response.Confidence, response.Model)
	if len(response.RelevantCRLs) > 0 {
		fmt.Fprintln(w, "Sources:")
		for _, crl := range response.RelevantCRLs {
			fmt.Fprintf(w, "  %s  %s", crl.ID, crl.CompanyName)
			if crl.LetterYear > 0 {
				fmt.Fprintf(w, " (%d)", crl.LetterYear)
			}
			fmt.Fprintf(w, "  score %.3f\n", crl.Score)
		}
	}
	return nil
}

// WriteRunSummary writes an ingestion run's counters to w.
func WriteRunSummary(w io.Writer, run *models.IngestionRun, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, run)
	}
	fmt.Fprintf(w, "\nIngestion %s (%s)\n", run.Status, run.Source)
	if run.DatasetUpdated != "" {
		fmt.Fprintf(w, "dataset_updated:    %s\n", run.DatasetUpdated)
	}
	fmt.Fprintf(w, "records_total:      %d\n", run.RecordsTotal)
	fmt.Fprintf(w, "records_new:        %d\n", run.RecordsNew)
	fmt.Fprintf(w, "records_updated:    %d\n", run.RecordsUpdated)
	fmt.Fprintf(w, "records_unchanged:  %d\n", run.RecordsUnchanged)
	fmt.Fprintf(w, "records_failed:     %d\n", run.RecordsFailed)
	return nil
}

// WriteEnrichStats writes one enrichment pass outcome to w.
func WriteEnrichStats(w io.Writer, stage string, stats *enrich.Stats) {
	fmt.Fprintf(w, "%-24s total=%d success=%d failed=%d skipped=%d\n",
		stage+":", stats.Total, stats.Success, stats.Failed, stats.Skipped)
}

// WriteHealth writes service status to w.
func WriteHealth(w io.Writer, health *models.HealthStatus, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, health)
	}
	fmt.Fprintf(w, "status:             %s\n", health.Status)
	fmt.Fprintf(w, "database:           %s\n", health.Database)
	fmt.Fprintf(w, "total_crls:         %d\n", health.TotalCRLs)
	fmt.Fprintf(w, "total_summaries:    %d\n", health.TotalSummaries)
	fmt.Fprintf(w, "total_embeddings:   %d\n", health.TotalEmbeddings)
	if health.LastDataUpdate != "" {
		fmt.Fprintf(w, "last_data_update:   %s\n", health.LastDataUpdate)
	}
	return nil
}
