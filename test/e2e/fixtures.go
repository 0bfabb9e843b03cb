// Package e2e provides end-to-end tests; this file fabricates the bulk
// dataset feed files and minimal letter files for supported formats.
package e2e

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// FeedLastUpdated is the dataset export date stamped on fabricated feeds.
const FeedLastUpdated = "2025-07-01"

// feedRecord mirrors the record layout of the FDA bulk JSON files. The
// approval_status field is deliberately omitted so loading falls back to
// the feed label, as it does for the published files.
type feedRecord struct {
	ApplicationNumber []string `json:"application_number"`
	LetterDate        string   `json:"letter_date"`
	LetterYear        string   `json:"letter_year"`
	CompanyName       string   `json:"company_name"`
	FileName          string   `json:"file_name"`
	Text              string   `json:"text"`
}

type feedPayload struct {
	Meta struct {
		LastUpdated string `json:"last_updated"`
	} `json:"meta"`
	Results []feedRecord `json:"results"`
}

// WriteFeedFiles writes approved.json and unapproved.json into dir, in the
// extracted-payload form the dataset loader caches, so an ingestion run with
// the cache flag set reads them without any network access.
func WriteFeedFiles(dir string, c *Corpus) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	feeds := []struct {
		name    string
		letters []Letter
	}{
		{"approved.json", c.Approved()},
		{"unapproved.json", c.Unapproved()},
	}
	for _, feed := range feeds {
		var payload feedPayload
		payload.Meta.LastUpdated = FeedLastUpdated
		for _, l := range feed.letters {
			payload.Results = append(payload.Results, feedRecord{
				ApplicationNumber: []string{l.AppNumber},
				LetterDate:        l.LetterDate,
				LetterYear:        letterYearString(l.LetterDate),
				CompanyName:       l.Company,
				FileName:          l.FileName,
				Text:              l.Text,
			})
		}
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", feed.name, err)
		}
		if err := os.WriteFile(filepath.Join(dir, feed.name), data, 0644); err != nil {
			return fmt.Errorf("write %s: %w", feed.name, err)
		}
	}
	return nil
}

func letterYearString(letterDate string) string {
	t, err := time.Parse("1/2/2006", letterDate)
	if err != nil {
		return ""
	}
	return t.Format("2006")
}

// SupportedLetterExtensions is the list of file extensions used in the
// file-based e2e tests: plain text (.txt, .md) and OOXML (.docx). The
// extractor also supports .pdf, .odt, and .rtf; PDF is not generated here
// (no minimal PDF with extractable text), and .odt/.rtf extraction needs a
// real file on disk rather than fabricated bytes.
var SupportedLetterExtensions = []string{".txt", ".md", ".docx"}

// WriteMinimalLetter returns the bytes of a minimal letter file of the given
// extension carrying the given text (caller writes the file). For plain
// types the content is the raw text; for .docx it is the file bytes.
func WriteMinimalLetter(ext, text string) ([]byte, error) {
	switch ext {
	case ".txt", ".md":
		return []byte(text), nil
	case ".docx":
		return minimalDocx(text), nil
	default:
		return nil, fmt.Errorf("unsupported letter extension %q", ext)
	}
}

func minimalDocx(text string) []byte {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	fw, _ := w.Create("word/document.xml")
	_, _ = fw.Write([]byte(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body><w:p><w:r><w:t>` + text + `</w:t></w:r></w:p></w:body></w:document>`))
	_ = w.Close()
	return buf.Bytes()
}
