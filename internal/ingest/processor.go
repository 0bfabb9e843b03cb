// Package ingest provides record processing for the FDA CRL bulk dataset.
package ingest

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/armish/crl.help/internal/models"
)

// Feed is one labeled set of dataset records, e.g. the approved or the
// unapproved bulk file.
type Feed struct {
	Label   string
	Records []Record
}

// Processor turns raw dataset records into letter rows with stable ids.
type Processor struct {
	logger *zap.Logger
}

// NewProcessor creates a record processor.
func NewProcessor(logger *zap.Logger) *Processor {
	return &Processor{logger: logger}
}

// Process converts the feeds' records into letter rows. Ids combine the
// first application number with the letter date; colliding ids within the
// dataset get a suffix derived from the source file name, so processing the
// same dataset always yields the same ids.
func (p *Processor) Process(feeds ...Feed) []*models.CRL {
	total := 0
	for _, feed := range feeds {
		total += len(feed.Records)
	}
	used := make(map[string]struct{}, total)
	crls := make([]*models.CRL, 0, total)

	done := 0
	for _, feed := range feeds {
		for i := range feed.Records {
			rec := &feed.Records[i]

			id := baseID(rec.ApplicationNumber, rec.LetterDate)
			if _, taken := used[id]; taken {
				withHash := id + "_" + md5Hex(rec.FileName)[:6]
				id = withHash
				for n := 1; ; n++ {
					if _, stillTaken := used[id]; !stillTaken {
						break
					}
					id = fmt.Sprintf("%s_%d", withHash, n)
				}
			}
			used[id] = struct{}{}

			crls = append(crls, p.recordToCRL(rec, id, feed.Label))

			done++
			if done%50 == 0 {
				p.logger.Debug("parsed records", zap.Int("done", done), zap.Int("total", total))
			}
		}
	}
	p.logger.Info("parsed dataset records", zap.Int("records", len(crls)))
	return crls
}

func (p *Processor) recordToCRL(rec *Record, id, feedLabel string) *models.CRL {
	isoDate := ""
	if rec.LetterDate != "" {
		d, err := ParseDate(rec.LetterDate)
		if err != nil {
			p.logger.Warn("unparseable letter date",
				zap.String("id", id), zap.String("letter_date", rec.LetterDate))
		} else {
			isoDate = d
		}
	}

	status := rec.ApprovalStatus
	if status == "" {
		status = feedLabel
	}

	return &models.CRL{
		ID:                id,
		ApplicationNumber: strings.Join(rec.ApplicationNumber, ", "),
		CompanyName:       rec.CompanyName,
		LetterDate:        isoDate,
		LetterYear:        letterYear(rec, isoDate),
		ApplicationType:   applicationType(rec.ApplicationNumber),
		LetterType:        rec.LetterType,
		ApprovalStatus:    status,
		ApproverCenter:    strings.Join(rec.ApproverCenter, ", "),
		ApproverName:      rec.ApproverName,
		LetterText:        rec.Text,
		SourceFile:        rec.FileName,
	}
}

// ParseDate normalizes the date formats that appear in the dataset,
// MM/DD/YYYY and YYYYMMDD, to ISO YYYY-MM-DD.
func ParseDate(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	switch {
	case strings.Contains(raw, "/"):
		t, err := time.Parse("1/2/2006", raw)
		if err != nil {
			return "", fmt.Errorf("parse date %q: %w", raw, err)
		}
		return t.Format("2006-01-02"), nil
	case len(raw) == 8 && isDigits(raw):
		t, err := time.Parse("20060102", raw)
		if err != nil {
			return "", fmt.Errorf("parse date %q: %w", raw, err)
		}
		return t.Format("2006-01-02"), nil
	default:
		return "", fmt.Errorf("unrecognized date format %q", raw)
	}
}

// baseID builds the canonical letter id: the first application number with
// spaces and hyphens stripped, an underscore, and the date as YYYYMMDD.
// Unparseable dates fall back to a hash so the id stays stable.
func baseID(appNums []string, letterDate string) string {
	appNum := "UNKNOWN"
	if len(appNums) > 0 && appNums[0] != "" {
		appNum = appNums[0]
	}
	appNum = strings.NewReplacer(" ", "", "-", "").Replace(appNum)

	var dateStr string
	switch {
	case strings.Contains(letterDate, "/"):
		if t, err := time.Parse("1/2/2006", letterDate); err == nil {
			dateStr = t.Format("20060102")
		} else {
			dateStr = md5Hex(letterDate)[:8]
		}
	case len(letterDate) == 8 && isDigits(letterDate):
		dateStr = letterDate
	default:
		dateStr = md5Hex(letterDate)[:8]
	}

	return appNum + "_" + dateStr
}

var appTypeRe = regexp.MustCompile(`^[A-Z]+`)

// applicationType derives the application class (NDA, BLA, ANDA, ...) from
// the leading letters of the first application number.
func applicationType(appNums []string) string {
	if len(appNums) == 0 {
		return ""
	}
	return appTypeRe.FindString(strings.TrimSpace(appNums[0]))
}

// letterYear prefers the record's own year field and falls back to the
// parsed letter date.
func letterYear(rec *Record, isoDate string) int {
	if y, err := strconv.Atoi(strings.TrimSpace(rec.LetterYear)); err == nil && y > 0 {
		return y
	}
	if len(isoDate) >= 4 {
		if y, err := strconv.Atoi(isoDate[:4]); err == nil {
			return y
		}
	}
	return 0
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func md5Hex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}
