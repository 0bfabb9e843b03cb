// Package export renders letter data as downloadable CSV and Excel files.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/armish/crl.help/internal/models"
)

// sheetName is the single worksheet written into Excel exports.
const sheetName = "CRL Export"

// summaryHeader labels the optional executive summary column.
const summaryHeader = "Executive summary"

// column pairs a spreadsheet header with the letter field it renders.
type column struct {
	header string
	value  func(crl *models.CRL) string
}

var columns = []column{
	{"ID", func(c *models.CRL) string { return c.ID }},
	{"Application Number", func(c *models.CRL) string { return c.ApplicationNumber }},
	{"Company Name", func(c *models.CRL) string { return c.CompanyName }},
	{"Letter Date", func(c *models.CRL) string { return c.LetterDate }},
	{"Letter Year", func(c *models.CRL) string { return formatYear(c.LetterYear) }},
	{"Application Type", func(c *models.CRL) string { return c.ApplicationType }},
	{"Letter Type", func(c *models.CRL) string { return c.LetterType }},
	{"Approval Status", func(c *models.CRL) string { return c.ApprovalStatus }},
	{"Therapeutic Category", func(c *models.CRL) string { return c.TherapeuticCategory }},
	{"Product Name", func(c *models.CRL) string { return c.ProductName }},
	{"Indications", func(c *models.CRL) string { return c.Indications }},
	{"Deficiency Reason", func(c *models.CRL) string { return c.DeficiencyReason }},
	{"Approver Center", func(c *models.CRL) string { return c.ApproverCenter }},
	{"Approver Name", func(c *models.CRL) string { return c.ApproverName }},
}

// Headers returns the column headers of an export, in output order.
func Headers(includeSummary bool) []string {
	headers := make([]string, 0, len(columns)+1)
	for _, col := range columns {
		headers = append(headers, col.header)
	}
	if includeSummary {
		headers = append(headers, summaryHeader)
	}
	return headers
}

// Filename returns a timestamped download name such as
// crl_export_20250814_153045.csv.
func Filename(ext string) string {
	return "crl_export_" + time.Now().Format("20060102_150405") + "." + ext
}

// WriteCSV writes the letters to w as CSV, one row per letter.
func WriteCSV(w io.Writer, crls []*models.CRL, summaries map[string]*models.Summary, includeSummary bool) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Headers(includeSummary)); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, crl := range crls {
		if err := cw.Write(rowValues(crl, summaries, includeSummary)); err != nil {
			return fmt.Errorf("failed to write csv row for %s: %w", crl.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteExcel writes the letters to w as an xlsx workbook with a styled,
// frozen header row.
func WriteExcel(w io.Writer, crls []*models.CRL, summaries map[string]*models.Summary, includeSummary bool) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"366092"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	headers := Headers(includeSummary)
	for i, header := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return fmt.Errorf("failed to locate header cell: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			return fmt.Errorf("failed to write header cell %s: %w", cell, err)
		}
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return fmt.Errorf("failed to name column %d: %w", i+1, err)
		}
		if err := f.SetColWidth(sheetName, col, col, columnWidth(header)); err != nil {
			return fmt.Errorf("failed to size column %s: %w", col, err)
		}
	}
	lastHeader, err := excelize.CoordinatesToCellName(len(headers), 1)
	if err != nil {
		return fmt.Errorf("failed to locate header range: %w", err)
	}
	if err := f.SetCellStyle(sheetName, "A1", lastHeader, headerStyle); err != nil {
		return fmt.Errorf("failed to style header row: %w", err)
	}

	for i, crl := range crls {
		for j, value := range rowValues(crl, summaries, includeSummary) {
			cell, err := excelize.CoordinatesToCellName(j+1, i+2)
			if err != nil {
				return fmt.Errorf("failed to locate cell: %w", err)
			}
			if err := f.SetCellValue(sheetName, cell, value); err != nil {
				return fmt.Errorf("failed to write cell %s: %w", cell, err)
			}
		}
	}

	// Keep the header row visible while scrolling.
	if err := f.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("failed to freeze header row: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// rowValues renders one letter as a slice of formatted cell values.
func rowValues(crl *models.CRL, summaries map[string]*models.Summary, includeSummary bool) []string {
	values := make([]string, 0, len(columns)+1)
	for _, col := range columns {
		values = append(values, col.value(crl))
	}
	if includeSummary {
		text := ""
		if s := summaries[crl.ID]; s != nil {
			text = s.SummaryText
		}
		values = append(values, text)
	}
	return values
}

func formatYear(year int) string {
	if year == 0 {
		return ""
	}
	return strconv.Itoa(year)
}

// columnWidth sizes a column from its header, clamped to a readable range.
func columnWidth(header string) float64 {
	w := len(header) + 2
	if w < 12 {
		w = 12
	}
	if w > 50 {
		w = 50
	}
	return float64(w)
}
