package ai

import (
	"strings"
	"testing"
)

func TestBuildSummaryPrompt(t *testing.T) {
	p := buildSummaryPrompt("Dear Sponsor, your application is deficient.")
	if !strings.Contains(p, "Dear Sponsor, your application is deficient.") {
		t.Error("prompt should contain the letter text")
	}
	if !strings.Contains(p, "approximately 300 words") {
		t.Error("prompt should state the target length")
	}
}

func TestBuildAnswerPrompt(t *testing.T) {
	blocks := []ContextBlock{
		{ApplicationNumber: "NDA-123", CompanyName: "Acme Pharma", LetterDate: "2020-06-15", Text: "first letter"},
		{Text: "second letter"},
	}
	p := buildAnswerPrompt("Why do applications fail?", blocks)

	if !strings.Contains(p, "Question: Why do applications fail?") {
		t.Error("prompt should contain the question")
	}
	if !strings.Contains(p, "[CRL #1]") || !strings.Contains(p, "[CRL #2]") {
		t.Error("blocks should be numbered")
	}
	if !strings.Contains(p, "Application: NDA-123") || !strings.Contains(p, "Company: Acme Pharma") {
		t.Error("block header fields missing")
	}
	// empty fields render as N/A
	if !strings.Contains(p, "Application: N/A") || !strings.Contains(p, "Date: N/A") {
		t.Error("missing fields should render as N/A")
	}
}

func TestBuildAnswerPrompt_TruncatesLongLetters(t *testing.T) {
	long := strings.Repeat("x", maxBlockChars+500)
	p := buildAnswerPrompt("q", []ContextBlock{{Text: long}})
	if !strings.Contains(p, "...[truncated]") {
		t.Error("long letter text should carry the truncation marker")
	}
	if strings.Contains(p, long) {
		t.Error("full letter text should not appear")
	}
}
