package ai

import (
	"fmt"
	"strings"

	"github.com/armish/crl.help/pkg/utils"
)

// ContextBlock is one retrieved letter presented to the model as grounding
// for an answer.
type ContextBlock struct {
	ApplicationNumber string
	CompanyName       string
	LetterDate        string
	Text              string
}

// maxBlockChars caps the letter text quoted per context block so a handful
// of letters fit in the prompt together.
const maxBlockChars = 3000

const summarySystemPrompt = "You are an expert in pharmaceutical regulatory affairs, " +
	"specializing in analyzing FDA Complete Response Letters. " +
	"Your summaries are clear, concise, and highlight key deficiencies. " +
	"Your one-paragraph summary will be read by an executive who wants " +
	"to extract learnings and cautions for future submissions. " +
	"Answer in markdown format. No headers."

const answerSystemPrompt = "You are an expert assistant specializing in FDA Complete Response Letters. " +
	"Answer questions accurately based on the provided CRL context. " +
	"If the context doesn't contain enough information, say so clearly. " +
	"Always cite which CRL(s) you're referencing in your answer."

// summaryWords is the requested summary length in words.
const summaryWords = 300

func buildSummaryPrompt(letterText string) string {
	return fmt.Sprintf(`Summarize the following FDA Complete Response Letter (CRL) in approximately %d words or less.

Focus on:
1. The main deficiencies or issues identified by the FDA
2. Which areas were problematic (e.g., clinical data, manufacturing, labeling)
3. Any specific actions required from the applicant

CRL Text:
%s

Provide a clear, concise summary that captures the essential points:`, summaryWords, letterText)
}

func buildAnswerPrompt(question string, blocks []ContextBlock) string {
	parts := make([]string, 0, len(blocks))
	for i, b := range blocks {
		parts = append(parts, fmt.Sprintf("[CRL #%d]\nApplication: %s\nCompany: %s\nDate: %s\nContent: %s\n",
			i+1,
			orNA(b.ApplicationNumber), orNA(b.CompanyName), orNA(b.LetterDate),
			utils.TruncateMarker(b.Text, maxBlockChars, "...[truncated]")))
	}
	context := strings.Join(parts, "\n\n")

	return fmt.Sprintf(`Based on the following Complete Response Letters (CRLs), please answer this question:

Question: %s

Context from relevant CRLs:
%s

Please provide a clear and accurate answer based on the CRL context above. If the CRLs don't contain enough information to answer the question fully, acknowledge this limitation. Reference specific CRLs (by number) when making claims.`, question, context)
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
