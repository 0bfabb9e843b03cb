package ai

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/armish/crl.help/pkg/utils"
)

// LetterMetadata holds the model-derived classification of one letter.
type LetterMetadata struct {
	TherapeuticCategory string
	DeficiencyReason    string
	ProductName         string
	Indications         string
}

// TherapeuticCategories are the allowed product classifications.
var TherapeuticCategories = []string{
	"Small molecules",
	"Biologics - proteins",
	"Vaccines",
	"Blood products",
	"Cellular therapies",
	"Gene therapies",
	"Tissue products",
	"Combination products",
	"Devices/IVDs",
	"Other",
}

// DeficiencyReasons are the allowed primary deficiency classifications.
var DeficiencyReasons = []string{
	"Clinical",
	"CMC / Quality",
	"Facilities / GMP",
	"Combination Product / Device",
	"Regulatory / Labeling / Other",
}

const (
	// minSummaryChars is the shortest summary worth classifying.
	minSummaryChars = 50
	// minLetterChars is the shortest letter text worth extracting from.
	minLetterChars = 100
	// metadataTextChars caps the letter text sent for extraction; the
	// product and indication usually appear in the opening paragraphs.
	metadataTextChars = 8000
)

const categorySystemPrompt = "You are an FDA regulatory expert who classifies " +
	"therapeutic products in Complete Response Letters."

const deficiencySystemPrompt = "You are an FDA regulatory expert who classifies " +
	"deficiency reasons in Complete Response Letters."

const productSystemPrompt = "You are an FDA regulatory expert who extracts product " +
	"information from Complete Response Letters. You are precise and only extract " +
	"what is explicitly mentioned."

const indicationsSystemPrompt = "You are an FDA regulatory expert who extracts medical " +
	"indication information from Complete Response Letters. You are precise and only " +
	"extract what is explicitly mentioned."

// ExtractMetadata classifies the letter and pulls product facts from its
// text. Classification works off the summary; without one those fields stay
// empty until a later pass.
func (p *OpenAIProvider) ExtractMetadata(ctx context.Context, letterText, summary string) (*LetterMetadata, error) {
	meta := &LetterMetadata{}

	if len(strings.TrimSpace(summary)) >= minSummaryChars {
		category, err := p.classify(ctx, categorySystemPrompt, buildCategoryPrompt(summary),
			TherapeuticCategories, "Other")
		if err != nil {
			return nil, fmt.Errorf("classify therapeutic category: %w", err)
		}
		meta.TherapeuticCategory = category

		reason, err := p.classify(ctx, deficiencySystemPrompt, buildDeficiencyPrompt(summary),
			DeficiencyReasons, "Regulatory / Labeling / Other")
		if err != nil {
			return nil, fmt.Errorf("classify deficiency reason: %w", err)
		}
		meta.DeficiencyReason = reason
	}

	if len(strings.TrimSpace(letterText)) >= minLetterChars {
		product, err := p.chat(ctx, productSystemPrompt, buildProductNamePrompt(letterText), 0.1, 100)
		if err != nil {
			return nil, fmt.Errorf("extract product name: %w", err)
		}
		meta.ProductName = cleanExtracted(product, "Product name: ", "Product: ")

		indications, err := p.chat(ctx, indicationsSystemPrompt, buildIndicationsPrompt(letterText), 0.1, 150)
		if err != nil {
			return nil, fmt.Errorf("extract indications: %w", err)
		}
		meta.Indications = cleanExtracted(indications, "Indication: ", "Indications: ", "Medical indication: ")
	}

	return meta, nil
}

// classify asks for one of labels and, when the response matches none of
// them, asks once more with the list restated at a lower temperature.
// A response that still matches nothing falls back to the given label.
func (p *OpenAIProvider) classify(ctx context.Context, system, prompt string, labels []string, fallback string) (string, error) {
	first, err := p.chatMessages(ctx, []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: system},
		{Role: openai.ChatMessageRoleUser, Content: prompt},
	}, 0.3, 50)
	if err != nil {
		return "", err
	}
	if label := matchLabel(first, labels); label != "" {
		return label, nil
	}

	p.logger.Debug("classification unclear, requesting clarification",
		zap.String("response", utils.Truncate(first, 80)))
	second, err := p.chatMessages(ctx, []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: system},
		{Role: openai.ChatMessageRoleUser, Content: prompt},
		{Role: openai.ChatMessageRoleAssistant, Content: first},
		{Role: openai.ChatMessageRoleUser, Content: buildClarifyPrompt(first, labels)},
	}, 0.1, 50)
	if err != nil {
		return "", err
	}
	if label := matchLabel(second, labels); label != "" {
		return label, nil
	}

	p.logger.Warn("classification did not match any label",
		zap.String("first", utils.Truncate(first, 80)),
		zap.String("second", utils.Truncate(second, 80)),
		zap.String("fallback", fallback))
	return fallback, nil
}

// matchLabel maps a model response onto one of the allowed labels: an exact
// case-insensitive match first, then a label contained in the response.
func matchLabel(response string, labels []string) string {
	resp := strings.TrimSpace(response)
	for _, label := range labels {
		if strings.EqualFold(resp, label) {
			return label
		}
	}
	lower := strings.ToLower(resp)
	for _, label := range labels {
		if strings.Contains(lower, strings.ToLower(label)) {
			return label
		}
	}
	return ""
}

// cleanExtracted strips the lead-in phrases models like to add and maps
// empty or non-answers to "Unknown".
func cleanExtracted(s string, prefixes ...string) string {
	for _, prefix := range prefixes {
		s = strings.ReplaceAll(s, prefix, "")
	}
	s = strings.TrimSpace(s)
	switch s {
	case "", ".", ",", "N/A", "n/a", "None", "none":
		return "Unknown"
	}
	return s
}

func buildCategoryPrompt(summary string) string {
	return fmt.Sprintf(`Analyze this FDA Complete Response Letter summary and classify the product's therapeutic category into ONE of these categories:

1. Small molecules - Traditional chemical drugs, synthetic compounds
2. Biologics - proteins - Protein-based biologics, monoclonal antibodies, enzymes
3. Vaccines - Preventive or therapeutic vaccines
4. Blood products - Blood-derived products, plasma products
5. Cellular therapies - Cell-based therapies, CAR-T cells
6. Gene therapies - Gene therapy products, gene editing
7. Tissue products - Tissue-engineered products
8. Combination products - Drug-device combinations, drug-biologic combinations
9. Devices/IVDs - Medical devices, in vitro diagnostics
10. Other - Products that don't fit above categories

CRL Summary:
%s

Respond with ONLY the category name, nothing else.`, summary)
}

func buildDeficiencyPrompt(summary string) string {
	return fmt.Sprintf(`Analyze this FDA Complete Response Letter summary and classify the PRIMARY deficiency reason into ONE of these categories:

1. Clinical - Issues with clinical trial design, efficacy, safety data, or patient outcomes
2. CMC / Quality - Chemistry, Manufacturing, and Controls issues; product quality, stability, or specifications
3. Facilities / GMP - Manufacturing facility issues or Good Manufacturing Practice violations
4. Combination Product / Device - Device component issues in combination products
5. Regulatory / Labeling / Other - Regulatory compliance, labeling, or other administrative issues

CRL Summary:
%s

Respond with ONLY the category name, nothing else.`, summary)
}

func buildClarifyPrompt(previous string, labels []string) string {
	return fmt.Sprintf(`Your previous response was: %q

This does not exactly match one of the required categories. Please respond with ONLY ONE of these exact category names:

%s

Which category best matches your previous assessment? Respond with the category name only.`,
		previous, numberedLabels(labels))
}

func buildProductNamePrompt(letterText string) string {
	return fmt.Sprintf(`Analyze this FDA Complete Response Letter and extract the therapeutic product name(s) mentioned.

The product may be referred to by multiple names:
- Research/development name (e.g., BNT162b2, REGN-COV2)
- Pre-market/proprietary name (e.g., Comirnaty, REGEN-COV)
- Generic/INN name (e.g., tozinameran)
- Brand/trade name

Instructions:
1. Identify ALL names by which the product is referred to in the letter
2. Combine them into a single string
3. Separate multiple names with " / " (space-slash-space)
4. If the product has both a brand name and generic name, include both
5. If only one name is found, return just that name
6. If NO product name can be identified, return "Unknown"

CRL Text (beginning):
%s

Respond with ONLY the product name(s), nothing else. Examples:
- "Comirnaty / BNT162b2 / tozinameran"
- "Keytruda / pembrolizumab"
- "REGN-COV2"
- "Unknown"`, headChars(letterText, metadataTextChars))
}

func buildIndicationsPrompt(letterText string) string {
	return fmt.Sprintf(`Analyze this FDA Complete Response Letter and extract the medical indication(s) mentioned.

The indication is the disease, disorder, or medical condition that the therapeutic product is intended to treat, prevent, or diagnose.

Examples of indications:
- "Type 2 diabetes mellitus"
- "Non-small cell lung cancer"
- "COVID-19 prevention"
- "Rheumatoid arthritis"
- "Chronic lymphocytic leukemia in adults with del(17p)"

Instructions:
1. Identify the primary indication(s) that the product targets
2. Be specific - include details like cancer type, disease stage, patient population if mentioned
3. If multiple distinct indications are mentioned, separate them with "; " (semicolon-space)
4. Use medical terminology as it appears in the letter
5. If only one indication is found, return just that indication
6. If NO indication can be identified, return "Unknown"

CRL Text (beginning):
%s

Respond with ONLY the indication(s), nothing else. Examples:
- "Non-small cell lung cancer"
- "Type 2 diabetes mellitus; Obesity"
- "COVID-19 prevention in individuals 12 years of age and older"
- "Unknown"`, headChars(letterText, metadataTextChars))
}

func numberedLabels(labels []string) string {
	lines := make([]string, len(labels))
	for i, label := range labels {
		lines[i] = fmt.Sprintf("%d. %s", i+1, label)
	}
	return strings.Join(lines, "\n")
}

func headChars(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
