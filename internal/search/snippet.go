package search

import (
	"strings"
	"unicode"

	"github.com/armish/crl.help/internal/models"
)

// ExtractSnippet returns the first case-insensitive occurrence of query in
// text with up to contextChars characters of context on each side. The match
// fragment preserves the original casing; edges cut mid-text gain ellipses.
// Reports false when text does not contain the query.
func ExtractSnippet(text, query string, contextChars int) (models.Snippet, bool) {
	if text == "" || query == "" {
		return models.Snippet{}, false
	}
	pos := strings.Index(strings.ToLower(text), strings.ToLower(query))
	if pos < 0 {
		return models.Snippet{}, false
	}
	end := pos + len(query)

	start := pos - contextChars
	if start < 0 {
		start = 0
	}
	before := text[start:pos]
	if start > 0 {
		before = "..." + strings.TrimLeftFunc(before, unicode.IsSpace)
	}

	stop := end + contextChars
	if stop > len(text) {
		stop = len(text)
	}
	after := text[end:stop]
	if stop < len(text) {
		after = strings.TrimRightFunc(after, unicode.IsSpace) + "..."
	}

	return models.Snippet{Before: before, Match: text[pos:end], After: after}, true
}

// matchSnippet extracts a snippet for the whole query, falling back to the
// first individual term present. The index matches analyzed terms, so a
// multi-word query can hit a field that never contains the full phrase.
func matchSnippet(text, query string, terms []string, contextChars int) (models.Snippet, bool) {
	if snip, ok := ExtractSnippet(text, strings.TrimSpace(query), contextChars); ok {
		return snip, true
	}
	for _, term := range terms {
		if snip, ok := ExtractSnippet(text, term, contextChars); ok {
			return snip, true
		}
	}
	return models.Snippet{}, false
}
