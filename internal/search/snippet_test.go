package search

import "testing"

func TestExtractSnippet(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		query      string
		context    int
		wantOK     bool
		wantBefore string
		wantMatch  string
		wantAfter  string
	}{
		{
			name:      "match at start",
			text:      "sterility assurance program failed",
			query:     "sterility",
			context:   10,
			wantOK:    true,
			wantMatch: "sterility",
			wantAfter: " assurance...",
		},
		{
			name:       "match at end",
			text:       "the review identified sterility",
			query:      "sterility",
			context:    10,
			wantOK:     true,
			wantBefore: "...dentified ",
			wantMatch:  "sterility",
		},
		{
			name:       "match in middle",
			text:       "alpha beta sterility gamma delta",
			query:      "sterility",
			context:    5,
			wantOK:     true,
			wantBefore: "...beta ",
			wantMatch:  "sterility",
			wantAfter:  " gamm...",
		},
		{
			name:      "match preserves original case",
			text:      "Sterility Assurance Program",
			query:     "sterility assurance",
			context:   100,
			wantOK:    true,
			wantMatch: "Sterility Assurance",
			wantAfter: " Program",
		},
		{
			name:       "uppercase query matches lowercase text",
			text:       "the sterility issue",
			query:      "STERILITY",
			context:    3,
			wantOK:     true,
			wantBefore: "...he ",
			wantMatch:  "sterility",
			wantAfter:  " is...",
		},
		{
			name:       "leading whitespace stripped after ellipsis",
			text:       "word  sterility",
			query:      "sterility",
			context:    2,
			wantOK:     true,
			wantBefore: "...",
			wantMatch:  "sterility",
		},
		{
			name:      "trailing whitespace stripped before ellipsis",
			text:      "sterility  word",
			query:     "sterility",
			context:   2,
			wantOK:    true,
			wantMatch: "sterility",
			wantAfter: "...",
		},
		{
			name:      "query is whole text",
			text:      "sterility",
			query:     "sterility",
			context:   100,
			wantOK:    true,
			wantMatch: "sterility",
		},
		{
			name:    "no match",
			text:    "no relevant content",
			query:   "sterility",
			context: 10,
			wantOK:  false,
		},
		{
			name:    "empty text",
			text:    "",
			query:   "sterility",
			context: 10,
			wantOK:  false,
		},
		{
			name:    "empty query",
			text:    "some text",
			query:   "",
			context: 10,
			wantOK:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snip, ok := ExtractSnippet(tt.text, tt.query, tt.context)
			if ok != tt.wantOK {
				t.Fatalf("ExtractSnippet ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if snip.Before != tt.wantBefore {
				t.Errorf("Before = %q, want %q", snip.Before, tt.wantBefore)
			}
			if snip.Match != tt.wantMatch {
				t.Errorf("Match = %q, want %q", snip.Match, tt.wantMatch)
			}
			if snip.After != tt.wantAfter {
				t.Errorf("After = %q, want %q", snip.After, tt.wantAfter)
			}
		})
	}
}

func TestMatchSnippet_WholeQueryFirst(t *testing.T) {
	terms := []string{"sterility", "assurance"}

	snip, ok := matchSnippet("the sterility assurance program", "sterility assurance", terms, 100)
	if !ok {
		t.Fatal("expected a match for the whole query")
	}
	if snip.Match != "sterility assurance" {
		t.Errorf("Match = %q, want the whole phrase", snip.Match)
	}
}

func TestMatchSnippet_FallsBackToTerms(t *testing.T) {
	terms := []string{"sterility", "assurance"}

	snip, ok := matchSnippet("assurance matters here", "sterility assurance", terms, 100)
	if !ok {
		t.Fatal("expected a per-term match")
	}
	if snip.Match != "assurance" {
		t.Errorf("Match = %q, want %q", snip.Match, "assurance")
	}
}

func TestMatchSnippet_NoMatch(t *testing.T) {
	terms := []string{"sterility", "assurance"}

	if _, ok := matchSnippet("nothing relevant", "sterility assurance", terms, 100); ok {
		t.Error("expected no match")
	}
}
