// Package keyword provides full-text indexing and search over letters.
package keyword

import (
	"sort"
	"strings"
	"sync"
)

// Suggestion is a candidate correction for a misspelled query term.
type Suggestion struct {
	Term      string  // suggested term
	Distance  int     // edit distance from the original term
	Frequency int     // document frequency
	Score     float64 // combined ranking score
}

// SpellCheckResult is the outcome of checking a full query.
type SpellCheckResult struct {
	OriginalQuery   string
	CorrectedQuery  string
	Suggestions     []Suggestion
	HasCorrections  bool
	MisspelledTerms []string
}

// SpellChecker suggests corrections for query terms absent from the index
// vocabulary, ranked by edit distance and term popularity.
type SpellChecker struct {
	dictionary     TermDictionary
	maxDistance    int
	minFreq        int
	maxSuggestions int

	termsCache []string
	termSet    map[string]struct{}
	cacheMu    sync.RWMutex
	cacheValid bool
}

// SpellCheckerOption configures a SpellChecker.
type SpellCheckerOption func(*SpellChecker)

// WithMaxDistance sets the maximum edit distance for suggestions.
func WithMaxDistance(d int) SpellCheckerOption {
	return func(s *SpellChecker) {
		if d > 0 {
			s.maxDistance = d
		}
	}
}

// WithMinFrequency sets the minimum document frequency for suggestions.
// Terms seen in fewer letters are ignored as likely noise.
func WithMinFrequency(f int) SpellCheckerOption {
	return func(s *SpellChecker) {
		if f >= 0 {
			s.minFreq = f
		}
	}
}

// WithMaxSuggestions caps the suggestions returned per term.
func WithMaxSuggestions(n int) SpellCheckerOption {
	return func(s *SpellChecker) {
		if n > 0 {
			s.maxSuggestions = n
		}
	}
}

// NewSpellChecker creates a spell checker over the given dictionary.
func NewSpellChecker(dict TermDictionary, opts ...SpellCheckerOption) *SpellChecker {
	s := &SpellChecker{
		dictionary:     dict,
		maxDistance:    2,
		minFreq:        1,
		maxSuggestions: 5,
		termSet:        make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RefreshCache reloads the term cache from the dictionary. Call after the
// index has been rebuilt.
func (s *SpellChecker) RefreshCache() error {
	terms, err := s.dictionary.GetAllTerms()
	if err != nil {
		return err
	}

	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	s.termsCache = terms
	s.termSet = make(map[string]struct{}, len(terms))
	for _, t := range terms {
		s.termSet[strings.ToLower(t)] = struct{}{}
	}
	s.cacheValid = true
	return nil
}

// Check checks every term of query against the vocabulary and proposes a
// corrected query when any term is unknown and has a close neighbor.
func (s *SpellChecker) Check(query string) (*SpellCheckResult, error) {
	if !s.cacheValid {
		if err := s.RefreshCache(); err != nil {
			return nil, err
		}
	}

	terms := Tokenize(query)
	result := &SpellCheckResult{
		OriginalQuery: query,
	}

	corrected := make([]string, 0, len(terms))
	for _, term := range terms {
		s.cacheMu.RLock()
		_, known := s.termSet[term]
		s.cacheMu.RUnlock()
		if known {
			corrected = append(corrected, term)
			continue
		}

		suggestions := s.Suggest(term)
		if len(suggestions) == 0 {
			corrected = append(corrected, term)
			continue
		}
		result.HasCorrections = true
		result.MisspelledTerms = append(result.MisspelledTerms, term)
		result.Suggestions = append(result.Suggestions, suggestions...)
		corrected = append(corrected, suggestions[0].Term)
	}

	result.CorrectedQuery = strings.Join(corrected, " ")
	return result, nil
}

// Suggest returns up to maxSuggestions corrections for a single term,
// best first.
func (s *SpellChecker) Suggest(term string) []Suggestion {
	if !s.cacheValid {
		if err := s.RefreshCache(); err != nil {
			return nil
		}
	}

	term = strings.ToLower(term)

	s.cacheMu.RLock()
	terms := s.termsCache
	s.cacheMu.RUnlock()

	var suggestions []Suggestion
	for _, dictTerm := range terms {
		candidate := strings.ToLower(dictTerm)
		if candidate == term {
			continue
		}
		// Length difference beyond maxDistance cannot be within distance.
		lenDiff := len(candidate) - len(term)
		if lenDiff < 0 {
			lenDiff = -lenDiff
		}
		if lenDiff > s.maxDistance {
			continue
		}

		distance := LevenshteinDistance(term, candidate)
		if distance > s.maxDistance {
			continue
		}
		freq, err := s.dictionary.GetTermFrequency(dictTerm)
		if err != nil || freq < s.minFreq {
			continue
		}
		suggestions = append(suggestions, Suggestion{
			Term:      dictTerm,
			Distance:  distance,
			Frequency: freq,
			// closer edits beat popular-but-distant terms
			Score: (1.0 / float64(distance+1)) * float64(freq),
		})
	}

	sort.Slice(suggestions, func(i, j int) bool {
		return suggestions[i].Score > suggestions[j].Score
	})
	if len(suggestions) > s.maxSuggestions {
		suggestions = suggestions[:s.maxSuggestions]
	}
	return suggestions
}

// IsMisspelled reports whether term is absent from the index vocabulary.
func (s *SpellChecker) IsMisspelled(term string) bool {
	if !s.cacheValid {
		if err := s.RefreshCache(); err != nil {
			return false
		}
	}

	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()

	_, known := s.termSet[strings.ToLower(term)]
	return !known
}

// GetSuggestedQuery returns the best corrected form of query, or the query
// itself when nothing needs correcting.
func (s *SpellChecker) GetSuggestedQuery(query string) string {
	result, err := s.Check(query)
	if err != nil || !result.HasCorrections {
		return query
	}
	return result.CorrectedQuery
}

// GetTopSuggestions returns up to n corrected query strings for a query
// that produced no results.
func (s *SpellChecker) GetTopSuggestions(query string, n int) []string {
	result, err := s.Check(query)
	if err != nil {
		return nil
	}

	suggestions := make([]string, 0, n)
	if result.HasCorrections && result.CorrectedQuery != result.OriginalQuery {
		suggestions = append(suggestions, result.CorrectedQuery)
	}
	if len(suggestions) > n {
		suggestions = suggestions[:n]
	}
	return suggestions
}
