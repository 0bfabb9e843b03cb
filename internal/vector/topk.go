package vector

import (
	"fmt"
	"sort"
)

// Candidate pairs an opaque identifier with its embedding vector. The id is
// carried through ranking untouched; callers map it back to full records.
type Candidate struct {
	ID     string
	Vector []float64
}

// Match is a single ranked hit.
type Match struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

// TopK ranks candidates against query under the given metric and returns the
// best k matches in the metric's intrinsic order. Candidates whose vector
// cannot be scored against the query (dimension mismatch, empty vector) are
// skipped rather than failing the scan; a single stale embedding must not
// abort retrieval for the whole corpus. If no candidate scores at all the
// call fails with ErrNoValidCandidates, since an all-mismatched corpus
// signals an incompatibility (such as a changed embedding model) that an
// empty result would hide.
//
// Fewer than k scoreable candidates returns fewer matches, never an error.
// The scan is a brute-force O(n·d) pass with a full O(n log n) sort, which is
// the right trade at the few-thousand-document scale this serves.
func TopK(query []float64, candidates []Candidate, k int, metric Metric) ([]Match, error) {
	if len(query) == 0 {
		return nil, fmt.Errorf("query %w", ErrEmptyVector)
	}
	if len(candidates) == 0 {
		return nil, ErrEmptyCandidates
	}
	if k < 1 {
		return nil, fmt.Errorf("%w, got %d", ErrInvalidK, k)
	}
	score, descending, err := metric.resolve()
	if err != nil {
		return nil, err
	}

	matches := make([]Match, 0, len(candidates))
	for _, c := range candidates {
		s, err := score(query, c.Vector)
		if err != nil {
			continue
		}
		matches = append(matches, Match{ID: c.ID, Score: s})
	}
	if len(matches) == 0 {
		return nil, ErrNoValidCandidates
	}

	if descending {
		sort.Slice(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	} else {
		sort.Slice(matches, func(i, j int) bool { return matches[i].Score < matches[j].Score })
	}
	if k > len(matches) {
		k = len(matches)
	}
	return matches[:k], nil
}
