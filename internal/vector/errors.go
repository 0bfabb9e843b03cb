package vector

import "errors"

// Sentinel errors for the retrieval core. Callers match with errors.Is;
// wrapped variants add context such as the offending dimensions.
var (
	// ErrEmptyVector is returned when an operation receives a zero-length vector.
	ErrEmptyVector = errors.New("vector cannot be empty")

	// ErrEmptyVectorList is returned by MeanVector for an empty collection.
	ErrEmptyVectorList = errors.New("vector list cannot be empty")

	// ErrZeroVector is returned by Normalize when the input has magnitude zero.
	// Unlike CosineSimilarity, which resolves zero-magnitude inputs to 0.0,
	// a normalized zero vector has no defined value.
	ErrZeroVector = errors.New("cannot normalize zero vector")

	// ErrDimensionMismatch is returned when two vectors of different lengths
	// are compared.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrEmptyCandidates is returned by TopK when the candidate set is empty.
	ErrEmptyCandidates = errors.New("candidate set cannot be empty")

	// ErrInvalidK is returned by TopK when k is below 1.
	ErrInvalidK = errors.New("k must be at least 1")

	// ErrUnknownMetric is returned for a metric name outside the supported set.
	ErrUnknownMetric = errors.New("unknown similarity function")

	// ErrNoValidCandidates is returned by TopK when no candidate could be
	// scored at all, which usually means every stored embedding has a
	// different dimension than the query (e.g. a model change).
	ErrNoValidCandidates = errors.New("no valid candidates found")
)
