// Package vector provides similarity primitives and exact top-k retrieval
// over embedding vectors. All functions are pure and safe for concurrent use.
package vector

import (
	"fmt"
	"math"
)

// checkPair validates two vectors for pairwise operations.
func checkPair(a, b []float64) error {
	if len(a) == 0 || len(b) == 0 {
		return ErrEmptyVector
	}
	if len(a) != len(b) {
		return fmt.Errorf("%w: got %d and %d", ErrDimensionMismatch, len(a), len(b))
	}
	return nil
}

// CosineSimilarity returns the cosine of the angle between a and b, in [-1, 1]
// up to floating-point rounding. If either vector has zero magnitude the
// similarity is defined as 0.0 rather than an error.
func CosineSimilarity(a, b []float64) (float64, error) {
	if err := checkPair(a, b); err != nil {
		return 0, err
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb)), nil
}

// EuclideanDistance returns the L2 distance between a and b. The result is
// non-negative and zero exactly when the vectors are element-wise identical.
func EuclideanDistance(a, b []float64) (float64, error) {
	if err := checkPair(a, b); err != nil {
		return 0, err
	}
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum), nil
}

// DotProduct returns the inner product of a and b. For unit-normalized inputs
// this equals cosine similarity and skips the norm computation.
func DotProduct(a, b []float64) (float64, error) {
	if err := checkPair(a, b); err != nil {
		return 0, err
	}
	var dot float64
	for i := range a {
		dot += a[i] * b[i]
	}
	return dot, nil
}

// Magnitude returns the L2 norm of v. Zero is a valid result.
func Magnitude(v []float64) (float64, error) {
	if len(v) == 0 {
		return 0, ErrEmptyVector
	}
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum), nil
}

// Normalize returns v scaled to unit length. A zero-magnitude input returns
// ErrZeroVector.
func Normalize(v []float64) ([]float64, error) {
	mag, err := Magnitude(v)
	if err != nil {
		return nil, err
	}
	if mag == 0 {
		return nil, ErrZeroVector
	}
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = x / mag
	}
	return out, nil
}

// MeanVector returns the element-wise average of the given vectors. The first
// vector establishes the expected dimension.
func MeanVector(vectors [][]float64) ([]float64, error) {
	if len(vectors) == 0 {
		return nil, ErrEmptyVectorList
	}
	dim := len(vectors[0])
	sum := make([]float64, dim)
	for _, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("%w: got %d and %d", ErrDimensionMismatch, len(v), dim)
		}
		for i, x := range v {
			sum[i] += x
		}
	}
	n := float64(len(vectors))
	for i := range sum {
		sum[i] /= n
	}
	return sum, nil
}
