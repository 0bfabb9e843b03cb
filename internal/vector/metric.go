package vector

import "fmt"

// Metric selects the scoring function used by TopK. Each metric has an
// intrinsic ordering: cosine and dot rank descending (higher is more
// similar), euclidean ranks ascending (lower is closer).
type Metric string

const (
	// MetricCosine ranks by cosine similarity, descending.
	MetricCosine Metric = "cosine"
	// MetricDot ranks by inner product, descending. Equivalent to cosine for
	// unit-normalized vectors and cheaper to compute.
	MetricDot Metric = "dot"
	// MetricEuclidean ranks by L2 distance, ascending.
	MetricEuclidean Metric = "euclidean"
)

// scoreFunc scores a candidate vector against the query.
type scoreFunc func(query, candidate []float64) (float64, error)

// resolve maps the metric to its scoring function and sort direction.
func (m Metric) resolve() (score scoreFunc, descending bool, err error) {
	switch m {
	case MetricCosine:
		return CosineSimilarity, true, nil
	case MetricDot:
		return DotProduct, true, nil
	case MetricEuclidean:
		return EuclideanDistance, false, nil
	default:
		return nil, false, fmt.Errorf("%w: %q (supported: cosine, dot, euclidean)", ErrUnknownMetric, string(m))
	}
}

// ParseMetric validates a metric name from config or an API parameter.
// The empty string resolves to MetricCosine.
func ParseMetric(name string) (Metric, error) {
	if name == "" {
		return MetricCosine, nil
	}
	m := Metric(name)
	if _, _, err := m.resolve(); err != nil {
		return "", err
	}
	return m, nil
}
