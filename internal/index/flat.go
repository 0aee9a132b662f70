// Package index implements an exact nearest-neighbor index over dense
// float32 vectors with binary persistence. Positions are dense zero-based
// ints assigned in insertion order and stable until a rebuild.
package index

import (
	"fmt"
	"math"
	"sort"

	"github.com/papyrus-labs/scholarag/internal/domain"
)

// Metric selects the distance function used by Search.
type Metric string

const (
	// MetricCosine scores by cosine similarity (higher is better).
	MetricCosine Metric = "cosine"
	// MetricL2 scores by squared Euclidean distance (lower is better).
	MetricL2 Metric = "l2"
)

// ParseMetric validates a metric name from configuration.
func ParseMetric(s string) (Metric, error) {
	switch Metric(s) {
	case MetricCosine, MetricL2:
		return Metric(s), nil
	default:
		return "", fmt.Errorf("unknown metric %q", s)
	}
}

// Hit is one search result. Score semantics depend on the metric:
// cosine similarity for MetricCosine, squared L2 distance for MetricL2.
type Hit struct {
	Position int
	Score    float32
}

// Flat is a brute-force exact KNN index. All vectors share one dimension,
// locked at the first Add. Flat itself is not synchronized; callers that
// mix readers and writers must serialize access (see store.Store).
type Flat struct {
	metric Metric
	dim    int
	vecs   [][]float32
	norms  []float32 // cached Euclidean norms, used by cosine scoring
}

// NewFlat creates an empty index with the given metric.
func NewFlat(metric Metric) *Flat {
	return &Flat{metric: metric}
}

// Metric returns the configured distance metric.
func (f *Flat) Metric() Metric { return f.metric }

// Len returns the number of stored vectors.
func (f *Flat) Len() int { return len(f.vecs) }

// Dim returns the vector dimension, or 0 for an empty index.
func (f *Flat) Dim() int { return f.dim }

// Add appends vectors and returns their newly assigned positions.
// Existing positions are never reassigned. All vectors must match the
// index dimension; on the first call the dimension is locked from the
// first vector.
func (f *Flat) Add(vecs ...[]float32) ([]int, error) {
	if len(vecs) == 0 {
		return nil, nil
	}
	if f.dim == 0 {
		if len(vecs[0]) == 0 {
			return nil, fmt.Errorf("%w: zero-length vector", domain.ErrDimensionMismatch)
		}
		f.dim = len(vecs[0])
	}
	for i, v := range vecs {
		if len(v) != f.dim {
			return nil, fmt.Errorf("%w: vector %d has dim %d, index has %d",
				domain.ErrDimensionMismatch, i, len(v), f.dim)
		}
	}

	positions := make([]int, len(vecs))
	for i, v := range vecs {
		positions[i] = len(f.vecs)
		f.vecs = append(f.vecs, v)
		f.norms = append(f.norms, norm(v))
	}
	return positions, nil
}

// Search returns up to k nearest neighbors of query, best first, ties
// broken by lower position. k larger than the index returns everything;
// an empty index returns nil without error.
func (f *Flat) Search(query []float32, k int) ([]Hit, error) {
	if len(f.vecs) == 0 {
		return nil, nil
	}
	if len(query) != f.dim {
		return nil, fmt.Errorf("%w: query has dim %d, index has %d",
			domain.ErrDimensionMismatch, len(query), f.dim)
	}
	if k <= 0 {
		return nil, nil
	}
	if k > len(f.vecs) {
		k = len(f.vecs)
	}

	hits := make([]Hit, len(f.vecs))
	switch f.metric {
	case MetricL2:
		for i, v := range f.vecs {
			hits[i] = Hit{Position: i, Score: l2Squared(query, v)}
		}
		sort.SliceStable(hits, func(a, b int) bool {
			if hits[a].Score != hits[b].Score {
				return hits[a].Score < hits[b].Score
			}
			return hits[a].Position < hits[b].Position
		})
	default:
		qn := norm(query)
		for i, v := range f.vecs {
			hits[i] = Hit{Position: i, Score: cosine(query, qn, v, f.norms[i])}
		}
		sort.SliceStable(hits, func(a, b int) bool {
			if hits[a].Score != hits[b].Score {
				return hits[a].Score > hits[b].Score
			}
			return hits[a].Position < hits[b].Position
		})
	}

	return hits[:k], nil
}

// Vector returns the stored vector at pos, or nil if out of range.
func (f *Flat) Vector(pos int) []float32 {
	if pos < 0 || pos >= len(f.vecs) {
		return nil
	}
	return f.vecs[pos]
}

func norm(v []float32) float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return float32(math.Sqrt(sum))
}

func l2Squared(a, b []float32) float32 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return float32(sum)
}

func cosine(a []float32, an float32, b []float32, bn float32) float32 {
	if an == 0 || bn == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return float32(dot / (float64(an) * float64(bn)))
}
