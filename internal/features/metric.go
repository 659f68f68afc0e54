package features

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// minStdDev is the spread below which a dimension is left unweighted.
const minStdDev = 1e-6

// MetricType selects a distance function.
type MetricType int

const (
	// SSD is the sum of squared differences.
	SSD MetricType = iota
	// HistIntersection is 1 minus the histogram intersection.
	HistIntersection
	// Cosine is 1 minus the cosine similarity.
	Cosine
	// Standardized is the Euclidean distance after scaling each dimension
	// by the inverse of its standard deviation across the database.
	Standardized
)

var metricNames = map[MetricType]string{
	SSD:              "ssd",
	HistIntersection: "hist_ix",
	Cosine:           "cosine",
	Standardized:     "std",
}

// String returns the metric's short name.
func (t MetricType) String() string {
	if name, ok := metricNames[t]; ok {
		return name
	}
	return fmt.Sprintf("metric(%d)", int(t))
}

// ParseMetric maps a short name ("ssd", "hist_ix", "cosine", "std") to its
// MetricType. Matching is case-insensitive.
func ParseMetric(name string) (MetricType, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for t, n := range metricNames {
		if n == name {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown metric %q (want ssd, hist_ix, cosine or std)", name)
}

// Metric computes a distance between two vectors. Vectors of different
// lengths are incomparable and yield +Inf.
type Metric interface {
	Name() string
	Distance(a, b []float64) float64
}

// SSDMetric sums squared differences.
type SSDMetric struct{}

// Name implements Metric.
func (SSDMetric) Name() string { return SSD.String() }

// Distance implements Metric.
func (SSDMetric) Distance(a, b []float64) float64 {
	if len(a) != len(b) {
		return math.Inf(1)
	}
	diff := make([]float64, len(a))
	floats.SubTo(diff, a, b)
	return floats.Dot(diff, diff)
}

// HistIntersectionMetric is 1 - sum(min(a_i, b_i)). It assumes normalised
// histograms.
type HistIntersectionMetric struct{}

// Name implements Metric.
func (HistIntersectionMetric) Name() string { return HistIntersection.String() }

// Distance implements Metric.
func (HistIntersectionMetric) Distance(a, b []float64) float64 {
	if len(a) != len(b) {
		return math.Inf(1)
	}
	sum := 0.0
	for i := range a {
		sum += math.Min(a[i], b[i])
	}
	return 1 - sum
}

// CosineMetric is 1 - cos(a, b). A zero vector has no direction, so any
// comparison involving one returns +Inf.
type CosineMetric struct{}

// Name implements Metric.
func (CosineMetric) Name() string { return Cosine.String() }

// Distance implements Metric.
func (CosineMetric) Distance(a, b []float64) float64 {
	if len(a) != len(b) {
		return math.Inf(1)
	}
	na, nb := floats.Norm(a, 2), floats.Norm(b, 2)
	if na == 0 || nb == 0 {
		return math.Inf(1)
	}
	return 1 - floats.Dot(a, b)/(na*nb)
}

// StandardizedMetric weights each dimension by its inverse standard
// deviation: sqrt(sum(((a_i - b_i) * w_i)^2)).
type StandardizedMetric struct {
	weights []float64
}

// NewStandardizedMetric derives per-dimension weights from rows, all of
// which must have length dim; rows of another length are ignored.
// Dimensions whose spread is below 1e-6 get weight 1.
func NewStandardizedMetric(dim int, rows [][]float64) *StandardizedMetric {
	column := make([]float64, 0, len(rows))
	weights := make([]float64, dim)
	for d := 0; d < dim; d++ {
		column = column[:0]
		for _, r := range rows {
			if len(r) == dim {
				column = append(column, r[d])
			}
		}

		weights[d] = 1
		if len(column) == 0 {
			continue
		}
		_, std := stat.PopMeanStdDev(column, nil)
		if std >= minStdDev {
			weights[d] = 1 / std
		}
	}
	return &StandardizedMetric{weights: weights}
}

// Weights returns a copy of the per-dimension weights.
func (m *StandardizedMetric) Weights() []float64 {
	out := make([]float64, len(m.weights))
	copy(out, m.weights)
	return out
}

// Name implements Metric.
func (m *StandardizedMetric) Name() string { return Standardized.String() }

// Distance implements Metric.
func (m *StandardizedMetric) Distance(a, b []float64) float64 {
	if len(a) != len(b) || len(a) != len(m.weights) {
		return math.Inf(1)
	}
	diff := make([]float64, len(a))
	floats.SubTo(diff, a, b)
	floats.Mul(diff, m.weights)
	return floats.Norm(diff, 2)
}

// NewMetric returns the pairwise metric for t. Standardized needs database
// statistics and is built by the Matcher with NewStandardizedMetric.
func NewMetric(t MetricType) (Metric, error) {
	switch t {
	case SSD:
		return SSDMetric{}, nil
	case HistIntersection:
		return HistIntersectionMetric{}, nil
	case Cosine:
		return CosineMetric{}, nil
	case Standardized:
		return nil, fmt.Errorf("metric %s needs database statistics", t)
	default:
		return nil, fmt.Errorf("unsupported %s", t)
	}
}
