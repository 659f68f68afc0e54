package features

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/sirupsen/logrus"
)

var (
	// ErrNoMatch is returned when no database row can be compared with the
	// query.
	ErrNoMatch = errors.New("no match")

	// ErrDimensionMismatch accompanies ErrNoMatch when the database holds
	// rows but none has the query's length.
	ErrDimensionMismatch = errors.New("no row has the query's dimension")
)

// MatchResult is the outcome of comparing a query with one database row.
type MatchResult struct {
	Label    string  `json:"label"`
	Source   string  `json:"source,omitempty"`
	Distance float64 `json:"distance"`
}

// Comparable reports whether the distance is a real value.
func (r MatchResult) Comparable() bool {
	return !math.IsInf(r.Distance, 0) && !math.IsNaN(r.Distance)
}

// Matcher finds the nearest database rows to a query vector.
type Matcher struct {
	cache *Cache
	log   logrus.FieldLogger
}

// NewMatcher creates a matcher that resolves databases through cache.
func NewMatcher(cache *Cache, opts ...Option) *Matcher {
	o := buildOptions(opts)
	return &Matcher{cache: cache, log: o.log}
}

// Cache returns the cache the matcher reads from.
func (m *Matcher) Cache() *Cache {
	return m.cache
}

// Match returns the row of the database at dbPath closest to query.
//
// Rows whose length differs from the query are skipped, as are rows whose
// distance is not finite. On equal distances the earlier row wins.
//
// # Errors
//
//   - ErrNoMatch wrapping ErrDatabaseUnavailable if the database cannot be
//     loaded or is empty
//   - ErrNoMatch (with ErrDimensionMismatch when relevant) if no row is
//     comparable
func (m *Matcher) Match(query []float64, dbPath string, t MetricType) (MatchResult, error) {
	results, err := m.rank(query, dbPath, t)
	if err != nil {
		return MatchResult{}, err
	}

	best := results[0]
	for _, r := range results[1:] {
		if r.Distance < best.Distance {
			best = r
		}
	}
	return best, nil
}

// TopN returns up to n comparable rows ordered by ascending distance, ties
// in file order.
func (m *Matcher) TopN(query []float64, dbPath string, t MetricType, n int) ([]MatchResult, error) {
	results, err := m.rank(query, dbPath, t)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Distance < results[j].Distance
	})
	if n > 0 && len(results) > n {
		results = results[:n]
	}
	return results, nil
}

// rank scores every comparable row in file order. The result is never
// empty when err is nil.
func (m *Matcher) rank(query []float64, dbPath string, t MetricType) ([]MatchResult, error) {
	if len(query) == 0 {
		return nil, fmt.Errorf("%w: empty query", ErrNoMatch)
	}

	db, err := m.cache.Load(dbPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoMatch, err)
	}

	var rows []Entry
	for _, e := range db.Entries() {
		if e.Dim() == len(query) {
			rows = append(rows, e)
		}
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %w (query %d, database %v)", ErrNoMatch, ErrDimensionMismatch, len(query), db.Dimensions())
	}

	metric, err := m.metricFor(t, len(query), rows)
	if err != nil {
		return nil, err
	}

	results := make([]MatchResult, 0, len(rows))
	for _, e := range rows {
		r := MatchResult{Label: e.Label, Source: e.Source, Distance: metric.Distance(query, e.Vector)}
		if !r.Comparable() {
			continue
		}
		results = append(results, r)
	}

	m.log.WithFields(logrus.Fields{
		"db":         db.Path(),
		"metric":     metric.Name(),
		"rows":       db.Len(),
		"comparable": len(results),
	}).Debug("ranked feature rows")

	if len(results) == 0 {
		return nil, fmt.Errorf("%w: no finite distance", ErrNoMatch)
	}
	return results, nil
}

func (m *Matcher) metricFor(t MetricType, dim int, rows []Entry) (Metric, error) {
	if t != Standardized {
		return NewMetric(t)
	}
	vectors := make([][]float64, len(rows))
	for i, e := range rows {
		vectors[i] = e.Vector
	}
	return NewStandardizedMetric(dim, vectors), nil
}
