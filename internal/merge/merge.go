// Package merge combines two timeseries datasets that may define overlapping
// values, accepting small discrepancies within a relative tolerance.
package merge

import (
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"tscompose/internal/dataset"
	"tscompose/internal/errors"
	"tscompose/internal/timeseries"
)

// Options controls merging behavior.
type Options struct {
	// Tolerance is the maximum accepted relative deviation between two
	// values defined in both datasets, |a-b| / |a|.
	Tolerance float64
	// ErrorOnDiscrepancy makes deviations beyond the tolerance a hard error.
	// When false, discrepancies are logged as warnings and the first
	// dataset's value wins.
	ErrorOnDiscrepancy bool
	Logger             *slog.Logger
}

// DefaultOptions merges with a 1 percent tolerance and hard errors.
func DefaultOptions() Options {
	return Options{Tolerance: 0.01, ErrorOnDiscrepancy: true}
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

// Discrepancy reports one conflicting value pair between the datasets.
type Discrepancy struct {
	Series    string
	Time      time.Time
	A, B      float64
	Deviation float64
}

func (d Discrepancy) String() string {
	return fmt.Sprintf("%s at %s: %g vs %g (relative deviation %.4f)",
		d.Series, d.Time.Format("2006-01-02"), d.A, d.B, d.Deviation)
}

// Merge combines datasets a and b into one. Series present in only one
// dataset are carried over unchanged. For series present in both, values
// defined only on one side fill in the other; values defined on both sides
// must agree within the relative tolerance, and a's value wins.
//
// Both datasets have to share the same time index; a mismatch is a hard
// error, never silently broadcast.
func Merge(a, b *dataset.Dataset, opts Options) (*dataset.Dataset, error) {
	logger := opts.logger()

	byKey := make(map[string]*timeseries.Series, len(b.Series))
	var bOrder []string
	for _, s := range b.Series {
		key := seriesKey(s)
		byKey[key] = s
		bOrder = append(bOrder, key)
	}

	var merged []*timeseries.Series
	var conflicts []Discrepancy
	seen := make(map[string]bool, len(a.Series))
	for _, sa := range a.Series {
		key := seriesKey(sa)
		seen[key] = true
		sb, ok := byKey[key]
		if !ok {
			merged = append(merged, sa.Clone())
			continue
		}
		ms, found, err := mergeSeries(sa, sb, opts.Tolerance)
		if err != nil {
			return nil, err
		}
		conflicts = append(conflicts, found...)
		merged = append(merged, ms)
	}
	for _, key := range bOrder {
		if !seen[key] {
			merged = append(merged, byKey[key].Clone())
		}
	}

	if len(conflicts) > 0 {
		if opts.ErrorOnDiscrepancy {
			return nil, errors.NewDataError(fmt.Sprintf(
				"merge exceeds tolerance %g for %d values: %s",
				opts.Tolerance, len(conflicts), formatConflicts(conflicts)), nil)
		}
		for _, c := range conflicts {
			logger.Warn("merge discrepancy beyond tolerance, keeping first value",
				"series", c.Series,
				"time", c.Time.Format("2006-01-02"),
				"first", c.A,
				"second", c.B,
				"deviation", c.Deviation,
				"tolerance", opts.Tolerance,
			)
		}
	}

	return dataset.New(merged)
}

// mergeSeries merges one pair of identical-identity series.
func mergeSeries(a, b *timeseries.Series, tolerance float64) (*timeseries.Series, []Discrepancy, error) {
	if !a.SameIndex(b) {
		return nil, nil, errors.NewDataError(fmt.Sprintf(
			"series %s: time indices not aligned between the datasets", seriesKey(a)), nil)
	}

	out := a.Clone()
	var conflicts []Discrepancy
	for i, av := range a.Values {
		bv := b.Values[i]
		if math.IsNaN(bv) {
			continue
		}
		if math.IsNaN(av) {
			out.Values[i] = bv
			continue
		}
		deviation := relativeDeviation(av, bv)
		if deviation > tolerance {
			conflicts = append(conflicts, Discrepancy{
				Series:    seriesKey(a),
				Time:      a.Times[i],
				A:         av,
				B:         bv,
				Deviation: deviation,
			})
		}
	}
	return out, conflicts, nil
}

// relativeDeviation is |a-b| / |a|, with the equal-zero case defined as 0.
func relativeDeviation(a, b float64) float64 {
	if a == b {
		return 0
	}
	if a == 0 {
		return math.Inf(1)
	}
	return math.Abs(a-b) / math.Abs(a)
}

func seriesKey(s *timeseries.Series) string {
	return fmt.Sprintf("%s (%s)", s.Name, s.CoordRepr())
}

func formatConflicts(conflicts []Discrepancy) string {
	limit := len(conflicts)
	if limit > 10 {
		limit = 10
	}
	parts := make([]string, 0, limit+1)
	for _, c := range conflicts[:limit] {
		parts = append(parts, c.String())
	}
	if len(conflicts) > limit {
		parts = append(parts, fmt.Sprintf("and %d more", len(conflicts)-limit))
	}
	return strings.Join(parts, "; ")
}
