package timeseries

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// Series represents a one-dimensional, time-indexed numeric sequence with
// attached fixed coordinate labels. Missing values are stored as NaN.
//
// All operations treat a Series as immutable and return a new Series; the
// time index is shared between derived series because it is never modified.
type Series struct {
	Name   string
	Unit   string
	Coords map[string]string
	Times  []time.Time
	Values []float64
}

// New creates a new Series and validates its index.
// Times must be strictly ascending and match the length of values.
func New(name string, coords map[string]string, times []time.Time, values []float64) (*Series, error) {
	if len(times) != len(values) {
		return nil, fmt.Errorf("time index length %d does not match values length %d", len(times), len(values))
	}
	for i := 1; i < len(times); i++ {
		if !times[i].After(times[i-1]) {
			return nil, fmt.Errorf("time index not strictly ascending at position %d: %s >= %s",
				i, times[i-1].Format("2006-01-02"), times[i].Format("2006-01-02"))
		}
	}
	if coords == nil {
		coords = map[string]string{}
	}
	return &Series{
		Name:   name,
		Coords: coords,
		Times:  times,
		Values: values,
	}, nil
}

// Len returns the number of time steps.
func (s *Series) Len() int {
	return len(s.Times)
}

// Clone returns a deep copy of the series.
func (s *Series) Clone() *Series {
	values := make([]float64, len(s.Values))
	copy(values, s.Values)
	times := make([]time.Time, len(s.Times))
	copy(times, s.Times)
	coords := make(map[string]string, len(s.Coords))
	for k, v := range s.Coords {
		coords[k] = v
	}
	return &Series{
		Name:   s.Name,
		Unit:   s.Unit,
		Coords: coords,
		Times:  times,
		Values: values,
	}
}

// WithValues returns a new series sharing the index of s but carrying the
// given values. The length must match the index.
func (s *Series) WithValues(values []float64) (*Series, error) {
	if len(values) != len(s.Times) {
		return nil, fmt.Errorf("values length %d does not match index length %d", len(values), len(s.Times))
	}
	out := s.Clone()
	copy(out.Values, values)
	return out, nil
}

// IndexOf returns the position of t in the time index, or -1 if absent.
func (s *Series) IndexOf(t time.Time) int {
	i := sort.Search(len(s.Times), func(i int) bool { return !s.Times[i].Before(t) })
	if i < len(s.Times) && s.Times[i].Equal(t) {
		return i
	}
	return -1
}

// At returns the value at time t. The second return value is false if t is
// not part of the time index.
func (s *Series) At(t time.Time) (float64, bool) {
	i := s.IndexOf(t)
	if i < 0 {
		return math.NaN(), false
	}
	return s.Values[i], true
}

// Slice returns the sub-series covering [from, to], both inclusive.
func (s *Series) Slice(from, to time.Time) *Series {
	lo := sort.Search(len(s.Times), func(i int) bool { return !s.Times[i].Before(from) })
	hi := sort.Search(len(s.Times), func(i int) bool { return s.Times[i].After(to) })
	out := s.Clone()
	out.Times = out.Times[lo:hi]
	out.Values = out.Values[lo:hi]
	return out
}

// ShiftedTime returns the index value `shift` positions away from t.
// Shifts beyond the ends of the index are clamped to the first or last value.
func (s *Series) ShiftedTime(t time.Time, shift int) (time.Time, error) {
	i := s.IndexOf(t)
	if i < 0 {
		return time.Time{}, fmt.Errorf("time %s not in index", t.Format("2006-01-02"))
	}
	i += shift
	if i < 0 {
		i = 0
	}
	if i >= len(s.Times) {
		i = len(s.Times) - 1
	}
	return s.Times[i], nil
}

// MissingCount returns the number of NaN values.
func (s *Series) MissingCount() int {
	count := 0
	for _, v := range s.Values {
		if math.IsNaN(v) {
			count++
		}
	}
	return count
}

// HasMissing reports whether the series contains any NaN value.
func (s *Series) HasMissing() bool {
	return s.MissingCount() > 0
}

// AllMissing reports whether the series contains only NaN values.
func (s *Series) AllMissing() bool {
	return s.MissingCount() == len(s.Values)
}

// SameIndex reports whether the two series have exactly the same time index.
func (s *Series) SameIndex(other *Series) bool {
	if len(s.Times) != len(other.Times) {
		return false
	}
	for i := range s.Times {
		if !s.Times[i].Equal(other.Times[i]) {
			return false
		}
	}
	return true
}

// checkAligned returns an error if the two series have different time
// indices. Mismatched indices are a hard error everywhere in this package,
// they are never silently broadcast.
func (s *Series) checkAligned(other *Series) error {
	if !s.SameIndex(other) {
		return fmt.Errorf("time indices of series %q and %q are not aligned", s.Name, other.Name)
	}
	return nil
}

// FillWith returns a new series where NaN values in s are replaced by the
// corresponding values of other. The indices must agree exactly.
func (s *Series) FillWith(other *Series) (*Series, error) {
	if err := s.checkAligned(other); err != nil {
		return nil, fmt.Errorf("fill: %w", err)
	}
	out := s.Clone()
	for i, v := range out.Values {
		if math.IsNaN(v) {
			out.Values[i] = other.Values[i]
		}
	}
	return out, nil
}

// FillableMask returns, per time step, whether s is missing a value that
// other could supply.
func (s *Series) FillableMask(other *Series) ([]bool, error) {
	if err := s.checkAligned(other); err != nil {
		return nil, fmt.Errorf("fillable mask: %w", err)
	}
	mask := make([]bool, len(s.Values))
	for i := range s.Values {
		mask[i] = math.IsNaN(s.Values[i]) && !math.IsNaN(other.Values[i])
	}
	return mask, nil
}

// OverlapMask returns, per time step, whether both series have data.
func (s *Series) OverlapMask(other *Series) ([]bool, error) {
	if err := s.checkAligned(other); err != nil {
		return nil, fmt.Errorf("overlap mask: %w", err)
	}
	mask := make([]bool, len(s.Values))
	for i := range s.Values {
		mask[i] = !math.IsNaN(s.Values[i]) && !math.IsNaN(other.Values[i])
	}
	return mask, nil
}

// MulScalar returns a new series with all values multiplied by f.
func (s *Series) MulScalar(f float64) *Series {
	out := s.Clone()
	for i := range out.Values {
		out.Values[i] *= f
	}
	return out
}

// Affine returns a new series with all values transformed to a*v + b.
func (s *Series) Affine(a, b float64) *Series {
	out := s.Clone()
	for i := range out.Values {
		out.Values[i] = a*out.Values[i] + b
	}
	return out
}

// Empty returns a new all-NaN series with the same index and metadata as s.
func (s *Series) Empty() *Series {
	out := s.Clone()
	for i := range out.Values {
		out.Values[i] = math.NaN()
	}
	return out
}

// HasNegative reports whether the series contains any negative value.
// NaN values are ignored.
func (s *Series) HasNegative() bool {
	for _, v := range s.Values {
		if !math.IsNaN(v) && v < 0 {
			return true
		}
	}
	return false
}

// Equal reports whether the two series have the same index and the same
// values, treating NaN as equal to NaN.
func (s *Series) Equal(other *Series) bool {
	if !s.SameIndex(other) {
		return false
	}
	for i := range s.Values {
		a, b := s.Values[i], other.Values[i]
		if math.IsNaN(a) && math.IsNaN(b) {
			continue
		}
		if a != b {
			return false
		}
	}
	return true
}

// CoordRepr returns a canonical, human-readable representation of the fixed
// coordinates, with keys in sorted order. Used in log messages and
// provenance descriptions.
func (s *Series) CoordRepr() string {
	keys := make([]string, 0, len(s.Coords))
	for k := range s.Coords {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, s.Coords[k]))
	}
	return strings.Join(parts, ", ")
}
