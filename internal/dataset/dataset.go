package dataset

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"tscompose/internal/timeseries"
)

// Dataset is a collection of timeseries over a shared time index,
// distinguished by their fixed coordinate labels.
type Dataset struct {
	Series []*timeseries.Series
}

// New creates a dataset and validates that all series share the same time
// index and the same set of coordinate dimensions.
func New(series []*timeseries.Series) (*Dataset, error) {
	ds := &Dataset{Series: series}
	if err := ds.Validate(); err != nil {
		return nil, err
	}
	return ds, nil
}

// Validate checks the alignment invariants of the dataset.
func (ds *Dataset) Validate() error {
	if len(ds.Series) == 0 {
		return fmt.Errorf("dataset contains no series")
	}
	first := ds.Series[0]
	dims := dimsOf(first)
	for _, s := range ds.Series[1:] {
		if !first.SameIndex(s) {
			return fmt.Errorf("series %q (%s) has a different time index than %q",
				s.Name, s.CoordRepr(), first.Name)
		}
		if !sameDims(dims, dimsOf(s)) {
			return fmt.Errorf("series %q (%s) has coordinate dimensions %v, expected %v",
				s.Name, s.CoordRepr(), dimsOf(s), dims)
		}
	}
	return nil
}

// Dims returns the sorted coordinate dimension names of the dataset.
func (ds *Dataset) Dims() []string {
	if len(ds.Series) == 0 {
		return nil
	}
	return dimsOf(ds.Series[0])
}

// Times returns the shared time index of the dataset.
func (ds *Dataset) Times() []time.Time {
	if len(ds.Series) == 0 {
		return nil
	}
	return ds.Series[0].Times
}

// LimitCoords returns a new dataset containing only series whose coordinate
// values are listed in the limit map. Dimensions absent from the map are
// not constrained.
func (ds *Dataset) LimitCoords(limit map[string][]string) *Dataset {
	var kept []*timeseries.Series
	for _, s := range ds.Series {
		keep := true
		for dim, allowed := range limit {
			val, ok := s.Coords[dim]
			if !ok {
				continue
			}
			found := false
			for _, a := range allowed {
				if a == val {
					found = true
					break
				}
			}
			if !found {
				keep = false
				break
			}
		}
		if keep {
			kept = append(kept, s)
		}
	}
	return &Dataset{Series: kept}
}

// LimitTime returns a new dataset restricted to [from, to], both inclusive.
func (ds *Dataset) LimitTime(from, to time.Time) *Dataset {
	out := make([]*timeseries.Series, len(ds.Series))
	for i, s := range ds.Series {
		out[i] = s.Slice(from, to)
	}
	return &Dataset{Series: out}
}

// Combination is one independent unit of work for composition: a variable
// name and a unique assignment of all fixed (non-priority) coordinates,
// together with all candidate series that carry them.
type Combination struct {
	Variable    string
	FixedCoords map[string]string
	Candidates  []*timeseries.Series
}

// Key returns a stable string key for the combination, with dimensions in
// sorted order.
func (c Combination) Key() string {
	keys := make([]string, 0, len(c.FixedCoords))
	for k := range c.FixedCoords {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys)+1)
	parts = append(parts, fmt.Sprintf("variable=%s", c.Variable))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, c.FixedCoords[k]))
	}
	return strings.Join(parts, ",")
}

// Combinations splits the dataset into the independent combinations of all
// dimensions that are not priority dimensions. The returned slice is ordered
// by combination key for deterministic processing.
func (ds *Dataset) Combinations(priorityDims []string) ([]Combination, error) {
	isPriority := make(map[string]bool, len(priorityDims))
	for _, d := range priorityDims {
		isPriority[d] = true
	}
	for _, d := range priorityDims {
		found := false
		for _, dim := range ds.Dims() {
			if dim == d {
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("priority dimension %q not present in dataset dimensions %v", d, ds.Dims())
		}
	}

	byKey := map[string]*Combination{}
	var order []string
	for _, s := range ds.Series {
		fixed := map[string]string{}
		for dim, val := range s.Coords {
			if !isPriority[dim] {
				fixed[dim] = val
			}
		}
		comb := Combination{Variable: s.Name, FixedCoords: fixed}
		key := comb.Key()
		existing, ok := byKey[key]
		if !ok {
			comb.Candidates = []*timeseries.Series{s}
			byKey[key] = &comb
			order = append(order, key)
			continue
		}
		existing.Candidates = append(existing.Candidates, s)
	}

	sort.Strings(order)
	result := make([]Combination, 0, len(order))
	for _, key := range order {
		result = append(result, *byKey[key])
	}
	return result, nil
}

func dimsOf(s *timeseries.Series) []string {
	dims := make([]string, 0, len(s.Coords))
	for k := range s.Coords {
		dims = append(dims, k)
	}
	sort.Strings(dims)
	return dims
}

func sameDims(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
