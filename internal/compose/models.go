package compose

import (
	"fmt"

	"tscompose/internal/errors"
	"tscompose/internal/timeseries"
)

// Value is one selector entry: a set of accepted coordinate values,
// optionally negated. A scalar selector accepts exactly one value.
type Value struct {
	Values  []string
	Negated bool
}

// Scalar creates a selector value accepting exactly one coordinate value.
func Scalar(v string) Value {
	return Value{Values: []string{v}}
}

// OneOf creates a selector value accepting any of the given coordinate values.
func OneOf(vs ...string) Value {
	return Value{Values: vs}
}

// Not creates a negated selector value accepting everything except the given
// coordinate values. Only valid for fixed dimensions.
func Not(vs ...string) Value {
	return Value{Values: vs, Negated: true}
}

// IsScalar reports whether the value accepts exactly one coordinate value.
func (v Value) IsScalar() bool {
	return !v.Negated && len(v.Values) == 1
}

// Matches reports whether the coordinate value satisfies the selector value.
func (v Value) Matches(coord string) bool {
	found := false
	for _, accepted := range v.Values {
		if accepted == coord {
			found = true
			break
		}
	}
	if v.Negated {
		return !found
	}
	return found
}

// Selector maps coordinate dimension names to accepted values. The special
// dimension "variable" matches the series name instead of a coordinate.
// The empty selector matches everything.
type Selector map[string]Value

// VariableDim is the selector key matching the series name.
const VariableDim = "variable"

// MatchSeries reports whether the timeseries satisfies every entry of the
// selector.
func (sel Selector) MatchSeries(ts *timeseries.Series) bool {
	for dim, val := range sel {
		if dim == VariableDim {
			if !val.Matches(ts.Name) {
				return false
			}
			continue
		}
		coord, ok := ts.Coords[dim]
		if !ok {
			return false
		}
		if !val.Matches(coord) {
			return false
		}
	}
	return true
}

// matchSingleDim checks if a literal value in one dimension can match the
// selector. Dimensions not constrained by the selector always match.
func (sel Selector) matchSingleDim(dim, value string) bool {
	val, ok := sel[dim]
	if !ok {
		return true
	}
	return val.Matches(value)
}

// without returns a copy of the selector with one dimension removed.
func (sel Selector) without(dim string) Selector {
	out := make(Selector, len(sel))
	for k, v := range sel {
		if k != dim {
			out[k] = v
		}
	}
	return out
}

func (sel Selector) String() string {
	return fmt.Sprintf("%v", map[string]Value(sel))
}

// PriorityDefinition defines source priorities for composing a full dataset
// or a single timeseries.
//
// PriorityDimensions lists the dimensions from which source timeseries are
// selected; every entry of Priorities has to assign a scalar value to each of
// them. Entries come first-is-highest; an entry may additionally constrain
// fixed dimensions to narrow its applicability, e.g. a different ranking for
// a single region.
//
// ExcludeInput lists selections of input timeseries that are skipped during
// processing (the next source is used instead). ExcludeResult lists
// selections of result timeseries which are not processed at all and stay
// all-missing in the result; it may not constrain priority dimensions.
type PriorityDefinition struct {
	PriorityDimensions []string
	Priorities         []Selector
	ExcludeInput       []Selector
	ExcludeResult      []Selector
}

// CheckDimensions fails with a validation error if any priority entry omits
// a priority dimension or gives it a non-scalar value, or if a result
// exclusion constrains a priority dimension.
func (pd PriorityDefinition) CheckDimensions() error {
	for _, sel := range pd.Priorities {
		for _, dim := range pd.PriorityDimensions {
			val, ok := sel[dim]
			if !ok {
				return errors.NewValidationError(
					fmt.Sprintf("in priority %s: missing priority dimension %q", sel, dim))
			}
			if !val.IsScalar() {
				return errors.NewValidationError(
					fmt.Sprintf("in priority %s: multiple values for priority dimension %q", sel, dim))
			}
		}
	}
	for _, sel := range pd.ExcludeResult {
		for _, dim := range pd.PriorityDimensions {
			if _, ok := sel[dim]; ok {
				return errors.NewValidationError(
					fmt.Sprintf("in result exclusion %s: excluded priority dimension %q", sel, dim))
			}
		}
	}
	return nil
}

// Limit removes one fixed dimension by limiting to a single value.
// Entries not constraining dim are kept unchanged; entries whose constraint
// on dim matches value are kept with the constraint removed; all other
// entries are dropped. Priority dimensions cannot be limited away.
func (pd PriorityDefinition) Limit(dim, value string) PriorityDefinition {
	var kept []Selector
	for _, sel := range pd.Priorities {
		val, ok := sel[dim]
		if !ok {
			kept = append(kept, sel)
			continue
		}
		if !val.Matches(value) {
			continue
		}
		kept = append(kept, sel.without(dim))
	}
	return PriorityDefinition{
		PriorityDimensions: pd.PriorityDimensions,
		Priorities:         kept,
		ExcludeInput:       pd.ExcludeInput,
		ExcludeResult:      pd.ExcludeResult,
	}
}

// ExcludesInput checks if a selected input timeseries is excluded from
// processing.
func (pd PriorityDefinition) ExcludesInput(ts *timeseries.Series) bool {
	for _, sel := range pd.ExcludeInput {
		if sel.MatchSeries(ts) {
			return true
		}
	}
	return false
}

// ExcludesResult checks if a result timeseries is excluded from processing.
func (pd PriorityDefinition) ExcludesResult(ts *timeseries.Series) bool {
	for _, sel := range pd.ExcludeResult {
		if sel.MatchSeries(ts) {
			return true
		}
	}
	return false
}

// FillStrategy fills missing data in a timeseries using another timeseries.
//
// Fill must not modify ts or fillTS; the returned series has the same index
// as ts. Every time step where the result differs from ts must be covered by
// a returned description, and no unchanged time step may be described. A
// strategy reports that it cannot handle the given pair by returning a
// *StrategyUnableToProcess error; the caller then tries the next applicable
// strategy.
type FillStrategy interface {
	Type() string
	Fill(ts, fillTS *timeseries.Series, fillRepr string) (*timeseries.Series, []ProcessingStepDescription, error)
}

// StrategyEntry pairs a timeseries selector with the filling strategy to use
// for matching timeseries.
type StrategyEntry struct {
	Selector Selector
	Strategy FillStrategy
}

// StrategyDefinition defines filling strategies for timeseries. When a
// timeseries is used to fill missing data, the entries are checked in order
// and the first matching selector determines the strategy. A default
// strategy is configured with the empty selector as the last entry; entries
// after it are unreachable.
type StrategyDefinition struct {
	Entries []StrategyEntry
}

// FindStrategies returns all strategies applicable to the timeseries, in
// configured order.
func (sd StrategyDefinition) FindStrategies(ts *timeseries.Series) []FillStrategy {
	var found []FillStrategy
	for _, entry := range sd.Entries {
		if entry.Selector.MatchSeries(ts) {
			found = append(found, entry.Strategy)
		}
	}
	return found
}

// FindStrategy returns the first strategy applicable to the timeseries.
func (sd StrategyDefinition) FindStrategy(ts *timeseries.Series) (FillStrategy, error) {
	for _, entry := range sd.Entries {
		if entry.Selector.MatchSeries(ts) {
			return entry.Strategy, nil
		}
	}
	return nil, errors.NewNotFoundError(
		fmt.Sprintf("matching strategy for series %q (%s)", ts.Name, ts.CoordRepr()))
}

// Limit restricts the strategy definition to strategies applicable when dim
// has the given value, removing dim from the kept selectors.
func (sd StrategyDefinition) Limit(dim, value string) StrategyDefinition {
	var kept []StrategyEntry
	for _, entry := range sd.Entries {
		if !entry.Selector.matchSingleDim(dim, value) {
			continue
		}
		kept = append(kept, StrategyEntry{
			Selector: entry.Selector.without(dim),
			Strategy: entry.Strategy,
		})
	}
	return StrategyDefinition{Entries: kept}
}

// CheckDimensions fails with a validation error if any selector uses a
// dimension that is not part of the dataset.
func (sd StrategyDefinition) CheckDimensions(dims []string) error {
	valid := map[string]bool{VariableDim: true}
	for _, d := range dims {
		valid[d] = true
	}
	for _, entry := range sd.Entries {
		for dim := range entry.Selector {
			if !valid[dim] {
				return errors.NewValidationError(
					fmt.Sprintf("in selector %s: %q is not a valid dimension", entry.Selector, dim))
			}
		}
	}
	return nil
}
