package compose

import (
	"context"
	"fmt"
	"time"

	"tscompose/internal/dataset"
	"tscompose/internal/errors"
)

// CompositeParams configures the convenience wrapper around Compose.
type CompositeParams struct {
	// ResultCoords assigns a coordinate value per priority dimension that is
	// stamped onto every result series, e.g. source="composite". Every
	// priority dimension needs an entry.
	ResultCoords map[string]string
	// LimitCoords restricts the input to the listed coordinate values before
	// composing. Dimensions absent from the map are not constrained.
	LimitCoords map[string][]string
	// TimeFrom and TimeTo restrict the input to an inclusive time range.
	// A zero value leaves the corresponding bound open.
	TimeFrom, TimeTo time.Time
	// Metadata is attached to the result as free-form descriptive fields
	// (title, institution, references and the like).
	Metadata map[string]string
}

// CreateCompositeSource pre-filters the input dataset, composes it and stamps
// the resolved priority dimensions back onto the result with the configured
// coordinate values, so the composite can be concatenated with its sources.
func CreateCompositeSource(ctx context.Context, ds *dataset.Dataset, prioDef PriorityDefinition, stratDef StrategyDefinition, params CompositeParams, opts Options) (*Result, error) {
	for _, dim := range prioDef.PriorityDimensions {
		if _, ok := params.ResultCoords[dim]; !ok {
			return nil, errors.NewConfigError(
				fmt.Sprintf("no result coordinate value for priority dimension %q", dim), nil)
		}
	}

	limited := ds
	if len(params.LimitCoords) > 0 {
		limited = limited.LimitCoords(params.LimitCoords)
	}
	if !params.TimeFrom.IsZero() || !params.TimeTo.IsZero() {
		times := limited.Times()
		if len(times) == 0 {
			return nil, errors.NewDataError("input dataset is empty after coordinate limiting", nil)
		}
		from, to := params.TimeFrom, params.TimeTo
		if from.IsZero() {
			from = times[0]
		}
		if to.IsZero() {
			to = times[len(times)-1]
		}
		limited = limited.LimitTime(from, to)
	}
	if len(limited.Series) == 0 {
		return nil, errors.NewDataError("input dataset is empty after limiting", nil)
	}

	result, err := Compose(ctx, limited, prioDef, stratDef, opts)
	if err != nil {
		return nil, err
	}

	if result.Dataset != nil {
		for _, s := range result.Dataset.Series {
			for _, dim := range prioDef.PriorityDimensions {
				s.Coords[dim] = params.ResultCoords[dim]
			}
		}
	}
	if len(params.Metadata) > 0 {
		result.Metadata = make(map[string]string, len(params.Metadata))
		for k, v := range params.Metadata {
			result.Metadata[k] = v
		}
	}
	return result, nil
}
