package compose

import (
	"fmt"

	"tscompose/internal/timeseries"
)

// SubstitutionStrategy fills missing data in the base timeseries by copying
// the corresponding values from the fill timeseries, without any numeric
// harmonization. It always succeeds; values missing in both series stay
// missing.
type SubstitutionStrategy struct{}

func (SubstitutionStrategy) Type() string { return "substitution" }

func (s SubstitutionStrategy) Fill(ts, fillTS *timeseries.Series, fillRepr string) (*timeseries.Series, []ProcessingStepDescription, error) {
	filled, err := ts.FillWith(fillTS)
	if err != nil {
		return nil, nil, err
	}
	mask, err := ts.FillableMask(fillTS)
	if err != nil {
		return nil, nil, err
	}

	timeFilled := formatTimes(maskedTimes(ts.Times, mask))
	if allTrue(mask) {
		timeFilled = TimeAll
	}
	description := ProcessingStepDescription{
		Time:        timeFilled,
		Description: fmt.Sprintf("substituted with corresponding values from %s", fillRepr),
		Function:    s.Type(),
		Source:      fillRepr,
	}
	return filled, []ProcessingStepDescription{description}, nil
}
