package compose

import (
	"fmt"

	"tscompose/internal/timeseries"
)

// IdentityStrategy returns the base timeseries unchanged, ignoring the fill
// timeseries entirely. It always succeeds. The primary use case is to
// explicitly skip a certain source for specific coordinate combinations
// because it is known to be wrong or unusable.
//
// Because the identity strategy always returns a result, strategies
// configured after it for the same selection are unreachable.
type IdentityStrategy struct{}

func (IdentityStrategy) Type() string { return "identity" }

func (s IdentityStrategy) Fill(ts, fillTS *timeseries.Series, fillRepr string) (*timeseries.Series, []ProcessingStepDescription, error) {
	description := ProcessingStepDescription{
		Time:        TimeAll,
		Description: fmt.Sprintf("skipping %s, not using data from it", fillRepr),
		Function:    s.Type(),
		Source:      fillRepr,
	}
	return ts, []ProcessingStepDescription{description}, nil
}
