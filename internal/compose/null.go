package compose

import (
	"fmt"

	"tscompose/internal/timeseries"
)

// NullStrategy replaces all data in the timeseries with missing values,
// independent of the contents of both inputs. It always succeeds. The
// primary use case is to explicitly blank out coordinate combinations that
// must not be populated at all, e.g. an invalid category/entity pairing.
//
// Because the null strategy always returns a result, strategies configured
// after it for the same selection are unreachable.
type NullStrategy struct{}

func (NullStrategy) Type() string { return "null" }

func (s NullStrategy) Fill(ts, fillTS *timeseries.Series, fillRepr string) (*timeseries.Series, []ProcessingStepDescription, error) {
	description := ProcessingStepDescription{
		Time:        TimeAll,
		Description: fmt.Sprintf("filled with missing values, not using data from %s", fillRepr),
		Function:    s.Type(),
		Source:      fillRepr,
	}
	return ts.Empty(), []ProcessingStepDescription{description}, nil
}
