package compose

import (
	"fmt"
	"math"

	"tscompose/internal/timeseries"
)

// GlobalLSQStrategy fills missing data after harmonizing the fill timeseries
// with a single global least-squares fit over all time steps where both
// series have data.
//
// With AllowShift, the harmonization is affine (fill_h = a*fill + b); when
// the affine harmonization would produce negative values and AllowNegative
// is false, the strategy falls back to a pure scaling factor (b = 0). If the
// factor-only harmonization is still negative, or if the two series have no
// overlap at all, the strategy fails with StrategyUnableToProcess so the
// caller can fall through to a simpler strategy.
type GlobalLSQStrategy struct {
	AllowShift    bool
	AllowNegative bool
}

func (GlobalLSQStrategy) Type() string { return "globalLSQ" }

func (s GlobalLSQStrategy) Fill(ts, fillTS *timeseries.Series, fillRepr string) (*timeseries.Series, []ProcessingStepDescription, error) {
	fillable, err := ts.FillableMask(fillTS)
	if err != nil {
		return nil, nil, err
	}
	if !anyTrue(fillable) {
		description := ProcessingStepDescription{
			Time:        TimeNone,
			Description: fmt.Sprintf("no additional data in %s", fillRepr),
			Function:    s.Type(),
			Source:      fillRepr,
		}
		return ts, []ProcessingStepDescription{description}, nil
	}

	overlap, err := ts.OverlapMask(fillTS)
	if err != nil {
		return nil, nil, err
	}
	if !anyTrue(overlap) {
		return nil, nil, unableToProcess(
			fmt.Sprintf("no overlap between base and %s, cannot determine scaling", fillRepr))
	}

	var x, y []float64
	for i, ok := range overlap {
		if ok {
			x = append(x, fillTS.Values[i])
			y = append(y, ts.Values[i])
		}
	}

	var harmonized *timeseries.Series
	var fitDescription string
	if s.AllowShift {
		a, b, err := timeseries.LeastSquaresAffine(x, y)
		if err != nil {
			return nil, nil, unableToProcess(fmt.Sprintf("least squares fit failed: %v", err))
		}
		harmonized = fillTS.Affine(a, b)
		fitDescription = fmt.Sprintf("a*x+b with a=%.3f, b=%.3f", a, b)
		if harmonized.HasNegative() && !s.AllowNegative {
			// retry without the shift before giving up
			harmonized, fitDescription, err = s.factorOnly(ts, fillTS, x, y)
			if err != nil {
				return nil, nil, err
			}
		}
	} else {
		harmonized, fitDescription, err = s.factorOnly(ts, fillTS, x, y)
		if err != nil {
			return nil, nil, err
		}
	}

	filled, err := ts.FillWith(harmonized)
	if err != nil {
		return nil, nil, err
	}

	timeFilled := formatTimes(maskedTimes(ts.Times, fillable))
	description := ProcessingStepDescription{
		Time:        timeFilled,
		Description: fmt.Sprintf("filled with least squares matched data from %s. %s", fillRepr, fitDescription),
		Function:    s.Type(),
		Source:      fillRepr,
	}
	return filled, []ProcessingStepDescription{description}, nil
}

// factorOnly harmonizes with a single scaling factor, fill_h = a*fill.
func (s GlobalLSQStrategy) factorOnly(ts, fillTS *timeseries.Series, x, y []float64) (*timeseries.Series, string, error) {
	a, err := timeseries.LeastSquaresFactor(x, y)
	if err != nil {
		return nil, "", unableToProcess(fmt.Sprintf("least squares factor fit failed: %v", err))
	}
	if math.IsNaN(a) || math.IsInf(a, 0) {
		return nil, "", unableToProcess("least squares factor is not finite")
	}
	harmonized := fillTS.MulScalar(a)
	if harmonized.HasNegative() && !s.AllowNegative {
		return nil, "", unableToProcess("negative data after harmonization excluded by configuration")
	}
	return harmonized, fmt.Sprintf("factor=%.3f", a), nil
}
