package compose

import (
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"tscompose/internal/timeseries"
)

// LocalTrendsStrategy fills missing data gap by gap, harmonizing the fill
// timeseries with a scaling factor matched to the base timeseries at the gap
// boundaries.
//
// For each boundary, a polynomial trend of FitParams.FitDegree is fitted to
// up to FitParams.TrendLength points adjacent to the gap in both series, and
// the factor is the ratio of the two trend values at the boundary. Interior
// gaps get one factor per side; if they differ, the factor is interpolated
// linearly across the gap. A negative factor is retried with the fallback
// degree unless AllowNegative is set; gaps whose factor is still negative,
// not computable, or infinite are left unfilled.
//
// The strategy fails with StrategyUnableToProcess when no gap could be
// filled at all. Setting TrendLength to 1 gives single-point matching.
type LocalTrendsStrategy struct {
	FitParams     FitParameters
	AllowNegative bool
	Logger        *slog.Logger
}

func (LocalTrendsStrategy) Type() string { return "localTrends" }

func (s LocalTrendsStrategy) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

func (s LocalTrendsStrategy) Fill(ts, fillTS *timeseries.Series, fillRepr string) (*timeseries.Series, []ProcessingStepDescription, error) {
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

	logger := s.logger()
	filled := ts.Clone()
	var timeFilled []time.Time
	anyFilled := false
	var gapMessages []string

	// gaps are processed in left-to-right time order for reproducible
	// provenance descriptions
	for _, gap := range GetGaps(ts) {
		gapTimes := fillableTimesInGap(ts.Times, fillable, gap)
		if len(gapTimes) == 0 {
			continue
		}

		message := fmt.Sprintf("gap %s:", gap)
		factor := CalculateScalingFactor(ts, fillTS, gap, s.FitParams, logger)

		if isNegative(factor) && !s.AllowNegative {
			factor = CalculateScalingFactor(ts, fillTS, gap, s.FitParams.Fallback(), logger)
			message += fmt.Sprintf(" negative scaling factor, used fallback degree %d;", s.FitParams.FallbackDegree)
		}

		switch {
		case isNegative(factor) && !s.AllowNegative:
			message += " negative scaling after fallback, gap not filled;"
		case math.IsNaN(factor[0]) || math.IsNaN(factor[1]):
			message += " scaling factor not computable, gap not filled;"
		case math.IsInf(factor[0], 0) || math.IsInf(factor[1], 0):
			message += " infinite scaling factor, gap not filled;"
		default:
			filled, err = FillGap(filled, fillTS, gap, factor)
			if err != nil {
				return nil, nil, err
			}
			anyFilled = true
			timeFilled = append(timeFilled, gapTimes...)
			if factor[0] == factor[1] {
				message += fmt.Sprintf(" filled for %s using factor %.2f;", formatTimes(gapTimes), factor[0])
			} else {
				message += fmt.Sprintf(" filled for %s using factors %.2f and %.2f;",
					formatTimes(gapTimes), factor[0], factor[1])
			}
		}
		gapMessages = append(gapMessages, message)
	}

	if !anyFilled {
		return nil, nil, unableToProcess(
			fmt.Sprintf("no usable overlap between base and %s for any gap", fillRepr))
	}

	description := ProcessingStepDescription{
		Time: formatTimes(timeFilled),
		Description: fmt.Sprintf("filled with local trend matched data from %s. %s",
			fillRepr, strings.Join(gapMessages, " ")),
		Function: s.Type(),
		Source:   fillRepr,
	}
	return filled, []ProcessingStepDescription{description}, nil
}

// fillableTimesInGap returns the fillable time steps within the gap range.
func fillableTimesInGap(times []time.Time, fillable []bool, gap Gap) []time.Time {
	var out []time.Time
	for i, t := range times {
		if fillable[i] && !t.Before(gap.Left) && !t.After(gap.Right) {
			out = append(out, t)
		}
	}
	return out
}

func isNegative(factor [2]float64) bool {
	return factor[0] < 0 || factor[1] < 0
}
