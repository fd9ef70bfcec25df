package compose

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"tscompose/internal/timeseries"
)

// LocalLSQStrategy fills missing data gap by gap, but derives a single
// harmonization from the data adjacent to the gaps instead of from the whole
// overlap.
//
// For every fillable gap, the windows of up to FitParams.TrendLength points
// next to each gap boundary are collected; positions where either series is
// missing are skipped. One least-squares fit over the union of all windows
// yields the harmonization (affine if AllowShift is set, a pure factor
// otherwise), and the harmonized fill data is spliced into the gaps.
//
// Compared to GlobalLSQStrategy this keeps the fit local to the gap
// boundaries, so a divergence between the series far away from the gaps does
// not distort the splice.
type LocalLSQStrategy struct {
	FitParams     FitParameters
	AllowShift    bool
	AllowNegative bool
	Logger        *slog.Logger
}

func (LocalLSQStrategy) Type() string { return "localLSQ" }

func (s LocalLSQStrategy) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

func (s LocalLSQStrategy) Fill(ts, fillTS *timeseries.Series, fillRepr string) (*timeseries.Series, []ProcessingStepDescription, error) {
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

	var fillableGaps []Gap
	for _, gap := range GetGaps(ts) {
		if len(fillableTimesInGap(ts.Times, fillable, gap)) > 0 {
			fillableGaps = append(fillableGaps, gap)
		}
	}

	x, y := s.matchingPoints(ts, fillTS, fillableGaps)
	if len(x) < s.FitParams.MinTrendPoints {
		return nil, nil, unableToProcess(fmt.Sprintf(
			"only %d matching points next to the gaps, %d required",
			len(x), s.FitParams.MinTrendPoints))
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
			harmonized, fitDescription, err = s.factorOnly(fillTS, x, y)
			if err != nil {
				return nil, nil, err
			}
		}
	} else {
		harmonized, fitDescription, err = s.factorOnly(fillTS, x, y)
		if err != nil {
			return nil, nil, err
		}
	}

	filled := ts
	var timeFilled []time.Time
	for _, gap := range fillableGaps {
		filled, err = FillGap(filled, harmonized, gap, [2]float64{1, 1})
		if err != nil {
			return nil, nil, err
		}
		timeFilled = append(timeFilled, fillableTimesInGap(ts.Times, fillable, gap)...)
	}

	description := ProcessingStepDescription{
		Time: formatTimes(timeFilled),
		Description: fmt.Sprintf("filled with gap-local least squares matched data from %s. %s",
			fillRepr, fitDescription),
		Function: s.Type(),
		Source:   fillRepr,
	}
	return filled, []ProcessingStepDescription{description}, nil
}

// matchingPoints collects the (fill, base) value pairs from the trend windows
// adjacent to the gaps. Windows of different gaps may overlap; each index
// position contributes at most once.
func (s LocalLSQStrategy) matchingPoints(ts, fillTS *timeseries.Series, gaps []Gap) (x, y []float64) {
	used := make(map[int]bool)
	for _, gap := range gaps {
		sides := []trendSide{sideLeft, sideRight}
		switch gap.Type {
		case GapStart:
			sides = []trendSide{sideRight}
		case GapEnd:
			sides = []trendSide{sideLeft}
		}
		for _, side := range sides {
			anchor, err := boundaryAnchor(ts, gap, side)
			if err != nil {
				continue
			}
			window, _ := nominalWindow(anchor, s.FitParams, side)
			for _, t := range window {
				i := ts.IndexOf(t)
				if i < 0 || used[i] {
					continue
				}
				tv, fv := ts.Values[i], fillTS.Values[i]
				if math.IsNaN(tv) || math.IsNaN(fv) {
					continue
				}
				used[i] = true
				x = append(x, fv)
				y = append(y, tv)
			}
		}
	}
	return x, y
}

func (s LocalLSQStrategy) factorOnly(fillTS *timeseries.Series, x, y []float64) (*timeseries.Series, string, error) {
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
