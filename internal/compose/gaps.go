package compose

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"tscompose/internal/errors"
	"tscompose/internal/timeseries"
)

// GapType classifies a missing-value region of a timeseries.
type GapType string

const (
	// GapStart means the timeseries begins with missing values.
	GapStart GapType = "start"
	// GapInterior is a hole bounded on both sides by present data.
	GapInterior GapType = "gap"
	// GapEnd means the timeseries ends with missing values.
	GapEnd GapType = "end"
)

// Gap denotes one contiguous run of missing values. Left and Right are the
// first and last missing time steps of the run, both inclusive.
type Gap struct {
	Type  GapType
	Left  time.Time
	Right time.Time
}

func (g Gap) String() string {
	return fmt.Sprintf("%s %s - %s", g.Type, g.Left.Format("2006-01-02"), g.Right.Format("2006-01-02"))
}

// FitParameters configures the polynomial boundary fits used by the local
// filling strategies.
type FitParameters struct {
	FitDegree       int
	FallbackDegree  int
	TrendLength     int
	TrendLengthUnit string
	MinTrendPoints  int
}

// DefaultFitParameters returns the standard configuration: a linear trend
// over ten yearly steps with a constant fallback.
func DefaultFitParameters() FitParameters {
	return FitParameters{
		FitDegree:       1,
		FallbackDegree:  0,
		TrendLength:     10,
		TrendLengthUnit: "YS",
		MinTrendPoints:  5,
	}
}

// Validate checks the internal consistency of the fit parameters.
// A polynomial of degree d needs at least d+1 points; MinTrendPoints allows
// requiring a stricter margin, but never less than the fit degree.
func (p FitParameters) Validate() error {
	if p.FitDegree < 0 || p.FallbackDegree < 0 {
		return errors.NewValidationError("fit degrees must not be negative")
	}
	if p.TrendLength < 1 {
		return errors.NewValidationError("trend length must be at least 1")
	}
	if p.MinTrendPoints < 1 {
		return errors.NewValidationError("min trend points must be at least 1")
	}
	if p.MinTrendPoints < p.FitDegree {
		return errors.NewValidationError(fmt.Sprintf(
			"min trend points %d smaller than fit degree %d", p.MinTrendPoints, p.FitDegree))
	}
	switch p.TrendLengthUnit {
	case "YS", "MS", "D":
	default:
		return errors.NewValidationError(fmt.Sprintf("unknown trend length unit %q", p.TrendLengthUnit))
	}
	return nil
}

// Fallback returns the parameters for the fallback fit: the fallback degree
// with the minimal point requirement.
func (p FitParameters) Fallback() FitParameters {
	return FitParameters{
		FitDegree:       p.FallbackDegree,
		FallbackDegree:  p.FallbackDegree,
		TrendLength:     p.TrendLength,
		TrendLengthUnit: p.TrendLengthUnit,
		MinTrendPoints:  1,
	}
}

func (p FitParameters) String() string {
	return fmt.Sprintf("fit_degree=%d fallback_degree=%d trend_length=%d%s min_trend_points=%d",
		p.FitDegree, p.FallbackDegree, p.TrendLength, p.TrendLengthUnit, p.MinTrendPoints)
}

// GetGaps scans a timeseries and returns its missing-value regions in
// left-to-right order: at most one start gap, then interior gaps, then at
// most one end gap. A series with no data at all is reported as a single
// start gap covering the whole index.
func GetGaps(ts *timeseries.Series) []Gap {
	n := ts.Len()
	if n == 0 {
		return nil
	}

	hasData := make([]bool, n)
	first, last := -1, -1
	for i, v := range ts.Values {
		if !math.IsNaN(v) {
			hasData[i] = true
			if first < 0 {
				first = i
			}
			last = i
		}
	}
	if first < 0 {
		return []Gap{{Type: GapStart, Left: ts.Times[0], Right: ts.Times[n-1]}}
	}

	var gaps []Gap
	if first > 0 {
		gaps = append(gaps, Gap{Type: GapStart, Left: ts.Times[0], Right: ts.Times[first-1]})
	}

	// Interior gap boundaries are recovered from the "has neighbor data"
	// masks: XOR-ing the two-point rolling data mask against the plain data
	// mask flags exactly the missing positions adjacent to data.
	hasLeftNeighbor := make([]bool, n)
	hasRightNeighbor := make([]bool, n)
	for i := first; i <= last; i++ {
		hasLeftNeighbor[i] = hasData[i] || (i > 0 && hasData[i-1])
		hasRightNeighbor[i] = hasData[i] || (i < n-1 && hasData[i+1])
	}
	var left time.Time
	inGap := false
	for i := first; i <= last; i++ {
		if hasLeftNeighbor[i] != hasData[i] {
			left = ts.Times[i]
			inGap = true
		}
		if inGap && hasRightNeighbor[i] != hasData[i] {
			gaps = append(gaps, Gap{Type: GapInterior, Left: left, Right: ts.Times[i]})
			inGap = false
		}
	}

	if last < n-1 {
		gaps = append(gaps, Gap{Type: GapEnd, Left: ts.Times[last+1], Right: ts.Times[n-1]})
	}
	return gaps
}

// trendSide identifies on which side of a gap the data window for a boundary
// trend lies.
type trendSide string

const (
	sideLeft  trendSide = "left"
	sideRight trendSide = "right"
)

// boundaryAnchor returns the data point adjacent to the gap on the given
// side: the last point before the missing run for the left side, the first
// point after it for the right side.
func boundaryAnchor(ts *timeseries.Series, gap Gap, side trendSide) (time.Time, error) {
	if side == sideLeft {
		return ts.ShiftedTime(gap.Left, -1)
	}
	return ts.ShiftedTime(gap.Right, 1)
}

// nominalWindow builds the window of TrendLength points spaced by
// TrendLengthUnit, ending (left side) or starting (right side) at the
// anchor. It returns the window times and the position of the anchor within
// the window.
func nominalWindow(anchor time.Time, params FitParameters, side trendSide) ([]time.Time, int) {
	window := make([]time.Time, params.TrendLength)
	for i := 0; i < params.TrendLength; i++ {
		var offset int
		if side == sideLeft {
			offset = i - (params.TrendLength - 1)
		} else {
			offset = i
		}
		switch params.TrendLengthUnit {
		case "YS":
			window[i] = anchor.AddDate(offset, 0, 0)
		case "MS":
			window[i] = anchor.AddDate(0, offset, 0)
		default:
			window[i] = anchor.AddDate(0, 0, offset)
		}
	}
	if side == sideLeft {
		return window, params.TrendLength - 1
	}
	return window, 0
}

// calculateBoundaryTrend fits a polynomial to the data window adjacent to
// the gap boundary on the given side and evaluates it at the boundary point.
// The nominal window is intersected with the actual time index, so missing
// dates inside the window are tolerated. If fewer than MinTrendPoints
// non-missing points remain, the shortfall is logged and NaN is returned.
func calculateBoundaryTrend(ts *timeseries.Series, gap Gap, side trendSide, params FitParameters, logger *slog.Logger) float64 {
	anchor, err := boundaryAnchor(ts, gap, side)
	if err != nil {
		return math.NaN()
	}

	window, anchorPos := nominalWindow(anchor, params, side)
	var xs, ys []float64
	for i, t := range window {
		v, ok := ts.At(t)
		if !ok || math.IsNaN(v) {
			continue
		}
		xs = append(xs, float64(i))
		ys = append(ys, v)
	}

	if len(xs) < params.MinTrendPoints {
		logger.Debug("not enough values to calculate boundary fit",
			"side", string(side),
			"boundary", anchor.Format("2006-01-02"),
			"available_points", len(xs),
			"fit_params", params.String(),
			"series", ts.CoordRepr(),
		)
		return math.NaN()
	}

	coeffs, err := timeseries.Polyfit(xs, ys, params.FitDegree)
	if err != nil {
		logger.Debug("boundary fit failed",
			"side", string(side),
			"boundary", anchor.Format("2006-01-02"),
			"error", err,
			"series", ts.CoordRepr(),
		)
		return math.NaN()
	}
	return timeseries.Polyval(coeffs, float64(anchorPos))
}

// boundaryTrendPair computes the boundary trend for the base and the fill
// timeseries on one side of a gap with the same fit parameters. If either
// fit fails, both are recomputed with the fallback parameters so the two
// series are always compared on equal footing.
func boundaryTrendPair(ts, fillTS *timeseries.Series, gap Gap, side trendSide, params FitParameters, logger *slog.Logger) (tsTrend, fillTrend float64) {
	tsTrend = calculateBoundaryTrend(ts, gap, side, params, logger)
	fillTrend = calculateBoundaryTrend(fillTS, gap, side, params, logger)
	if math.IsNaN(tsTrend) || math.IsNaN(fillTrend) {
		fallback := params.Fallback()
		tsTrend = calculateBoundaryTrend(ts, gap, side, fallback, logger)
		fillTrend = calculateBoundaryTrend(fillTS, gap, side, fallback, logger)
	}
	return tsTrend, fillTrend
}

// scalingRatio computes the harmonization factor trend(ts)/trend(fillTS) for
// one gap boundary. The zero/zero case is defined as the numerator value (a
// pinned heuristic, typically 0); a nonzero numerator over a zero
// denominator yields an infinite factor signalling that harmonization is
// impossible.
func scalingRatio(tsTrend, fillTrend float64) float64 {
	if math.IsNaN(tsTrend) || math.IsNaN(fillTrend) {
		return math.NaN()
	}
	if fillTrend == 0 {
		if tsTrend == 0 {
			return tsTrend
		}
		return math.Inf(int(math.Copysign(1, tsTrend)))
	}
	return tsTrend / fillTrend
}

// CalculateScalingFactor computes the boundary-matched scaling factors for a
// gap: one factor per gap side, [left, right]. For start and end gaps only
// one side exists and its factor is used for both entries. For interior gaps
// where only one side is computable, the computable side is mirrored to the
// other.
func CalculateScalingFactor(ts, fillTS *timeseries.Series, gap Gap, params FitParameters, logger *slog.Logger) [2]float64 {
	switch gap.Type {
	case GapStart:
		f := scalingRatio(boundaryTrendPair(ts, fillTS, gap, sideRight, params, logger))
		return [2]float64{f, f}
	case GapEnd:
		f := scalingRatio(boundaryTrendPair(ts, fillTS, gap, sideLeft, params, logger))
		return [2]float64{f, f}
	default:
		left := scalingRatio(boundaryTrendPair(ts, fillTS, gap, sideLeft, params, logger))
		right := scalingRatio(boundaryTrendPair(ts, fillTS, gap, sideRight, params, logger))
		if math.IsNaN(left) && !math.IsNaN(right) {
			left = right
		}
		if math.IsNaN(right) && !math.IsNaN(left) {
			right = left
		}
		return [2]float64{left, right}
	}
}

// FillGap splices the scaled fill timeseries into the missing slots of ts
// within the gap's time range. When the left and right factors differ, the
// factor is linearly interpolated across the gap by elapsed time fraction so
// the spliced segment transitions smoothly between the two boundary-matched
// scales.
func FillGap(ts, fillTS *timeseries.Series, gap Gap, factor [2]float64) (*timeseries.Series, error) {
	if !ts.SameIndex(fillTS) {
		return nil, errors.NewDataError(
			fmt.Sprintf("fill gap %s: time indices not aligned", gap), nil)
	}

	out := ts.Clone()
	span := gap.Right.Sub(gap.Left)
	for i, t := range out.Times {
		if t.Before(gap.Left) || t.After(gap.Right) {
			continue
		}
		if !math.IsNaN(out.Values[i]) || math.IsNaN(fillTS.Values[i]) {
			continue
		}
		f := factor[0]
		if factor[0] != factor[1] && span > 0 {
			frac := float64(t.Sub(gap.Left)) / float64(span)
			f = factor[0]*(1-frac) + factor[1]*frac
		}
		out.Values[i] = fillTS.Values[i] * f
	}
	return out, nil
}
