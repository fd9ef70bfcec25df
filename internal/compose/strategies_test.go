package compose

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fillStrategies returns one instance per strategy for contract tests.
func fillStrategies() []FillStrategy {
	return []FillStrategy{
		SubstitutionStrategy{},
		IdentityStrategy{},
		NullStrategy{},
		GlobalLSQStrategy{},
		LocalTrendsStrategy{FitParams: DefaultFitParameters()},
		LocalLSQStrategy{FitParams: DefaultFitParameters()},
	}
}

func TestStrategiesDoNotMutateInputs(t *testing.T) {
	for _, strategy := range fillStrategies() {
		t.Run(strategy.Type(), func(t *testing.T) {
			base := ts(t, 1, nan(), 3, nan(), 5)
			fill := ts(t, 2, 4, 6, 8, 10)
			baseCopy := base.Clone()
			fillCopy := fill.Clone()

			_, _, err := strategy.Fill(base, fill, "source=B")
			if err != nil {
				require.True(t, IsUnableToProcess(err))
			}
			assert.True(t, base.Equal(baseCopy), "base was mutated")
			assert.True(t, fill.Equal(fillCopy), "fill was mutated")
		})
	}
}

func TestStrategiesNoOpWhenNothingFillable(t *testing.T) {
	// the candidate has no data where the base is missing, so the numeric
	// strategies return the base unchanged with an empty time range
	base := ts(t, 1, nan(), 3)
	fill := ts(t, 2, nan(), 6)

	for _, strategy := range []FillStrategy{
		SubstitutionStrategy{},
		GlobalLSQStrategy{},
		LocalTrendsStrategy{FitParams: DefaultFitParameters()},
		LocalLSQStrategy{FitParams: DefaultFitParameters()},
	} {
		t.Run(strategy.Type(), func(t *testing.T) {
			filled, descs, err := strategy.Fill(base, fill, "source=B")
			require.NoError(t, err)
			assert.True(t, filled.Equal(base))
			require.Len(t, descs, 1)
			assert.Equal(t, TimeNone, descs[0].Time)
		})
	}
}

func TestSubstitution(t *testing.T) {
	base := ts(t, nan(), 2, nan(), 4)
	fill := ts(t, 10, 20, nan(), 40)

	filled, descs, err := SubstitutionStrategy{}.Fill(base, fill, "source=B")
	require.NoError(t, err)
	assert.Equal(t, 10.0, filled.Values[0])
	assert.Equal(t, 2.0, filled.Values[1])
	assert.True(t, math.IsNaN(filled.Values[2]))
	assert.Equal(t, 4.0, filled.Values[3])

	require.Len(t, descs, 1)
	assert.Equal(t, "2000-01-01", descs[0].Time)
	assert.Equal(t, "substitution", descs[0].Function)
	assert.Equal(t, "source=B", descs[0].Source)
}

func TestSubstitutionIsIdempotent(t *testing.T) {
	base := ts(t, nan(), 2, nan())
	fill := ts(t, 10, 20, 30)

	once, _, err := SubstitutionStrategy{}.Fill(base, fill, "source=B")
	require.NoError(t, err)
	twice, descs, err := SubstitutionStrategy{}.Fill(once, fill, "source=B")
	require.NoError(t, err)

	assert.True(t, once.Equal(twice))
	assert.Equal(t, TimeNone, descs[0].Time, "second application adds nothing")
}

func TestSubstitutionWholeSeriesUsesTimeAll(t *testing.T) {
	base := ts(t, nan(), nan())
	fill := ts(t, 1, 2)

	_, descs, err := SubstitutionStrategy{}.Fill(base, fill, "source=B")
	require.NoError(t, err)
	assert.Equal(t, TimeAll, descs[0].Time)
}

func TestIdentityKeepsBase(t *testing.T) {
	base := ts(t, 1, nan(), 3)
	fill := ts(t, 9, 9, 9)

	filled, descs, err := IdentityStrategy{}.Fill(base, fill, "source=B")
	require.NoError(t, err)
	assert.True(t, filled.Equal(base))
	require.Len(t, descs, 1)
	assert.Equal(t, TimeAll, descs[0].Time)
	assert.Equal(t, "identity", descs[0].Function)
}

func TestNullBlanksResult(t *testing.T) {
	base := ts(t, 1, 2, 3)
	fill := ts(t, 9, 9, 9)

	filled, descs, err := NullStrategy{}.Fill(base, fill, "source=B")
	require.NoError(t, err)
	assert.True(t, filled.AllMissing())
	assert.Equal(t, TimeAll, descs[0].Time)
}

func TestGlobalLSQFactorHarmonization(t *testing.T) {
	// fill is exactly twice the true series, so the factor 0.5 reconstructs it
	base := ts(t, 1, 2, nan(), 4, nan(), 6)
	fill := ts(t, 2, 4, 6, 8, 10, 12)

	filled, descs, err := GlobalLSQStrategy{}.Fill(base, fill, "source=B")
	require.NoError(t, err)
	assert.InDelta(t, 3.0, filled.Values[2], 1e-9)
	assert.InDelta(t, 5.0, filled.Values[4], 1e-9)
	// existing values untouched
	assert.Equal(t, 1.0, filled.Values[0])

	require.Len(t, descs, 1)
	assert.Equal(t, "2002-01-01,2004-01-01", descs[0].Time)
	assert.Equal(t, "globalLSQ", descs[0].Function)
	assert.Contains(t, descs[0].Description, "factor=0.500")
}

func TestGlobalLSQAffine(t *testing.T) {
	// true relationship base = 0.5*fill + 1
	base := ts(t, 2, 3, nan(), 5)
	fill := ts(t, 2, 4, 6, 8)

	filled, descs, err := GlobalLSQStrategy{AllowShift: true}.Fill(base, fill, "source=B")
	require.NoError(t, err)
	assert.InDelta(t, 4.0, filled.Values[2], 1e-9)
	assert.Contains(t, descs[0].Description, "a*x+b")
}

func TestGlobalLSQNoOverlapFails(t *testing.T) {
	base := ts(t, 1, nan())
	fill := ts(t, nan(), 5)

	_, _, err := GlobalLSQStrategy{}.Fill(base, fill, "source=B")
	require.Error(t, err)
	assert.True(t, IsUnableToProcess(err))
}

func TestGlobalLSQRejectsNegativeHarmonization(t *testing.T) {
	// negative correlation yields a negative factor and negative harmonized
	// values
	base := ts(t, -1, -2, nan(), -4)
	fill := ts(t, 1, 2, 3, 4)

	_, _, err := GlobalLSQStrategy{}.Fill(base, fill, "source=B")
	require.Error(t, err)
	assert.True(t, IsUnableToProcess(err))

	filled, _, err := GlobalLSQStrategy{AllowNegative: true}.Fill(base, fill, "source=B")
	require.NoError(t, err)
	assert.InDelta(t, -3.0, filled.Values[2], 1e-9)
}

func TestLocalTrendsFillsGapWithBoundaryFactor(t *testing.T) {
	base := ts(t, 2, 2, nan(), 2, 2)
	fill := ts(t, 1, 1, 1, 1, 1)
	params := FitParameters{
		FitDegree:       0,
		FallbackDegree:  0,
		TrendLength:     10,
		TrendLengthUnit: "YS",
		MinTrendPoints:  1,
	}

	filled, descs, err := LocalTrendsStrategy{FitParams: params}.Fill(base, fill, "source=B")
	require.NoError(t, err)
	assert.InDelta(t, 2.0, filled.Values[2], 1e-9)

	require.Len(t, descs, 1)
	assert.Equal(t, "2002-01-01", descs[0].Time)
	assert.Equal(t, "localTrends", descs[0].Function)
	assert.Contains(t, descs[0].Description, "factor 2.00")
}

func TestLocalTrendsNegativeFactorLeavesGapUnfilled(t *testing.T) {
	base := ts(t, -2, -2, nan(), -2, -2)
	fill := ts(t, 1, 1, 1, 1, 1)
	params := FitParameters{
		FitDegree:       0,
		FallbackDegree:  0,
		TrendLength:     10,
		TrendLengthUnit: "YS",
		MinTrendPoints:  1,
	}

	_, _, err := LocalTrendsStrategy{FitParams: params}.Fill(base, fill, "source=B")
	require.Error(t, err)
	assert.True(t, IsUnableToProcess(err))

	filled, _, err := LocalTrendsStrategy{FitParams: params, AllowNegative: true}.Fill(base, fill, "source=B")
	require.NoError(t, err)
	assert.InDelta(t, -2.0, filled.Values[2], 1e-9)
}

func TestLocalTrendsFillsMultipleGaps(t *testing.T) {
	base := ts(t, nan(), 3, 3, nan(), 3, 3, nan())
	fill := ts(t, 1, 1, 1, 1, 1, 1, 1)
	params := FitParameters{
		FitDegree:       0,
		FallbackDegree:  0,
		TrendLength:     10,
		TrendLengthUnit: "YS",
		MinTrendPoints:  1,
	}

	filled, descs, err := LocalTrendsStrategy{FitParams: params}.Fill(base, fill, "source=B")
	require.NoError(t, err)
	assert.False(t, filled.HasMissing())
	for _, v := range filled.Values {
		assert.InDelta(t, 3.0, v, 1e-9)
	}
	require.Len(t, descs, 1)
	assert.Equal(t, "2000-01-01,2003-01-01,2006-01-01", descs[0].Time)
}

func TestLocalLSQFillsFromGapAdjacentWindows(t *testing.T) {
	base := ts(t, 2, 4, nan(), 8, 10)
	fill := ts(t, 4, 8, 12, 16, 20)
	params := FitParameters{
		FitDegree:       1,
		FallbackDegree:  0,
		TrendLength:     10,
		TrendLengthUnit: "YS",
		MinTrendPoints:  1,
	}

	filled, descs, err := LocalLSQStrategy{FitParams: params}.Fill(base, fill, "source=B")
	require.NoError(t, err)
	assert.InDelta(t, 6.0, filled.Values[2], 1e-9)
	require.Len(t, descs, 1)
	assert.Equal(t, "2002-01-01", descs[0].Time)
	assert.Equal(t, "localLSQ", descs[0].Function)
}

func TestLocalLSQInsufficientPointsFails(t *testing.T) {
	base := ts(t, 2, nan(), 8)
	fill := ts(t, nan(), 12, nan())
	params := FitParameters{
		FitDegree:       1,
		FallbackDegree:  0,
		TrendLength:     10,
		TrendLengthUnit: "YS",
		MinTrendPoints:  2,
	}

	// the windows next to the gap have no positions where both series carry
	// data
	_, _, err := LocalLSQStrategy{FitParams: params}.Fill(base, fill, "source=B")
	require.Error(t, err)
	assert.True(t, IsUnableToProcess(err))
}

func TestStrategyFilledTimesAreDescribed(t *testing.T) {
	// every changed time step must appear in a description time range and no
	// unchanged step may
	base := ts(t, 1, nan(), 3, nan(), 5)
	fill := ts(t, 1, 2, 3, nan(), 5)

	filled, descs, err := SubstitutionStrategy{}.Fill(base, fill, "source=B")
	require.NoError(t, err)
	assert.Equal(t, 2.0, filled.Values[1])
	assert.True(t, math.IsNaN(filled.Values[3]))
	require.Len(t, descs, 1)
	assert.Equal(t, "2001-01-01", descs[0].Time)
}
