package merge

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tscompose/internal/dataset"
	"tscompose/internal/errors"
	"tscompose/internal/timeseries"
)

func yearly(startYear, n int) []time.Time {
	times := make([]time.Time, n)
	for i := 0; i < n; i++ {
		times[i] = time.Date(startYear+i, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	return times
}

func makeSeries(t *testing.T, name, area string, values []float64) *timeseries.Series {
	t.Helper()
	s, err := timeseries.New(name, map[string]string{"area": area}, yearly(2000, len(values)), values)
	require.NoError(t, err)
	return s
}

func makeDataset(t *testing.T, series ...*timeseries.Series) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.New(series)
	require.NoError(t, err)
	return ds
}

func TestMergeFillsMissingFromSecond(t *testing.T) {
	a := makeDataset(t, makeSeries(t, "CO2", "COL", []float64{1, math.NaN(), 3}))
	b := makeDataset(t, makeSeries(t, "CO2", "COL", []float64{math.NaN(), 2, math.NaN()}))

	merged, err := Merge(a, b, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, merged.Series, 1)
	assert.Equal(t, []float64{1, 2, 3}, merged.Series[0].Values)
}

func TestMergeWithinToleranceFirstWins(t *testing.T) {
	a := makeDataset(t, makeSeries(t, "CO2", "COL", []float64{100, 200}))
	b := makeDataset(t, makeSeries(t, "CO2", "COL", []float64{100.5, 199}))

	merged, err := Merge(a, b, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, []float64{100, 200}, merged.Series[0].Values)
}

func TestMergeBeyondToleranceErrors(t *testing.T) {
	a := makeDataset(t, makeSeries(t, "CO2", "COL", []float64{100, 200}))
	b := makeDataset(t, makeSeries(t, "CO2", "COL", []float64{150, 200}))

	_, err := Merge(a, b, DefaultOptions())
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeData))
	assert.Contains(t, err.Error(), "2000-01-01")
}

func TestMergeBeyondToleranceWarnMode(t *testing.T) {
	a := makeDataset(t, makeSeries(t, "CO2", "COL", []float64{100, 200}))
	b := makeDataset(t, makeSeries(t, "CO2", "COL", []float64{150, 200}))

	opts := DefaultOptions()
	opts.ErrorOnDiscrepancy = false
	merged, err := Merge(a, b, opts)
	require.NoError(t, err)
	assert.Equal(t, []float64{100, 200}, merged.Series[0].Values)
}

func TestMergeDisjointSeriesCarriedOver(t *testing.T) {
	a := makeDataset(t, makeSeries(t, "CO2", "COL", []float64{1, 2}))
	b := makeDataset(t, makeSeries(t, "CO2", "MEX", []float64{3, 4}))

	merged, err := Merge(a, b, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, merged.Series, 2)
	assert.Equal(t, "COL", merged.Series[0].Coords["area"])
	assert.Equal(t, "MEX", merged.Series[1].Coords["area"])
}

func TestMergeRejectsMisalignedIndex(t *testing.T) {
	a := makeDataset(t, makeSeries(t, "CO2", "COL", []float64{1, 2, 3}))
	shifted, err := timeseries.New("CO2", map[string]string{"area": "COL"}, yearly(2001, 3), []float64{1, 2, 3})
	require.NoError(t, err)
	b := makeDataset(t, shifted)

	_, err = Merge(a, b, DefaultOptions())
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeData))
}

func TestMergeDoesNotMutateInputs(t *testing.T) {
	sa := makeSeries(t, "CO2", "COL", []float64{1, math.NaN()})
	a := makeDataset(t, sa)
	b := makeDataset(t, makeSeries(t, "CO2", "COL", []float64{1, 2}))

	_, err := Merge(a, b, DefaultOptions())
	require.NoError(t, err)
	assert.True(t, math.IsNaN(sa.Values[1]))
}

func TestRelativeDeviation(t *testing.T) {
	assert.Equal(t, 0.0, relativeDeviation(5, 5))
	assert.Equal(t, 0.0, relativeDeviation(0, 0))
	assert.InDelta(t, 0.5, relativeDeviation(100, 150), 1e-9)
	assert.True(t, math.IsInf(relativeDeviation(0, 1), 1))
}
