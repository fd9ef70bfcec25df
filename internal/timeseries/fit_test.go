package timeseries

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fitTolerance = 1e-9

func TestPolyfitRecoversExactPolynomials(t *testing.T) {
	tests := []struct {
		name string
		x    []float64
		y    []float64
		deg  int
		want []float64
	}{
		{
			name: "constant",
			x:    []float64{0, 1, 2, 3},
			y:    []float64{5, 5, 5, 5},
			deg:  0,
			want: []float64{5},
		},
		{
			name: "constant fit averages",
			x:    []float64{0, 1, 2, 3},
			y:    []float64{1, 2, 3, 4},
			deg:  0,
			want: []float64{2.5},
		},
		{
			name: "linear",
			x:    []float64{0, 1, 2, 3},
			y:    []float64{1, 3, 5, 7},
			deg:  1,
			want: []float64{1, 2},
		},
		{
			name: "quadratic",
			x:    []float64{-2, -1, 0, 1, 2},
			y:    []float64{9, 2, 1, 6, 17},
			deg:  2,
			want: []float64{1, 2, 3},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			coeffs, err := Polyfit(tt.x, tt.y, tt.deg)
			require.NoError(t, err)
			require.Len(t, coeffs, len(tt.want))
			for i := range tt.want {
				assert.InDelta(t, tt.want[i], coeffs[i], fitTolerance)
			}
		})
	}
}

func TestPolyfitErrors(t *testing.T) {
	_, err := Polyfit([]float64{1}, []float64{1, 2}, 1)
	assert.Error(t, err, "length mismatch")

	_, err = Polyfit([]float64{1}, []float64{1}, 1)
	assert.Error(t, err, "too few points")

	_, err = Polyfit([]float64{1, 2}, []float64{1, 2}, -1)
	assert.Error(t, err, "negative degree")
}

func TestPolyval(t *testing.T) {
	// 1 + 2x + 3x^2
	coeffs := []float64{1, 2, 3}
	assert.InDelta(t, 1.0, Polyval(coeffs, 0), fitTolerance)
	assert.InDelta(t, 6.0, Polyval(coeffs, 1), fitTolerance)
	assert.InDelta(t, 17.0, Polyval(coeffs, 2), fitTolerance)
	assert.InDelta(t, 2.0, Polyval(coeffs, -1), fitTolerance)
}

func TestLeastSquaresFactor(t *testing.T) {
	a, err := LeastSquaresFactor([]float64{2, 4, 8, 12}, []float64{1, 2, 4, 6})
	require.NoError(t, err)
	assert.InDelta(t, 0.5, a, fitTolerance)

	// exact proportionality is recovered exactly
	a, err = LeastSquaresFactor([]float64{1, 2, 3}, []float64{3, 6, 9})
	require.NoError(t, err)
	assert.InDelta(t, 3.0, a, fitTolerance)

	_, err = LeastSquaresFactor([]float64{0, 0}, []float64{1, 2})
	assert.Error(t, err, "all-zero x is degenerate")

	_, err = LeastSquaresFactor(nil, nil)
	assert.Error(t, err)
}

func TestLeastSquaresAffine(t *testing.T) {
	a, b, err := LeastSquaresAffine([]float64{0, 1, 2, 3}, []float64{1, 3, 5, 7})
	require.NoError(t, err)
	assert.InDelta(t, 2.0, a, fitTolerance)
	assert.InDelta(t, 1.0, b, fitTolerance)
}

func TestLeastSquaresAffineConstantFallback(t *testing.T) {
	// all x equal makes the linear system singular; the fit falls back to a
	// pure shift
	a, b, err := LeastSquaresAffine([]float64{4, 4, 4}, []float64{1, 2, 3})
	require.NoError(t, err)
	assert.InDelta(t, 0.0, a, fitTolerance)
	assert.InDelta(t, 2.0, b, fitTolerance)
}
