package timeseries

import (
	"fmt"
	"math"
)

// Polyfit fits a polynomial of the given degree to the points (x, y) by
// ordinary least squares and returns the coefficients in ascending order
// (c[0] + c[1]*x + ... + c[deg]*x^deg).
//
// At least deg+1 points are required. NaN points must be removed by the
// caller; a NaN in the inputs results in an error.
func Polyfit(x, y []float64, deg int) ([]float64, error) {
	if len(x) != len(y) {
		return nil, fmt.Errorf("x and y lengths differ: %d != %d", len(x), len(y))
	}
	if deg < 0 {
		return nil, fmt.Errorf("negative fit degree %d", deg)
	}
	if len(x) < deg+1 {
		return nil, fmt.Errorf("need at least %d points for degree %d fit, got %d", deg+1, deg, len(x))
	}
	for i := range x {
		if math.IsNaN(x[i]) || math.IsInf(x[i], 0) || math.IsNaN(y[i]) || math.IsInf(y[i], 0) {
			return nil, fmt.Errorf("non-finite value in fit input at position %d", i)
		}
	}

	// Build the normal equations A^T A c = A^T y for the Vandermonde matrix A.
	n := deg + 1
	ata := make([][]float64, n)
	aty := make([]float64, n)
	for i := range ata {
		ata[i] = make([]float64, n)
	}
	for k := range x {
		powers := make([]float64, n)
		p := 1.0
		for i := 0; i < n; i++ {
			powers[i] = p
			p *= x[k]
		}
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				ata[i][j] += powers[i] * powers[j]
			}
			aty[i] += powers[i] * y[k]
		}
	}

	coeffs, err := solveLinearSystem(ata, aty)
	if err != nil {
		return nil, fmt.Errorf("degree %d fit: %w", deg, err)
	}
	return coeffs, nil
}

// Polyval evaluates a polynomial with coefficients in ascending order at x.
func Polyval(coeffs []float64, x float64) float64 {
	result := 0.0
	for i := len(coeffs) - 1; i >= 0; i-- {
		result = result*x + coeffs[i]
	}
	return result
}

// solveLinearSystem solves a*x = b by Gaussian elimination with partial
// pivoting. The system dimensions here are tiny (fit degree + 1).
func solveLinearSystem(a [][]float64, b []float64) ([]float64, error) {
	n := len(b)
	// working copy
	m := make([][]float64, n)
	for i := range m {
		m[i] = make([]float64, n+1)
		copy(m[i], a[i])
		m[i][n] = b[i]
	}

	for col := 0; col < n; col++ {
		pivot := col
		for row := col + 1; row < n; row++ {
			if math.Abs(m[row][col]) > math.Abs(m[pivot][col]) {
				pivot = row
			}
		}
		if math.Abs(m[pivot][col]) < 1e-300 {
			return nil, fmt.Errorf("singular system, column %d", col)
		}
		m[col], m[pivot] = m[pivot], m[col]

		for row := col + 1; row < n; row++ {
			factor := m[row][col] / m[col][col]
			for k := col; k <= n; k++ {
				m[row][k] -= factor * m[col][k]
			}
		}
	}

	x := make([]float64, n)
	for row := n - 1; row >= 0; row-- {
		sum := m[row][n]
		for k := row + 1; k < n; k++ {
			sum -= m[row][k] * x[k]
		}
		x[row] = sum / m[row][row]
	}
	return x, nil
}

// LeastSquaresFactor computes the single scaling factor a minimizing
// ||a*x - y||^2, i.e. the least squares solution of y = a*x.
func LeastSquaresFactor(x, y []float64) (float64, error) {
	if len(x) != len(y) || len(x) == 0 {
		return 0, fmt.Errorf("invalid input lengths: %d, %d", len(x), len(y))
	}
	var sumXY, sumXX float64
	for i := range x {
		if math.IsNaN(x[i]) || math.IsNaN(y[i]) {
			return 0, fmt.Errorf("non-finite value in least squares input at position %d", i)
		}
		sumXY += x[i] * y[i]
		sumXX += x[i] * x[i]
	}
	if sumXX == 0 {
		return 0, fmt.Errorf("degenerate system: all x values are zero")
	}
	return sumXY / sumXX, nil
}

// LeastSquaresAffine computes a and b minimizing ||a*x + b - y||^2.
func LeastSquaresAffine(x, y []float64) (a, b float64, err error) {
	if len(x) != len(y) || len(x) == 0 {
		return 0, 0, fmt.Errorf("invalid input lengths: %d, %d", len(x), len(y))
	}
	coeffs, err := Polyfit(x, y, 1)
	if err != nil {
		// a constant series has a singular linear system, fall back to the
		// constant fit so that identical-but-flat overlaps still harmonize
		constant, cerr := Polyfit(x, y, 0)
		if cerr != nil {
			return 0, 0, err
		}
		return 0, constant[0], nil
	}
	return coeffs[1], coeffs[0], nil
}
