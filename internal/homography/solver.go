package homography

import "math"

// DefaultEpsilon is the pivot magnitude at or below which a system is treated
// as singular: the float64 machine epsilon, 2^-52.
const DefaultEpsilon = 0x1p-52

// Solver runs Gaussian elimination with partial pivoting on an 8x8 system.
// The zero value uses DefaultEpsilon.
type Solver struct {
	// Epsilon is the singularity threshold for |pivot|. Zero or negative
	// selects DefaultEpsilon.
	Epsilon float64
}

var defaultSolver Solver

// Solve solves a*x = b with the default solver. a and b are overwritten.
func Solve(a *Matrix, b *Vector) (Vector, error) {
	return defaultSolver.Solve(a, b)
}

// Solve reduces a to upper triangular form, swapping rows of a and b together,
// and back-substitutes. a and b are overwritten; on error x is the zero vector
// and must not be used. A pivot that is NaN or a solution component that
// overflows is reported as singular.
func (s Solver) Solve(a *Matrix, b *Vector) (Vector, error) {
	eps := s.epsilon()

	for p := range Size {
		pivotRow := findPivotRow(a, p)
		a.SwapRows(p, pivotRow)
		b.SwapRows(p, pivotRow)

		// NaN pivots fail this comparison too
		if pivot := a[p][p]; !(math.Abs(pivot) > eps) {
			return Vector{}, &SingularMatrixError{Column: p, Pivot: pivot, Corner: -1}
		}

		eliminateBelow(a, b, p)
	}

	x := backSubstitute(a, b)
	for i, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Vector{}, &SingularMatrixError{Column: i, Pivot: a[i][i], Corner: -1, Overflow: true}
		}
	}
	return x, nil
}

// SolveSystem solves sys in place.
func (s Solver) SolveSystem(sys *System) (Vector, error) {
	return s.Solve(&sys.A, &sys.B)
}

func (s Solver) epsilon() float64 {
	if s.Epsilon > 0 {
		return s.Epsilon
	}
	return DefaultEpsilon
}

// findPivotRow returns the row r >= col with the largest |a[r][col]|.
// Ties keep the lowest row index.
func findPivotRow(a *Matrix, col int) int {
	pivotRow := col
	maxAbs := math.Abs(a[col][col])
	for r := col + 1; r < Size; r++ {
		if v := math.Abs(a[r][col]); v > maxAbs {
			maxAbs = v
			pivotRow = r
		}
	}
	return pivotRow
}

// eliminateBelow zeroes column col under the pivot. Rows above col are untouched.
func eliminateBelow(a *Matrix, b *Vector, col int) {
	pivot := a[col][col]
	for r := col + 1; r < Size; r++ {
		alpha := a[r][col] / pivot
		b[r] -= alpha * b[col]
		for c := col; c < Size; c++ {
			a[r][c] -= alpha * a[col][c]
		}
	}
}

func backSubstitute(a *Matrix, b *Vector) Vector {
	var x Vector
	for i := Size - 1; i >= 0; i-- {
		var sum float64
		for j := i + 1; j < Size; j++ {
			sum += a[i][j] * x[j]
		}
		x[i] = (b[i] - sum) / a[i][i]
	}
	return x
}
