package homography

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Condition returns the 2-norm condition number of the system matrix built
// from corr, or +Inf if corr is malformed or the matrix is exactly singular.
//
// The solver only rejects pivots at or below epsilon, so a finite but huge
// condition number flags an input whose coefficients may be dominated by
// rounding error.
func Condition(corr []Correspondence) float64 {
	sys, err := Build(corr)
	if err != nil {
		return math.Inf(1)
	}
	return sys.Condition()
}

// Condition returns the 2-norm condition number of s.A.
func (s *System) Condition() float64 {
	return mat.Cond(s.dense(), 2)
}

func (s *System) dense() *mat.Dense {
	data := make([]float64, 0, Size*Size)
	for r := range Size {
		data = append(data, s.A[r][:]...)
	}
	return mat.NewDense(Size, Size, data)
}
