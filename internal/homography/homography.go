// Package homography computes the planar projective transform that maps four
// source points onto four destination points.
//
// The transform is the 3x3 matrix
//
//	[ h0 h1 h2 ]
//	[ h3 h4 h5 ]
//	[ h6 h7 1  ]
//
// obtained by building the 8x8 direct linear transform system (Build) and
// solving it with Gaussian elimination and partial pivoting (Solve). Nothing
// in this package keeps state between calls.
package homography

import (
	"math"

	"github.com/MeKo-Tech/pwarp/internal/utils"
)

// Coefficients holds h0..h7 of a homography whose bottom-right entry is 1.
type Coefficients [Size]float64

// Identity maps every point onto itself.
var Identity = Coefficients{1, 0, 0, 0, 1, 0, 0, 0}

// denominatorTolerance bounds |h6*x + h7*y + 1| relative to the coefficient
// magnitude below which a source corner is considered mapped to infinity.
const denominatorTolerance = 1e-10

// Compute solves for the homography mapping each corr[i].Src onto corr[i].Dst
// using the default solver.
//
// Three collinear source points on a slanted line do not always produce a
// vanishing pivot; the system then solves to coefficients whose denominator
// is zero at those corners. Compute reports that case as ErrSingularMatrix
// too.
func Compute(corr []Correspondence) (Coefficients, error) {
	return ComputeWith(defaultSolver, corr)
}

// ComputeWith is Compute with an explicit solver.
func ComputeWith(s Solver, corr []Correspondence) (Coefficients, error) {
	sys, err := Build(corr)
	if err != nil {
		return Coefficients{}, err
	}
	x, err := s.SolveSystem(sys)
	if err != nil {
		return Coefficients{}, err
	}
	h := Coefficients(x)
	if err := h.checkDenominators(corr); err != nil {
		return Coefficients{}, err
	}
	return h, nil
}

func (h Coefficients) checkDenominators(corr []Correspondence) error {
	scale := 1.0
	for _, v := range h {
		scale = math.Max(scale, math.Abs(v))
	}
	for i, c := range corr {
		d := h[6]*c.Src.X + h[7]*c.Src.Y + 1
		if !(math.Abs(d) > denominatorTolerance*scale) {
			return &SingularMatrixError{Column: -1, Pivot: d, Corner: i}
		}
	}
	return nil
}

// M0 returns the first matrix row (h0, h1, h2).
func (h Coefficients) M0() [3]float64 { return [3]float64{h[0], h[1], h[2]} }

// M1 returns the second matrix row (h3, h4, h5).
func (h Coefficients) M1() [3]float64 { return [3]float64{h[3], h[4], h[5]} }

// M2 returns the third matrix row (h6, h7, 1).
func (h Coefficients) M2() [3]float64 { return [3]float64{h[6], h[7], 1} }

// Matrix3 returns the full 3x3 matrix in row-major order.
func (h Coefficients) Matrix3() [9]float64 {
	return [9]float64{h[0], h[1], h[2], h[3], h[4], h[5], h[6], h[7], 1}
}

// Apply maps p through the homography. ok is false when p lies on the line
// where the projective denominator vanishes.
func (h Coefficients) Apply(p utils.Point) (q utils.Point, ok bool) {
	denom := h[6]*p.X + h[7]*p.Y + 1
	if denom == 0 {
		return utils.Point{}, false
	}
	return utils.Point{
		X: (h[0]*p.X + h[1]*p.Y + h[2]) / denom,
		Y: (h[3]*p.X + h[4]*p.Y + h[5]) / denom,
	}, true
}

// IsAffine reports whether the projective terms h6 and h7 are within tol of 0.
func (h Coefficients) IsAffine(tol float64) bool {
	return math.Abs(h[6]) <= tol && math.Abs(h[7]) <= tol
}

// IsIdentity reports whether every coefficient is within tol of Identity.
func (h Coefficients) IsIdentity(tol float64) bool {
	for i := range Size {
		if math.Abs(h[i]-Identity[i]) > tol {
			return false
		}
	}
	return true
}

// Reprojection returns the largest distance between h.Apply(Src) and Dst over
// corr. A point that cannot be mapped yields +Inf.
func Reprojection(corr []Correspondence, h Coefficients) float64 {
	var worst float64
	for _, c := range corr {
		q, ok := h.Apply(c.Src)
		if !ok {
			return math.Inf(1)
		}
		worst = math.Max(worst, q.Distance(c.Dst))
	}
	return worst
}
