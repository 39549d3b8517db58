package homography

import (
	"fmt"
	"math"

	"github.com/MeKo-Tech/pwarp/internal/utils"
)

// Corners is the number of point correspondences a homography needs.
const Corners = 4

// Correspondence pairs a source point with the destination it must map to.
type Correspondence struct {
	Src utils.Point `json:"src" yaml:"src"`
	Dst utils.Point `json:"dst" yaml:"dst"`
}

// System is the linear system A*h = B for the eight homography unknowns.
// It is built fresh for every solve and consumed by it.
type System struct {
	A Matrix
	B Vector
}

// Pair zips source and destination points into correspondences.
func Pair(src, dst []utils.Point) ([]Correspondence, error) {
	if len(src) != len(dst) {
		return nil, &MalformedInputError{
			Reason: fmt.Sprintf("got %d source points but %d destination points", len(src), len(dst)),
		}
	}
	out := make([]Correspondence, len(src))
	for i := range src {
		out[i] = Correspondence{Src: src[i], Dst: dst[i]}
	}
	return out, nil
}

// Validate checks that corr holds exactly four pairs of finite coordinates.
func Validate(corr []Correspondence) error {
	if len(corr) != Corners {
		return &MalformedInputError{Reason: fmt.Sprintf("need %d correspondences, got %d", Corners, len(corr))}
	}
	for i, c := range corr {
		if !c.Src.IsFinite() {
			return &MalformedInputError{Reason: fmt.Sprintf("source point %d is not finite: %v", i, c.Src)}
		}
		if !c.Dst.IsFinite() {
			return &MalformedInputError{Reason: fmt.Sprintf("destination point %d is not finite: %v", i, c.Dst)}
		}
	}
	return nil
}

// Build assembles the direct linear transform system for corr.
//
// For pair i with source (x, y) and destination (u, v):
//
//	row i:   [x y 1 0 0 0 -x*u -y*u] = u
//	row i+4: [0 0 0 x y 1 -x*v -y*v] = v
func Build(corr []Correspondence) (*System, error) {
	if err := Validate(corr); err != nil {
		return nil, err
	}

	sys := &System{}
	for i, c := range corr {
		x, y := c.Src.X, c.Src.Y
		u, v := c.Dst.X, c.Dst.Y

		sys.A[i] = [Size]float64{x, y, 1, 0, 0, 0, -x * u, -y * u}
		sys.B[i] = u

		sys.A[i+Corners] = [Size]float64{0, 0, 0, x, y, 1, -x * v, -y * v}
		sys.B[i+Corners] = v
	}
	for r := range Size {
		for c := range Size {
			if v := sys.A[r][c]; math.IsInf(v, 0) || math.IsNaN(v) {
				return nil, &MalformedInputError{
					Reason: fmt.Sprintf("correspondence %d overflows the system in row %d, column %d", r%Corners, r, c),
				}
			}
		}
	}
	return sys, nil
}

// Residual returns |A*x - B| for a candidate solution x.
func (s *System) Residual(x Vector) float64 {
	return s.A.MulVec(x).Sub(s.B).Norm(nil)
}
