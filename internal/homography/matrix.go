package homography

import "math"

// Size is the number of unknowns of a 4-point homography with h22 fixed to 1.
const Size = 8

// Matrix is a dense 8x8 matrix stored row-major.
type Matrix [Size][Size]float64

// Vector is a dense 8-element column vector.
type Vector [Size]float64

// At returns the element at row r, column c.
func (m *Matrix) At(r, c int) float64 { return m[r][c] }

// Set stores v at row r, column c.
func (m *Matrix) Set(r, c int, v float64) { m[r][c] = v }

// SwapRows exchanges rows r1 and r2 in place.
func (m *Matrix) SwapRows(r1, r2 int) {
	if r1 == r2 {
		return
	}
	m[r1], m[r2] = m[r2], m[r1]
}

// MulVec returns m*v.
func (m *Matrix) MulVec(v Vector) Vector {
	var out Vector
	for r := range Size {
		var sum float64
		for c := range Size {
			sum += m[r][c] * v[c]
		}
		out[r] = sum
	}
	return out
}

// SwapRows exchanges entries r1 and r2 in place.
func (v *Vector) SwapRows(r1, r2 int) {
	if r1 == r2 {
		return
	}
	v[r1], v[r2] = v[r2], v[r1]
}

// Sub returns v-w.
func (v Vector) Sub(w Vector) Vector {
	var out Vector
	for i := range Size {
		out[i] = v[i] - w[i]
	}
	return out
}

// Norm returns the weighted euclidean norm sqrt(sum((v[i]*weights[i])^2)).
// Entries beyond len(weights) are weighted by 1.
func (v Vector) Norm(weights []float64) float64 {
	var sum float64
	for i := range Size {
		d := v[i]
		if i < len(weights) {
			d *= weights[i]
		}
		sum += d * d
	}
	return math.Sqrt(sum)
}
