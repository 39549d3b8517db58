package utils

import "math"

// Cross returns the z component of (a-o) x (b-o). It is positive when o, a,
// b turn counter-clockwise.
func Cross(o, a, b Point) float64 {
	return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
}

// Orientation classifies the turn o, a, b as 1 (counter-clockwise), -1
// (clockwise) or 0 when |Cross| is within tol.
func Orientation(o, a, b Point, tol float64) int {
	c := Cross(o, a, b)
	switch {
	case c > tol:
		return 1
	case c < -tol:
		return -1
	default:
		return 0
	}
}

// SignedArea returns the shoelace area of a closed polygon. Counter-clockwise
// polygons have positive area.
func SignedArea(pts []Point) float64 {
	if len(pts) < 3 {
		return 0
	}
	var sum float64
	for i := range pts {
		j := (i + 1) % len(pts)
		sum += pts[i].X*pts[j].Y - pts[j].X*pts[i].Y
	}
	return sum / 2
}

// IsConvex reports whether the polygon, taken in the given order, is strictly
// convex. Polygons with a collinear triple or a self-intersection are not.
func IsConvex(pts []Point) bool {
	n := len(pts)
	if n < 3 {
		return false
	}
	tol := 1e-12 * math.Max(1, math.Abs(SignedArea(pts)))
	sign := 0
	for i := range pts {
		o := Orientation(pts[i], pts[(i+1)%n], pts[(i+2)%n], tol)
		if o == 0 {
			return false
		}
		if sign == 0 {
			sign = o
		} else if o != sign {
			return false
		}
	}
	// a pentagram turns one way at every vertex but winds twice
	var turn float64
	for i := range pts {
		a, b, c := pts[i], pts[(i+1)%n], pts[(i+2)%n]
		turn += math.Atan2(Cross(a, b, c), (b.X-a.X)*(c.X-b.X)+(b.Y-a.Y)*(c.Y-b.Y))
	}
	return math.Abs(math.Abs(turn)-2*math.Pi) < 1e-6
}
