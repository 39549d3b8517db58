package homography

import (
	"math"

	"github.com/MeKo-Tech/pwarp/internal/utils"
)

// Folded reports whether the destination points are not a consistently
// oriented image of the source points: some triangle of correspondences keeps
// its winding while another flips it. A homography fitted to such a set sends
// part of the source quad across the horizon line, so the warped surface
// folds over itself. Sets with a degenerate triangle on either side report
// true.
func Folded(corr []Correspondence) bool {
	if len(corr) != Corners {
		return true
	}
	srcTol, dstTol := orientationTolerance(corr)
	sign := 0
	for skip := range corr {
		var tri [3]int
		n := 0
		for i := range corr {
			if i != skip {
				tri[n] = i
				n++
			}
		}
		a, b, c := corr[tri[0]], corr[tri[1]], corr[tri[2]]
		s := utils.Orientation(a.Src, b.Src, c.Src, srcTol) *
			utils.Orientation(a.Dst, b.Dst, c.Dst, dstTol)
		if s == 0 {
			return true
		}
		if sign == 0 {
			sign = s
		} else if s != sign {
			return true
		}
	}
	return false
}

func orientationTolerance(corr []Correspondence) (src, dst float64) {
	var srcMax, dstMax float64
	for _, c := range corr {
		srcMax = math.Max(srcMax, math.Max(math.Abs(c.Src.X), math.Abs(c.Src.Y)))
		dstMax = math.Max(dstMax, math.Max(math.Abs(c.Dst.X), math.Abs(c.Dst.Y)))
	}
	return 1e-12 * math.Max(1, srcMax*srcMax), 1e-12 * math.Max(1, dstMax*dstMax)
}
