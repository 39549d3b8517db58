// Package projection drives the per-tick homography update for a flat display
// surface viewed by a tracked camera.
//
// The host supplies the pixel positions at which the tracked camera sees the
// surface corners; the package normalizes them, solves the homography against
// the fixed unit-square source corners and hands the three matrix rows to the
// renderer. It never touches engine objects itself.
package projection

import (
	"errors"
	"fmt"

	"github.com/MeKo-Tech/pwarp/internal/utils"
)

// Corner indexes the four surface corners in the fixed correspondence order.
type Corner int

const (
	TopLeft Corner = iota
	TopRight
	BottomLeft
	BottomRight
)

func (c Corner) String() string {
	switch c {
	case TopLeft:
		return "top-left"
	case TopRight:
		return "top-right"
	case BottomLeft:
		return "bottom-left"
	case BottomRight:
		return "bottom-right"
	default:
		return fmt.Sprintf("corner(%d)", int(c))
	}
}

// sourceCorners are the unit square corners in UV space: the vertical origin
// is at the bottom, so (0, 1) is the visual top-left.
var sourceCorners = [4]utils.Point{
	TopLeft:     {X: 0, Y: 1},
	TopRight:    {X: 1, Y: 1},
	BottomLeft:  {X: 0, Y: 0},
	BottomRight: {X: 1, Y: 0},
}

// SourceCorners returns the fixed source points in corner order.
func SourceCorners() [4]utils.Point { return sourceCorners }

// Outline returns corners in perimeter order: top-left, top-right,
// bottom-right, bottom-left.
func Outline(corners [4]utils.Point) []utils.Point {
	return []utils.Point{corners[TopLeft], corners[TopRight], corners[BottomRight], corners[BottomLeft]}
}

// ErrInvalidResolution reports a non-positive resolution dimension.
var ErrInvalidResolution = errors.New("invalid resolution")

// Resolution is the pixel size of the tracked camera's screen.
type Resolution struct {
	Width  int `json:"width" yaml:"width" mapstructure:"width"`
	Height int `json:"height" yaml:"height" mapstructure:"height"`
}

// Validate checks that both dimensions are positive.
func (r Resolution) Validate() error {
	if r.Width <= 0 || r.Height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidResolution, r.Width, r.Height)
	}
	return nil
}

// Aspect returns width / height.
func (r Resolution) Aspect() float64 {
	return float64(r.Width) / float64(r.Height)
}

func (r Resolution) String() string {
	return fmt.Sprintf("%dx%d", r.Width, r.Height)
}

// Normalize divides a screen-space pixel position by the resolution. Points
// off screen normalize outside [0,1] and are kept as is.
func (r Resolution) Normalize(p utils.Point) utils.Point {
	return p.Scale(float64(r.Width), float64(r.Height))
}

// NormalizeCorners normalizes all four corners.
func (r Resolution) NormalizeCorners(pixels [4]utils.Point) [4]utils.Point {
	var out [4]utils.Point
	for i, p := range pixels {
		out[i] = r.Normalize(p)
	}
	return out
}
