// Package warp is a CPU reference of the WarpPerspective shader: it re-warps a
// camera texture with the homography uniforms the projector uploads.
package warp

import (
	"errors"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"

	"github.com/MeKo-Tech/pwarp/internal/homography"
	"github.com/MeKo-Tech/pwarp/internal/utils"
)

// ErrInvalidSize reports a non-positive output size.
var ErrInvalidSize = errors.New("warp: output size must be positive")

// Render produces a width x height image. Each output pixel is taken at its
// UV centre (u, v), with v measured from the bottom edge, and sampled from
// src at H·(u, v, 1) after the perspective divide. Samples that land outside
// the unit square are transparent black.
func Render(src image.Image, h homography.Coefficients, width, height int) (*image.NRGBA, error) {
	if src == nil {
		return nil, errors.New("warp: nil source image")
	}
	if width <= 0 || height <= 0 {
		return nil, ErrInvalidSize
	}

	tex := imaging.Clone(src)
	out := imaging.New(width, height, color.NRGBA{})

	for y := range height {
		v := 1 - (float64(y)+0.5)/float64(height)
		for x := range width {
			u := (float64(x) + 0.5) / float64(width)
			q, ok := h.Apply(utils.Point{X: u, Y: v})
			if !ok {
				continue
			}
			c, inside := sampleUV(tex, q.X, q.Y)
			if !inside {
				continue
			}
			out.SetNRGBA(x, y, c)
		}
	}
	return out, nil
}

// sampleUV samples tex at texture coordinates (u, v) with bilinear filtering.
// The texture rows run top-down, so v = 1 is the first row.
func sampleUV(tex *image.NRGBA, u, v float64) (color.NRGBA, bool) {
	if math.IsNaN(u) || math.IsNaN(v) || u < 0 || u > 1 || v < 0 || v > 1 {
		return color.NRGBA{}, false
	}
	b := tex.Bounds()
	x := u*float64(b.Dx()) - 0.5
	y := (1-v)*float64(b.Dy()) - 0.5
	return bilinearSample(tex, x, y), true
}

// bilinearSample samples at pixel coordinates relative to the bounds origin,
// clamping to the edge texels.
func bilinearSample(tex *image.NRGBA, x, y float64) color.NRGBA {
	b := tex.Bounds()
	w, h := b.Dx(), b.Dy()
	x = clamp(x, 0, float64(w-1))
	y = clamp(y, 0, float64(h-1))

	x0 := int(x)
	y0 := int(y)
	x1 := min(x0+1, w-1)
	y1 := min(y0+1, h-1)
	fx := x - float64(x0)
	fy := y - float64(y0)

	c00 := texel(tex, x0, y0)
	c10 := texel(tex, x1, y0)
	c01 := texel(tex, x0, y1)
	c11 := texel(tex, x1, y1)

	var px [4]uint8
	for i := range px {
		top := lerp(c00[i], c10[i], fx)
		bottom := lerp(c01[i], c11[i], fx)
		px[i] = uint8(lerp(top, bottom, fy) + 0.5)
	}
	return color.NRGBA{R: px[0], G: px[1], B: px[2], A: px[3]}
}

func texel(tex *image.NRGBA, x, y int) [4]float64 {
	i := y*tex.Stride + x*4
	p := tex.Pix[i : i+4 : i+4]
	return [4]float64{float64(p[0]), float64(p[1]), float64(p[2]), float64(p[3])}
}

func lerp(a, b, t float64) float64 { return a + (b-a)*t }

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
