package projection

import (
	"errors"
	"fmt"
)

// Display describes the physical surface that is being re-warped.
type Display struct {
	Resolution Resolution `json:"resolution" yaml:"resolution"`
	// ScreenHeight is the physical height of the surface in meters.
	ScreenHeight float64 `json:"screen_height" yaml:"screen_height"`
	// ScaleFactor scales the surface and the camera origin uniformly.
	ScaleFactor float64 `json:"scale_factor" yaml:"scale_factor"`
}

// Layout holds the scene scales the host applies once the display settings
// are known or change.
type Layout struct {
	SurfaceScale     [3]float64 `json:"surface_scale"`
	OrthographicSize float64    `json:"orthographic_size"`
	OriginScale      [3]float64 `json:"origin_scale"`
}

// Validate checks the display settings.
func (d Display) Validate() error {
	if err := d.Resolution.Validate(); err != nil {
		return err
	}
	if d.ScreenHeight <= 0 {
		return fmt.Errorf("invalid screen height: %g (must be positive)", d.ScreenHeight)
	}
	if d.ScaleFactor <= 0 {
		return errors.New("invalid scale factor: must be positive")
	}
	return nil
}

// Layout computes the surface scale, the display camera orthographic size and
// the camera origin scale.
//
// The surface keeps the resolution aspect ratio at a height of
// ScreenHeight*ScaleFactor; the orthographic size is half of that height.
func (d Display) Layout() (Layout, error) {
	if err := d.Validate(); err != nil {
		return Layout{}, err
	}
	h := d.ScreenHeight * d.ScaleFactor
	return Layout{
		SurfaceScale:     [3]float64{h * d.Resolution.Aspect(), h, h},
		OrthographicSize: h / 2,
		OriginScale:      [3]float64{d.ScaleFactor, d.ScaleFactor, d.ScaleFactor},
	}, nil
}
