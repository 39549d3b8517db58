package projection

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/MeKo-Tech/pwarp/internal/homography"
	"github.com/MeKo-Tech/pwarp/internal/utils"
)

// Uniform names consumed by the WarpPerspective shader.
const (
	UniformM0 = "_M0"
	UniformM1 = "_M1"
	UniformM2 = "_M2"
)

// UniformSink receives the homography rows for the renderer.
type UniformSink interface {
	SetVector(name string, v [3]float64) error
}

// UniformSinkFunc adapts a function to UniformSink.
type UniformSinkFunc func(name string, v [3]float64) error

// SetVector calls f(name, v).
func (f UniformSinkFunc) SetVector(name string, v [3]float64) error { return f(name, v) }

// Stats counts projector ticks.
type Stats struct {
	Ticks   uint64 `json:"ticks"`
	Uploads uint64 `json:"uploads"`
	Skips   uint64 `json:"skips"`
}

// Options configures a Projector.
type Options struct {
	Resolution Resolution
	Solver     homography.Solver
	// ConditionWarn logs a warning when the system condition number exceeds
	// it. Zero disables the check.
	ConditionWarn float64
	Logger        *slog.Logger
}

// Projector runs one homography update per tick and uploads the result.
// It is safe for concurrent use; ticks are serialized.
type Projector struct {
	opts Options
	sink UniformSink
	log  *slog.Logger

	mu    sync.Mutex
	stats Stats
	last  homography.Coefficients
	valid bool
}

// ErrNilSink is returned by NewProjector without a sink.
var ErrNilSink = errors.New("projection: nil uniform sink")

// NewProjector creates a projector uploading to sink.
func NewProjector(sink UniformSink, opts Options) (*Projector, error) {
	if sink == nil {
		return nil, ErrNilSink
	}
	if err := opts.Resolution.Validate(); err != nil {
		return nil, err
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Projector{opts: opts, sink: sink, log: log}, nil
}

// Resolution returns the screen resolution used for normalization.
func (p *Projector) Resolution() Resolution { return p.opts.Resolution }

// Correspondences pairs the fixed source corners with the normalized screen
// corners.
func (p *Projector) Correspondences(screen [4]utils.Point) []homography.Correspondence {
	dst := p.opts.Resolution.NormalizeCorners(screen)
	corr := make([]homography.Correspondence, len(sourceCorners))
	for i := range sourceCorners {
		corr[i] = homography.Correspondence{Src: sourceCorners[i], Dst: dst[i]}
	}
	return corr
}

// Update runs one tick. screen holds the pixel positions of the surface
// corners in top-left, top-right, bottom-left, bottom-right order.
//
// When the solve fails nothing is uploaded and the previous uniforms stay in
// effect; the error is returned to the caller.
func (p *Projector) Update(screen [4]utils.Point) (homography.Coefficients, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stats.Ticks++

	corr := p.Correspondences(screen)
	h, err := homography.ComputeWith(p.opts.Solver, corr)
	if err != nil {
		p.stats.Skips++
		p.log.Warn("Skipping homography upload",
			"tick", p.stats.Ticks,
			"corners", utils.FormatPoints(screen[:]),
			"error", err)
		return homography.Coefficients{}, fmt.Errorf("projection update: %w", err)
	}

	var dst [4]utils.Point
	for i, c := range corr {
		dst[i] = c.Dst
	}
	if outline := Outline(dst); !utils.IsConvex(outline) {
		p.log.Warn("Destination quad is not convex",
			"tick", p.stats.Ticks,
			"corners", utils.FormatPoints(outline))
	}

	if p.opts.ConditionWarn > 0 {
		if c := homography.Condition(corr); c > p.opts.ConditionWarn {
			p.log.Warn("Ill-conditioned homography system",
				"tick", p.stats.Ticks,
				"condition", c,
				"threshold", p.opts.ConditionWarn)
		}
	}

	if err := p.upload(h); err != nil {
		p.stats.Skips++
		return homography.Coefficients{}, fmt.Errorf("projection upload: %w", err)
	}
	p.stats.Uploads++
	p.last = h
	p.valid = true
	p.log.Debug("Uploaded homography", "tick", p.stats.Ticks, "m2", h.M2())
	return h, nil
}

func (p *Projector) upload(h homography.Coefficients) error {
	rows := [...]struct {
		name string
		v    [3]float64
	}{
		{UniformM0, h.M0()},
		{UniformM1, h.M1()},
		{UniformM2, h.M2()},
	}
	for _, r := range rows {
		if err := p.sink.SetVector(r.name, r.v); err != nil {
			return fmt.Errorf("set %s: %w", r.name, err)
		}
	}
	return nil
}

// Stats returns a snapshot of the tick counters.
func (p *Projector) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

// Last returns the most recently uploaded coefficients. ok is false until
// the first successful tick.
func (p *Projector) Last() (h homography.Coefficients, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last, p.valid
}
