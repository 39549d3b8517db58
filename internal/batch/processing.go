package batch

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/MeKo-Tech/pwarp/internal/homography"
	"github.com/MeKo-Tech/pwarp/internal/projection"
	"github.com/MeKo-Tech/pwarp/internal/utils"
)

// Options controls how a frame set is solved.
type Options struct {
	Workers         int // 0 = runtime.NumCPU()
	ContinueOnError bool
	Solver          homography.Solver
	Progress        ProgressCallback
}

// FrameResult is the outcome of solving one frame.
type FrameResult struct {
	Index             int
	ID                string
	Coefficients      homography.Coefficients
	ReprojectionError float64
	Error             error
}

// OK reports whether the frame was solved.
func (r FrameResult) OK() bool { return r.Error == nil }

// FrameError identifies the frame that aborted a run.
type FrameError struct {
	Index int
	ID    string
	Err   error
}

func (e *FrameError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("frame %d (%s): %v", e.Index, e.ID, e.Err)
	}
	return fmt.Sprintf("frame %d: %v", e.Index, e.Err)
}

func (e *FrameError) Unwrap() error { return e.Err }

type frameJob struct {
	index int
	frame Frame
}

// solveFrame solves a single frame against the unit-square source corners.
func solveFrame(s homography.Solver, res projection.Resolution, index int, f Frame) FrameResult {
	out := FrameResult{Index: index, ID: f.ID}

	if len(f.Corners) != homography.Corners {
		out.Error = &homography.MalformedInputError{
			Reason: fmt.Sprintf("expected %d corners, got %d", homography.Corners, len(f.Corners)),
		}
		return out
	}

	src := projection.SourceCorners()
	dst := res.NormalizeCorners([4]utils.Point(f.Corners))
	corr, err := homography.Pair(src[:], dst[:])
	if err != nil {
		out.Error = err
		return out
	}

	h, err := homography.ComputeWith(s, corr)
	if err != nil {
		out.Error = err
		return out
	}
	out.Coefficients = h
	out.ReprojectionError = homography.Reprojection(corr, h)
	return out
}

// Process solves every frame of the set on a worker pool and returns the
// results in frame order. Without ContinueOnError the first failing frame
// cancels the run and is returned as a *FrameError.
func Process(ctx context.Context, set *FrameSet, opts Options) ([]FrameResult, error) {
	if set == nil || len(set.Frames) == 0 {
		return nil, ErrNoFrames
	}
	if err := set.Resolution.Validate(); err != nil {
		return nil, err
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	workers = min(workers, len(set.Frames))

	progress := opts.Progress
	if progress == nil {
		progress = NoOpProgressCallback{}
	}
	progress.OnStart(len(set.Frames))
	defer progress.OnComplete()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan frameJob)
	results := make(chan FrameResult, len(set.Frames))

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				results <- solveFrame(opts.Solver, set.Resolution, job.index, job.frame)
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i, f := range set.Frames {
			select {
			case jobs <- frameJob{index: i, frame: f}:
			case <-runCtx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	ordered := make([]FrameResult, len(set.Frames))
	var firstErr *FrameError
	processed := 0

	for r := range results {
		ordered[r.Index] = r
		processed++
		progress.OnProgress(processed, len(set.Frames))

		if r.Error == nil {
			continue
		}
		progress.OnError(r.Index, r.Error)
		if opts.ContinueOnError {
			continue
		}
		if firstErr == nil || r.Index < firstErr.Index {
			firstErr = &FrameError{Index: r.Index, ID: r.ID, Err: r.Error}
		}
		cancel()
	}

	if firstErr != nil {
		return nil, firstErr
	}
	if processed < len(set.Frames) {
		return nil, ctx.Err()
	}
	return ordered, nil
}
