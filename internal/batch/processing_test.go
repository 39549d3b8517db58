package batch

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/pwarp/internal/homography"
	"github.com/MeKo-Tech/pwarp/internal/projection"
	"github.com/MeKo-Tech/pwarp/internal/utils"
)

var (
	restCorners     = []utils.Point{{X: 0, Y: 1000}, {X: 1000, Y: 1000}, {X: 0, Y: 0}, {X: 1000, Y: 0}}
	keystoneCorners = []utils.Point{{X: 100, Y: 900}, {X: 900, Y: 900}, {X: 0, Y: 0}, {X: 1000, Y: 0}}
	collapsed       = make([]utils.Point, 4)
)

func frameSet(frames ...Frame) *FrameSet {
	return &FrameSet{Resolution: projection.Resolution{Width: 1000, Height: 1000}, Frames: frames}
}

// track builds n frames whose corners drift a few pixels per frame.
func track(n int) *FrameSet {
	frames := make([]Frame, n)
	for i := range frames {
		d := float64(i % 37)
		frames[i] = Frame{
			ID: fmt.Sprintf("f%03d", i),
			Corners: []utils.Point{
				{X: 10 + d, Y: 990 - d/2},
				{X: 980 - d/3, Y: 1000 - d},
				{X: d / 4, Y: 5 + d},
				{X: 1000 - d, Y: d / 5},
			},
		}
	}
	return frameSet(frames...)
}

type recordingProgress struct {
	started   int
	updates   int
	completed bool
	errors    []int
}

func (r *recordingProgress) OnStart(total int)          { r.started = total }
func (r *recordingProgress) OnProgress(_, _ int)        { r.updates++ }
func (r *recordingProgress) OnComplete()                { r.completed = true }
func (r *recordingProgress) OnError(index int, _ error) { r.errors = append(r.errors, index) }

func TestProcess_Identity(t *testing.T) {
	results, err := Process(context.Background(), frameSet(Frame{ID: "rest", Corners: restCorners}), Options{Workers: 2})
	require.NoError(t, err)
	require.Len(t, results, 1)

	r := results[0]
	assert.True(t, r.OK())
	assert.Equal(t, "rest", r.ID)
	assert.True(t, r.Coefficients.IsIdentity(1e-12))
	assert.InDelta(t, 0, r.ReprojectionError, 1e-12)
}

func TestProcess_Keystone(t *testing.T) {
	results, err := Process(context.Background(), frameSet(Frame{Corners: keystoneCorners}), Options{})
	require.NoError(t, err)

	h := results[0].Coefficients
	assert.InDelta(t, 0.25, h[7], 1e-12)
	assert.False(t, h.IsAffine(1e-9))
	assert.Less(t, results[0].ReprojectionError, 1e-9)
}

func TestProcess_PreservesOrder(t *testing.T) {
	set := track(200)

	sequential, err := Process(context.Background(), set, Options{Workers: 1})
	require.NoError(t, err)
	parallel, err := Process(context.Background(), set, Options{Workers: 8})
	require.NoError(t, err)

	require.Len(t, parallel, len(set.Frames))
	for i, r := range parallel {
		assert.Equal(t, i, r.Index)
		assert.Equal(t, set.Frames[i].ID, r.ID)
		assert.Equal(t, sequential[i].Coefficients, r.Coefficients, "frame %d", i)
	}
}

func TestProcess_StopsOnFirstError(t *testing.T) {
	set := track(20)
	set.Frames[7].Corners = collapsed

	progress := &recordingProgress{}
	results, err := Process(context.Background(), set, Options{Workers: 4, Progress: progress})
	require.Error(t, err)
	assert.Nil(t, results)

	var frameErr *FrameError
	require.ErrorAs(t, err, &frameErr)
	assert.Equal(t, 7, frameErr.Index)
	assert.Equal(t, "f007", frameErr.ID)
	assert.ErrorIs(t, err, homography.ErrSingularMatrix)
	assert.Contains(t, err.Error(), "frame 7 (f007)")
	assert.True(t, progress.completed)
	assert.Contains(t, progress.errors, 7)
}

func TestProcess_ContinueOnError(t *testing.T) {
	set := frameSet(
		Frame{Corners: restCorners},
		Frame{Corners: collapsed},
		Frame{Corners: restCorners[:3]},
		Frame{Corners: keystoneCorners},
	)

	progress := &recordingProgress{}
	results, err := Process(context.Background(), set, Options{Workers: 3, ContinueOnError: true, Progress: progress})
	require.NoError(t, err)
	require.Len(t, results, 4)

	assert.True(t, results[0].OK())
	assert.ErrorIs(t, results[1].Error, homography.ErrSingularMatrix)
	assert.ErrorIs(t, results[2].Error, homography.ErrMalformedInput)
	assert.ErrorContains(t, results[2].Error, "expected 4 corners, got 3")
	assert.True(t, results[3].OK())

	assert.Equal(t, 4, progress.started)
	assert.Equal(t, 4, progress.updates)
	assert.ElementsMatch(t, []int{1, 2}, progress.errors)
}

func TestProcess_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Process(ctx, track(500), Options{Workers: 2})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestProcess_InvalidInput(t *testing.T) {
	_, err := Process(context.Background(), nil, Options{})
	assert.ErrorIs(t, err, ErrNoFrames)

	_, err = Process(context.Background(), &FrameSet{Frames: []Frame{{Corners: restCorners}}}, Options{})
	assert.ErrorIs(t, err, projection.ErrInvalidResolution)
}

func TestProcess_SolverEpsilon(t *testing.T) {
	set := frameSet(Frame{Corners: keystoneCorners})

	_, err := Process(context.Background(), set, Options{Solver: homography.Solver{Epsilon: 10}})
	assert.ErrorIs(t, err, homography.ErrSingularMatrix)
}

func TestFrameError(t *testing.T) {
	inner := errors.New("boom")
	err := &FrameError{Index: 2, Err: inner}
	assert.Equal(t, "frame 2: boom", err.Error())
	assert.ErrorIs(t, err, inner)
}
