// Package batch solves recorded surface tracks: files of per-frame corner
// positions are turned into per-frame homographies on a worker pool.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"
)

// ProcessBatch discovers frames files under paths and solves every frame.
func ProcessBatch(ctx context.Context, paths []string, config *Config) (*Result, error) {
	files, err := discoverFrameFiles(paths, config.Recursive, config.IncludePatterns, config.ExcludePatterns)
	if err != nil {
		return nil, fmt.Errorf("failed to discover frames files: %w", err)
	}

	if len(files) == 0 {
		return nil, errors.New("no frames files found")
	}

	var progress ProgressCallback = NewLogProgressCallback(slog.Default(), 0)
	if config.ShowProgress && !config.Quiet {
		progress = NewConsoleProgressCallback(config.ProgressWriter, "Solving: ").
			WithUpdateInterval(config.ProgressInterval)
	}

	workers := config.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	opts := Options{
		Workers:         workers,
		ContinueOnError: config.ContinueOnError,
		Solver:          config.Solver,
		Progress:        progress,
	}

	startTime := time.Now()
	result := &Result{WorkerCount: workers}
	for _, path := range files {
		set, err := LoadFrames(path)
		if err != nil {
			if !config.ContinueOnError {
				return nil, err
			}
			slog.Warn("Skipping frames file", "file", path, "error", err)
			continue
		}

		frames, err := Process(ctx, set, opts)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		result.Files = append(result.Files, FileResult{Path: path, Resolution: set.Resolution, Frames: frames})
	}
	result.Duration = time.Since(startTime)

	return result, nil
}
