package batch

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/MeKo-Tech/pwarp/internal/homography"
	"github.com/MeKo-Tech/pwarp/internal/projection"
)

// Config holds all configuration for batch processing.
type Config struct {
	// Solving
	Workers         int
	ContinueOnError bool
	Solver          homography.Solver

	// Output
	Format     string
	Precision  int
	OutputFile string

	// File discovery
	Recursive       bool
	IncludePatterns []string
	ExcludePatterns []string

	// Progress
	ShowProgress     bool
	Quiet            bool
	ProgressInterval time.Duration
	ProgressWriter   io.Writer
}

// FileResult holds the solved frames of one frames file.
type FileResult struct {
	Path       string
	Resolution projection.Resolution
	Frames     []FrameResult
}

// Result holds the result of batch processing.
type Result struct {
	Files       []FileResult
	Duration    time.Duration
	WorkerCount int
}

// Stats summarizes a batch run.
type Stats struct {
	Files  int
	Frames int
	Solved int
	Failed int
}

// Stats counts solved and failed frames.
func (r *Result) Stats() Stats {
	st := Stats{Files: len(r.Files)}
	for _, f := range r.Files {
		for _, fr := range f.Frames {
			st.Frames++
			if fr.OK() {
				st.Solved++
			} else {
				st.Failed++
			}
		}
	}
	return st
}

// FormatResults formats the batch processing results in the specified format.
func (r *Result) FormatResults(format string, precision int) (string, error) {
	return formatBatchResults(r, format, precision)
}

// SaveResults writes the formatted results to config.OutputFile, or to w
// when no output file is configured.
func (r *Result) SaveResults(w io.Writer, config *Config) error {
	output, err := r.FormatResults(config.Format, config.Precision)
	if err != nil {
		return fmt.Errorf("failed to format results: %w", err)
	}

	if config.OutputFile != "" {
		if err := os.WriteFile(config.OutputFile, []byte(output), 0o600); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		if !config.Quiet {
			_, _ = fmt.Fprintf(w, "Results written to %s\n", config.OutputFile)
		}
	} else {
		_, _ = fmt.Fprint(w, output)
	}

	return nil
}

// PrintStats prints processing statistics.
func (r *Result) PrintStats(w io.Writer, quiet bool) {
	if quiet {
		return
	}
	st := r.Stats()
	_, _ = fmt.Fprintf(w, "\nProcessing Statistics:\n")
	_, _ = fmt.Fprintf(w, "  Files: %d\n", st.Files)
	_, _ = fmt.Fprintf(w, "  Frames: %d\n", st.Frames)
	_, _ = fmt.Fprintf(w, "  Solved: %d\n", st.Solved)
	_, _ = fmt.Fprintf(w, "  Failed: %d\n", st.Failed)
	_, _ = fmt.Fprintf(w, "  Workers: %d\n", r.WorkerCount)
	_, _ = fmt.Fprintf(w, "  Duration: %v\n", r.Duration.Round(time.Millisecond))
	if secs := r.Duration.Seconds(); secs > 0 {
		_, _ = fmt.Fprintf(w, "  Throughput: %.1f frames/sec\n", float64(st.Frames)/secs)
	}
}
