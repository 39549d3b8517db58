package cmd

import (
	"fmt"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/pwarp/internal/batch"
	"github.com/MeKo-Tech/pwarp/internal/config"
)

// batchCmd solves recorded tracks in parallel.
var batchCmd = &cobra.Command{
	Use:   "batch [files...]",
	Short: "Solve recorded corner tracks in parallel",
	Long: `Solve every frame of one or more frames files. A frames file (YAML or JSON)
holds the screen resolution and a list of frames, each with four pixel corners
in top-left, top-right, bottom-left, bottom-right order:

  resolution: {width: 1920, height: 1080}
  frames:
    - id: "0001"
      corners: [{x: 10, y: 1070}, {x: 1910, y: 1075}, {x: 0, y: 4}, {x: 1920, y: 0}]

Frames are solved on a worker pool and reported in file order.

Examples:
  pwarp batch track.yaml
  pwarp batch tracks/ --recursive --workers 8
  pwarp batch tracks/ --format csv --output coefficients.csv --continue-on-error`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBatchCommand,
}

// configToBatchConfig maps centralized configuration and CLI-only flags to batch.Config.
func configToBatchConfig(cfg *config.Config, cmd *cobra.Command) *batch.Config {
	batchConfig := &batch.Config{
		Workers:         cfg.Batch.Workers,
		ContinueOnError: cfg.Batch.ContinueOnError,
		Solver:          cfg.ToSolver(),
		Format:          cfg.Output.Format,
		Precision:       cfg.Output.Precision,
		OutputFile:      cfg.Output.File,
		ProgressWriter:  cmd.ErrOrStderr(),
	}

	// File discovery and progress settings are CLI-only
	batchConfig.Recursive, _ = cmd.Flags().GetBool("recursive")
	batchConfig.IncludePatterns, _ = cmd.Flags().GetStringSlice("include")
	batchConfig.ExcludePatterns, _ = cmd.Flags().GetStringSlice("exclude")
	batchConfig.ShowProgress, _ = cmd.Flags().GetBool("progress")
	batchConfig.Quiet, _ = cmd.Flags().GetBool("quiet")
	batchConfig.ProgressInterval, _ = cmd.Flags().GetDuration("progress-interval")

	return batchConfig
}

func runBatchCommand(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	config := configToBatchConfig(cfg, cmd)

	result, err := batch.ProcessBatch(cmd.Context(), args, config)
	if err != nil {
		return fmt.Errorf("batch processing failed: %w", err)
	}

	if err := result.SaveResults(cmd.OutOrStdout(), config); err != nil {
		return fmt.Errorf("failed to save results: %w", err)
	}

	if stats, _ := cmd.Flags().GetBool("stats"); stats {
		result.PrintStats(cmd.ErrOrStderr(), config.Quiet)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(batchCmd)

	// Output flags
	batchCmd.Flags().StringP("format", "f", "text", "output format: text, json, csv, yaml")
	batchCmd.Flags().StringP("output", "o", "", "output file (default: stdout)")
	batchCmd.Flags().Int("precision", 6, "decimal places of the coefficients")

	// Parallel processing flags
	batchCmd.Flags().IntP("workers", "w", 4, fmt.Sprintf("number of parallel workers (0 = %d)", runtime.NumCPU()))
	batchCmd.Flags().Bool("continue-on-error", false, "report failing frames instead of aborting")

	// File discovery flags
	batchCmd.Flags().BoolP("recursive", "r", false, "recursively scan directories")
	batchCmd.Flags().StringSlice("include", []string{}, "file patterns to include")
	batchCmd.Flags().StringSlice("exclude", []string{}, "file patterns to exclude")

	// Progress and monitoring flags
	batchCmd.Flags().Bool("progress", false, "show progress bar")
	batchCmd.Flags().Bool("quiet", false, "suppress progress output")
	batchCmd.Flags().Bool("stats", false, "show processing statistics")
	batchCmd.Flags().Duration("progress-interval", 200*time.Millisecond, "progress update interval")
}
