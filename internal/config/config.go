package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/MeKo-Tech/pwarp/internal/homography"
	"github.com/MeKo-Tech/pwarp/internal/projection"
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		LogLevel: "info",
		Verbose:  false,
		Display: DisplayConfig{
			Width:        1920,
			Height:       1080,
			ScreenHeight: 1,
			ScaleFactor:  1,
		},
		Solver: SolverConfig{
			Epsilon:       homography.DefaultEpsilon,
			ConditionWarn: 1e10,
		},
		Output: OutputConfig{
			Format:    "text",
			Precision: 6,
		},
		Server: ServerConfig{
			Host:              "localhost",
			Port:              8080,
			CORSOrigin:        "*",
			MaxBodyKB:         64,
			TimeoutSec:        30,
			ShutdownTimeout:   10,
			RateLimitEnabled:  false,
			RequestsPerMinute: 600,
			RequestsPerHour:   20000,
			MaxRequestsPerDay: 0,
			FramesPerMinute:   7200,
		},
		Batch: BatchConfig{
			Workers:         4,
			ContinueOnError: false,
		},
	}
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	// Validate log level
	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLogLevels, c.LogLevel) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.LogLevel, strings.Join(validLogLevels, ", "))
	}

	// Validate output format
	validFormats := []string{"text", "json", "csv", "yaml"}
	if c.Output.Format != "" && !slices.Contains(validFormats, c.Output.Format) {
		return fmt.Errorf("invalid output format: %s (must be one of: %s)", c.Output.Format, strings.Join(validFormats, ", "))
	}
	if c.Output.Precision < 0 || c.Output.Precision > 17 {
		return fmt.Errorf("invalid output precision: %d (must be between 0 and 17)", c.Output.Precision)
	}

	if err := c.ToDisplay().Validate(); err != nil {
		return fmt.Errorf("invalid display: %w", err)
	}

	if c.Solver.Epsilon < 0 {
		return fmt.Errorf("invalid solver epsilon: %g (must not be negative)", c.Solver.Epsilon)
	}
	if c.Solver.ConditionWarn < 0 {
		return fmt.Errorf("invalid condition warning threshold: %g (must not be negative)", c.Solver.ConditionWarn)
	}

	// Validate positive integers
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be between 1 and 65535)", c.Server.Port)
	}
	if c.Server.MaxBodyKB <= 0 {
		return fmt.Errorf("invalid max body size: %d (must be positive)", c.Server.MaxBodyKB)
	}
	if c.Server.TimeoutSec <= 0 {
		return fmt.Errorf("invalid timeout: %d (must be positive)", c.Server.TimeoutSec)
	}
	if c.Server.RateLimitEnabled && c.Server.RequestsPerMinute <= 0 {
		return fmt.Errorf("invalid requests per minute: %d (must be positive)", c.Server.RequestsPerMinute)
	}
	if c.Server.FramesPerMinute < 0 {
		return fmt.Errorf("invalid frames per minute: %d (must not be negative)", c.Server.FramesPerMinute)
	}
	if c.Batch.Workers <= 0 {
		return fmt.Errorf("invalid batch workers: %d (must be positive)", c.Batch.Workers)
	}

	return nil
}

// ToDisplay converts the display section to projection settings.
func (c *Config) ToDisplay() projection.Display {
	return projection.Display{
		Resolution:   projection.Resolution{Width: c.Display.Width, Height: c.Display.Height},
		ScreenHeight: c.Display.ScreenHeight,
		ScaleFactor:  c.Display.ScaleFactor,
	}
}

// ToSolver converts the solver section to a homography solver.
func (c *Config) ToSolver() homography.Solver {
	return homography.Solver{Epsilon: c.Solver.Epsilon}
}

// ToProjectorOptions returns projector options for the configured display.
func (c *Config) ToProjectorOptions() projection.Options {
	return projection.Options{
		Resolution:    c.ToDisplay().Resolution,
		Solver:        c.ToSolver(),
		ConditionWarn: c.Solver.ConditionWarn,
	}
}
