package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/pwarp/internal/config"
	"github.com/MeKo-Tech/pwarp/internal/homography"
	"github.com/MeKo-Tech/pwarp/internal/version"
)

var (
	// Global configuration loader.
	configLoader *config.Loader
	// Global configuration.
	globalConfig *config.Config
	// Configuration file path.
	cfgFile string
)

// flagKeys maps command line flags to configuration keys. Only flags present
// on the executing command are bound.
var flagKeys = map[string]string{
	"verbose":              "verbose",
	"log-level":            "log_level",
	"width":                "display.width",
	"height":               "display.height",
	"screen-height":        "display.screen_height",
	"scale-factor":         "display.scale_factor",
	"epsilon":              "solver.epsilon",
	"condition-warn":       "solver.condition_warn",
	"format":               "output.format",
	"output":               "output.file",
	"precision":            "output.precision",
	"host":                 "server.host",
	"port":                 "server.port",
	"cors-origin":          "server.cors_origin",
	"max-body-kb":          "server.max_body_kb",
	"timeout":              "server.timeout_sec",
	"shutdown-timeout":     "server.shutdown_timeout",
	"rate-limit-enabled":   "server.rate_limit_enabled",
	"requests-per-minute":  "server.requests_per_minute",
	"requests-per-hour":    "server.requests_per_hour",
	"max-requests-per-day": "server.max_requests_per_day",
	"frames-per-minute":    "server.frames_per_minute",
	"workers":              "batch.workers",
	"continue-on-error":    "batch.continue_on_error",
}

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "pwarp",
	Short: "Planar homography solver for projection mapping",
	Long: `pwarp keeps a display surface aligned with a moving camera. It solves the
3x3 planar homography that maps the unit square onto four tracked screen
corners and produces the _M0, _M1 and _M2 uniform rows for the warp shader.

This tool provides:
- One-shot solves from corner lists
- Batch solving of recorded tracks (YAML or JSON)
- A CPU reference warp for images
- Display layout computation
- An HTTP and WebSocket server for live tracking

Examples:
  pwarp solve --dst "0.1,0.9;0.9,0.9;0,0;1,0"
  pwarp solve --pixels --width 1280 --height 720 --dst "128,640;1152,640;0,0;1280,0"
  pwarp batch tracks/ --recursive --format csv
  pwarp serve --port 8080`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		v, _ := cmd.Flags().GetBool("version")
		if v {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), version.Get().String())
			return nil
		}
		return cmd.Help()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// GetRootCommand returns the root command for testing purposes.
// This allows tests to execute commands without calling os.Exit().
func GetRootCommand() *cobra.Command {
	return rootCmd
}

func init() {
	defaults := config.DefaultConfig()

	// Global flags that apply to all commands
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is search in ., $HOME, $HOME/.config/pwarp, /etc/pwarp)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output (equivalent to --log-level=debug)")
	rootCmd.PersistentFlags().String("log-level", defaults.LogLevel, "log level (debug, info, warn, error)")

	// Display and solver flags
	rootCmd.PersistentFlags().Int("width", defaults.Display.Width, "screen resolution width in pixels")
	rootCmd.PersistentFlags().Int("height", defaults.Display.Height, "screen resolution height in pixels")
	rootCmd.PersistentFlags().Float64("screen-height", defaults.Display.ScreenHeight, "physical surface height")
	rootCmd.PersistentFlags().Float64("scale-factor", defaults.Display.ScaleFactor, "display scale factor")
	rootCmd.PersistentFlags().Float64("epsilon", homography.DefaultEpsilon, "pivot magnitude treated as singular")

	rootCmd.Flags().Bool("version", false, "print version information and exit")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if err := initConfig(cmd); err != nil {
			return err
		}

		// Determine log level from config
		var logLevel slog.Level
		if globalConfig.Verbose {
			logLevel = slog.LevelDebug
		} else {
			switch globalConfig.LogLevel {
			case "debug":
				logLevel = slog.LevelDebug
			case "warn":
				logLevel = slog.LevelWarn
			case "error":
				logLevel = slog.LevelError
			default:
				logLevel = slog.LevelInfo
			}
		}

		// Logs go to stderr, results to stdout
		logger := slog.New(slog.NewJSONHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
			Level: logLevel,
		}))
		slog.SetDefault(logger)
		return nil
	}
}

// initConfig binds the executing command's flags and loads the configuration.
func initConfig(cmd *cobra.Command) error {
	configLoader = config.NewLoader()
	if err := configLoader.BindFlags(cmd.Flags(), flagKeys); err != nil {
		return err
	}

	var err error
	if cfgFile != "" {
		globalConfig, err = configLoader.LoadWithFile(cfgFile)
	} else {
		globalConfig, err = configLoader.Load()
	}
	if err != nil {
		return fmt.Errorf("error loading configuration: %w", err)
	}
	return nil
}

// GetConfig returns the global configuration.
func GetConfig() *config.Config {
	if globalConfig == nil {
		cfg := config.DefaultConfig()
		return &cfg
	}
	return globalConfig
}

// GetConfigLoader returns the global configuration loader.
func GetConfigLoader() *config.Loader {
	if configLoader == nil {
		configLoader = config.NewLoader()
	}
	return configLoader
}
