//nolint:lll
package config

// Config represents the complete configuration for the pwarp application.
// It includes settings for all commands (solve, batch, warp, layout, serve) and
// supports loading from configuration files, environment variables, and command-line flags.
type Config struct {
	// Global settings
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose  bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	// Display surface and tracked camera screen
	Display DisplayConfig `mapstructure:"display" yaml:"display" json:"display"`

	// Linear solver settings
	Solver SolverConfig `mapstructure:"solver" yaml:"solver" json:"solver"`

	// Output configuration
	Output OutputConfig `mapstructure:"output" yaml:"output" json:"output"`

	// Server configuration (for serve command)
	Server ServerConfig `mapstructure:"server" yaml:"server" json:"server"`

	// Batch processing configuration
	Batch BatchConfig `mapstructure:"batch" yaml:"batch" json:"batch"`
}

// DisplayConfig describes the screen resolution and the physical surface.
type DisplayConfig struct {
	Width        int     `mapstructure:"width" yaml:"width" json:"width"`
	Height       int     `mapstructure:"height" yaml:"height" json:"height"`
	ScreenHeight float64 `mapstructure:"screen_height" yaml:"screen_height" json:"screen_height"`
	ScaleFactor  float64 `mapstructure:"scale_factor" yaml:"scale_factor" json:"scale_factor"`
}

// SolverConfig contains Gaussian elimination settings.
type SolverConfig struct {
	// Epsilon is the pivot magnitude at or below which a system is singular.
	// Zero selects machine epsilon.
	Epsilon float64 `mapstructure:"epsilon" yaml:"epsilon" json:"epsilon"`
	// ConditionWarn logs a warning for systems whose condition number exceeds it.
	ConditionWarn float64 `mapstructure:"condition_warn" yaml:"condition_warn" json:"condition_warn"`
}

// OutputConfig contains output formatting settings.
type OutputConfig struct {
	Format    string `mapstructure:"format" yaml:"format" json:"format"`
	File      string `mapstructure:"file" yaml:"file" json:"file"`
	Precision int    `mapstructure:"precision" yaml:"precision" json:"precision"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host              string `mapstructure:"host" yaml:"host" json:"host"`
	Port              int    `mapstructure:"port" yaml:"port" json:"port"`
	CORSOrigin        string `mapstructure:"cors_origin" yaml:"cors_origin" json:"cors_origin"`
	MaxBodyKB         int    `mapstructure:"max_body_kb" yaml:"max_body_kb" json:"max_body_kb"`
	TimeoutSec        int    `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
	ShutdownTimeout   int    `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`
	RateLimitEnabled  bool   `mapstructure:"rate_limit_enabled" yaml:"rate_limit_enabled" json:"rate_limit_enabled"`
	RequestsPerMinute int    `mapstructure:"requests_per_minute" yaml:"requests_per_minute" json:"requests_per_minute"`
	RequestsPerHour   int    `mapstructure:"requests_per_hour" yaml:"requests_per_hour" json:"requests_per_hour"`
	MaxRequestsPerDay int    `mapstructure:"max_requests_per_day" yaml:"max_requests_per_day" json:"max_requests_per_day"`
	FramesPerMinute   int    `mapstructure:"frames_per_minute" yaml:"frames_per_minute" json:"frames_per_minute"`
}

// BatchConfig contains batch processing settings.
type BatchConfig struct {
	Workers         int  `mapstructure:"workers" yaml:"workers" json:"workers"`
	ContinueOnError bool `mapstructure:"continue_on_error" yaml:"continue_on_error" json:"continue_on_error"`
}
