package config

import (
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

func newTestLoader() *Loader {
	return NewLoaderWithViper(viper.New())
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configFile := filepath.Join(t.TempDir(), "pwarp.yaml")
	if err := os.WriteFile(configFile, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return configFile
}

// TestNewLoader tests loader creation.
func TestNewLoader(t *testing.T) {
	loader := NewLoader()
	if loader == nil {
		t.Fatal("NewLoader() returned nil")
	}
	if loader.GetViper() != viper.GetViper() {
		t.Error("NewLoader() should use the global viper instance")
	}
}

// TestLoadWithNoConfigFile tests loading with no config file present.
func TestLoadWithNoConfigFile(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, err := newTestLoader().Load()
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}

	if cfg.LogLevel != infoLevel {
		t.Errorf("Expected default log level '%s', got %s", infoLevel, cfg.LogLevel)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Display.Width != 1920 {
		t.Errorf("Expected default width 1920, got %d", cfg.Display.Width)
	}
}

// TestLoadFromWorkingDirectory tests discovery of pwarp.yaml in the current directory.
func TestLoadFromWorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	if err := os.WriteFile(filepath.Join(dir, "pwarp.yaml"), []byte("log_level: warn\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	loader := newTestLoader()
	cfg, err := loader.Load()
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("Expected log level 'warn', got %s", cfg.LogLevel)
	}
	if loader.GetConfigFileUsed() == "" {
		t.Error("Expected config file to be recorded")
	}
}

// TestLoadWithValidYAMLFile tests loading from a valid YAML file.
func TestLoadWithValidYAMLFile(t *testing.T) {
	configFile := writeConfig(t, `
log_level: debug
verbose: true
display:
  width: 1280
  height: 720
  screen_height: 0.3
solver:
  epsilon: 1.0e-12
server:
  host: 0.0.0.0
  port: 9090
batch:
  workers: 8
`)

	cfg, err := newTestLoader().LoadWithFile(configFile)
	if err != nil {
		t.Fatalf("LoadWithFile() unexpected error: %v", err)
	}
	if cfg.LogLevel != debugLevel {
		t.Errorf("Expected log level '%s', got %s", debugLevel, cfg.LogLevel)
	}
	if !cfg.Verbose {
		t.Error("Expected verbose to be true")
	}
	if cfg.Display.Width != 1280 || cfg.Display.Height != 720 {
		t.Errorf("Expected display 1280x720, got %dx%d", cfg.Display.Width, cfg.Display.Height)
	}
	if cfg.Display.ScreenHeight != 0.3 {
		t.Errorf("Expected screen height 0.3, got %g", cfg.Display.ScreenHeight)
	}
	if cfg.Display.ScaleFactor != 1 {
		t.Errorf("Expected default scale factor 1, got %g", cfg.Display.ScaleFactor)
	}
	if cfg.Solver.Epsilon != 1e-12 {
		t.Errorf("Expected epsilon 1e-12, got %g", cfg.Solver.Epsilon)
	}
	if cfg.Server.Host != "0.0.0.0" || cfg.Server.Port != 9090 {
		t.Errorf("Expected 0.0.0.0:9090, got %s:%d", cfg.Server.Host, cfg.Server.Port)
	}
	if cfg.Batch.Workers != 8 {
		t.Errorf("Expected 8 workers, got %d", cfg.Batch.Workers)
	}
}

// TestLoadWithInvalidYAMLFile tests loading from an invalid YAML file.
func TestLoadWithInvalidYAMLFile(t *testing.T) {
	configFile := writeConfig(t, `
log_level: debug
  invalid indentation
    more bad indentation
`)

	if _, err := newTestLoader().LoadWithFile(configFile); err == nil {
		t.Error("LoadWithFile() expected error for invalid YAML, got nil")
	}
}

// TestLoadWithNonExistentFile tests loading from a non-existent file.
func TestLoadWithNonExistentFile(t *testing.T) {
	if _, err := newTestLoader().LoadWithFile("/nonexistent/path/to/config.yaml"); err == nil {
		t.Error("LoadWithFile() expected error for non-existent file, got nil")
	}
}

// TestLoadWithValidationFailure tests loading with validation failure.
func TestLoadWithValidationFailure(t *testing.T) {
	configFile := writeConfig(t, `
display:
  width: 0
`)

	if _, err := newTestLoader().LoadWithFile(configFile); err == nil {
		t.Error("LoadWithFile() expected validation error, got nil")
	}
}

// TestLoadWithoutValidation tests loading without validation.
func TestLoadWithoutValidation(t *testing.T) {
	configFile := writeConfig(t, `
log_level: invalid_level
server:
  port: -1
`)

	cfg, err := newTestLoader().LoadWithFileWithoutValidation(configFile)
	if err != nil {
		t.Fatalf("LoadWithFileWithoutValidation() unexpected error: %v", err)
	}
	if cfg.LogLevel != "invalid_level" {
		t.Errorf("Expected log level 'invalid_level', got %s", cfg.LogLevel)
	}
	if cfg.Server.Port != -1 {
		t.Errorf("Expected port -1, got %d", cfg.Server.Port)
	}
}

// TestEnvironmentVariableOverride tests environment variable override.
func TestEnvironmentVariableOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PWARP_LOG_LEVEL", "debug")
	t.Setenv("PWARP_SERVER_PORT", "9999")
	t.Setenv("PWARP_DISPLAY_SCALE_FACTOR", "2.5")
	t.Setenv("PWARP_BATCH_CONTINUE_ON_ERROR", "true")

	cfg, err := newTestLoader().Load()
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if cfg.LogLevel != debugLevel {
		t.Errorf("Expected log level 'debug' from env, got %s", cfg.LogLevel)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("Expected port 9999 from env, got %d", cfg.Server.Port)
	}
	if cfg.Display.ScaleFactor != 2.5 {
		t.Errorf("Expected scale factor 2.5 from env, got %g", cfg.Display.ScaleFactor)
	}
	if !cfg.Batch.ContinueOnError {
		t.Error("Expected continue_on_error from env")
	}
}

// TestMultipleConfigSourcesPrecedence checks env over file over defaults.
func TestMultipleConfigSourcesPrecedence(t *testing.T) {
	configFile := writeConfig(t, `
log_level: warn
server:
  port: 7000
`)
	t.Setenv("PWARP_SERVER_PORT", "7100")

	cfg, err := newTestLoader().LoadWithFile(configFile)
	if err != nil {
		t.Fatalf("LoadWithFile() unexpected error: %v", err)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("Expected log level from file, got %s", cfg.LogLevel)
	}
	if cfg.Server.Port != 7100 {
		t.Errorf("Expected env port 7100, got %d", cfg.Server.Port)
	}
	if cfg.Server.Host != "localhost" {
		t.Errorf("Expected default host, got %s", cfg.Server.Host)
	}
}

// TestBindFlags tests that bound flags override defaults.
func TestBindFlags(t *testing.T) {
	t.Chdir(t.TempDir())

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("width", 0, "")
	flags.Float64("epsilon", 0, "")
	if err := flags.Parse([]string{"--width", "640", "--epsilon", "1e-6"}); err != nil {
		t.Fatal(err)
	}

	loader := newTestLoader()
	err := loader.BindFlags(flags, map[string]string{
		"width":   "display.width",
		"epsilon": "solver.epsilon",
		"missing": "display.height",
	})
	if err != nil {
		t.Fatalf("BindFlags() unexpected error: %v", err)
	}

	cfg, err := loader.Load()
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if cfg.Display.Width != 640 {
		t.Errorf("Expected width 640 from flag, got %d", cfg.Display.Width)
	}
	if cfg.Display.Height != 1080 {
		t.Errorf("Expected default height, got %d", cfg.Display.Height)
	}
	if cfg.Solver.Epsilon != 1e-6 {
		t.Errorf("Expected epsilon 1e-6 from flag, got %g", cfg.Solver.Epsilon)
	}
}

// TestBindFlag tests nil flag handling.
func TestBindFlag(t *testing.T) {
	if err := newTestLoader().BindFlag("display.width", nil); err == nil {
		t.Error("BindFlag() expected error for nil flag")
	}
}

// TestGetSetConfigValues tests Get and Set methods.
func TestGetSetConfigValues(t *testing.T) {
	loader := newTestLoader()
	loader.Set("test_key", "test_value")

	if v := loader.GetString("test_key"); v != "test_value" {
		t.Errorf("Expected 'test_value', got %s", v)
	}
	if v := loader.Get("test_key"); v != "test_value" {
		t.Errorf("Expected 'test_value', got %v", v)
	}
}

// TestGenerateDefaultConfigFile tests generating a default config file that loads back.
func TestGenerateDefaultConfigFile(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "generated.yaml")
	if err := GenerateDefaultConfigFile(configFile); err != nil {
		t.Fatalf("GenerateDefaultConfigFile() unexpected error: %v", err)
	}

	cfg, err := newTestLoader().LoadWithFile(configFile)
	if err != nil {
		t.Fatalf("LoadWithFile() unexpected error: %v", err)
	}
	if cfg.Display != DefaultConfig().Display {
		t.Errorf("Expected default display, got %+v", cfg.Display)
	}
}

// TestGetResolvedConfig tests that defaults show up in the resolved settings.
func TestGetResolvedConfig(t *testing.T) {
	t.Chdir(t.TempDir())

	loader := newTestLoader()
	if _, err := loader.Load(); err != nil {
		t.Fatal(err)
	}
	settings := loader.GetResolvedConfig()
	if _, ok := settings["display"]; !ok {
		t.Error("Expected display section in resolved config")
	}
}

// TestGetConfigSearchPaths tests the search path list.
func TestGetConfigSearchPaths(t *testing.T) {
	paths := GetConfigSearchPaths()
	if len(paths) == 0 || paths[0] != "." {
		t.Errorf("Expected current directory first, got %v", paths)
	}
	if !slices.Contains(paths, "/etc/pwarp") {
		t.Errorf("Expected /etc/pwarp in search paths, got %v", paths)
	}
}
