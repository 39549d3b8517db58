package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resetFlags restores every flag of c and its subcommands to its default.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// runRoot executes the root command with fresh flags and configuration and
// returns stdout and stderr.
func runRoot(args ...string) (string, string, error) {
	viper.Reset()
	resetFlags(rootCmd)
	cfgFile = ""
	globalConfig = nil

	stdout := new(bytes.Buffer)
	stderr := new(bytes.Buffer)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	rootCmd.SetArgs(args)

	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

// executeCommand runs the root command in an isolated working directory.
func executeCommand(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	return runRoot(args...)
}

func TestRootCommand(t *testing.T) {
	assert.NotNil(t, rootCmd)
	assert.Equal(t, "pwarp", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
	assert.Same(t, rootCmd, GetRootCommand())
}

func TestRootCommandHelp(t *testing.T) {
	out, _, err := executeCommand(t, "--help")
	require.NoError(t, err)

	assert.Contains(t, out, "planar homography")
	assert.Contains(t, out, "Available Commands:")
	assert.Contains(t, out, "Usage:")
}

func TestRootCommandVersion(t *testing.T) {
	out, _, err := executeCommand(t, "--version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "pwarp "), out)
}

func TestRootCommandSubcommands(t *testing.T) {
	names := make([]string, 0, len(rootCmd.Commands()))
	for _, sub := range rootCmd.Commands() {
		names = append(names, sub.Name())
	}

	for _, expected := range []string{"solve", "batch", "warp", "layout", "serve", "config", "version"} {
		assert.Contains(t, names, expected, "Expected subcommand '%s' not found", expected)
	}
}

func TestRootCommandInvalidFlag(t *testing.T) {
	_, stderr, err := executeCommand(t, "--invalid-flag")
	require.Error(t, err)
	assert.Contains(t, stderr, "unknown flag")
}

func TestRootCommandPersistentFlags(t *testing.T) {
	for _, name := range []string{"config", "verbose", "log-level", "width", "height", "screen-height", "scale-factor", "epsilon"} {
		assert.NotNil(t, rootCmd.PersistentFlags().Lookup(name), "missing persistent flag %s", name)
	}
}

func TestFlagKeysReferToKnownFlags(t *testing.T) {
	known := map[string]bool{}
	var collect func(c *cobra.Command)
	collect = func(c *cobra.Command) {
		c.Flags().VisitAll(func(f *pflag.Flag) { known[f.Name] = true })
		c.PersistentFlags().VisitAll(func(f *pflag.Flag) { known[f.Name] = true })
		for _, sub := range c.Commands() {
			collect(sub)
		}
	}
	collect(rootCmd)

	for name := range flagKeys {
		assert.True(t, known[name], "flag %s is bound but never declared", name)
	}
}

func TestConfigValidationFailure(t *testing.T) {
	_, _, err := executeCommand(t, "layout", "--log-level", "loud")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error loading configuration")
}

func TestConfigFileAndEnvironment(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/custom.yaml"
	require.NoError(t, writeTestFile(path, "display:\n  width: 800\n  height: 400\noutput:\n  precision: 1\n"))

	out, _, err := executeCommand(t, "layout", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "resolution: 800x400")
	assert.Contains(t, out, "orthographic size: 0.5")

	t.Setenv("PWARP_DISPLAY_WIDTH", "1600")
	out, _, err = executeCommand(t, "layout", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "resolution: 1600x400")

	// Flags win over environment and file
	out, _, err = executeCommand(t, "layout", "--config", path, "--width", "100")
	require.NoError(t, err)
	assert.Contains(t, out, "resolution: 100x400")
}
