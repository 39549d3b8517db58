package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/pwarp/internal/config"
)

func TestServeCommand(t *testing.T) {
	assert.Equal(t, "serve", serveCmd.Use)
	assert.Contains(t, serveCmd.Long, "/ws/track")
	for _, name := range []string{"host", "port", "cors-origin", "max-body-kb", "rate-limit-enabled", "frames-per-minute"} {
		assert.NotNil(t, serveCmd.Flags().Lookup(name), "missing flag %s", name)
	}
}

func TestServerConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Server.Port = 9000
	cfg.Server.MaxBodyKB = 128
	cfg.Server.RateLimitEnabled = true
	cfg.Server.FramesPerMinute = 120
	cfg.Display.Width = 1280
	cfg.Display.Height = 720

	sc := serverConfig(&cfg)
	assert.Equal(t, 9000, sc.Port)
	assert.Equal(t, int64(128), sc.MaxBodyKB)
	assert.True(t, sc.RateLimit.Enabled)
	assert.Equal(t, 120, sc.RateLimit.FramesPerMinute)
	assert.Equal(t, 1280, sc.Display.Resolution.Width)
	assert.Equal(t, cfg.Solver.Epsilon, sc.Solver.Epsilon)
}

func TestServeCommandInvalidPort(t *testing.T) {
	_, _, err := executeCommand(t, "serve", "--port", "70000")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "port")
}
