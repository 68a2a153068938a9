package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func clearEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		original, had := os.LookupEnv(k)
		os.Unsetenv(k)
		t.Cleanup(func() {
			if had {
				os.Setenv(k, original)
			} else {
				os.Unsetenv(k)
			}
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t, "LUCKYD_SOCKET", "LUCKYD_DATA_DIR", "LUCKYD_CHARM_DIR", "LUCKYD_LOG_FORMAT")

	cfg := Load()
	assert.Equal(t, "/run/lucky/lucky.sock", cfg.SocketPath)
	assert.Equal(t, "/var/lib/lucky", cfg.DataDir)
	assert.Equal(t, ".", cfg.CharmDir)
	assert.Equal(t, "text", cfg.LogFormat)
}

func TestLoadOverridesFromEnv(t *testing.T) {
	clearEnv(t, "LUCKYD_SOCKET", "LUCKYD_DATA_DIR", "LUCKYD_CHARM_DIR", "LUCKYD_LOG_FORMAT")
	os.Setenv("LUCKYD_SOCKET", "/tmp/custom.sock")
	os.Setenv("LUCKYD_LOG_FORMAT", "json")

	cfg := Load()
	assert.Equal(t, "/tmp/custom.sock", cfg.SocketPath)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestNewLoggerDoesNotPanic(t *testing.T) {
	cfg := &DaemonConfig{LogFormat: "json"}
	logger := cfg.NewLogger()
	assert.NotNil(t, logger)
}
