// Package config reads daemon process configuration from environment
// variables, all with sensible defaults so luckyd can start with no
// setup during development.
package config

import (
	"log/slog"
	"os"
	"path/filepath"
)

// DaemonConfig holds the values luckyd needs before it can construct
// anything else. Loaded once at startup and passed through by
// dependency injection; there is no package-level global.
type DaemonConfig struct {
	// SocketPath is where the IPC service listens.
	SocketPath string

	// DataDir is the daemon's working directory: state.yaml and the
	// managed volumes directory both live under here.
	DataDir string

	// CharmDir is where metadata.yaml and lucky.yaml are read from.
	CharmDir string

	// LogFormat controls slog's output shape: "text" or "json".
	LogFormat string
}

// NewLogger builds a *slog.Logger per LogFormat: text for local
// development, JSON otherwise. Source file names are trimmed to their
// basename so log lines stay short.
func (c *DaemonConfig) NewLogger() *slog.Logger {
	options := &slog.HandlerOptions{
		AddSource: true,
		Level:     slog.LevelInfo,
		ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
			if attr.Key == slog.SourceKey {
				if source, ok := attr.Value.Any().(*slog.Source); ok {
					source.File = filepath.Base(source.File)
				}
			}
			return attr
		},
	}

	var handler slog.Handler
	if c.LogFormat == "text" {
		handler = slog.NewTextHandler(os.Stdout, options)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, options)
	}
	return slog.New(handler)
}

// Load reads DaemonConfig from the environment.
func Load() *DaemonConfig {
	return &DaemonConfig{
		SocketPath: getEnv("LUCKYD_SOCKET", "/run/lucky/lucky.sock"),
		DataDir:    getEnv("LUCKYD_DATA_DIR", "/var/lib/lucky"),
		CharmDir:   getEnv("LUCKYD_CHARM_DIR", "."),
		LogFormat:  getEnv("LUCKYD_LOG_FORMAT", "text"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
