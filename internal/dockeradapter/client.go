// Package dockeradapter is a thin wrapper over the Docker engine API:
// pull, create, start, stop, delete, info. Every call here is
// synchronous from the caller's point of view even though the
// underlying SDK client is driven by Go's runtime scheduler, not a
// separate async runtime — no async coloring leaks upward.
package dockeradapter

import (
	"context"
	"log/slog"
	"time"

	sdkclient "github.com/docker/docker/client"

	"github.com/katharostech/lucky/internal/types"
)

// Client wraps the Docker SDK client. The connection is established
// eagerly by NewClient and shared behind the SDK's own internal
// locking; this wrapper adds nothing but logging and error taxonomy.
// Callers that need to defer the connection until first use (the
// daemon does, since Docker may not be installed yet at startup) go
// through LazyClient instead of calling NewClient directly.
type Client struct {
	sdk    *sdkclient.Client
	logger *slog.Logger
}

// NewClient connects to the Docker daemon using the standard
// environment-derived options and pings it once to fail fast if the
// engine is unreachable.
func NewClient(logger *slog.Logger) (*Client, error) {
	sdk, err := sdkclient.NewClientWithOpts(
		sdkclient.FromEnv,
		sdkclient.WithAPIVersionNegotiation(),
	)
	if err != nil {
		return nil, &types.DockerError{Op: "connect", Err: err}
	}

	c := &Client{sdk: sdk, logger: logger}

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := sdk.Ping(pingCtx); err != nil {
		return nil, &types.DockerError{Op: "ping", Err: err}
	}

	logger.Info("docker client connected", "host", sdk.DaemonHost())
	return c, nil
}

// Close releases the underlying SDK connection.
func (c *Client) Close() error {
	return c.sdk.Close()
}

func wrapErr(op, containerID string, err error) error {
	if err == nil {
		return nil
	}
	return &types.DockerError{Op: op, ContainerID: containerID, Err: err}
}
