package dockeradapter

import (
	"context"
	"log/slog"
	"sync"
)

// LazyClient defers connecting to the Docker engine until the first
// call that needs it, guarded by a mutex (§5). The daemon constructs
// one of these at startup instead of a Client directly, so it can
// start on a host where Docker isn't installed yet — the install hook
// is what gets to install it before anything ever calls in.
type LazyClient struct {
	mu     sync.Mutex
	client *Client
	logger *slog.Logger
}

// NewLazyClient returns a LazyClient that has not yet connected.
func NewLazyClient(logger *slog.Logger) *LazyClient {
	return &LazyClient{logger: logger}
}

// connect returns the underlying Client, dialing it on first call. A
// failed attempt is not cached: the next call tries again, so a charm
// that installs Docker mid-session recovers without a daemon restart.
func (l *LazyClient) connect() (*Client, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.client != nil {
		return l.client, nil
	}
	client, err := NewClient(l.logger)
	if err != nil {
		return nil, err
	}
	l.client = client
	return l.client, nil
}

func (l *LazyClient) Pull(ctx context.Context, image string) error {
	c, err := l.connect()
	if err != nil {
		return err
	}
	return c.Pull(ctx, image)
}

func (l *LazyClient) Create(ctx context.Context, opts CreateOptions) (string, error) {
	c, err := l.connect()
	if err != nil {
		return "", err
	}
	return c.Create(ctx, opts)
}

func (l *LazyClient) Start(ctx context.Context, id string) error {
	c, err := l.connect()
	if err != nil {
		return err
	}
	return c.Start(ctx, id)
}

func (l *LazyClient) Stop(ctx context.Context, id string, timeoutSeconds int) error {
	c, err := l.connect()
	if err != nil {
		return err
	}
	return c.Stop(ctx, id, timeoutSeconds)
}

func (l *LazyClient) Delete(ctx context.Context, id string) error {
	c, err := l.connect()
	if err != nil {
		return err
	}
	return c.Delete(ctx, id)
}

// Close releases the underlying connection, if one was ever made.
func (l *LazyClient) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.client == nil {
		return nil
	}
	return l.client.Close()
}
