// Package supervisor owns the daemon's process lifecycle: starting the
// IPC Service, waiting for either a termination signal or stop_daemon,
// and flushing state to disk before exit.
package supervisor

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/katharostech/lucky/internal/ipc"
	"github.com/katharostech/lucky/internal/state"
)

// Supervisor runs the IPC Service and reacts to OS termination signals
// the same way the daemon reacts to an explicit stop_daemon call: both
// paths converge on one flush-and-exit sequence.
type Supervisor struct {
	server *ipc.Server
	store  *state.Store
	logger *slog.Logger
}

func New(server *ipc.Server, store *state.Store, logger *slog.Logger) *Supervisor {
	return &Supervisor{server: server, store: store, logger: logger}
}

// Run blocks until the IPC Service stops, via stop_daemon or an OS
// signal, flushing state before returning. The return value is the
// process exit code.
func (sup *Supervisor) Run() int {
	signalChannel := make(chan os.Signal, 1)
	signal.Notify(signalChannel, syscall.SIGINT, syscall.SIGTERM)

	serveDone := make(chan error, 1)
	go func() {
		serveDone <- sup.server.Serve()
	}()

	exitCode := 0
	select {
	case sig := <-signalChannel:
		sup.logger.Info("shutdown signal received", "signal", sig)
		sup.server.Stop()
		<-serveDone
	case err := <-serveDone:
		// Serve returned on its own: either stop_daemon already flagged
		// shutdown, or the socket could not be bound (err != nil).
		if err != nil {
			sup.logger.Error("ipc service exited with error", "error", err)
			exitCode = 1
		}
	}

	if err := sup.store.Flush(); err != nil {
		sup.logger.Error("failed to flush state on shutdown", "error", err)
		return 1
	}
	if exitCode != 0 {
		return exitCode
	}

	sup.logger.Info("daemon stopped cleanly")
	return 0
}
