// Package ipc exposes the daemon's ~40-method RPC surface over a
// Unix-domain socket. Per the flat-dispatch redesign note, methods
// are a closed enumeration keyed by name in a map, not a set of
// interface implementations — there is no trait-object analogue to
// reach for here.
package ipc

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"

	"github.com/katharostech/lucky/internal/cronengine"
	"github.com/katharostech/lucky/internal/hookdispatch"
	"github.com/katharostech/lucky/internal/hooktool"
	"github.com/katharostech/lucky/internal/reconciler"
	"github.com/katharostech/lucky/internal/state"
	"github.com/katharostech/lucky/internal/status"
	"github.com/katharostech/lucky/internal/types"
)

// maxConcurrentHandlers bounds the worker pool handlers run on.
const maxConcurrentHandlers = 32

// Server dispatches IPC requests to the daemon's components. It holds
// no state of its own beyond wiring; DaemonState lives entirely behind
// Store.
type Server struct {
	store      *state.Store
	tool       *hooktool.Adapter
	aggregator *status.Aggregator
	dispatcher *hookdispatch.Dispatcher
	cron       *cronengine.Engine
	reconciler *reconciler.Reconciler
	charmMeta  types.LuckyMetadata

	socketPath string
	logger     *slog.Logger

	listener net.Listener
	sem      chan struct{}
	wg       sync.WaitGroup

	// shuttingDown is set by stop_daemon before it replies, so the
	// accept loop refuses new connections; in-flight handlers are
	// allowed to finish rather than being cancelled.
	shuttingDown atomic.Bool
}

// Deps groups the components the IPC Service dispatches into.
type Deps struct {
	Store      *state.Store
	Tool       *hooktool.Adapter
	Aggregator *status.Aggregator
	Dispatcher *hookdispatch.Dispatcher
	Cron       *cronengine.Engine
	Reconciler *reconciler.Reconciler
	CharmMeta  types.LuckyMetadata
}

// New constructs a Server bound to socketPath, not yet listening.
func New(socketPath string, deps Deps, logger *slog.Logger) *Server {
	return &Server{
		store:      deps.Store,
		tool:       deps.Tool,
		aggregator: deps.Aggregator,
		dispatcher: deps.Dispatcher,
		cron:       deps.Cron,
		reconciler: deps.Reconciler,
		charmMeta:  deps.CharmMeta,
		socketPath: socketPath,
		logger:     logger,
		sem:        make(chan struct{}, maxConcurrentHandlers),
	}
}

// Serve listens on the configured socket and accepts connections until
// Stop is called. It returns after the listener is closed and every
// in-flight handler has finished.
func (s *Server) Serve() error {
	_ = removeStaleSocket(s.socketPath)

	l, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return &types.IPCError{Err: err}
	}
	s.listener = l
	s.logger.Info("ipc service listening", "socket", s.socketPath)

	for {
		conn, err := l.Accept()
		if err != nil {
			if s.shuttingDown.Load() {
				break
			}
			if errors.Is(err, net.ErrClosed) {
				break
			}
			s.logger.Warn("accept failed", "error", err)
			continue
		}

		if s.shuttingDown.Load() {
			conn.Close()
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(conn)
		}()
	}

	s.wg.Wait()
	return nil
}

// Stop flags the server as shutting down and closes the listener, so
// the accept loop exits and no new connections are admitted. In-flight
// handlers are not cancelled.
func (s *Server) Stop() {
	s.shuttingDown.Store(true)
	if s.listener != nil {
		s.listener.Close()
	}
}

// ShuttingDown reports whether stop_daemon has already flagged the
// server for shutdown.
func (s *Server) ShuttingDown() bool {
	return s.shuttingDown.Load()
}

func (s *Server) cronJobsFromMeta() []cronengine.Job {
	jobs := make([]cronengine.Job, 0, len(s.charmMeta.CronJobs))
	for expr, scripts := range s.charmMeta.CronJobs {
		jobs = append(jobs, cronengine.Job{Expression: expr, Scripts: scripts})
	}
	return jobs
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()
	ctx := context.Background()

	for {
		req, err := readRequest(conn)
		if err != nil {
			return
		}

		s.sem <- struct{}{}
		s.dispatch(ctx, conn, req)
		<-s.sem
	}
}
