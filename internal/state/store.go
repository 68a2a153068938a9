package state

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/katharostech/lucky/internal/types"
	"gopkg.in/yaml.v3"
)

// stateFileHeader is written at the top of state.yaml, matching the
// original daemon's habit of leaving a breadcrumb for anyone who opens
// the file by hand.
const stateFileHeader = "# Lucky daemon state. Edit with care; fields not recognized are ignored.\n"

// Store is the single writer-preferring reader-writer lock over
// DaemonState. Every read and write goes through Read/Write, which
// take a closure and release the lock on return — no reference to the
// wrapped state is allowed to escape the closure.
type Store struct {
	mu     sync.RWMutex
	state  *DaemonState
	path   string
	logger *slog.Logger
}

// Open loads state from path if it exists and parses, otherwise starts
// from an empty DaemonState. A load failure is logged, not fatal: the
// daemon continues with an empty state rather than refuse to start.
func Open(path string, logger *slog.Logger) *Store {
	s := &Store{state: New(), path: path, logger: logger}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("failed to read state file, starting empty", "path", path, "error", err)
		}
		return s
	}

	loaded := New()
	if err := yaml.Unmarshal(data, loaded); err != nil {
		logger.Warn("failed to parse state file, starting empty", "path", path, "error", err)
		return s
	}
	s.state = loaded
	return s
}

// Read acquires the read lock, runs fn against the current state, and
// releases the lock before returning. fn must not retain any pointer
// reachable from state beyond its own scope.
func (s *Store) Read(fn func(state *DaemonState)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.state)
}

// Write acquires the write lock, runs fn against the current state,
// and releases the lock before returning.
func (s *Store) Write(fn func(state *DaemonState)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.state)
}

// Flush serializes the current state to disk, writing to a temp file
// in the same directory and renaming over the target so a reader never
// observes a partially written state.yaml.
func (s *Store) Flush() error {
	s.mu.RLock()
	data, err := yaml.Marshal(s.state)
	s.mu.RUnlock()
	if err != nil {
		return &types.StatePersistenceError{Op: "flush", Path: s.path, Err: err}
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &types.StatePersistenceError{Op: "flush", Path: s.path, Err: err}
	}

	tmp, err := os.CreateTemp(dir, ".state-*.yaml.tmp")
	if err != nil {
		return &types.StatePersistenceError{Op: "flush", Path: s.path, Err: err}
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.WriteString(stateFileHeader); err != nil {
		tmp.Close()
		return &types.StatePersistenceError{Op: "flush", Path: s.path, Err: err}
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return &types.StatePersistenceError{Op: "flush", Path: s.path, Err: err}
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return &types.StatePersistenceError{Op: "flush", Path: s.path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &types.StatePersistenceError{Op: "flush", Path: s.path, Err: err}
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		return &types.StatePersistenceError{Op: "flush", Path: s.path, Err: fmt.Errorf("rename into place: %w", err)}
	}
	return nil
}
