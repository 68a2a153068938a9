// Package volumestore resolves the logical volume names a charm's
// container config can use for a volume source into real host paths
// under the daemon's data directory, and owns deleting that on-disk
// data when a volume is removed and nothing else references it.
package volumestore

import (
	"os"
	"path/filepath"
	"strings"
)

// DirName is the directory, relative to the daemon's data dir, where
// logical volume sources live on disk.
const DirName = "volumes"

// Store resolves and deletes logical volumes under one data directory.
type Store struct {
	dataDir string
}

// New returns a Store rooted at dataDir.
func New(dataDir string) *Store {
	return &Store{dataDir: dataDir}
}

// Resolve maps a config.volumes source to the path Docker should bind
// mount. Absolute paths pass through unchanged; anything else is
// treated as a logical name under <data_dir>/volumes.
func (s *Store) Resolve(source string) string {
	if strings.HasPrefix(source, "/") {
		return source
	}
	return filepath.Join(s.dataDir, DirName, source)
}

// IsLogical reports whether source is a logical name (as opposed to
// an absolute host path) — the only kind this store may delete.
func (s *Store) IsLogical(source string) bool {
	return !strings.HasPrefix(source, "/")
}

// Delete removes the on-disk data for a logical volume source. It is
// a no-op, not an error, if the volume was never materialized.
func (s *Store) Delete(source string) error {
	if !s.IsLogical(source) {
		return nil
	}
	path := s.Resolve(source)
	err := os.RemoveAll(path)
	if err != nil {
		return err
	}
	return nil
}

// EnsureDir creates the directory backing a logical volume source if it
// doesn't exist yet, so the reconciler can bind-mount it on first use.
// Absolute sources are left alone.
func (s *Store) EnsureDir(source string) error {
	if !s.IsLogical(source) {
		return nil
	}
	return os.MkdirAll(s.Resolve(source), 0o755)
}
