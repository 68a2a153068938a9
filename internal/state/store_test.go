package state

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katharostech/lucky/internal/types"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestOpenMissingFileStartsEmpty(t *testing.T) {
	dir := t.TempDir()
	s := Open(filepath.Join(dir, "state.yaml"), testLogger())

	var kvLen int
	s.Read(func(ds *DaemonState) { kvLen = len(ds.KV) })
	assert.Zero(t, kvLen)
}

func TestFlushAndReopenRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.yaml")

	s := Open(path, testLogger())
	s.Write(func(ds *DaemonState) {
		ds.KV["greeting"] = types.NewDirty("hello")
		ds.DefaultContainer = types.NewDirty(types.NewContainerInfo("nginx:latest"))
	})

	require.NoError(t, s.Flush())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Lucky daemon state")

	reopened := Open(path, testLogger())
	var value string
	var image string
	reopened.Read(func(ds *DaemonState) {
		value = ds.KV["greeting"].Get()
		image = ds.DefaultContainer.Get().Config.Image
	})
	assert.Equal(t, "hello", value)
	assert.Equal(t, "nginx:latest", image)
}

func TestFlushWritesAtomically(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "state.yaml")

	s := Open(path, testLogger())
	require.NoError(t, s.Flush())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp", "no temp file should survive a successful flush")
	}
}

func TestHasContainerName(t *testing.T) {
	ds := New()
	assert.False(t, ds.HasContainerName("worker"))
	ds.NamedContainers["worker"] = types.NewDirty(types.NewContainerInfo("redis:7"))
	assert.True(t, ds.HasContainerName("worker"))
}
