package volumestore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	s := New("/var/lib/lucky")

	assert.Equal(t, "/var/lib/lucky/volumes/data", s.Resolve("data"))
	assert.Equal(t, "/srv/absolute", s.Resolve("/srv/absolute"))
}

func TestIsLogical(t *testing.T) {
	s := New("/var/lib/lucky")
	assert.True(t, s.IsLogical("data"))
	assert.False(t, s.IsLogical("/srv/absolute"))
}

func TestEnsureDirAndDelete(t *testing.T) {
	dataDir := t.TempDir()
	s := New(dataDir)

	require.NoError(t, s.EnsureDir("cache"))
	path := filepath.Join(dataDir, DirName, "cache")
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	require.NoError(t, s.Delete("cache"))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestDeleteAbsoluteIsNoOp(t *testing.T) {
	dataDir := t.TempDir()
	s := New(dataDir)

	untouched := filepath.Join(dataDir, "untouched")
	require.NoError(t, os.MkdirAll(untouched, 0o755))

	require.NoError(t, s.Delete(untouched))
	_, err := os.Stat(untouched)
	assert.NoError(t, err, "absolute sources must never be deleted")
}

func TestEnsureDirAbsoluteIsNoOp(t *testing.T) {
	dataDir := t.TempDir()
	s := New(dataDir)

	absent := filepath.Join(dataDir, "never-created")
	require.NoError(t, s.EnsureDir(absent))
	_, err := os.Stat(absent)
	assert.True(t, os.IsNotExist(err))
}
