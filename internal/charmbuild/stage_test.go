package charmbuild

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStageCopiesFilesAndPreservesTree(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(src, "bin"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "metadata.yaml"), []byte("name: test\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "bin", "install.sh"), []byte("#!/bin/sh\n"), 0o755))

	out := filepath.Join(t.TempDir(), "staged")
	require.NoError(t, Stage(src, out))

	data, err := os.ReadFile(filepath.Join(out, "metadata.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "name: test\n", string(data))

	_, err = os.Stat(filepath.Join(out, "bin", "install.sh"))
	assert.NoError(t, err)
}

func TestStageRejectsSymlinks(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "metadata.yaml"), []byte("name: test\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "real.txt"), []byte("data"), 0o644))
	require.NoError(t, os.Symlink(filepath.Join(src, "real.txt"), filepath.Join(src, "link.txt")))

	out := filepath.Join(t.TempDir(), "staged")
	err := Stage(src, out)
	assert.Error(t, err)
}

func TestStageWipesStaleOutput(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "metadata.yaml"), []byte("name: test\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "new.txt"), []byte("new"), 0o644))

	out := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(out, "stale.txt"), []byte("stale"), 0o644))

	require.NoError(t, Stage(src, out))

	_, err := os.Stat(filepath.Join(out, "stale.txt"))
	assert.True(t, os.IsNotExist(err))
}

func TestStageRejectsInvalidLuckyMetadata(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "metadata.yaml"), []byte("name: test\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "lucky.yaml"), []byte("hooks: [unclosed\n"), 0o644))

	out := filepath.Join(t.TempDir(), "staged")
	err := Stage(src, out)
	assert.Error(t, err)
}

func TestStageExcludesVCSAndDependencyDirectories(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "metadata.yaml"), []byte("name: test\n"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(src, ".git", "objects"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, ".git", "objects", "pack"), []byte("x"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(src, "node_modules", "dep"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "node_modules", "dep", "index.js"), []byte("x"), 0o644))

	out := filepath.Join(t.TempDir(), "staged")
	require.NoError(t, Stage(src, out))

	_, err := os.Stat(filepath.Join(out, ".git"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(out, "node_modules"))
	assert.True(t, os.IsNotExist(err))
}
