package charmmeta

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoadReadsNameAndLuckyMetadata(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "metadata.yaml", "name: my-charm\nsummary: a test charm\n")
	writeFile(t, dir, "lucky.yaml", "use_docker: true\nhooks:\n  install:\n    - script: bin/install.sh\n")

	name, meta, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "my-charm", name)
	assert.True(t, meta.UseDocker)
	require.Len(t, meta.Hooks["install"], 1)
	assert.Equal(t, "bin/install.sh", meta.Hooks["install"][0].Script)
}

func TestLoadMissingLuckyYAMLIsEmptyNotError(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "metadata.yaml", "name: bare-charm\n")

	name, meta, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "bare-charm", name)
	assert.False(t, meta.UseDocker)
	assert.Empty(t, meta.Hooks)
}

func TestLoadMissingMetadataIsError(t *testing.T) {
	dir := t.TempDir()
	_, _, err := Load(dir)
	assert.Error(t, err)
}

func TestLoadAcceptsYmlExtension(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "metadata.yml", "name: short-ext-charm\n")

	name, _, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "short-ext-charm", name)
}
