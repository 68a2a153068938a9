package hooktool

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katharostech/lucky/internal/types"
)

// withFakeTool puts a fake hook-tool executable on PATH for the
// duration of the test, restoring the original PATH afterward.
func withFakeTool(t *testing.T, name, script string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755))

	original := os.Getenv("PATH")
	require.NoError(t, os.Setenv("PATH", dir+string(os.PathListSeparator)+original))
	t.Cleanup(func() { os.Setenv("PATH", original) })
}

func TestStatusSetSuccess(t *testing.T) {
	withFakeTool(t, "status-set", "exit 0\n")
	a := New()
	err := a.StatusSet(context.Background(), types.ScriptStatus{State: types.Active})
	assert.NoError(t, err)
}

func TestRunWrapsStderrOnFailure(t *testing.T) {
	withFakeTool(t, "status-set", "echo 'bad state' >&2\nexit 1\n")
	a := New()
	err := a.StatusSet(context.Background(), types.ScriptStatus{State: types.Active})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad state")
}

func TestIsLeaderParsesBool(t *testing.T) {
	withFakeTool(t, "is-leader", "echo true\n")
	a := New()
	leader, err := a.IsLeader(context.Background())
	require.NoError(t, err)
	assert.True(t, leader)
}

func TestRelationGetAllDecodesJSON(t *testing.T) {
	withFakeTool(t, "relation-get", `echo '{"host":"10.0.0.1","port":"5432"}'`+"\n")
	a := New()
	values, err := a.RelationGetAll(context.Background(), "db:1", "")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1", values["host"])
	assert.Equal(t, "5432", values["port"])
}

func TestPortSpecDefaultsToTCP(t *testing.T) {
	assert.Equal(t, "80/tcp", portSpec(80, ""))
	assert.Equal(t, "53/udp", portSpec(53, "UDP"))
}
