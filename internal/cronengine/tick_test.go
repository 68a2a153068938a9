package cronengine

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katharostech/lucky/internal/reconciler"
	"github.com/katharostech/lucky/internal/scriptrunner"
	"github.com/katharostech/lucky/internal/state"
	"github.com/katharostech/lucky/internal/types"
	"github.com/katharostech/lucky/internal/volumestore"
)

func writeMarkerScript(t *testing.T, dir, name, markerPath string) string {
	t.Helper()
	scriptPath := filepath.Join(dir, name)
	content := "#!/bin/sh\ntouch " + markerPath + "\n"
	require.NoError(t, os.WriteFile(scriptPath, []byte(content), 0o755))
	return scriptPath
}

func newTestEngine(t *testing.T, lastTick time.Time) (*Engine, string) {
	t.Helper()
	dataDir := t.TempDir()
	store := state.Open(filepath.Join(dataDir, "state.yaml"), testLogger())
	recon := reconciler.New(nil, volumestore.New(dataDir), dataDir, "", testLogger())
	runner := scriptrunner.New(testLogger())
	return New(runner, recon, store, dataDir, false, lastTick, testLogger()), dataDir
}

func TestTickRunsDueJob(t *testing.T) {
	engine, binDir := newTestEngine(t, time.Now().Add(-time.Hour))
	marker := filepath.Join(binDir, "fired")
	script := writeMarkerScript(t, binDir, "job.sh", marker)

	err := engine.Tick(context.Background(), "ctx-1", []Job{
		{Expression: "* * * * *", Scripts: []types.ScriptEntry{{Script: script}}},
	})
	require.NoError(t, err)

	_, statErr := os.Stat(marker)
	assert.NoError(t, statErr, "a job due since last_tick must run")
}

func TestTickSkipsJobNotYetDue(t *testing.T) {
	engine, binDir := newTestEngine(t, time.Now())
	marker := filepath.Join(binDir, "fired")
	script := writeMarkerScript(t, binDir, "job.sh", marker)

	// @yearly won't be due again right after "now".
	err := engine.Tick(context.Background(), "ctx-1", []Job{
		{Expression: "0 0 1 1 *", Scripts: []types.ScriptEntry{{Script: script}}},
	})
	require.NoError(t, err)

	_, statErr := os.Stat(marker)
	assert.True(t, os.IsNotExist(statErr), "a job not yet due must not run")
}

func TestTickAdvancesLastTickDespiteBadSchedule(t *testing.T) {
	engine, _ := newTestEngine(t, time.Now().Add(-time.Hour))
	before := engine.lastTick

	err := engine.Tick(context.Background(), "ctx-1", []Job{
		{Expression: "not a cron expression", Scripts: nil},
	})
	assert.Error(t, err)
	assert.True(t, engine.lastTick.After(before), "a tick with a bad schedule must still advance last_tick")

	before = engine.lastTick
	err = engine.Tick(context.Background(), "ctx-1", nil)
	require.NoError(t, err)
	assert.True(t, engine.lastTick.After(before))
}
