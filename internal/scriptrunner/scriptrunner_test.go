package scriptrunner

import (
	"bytes"
	"context"
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

func writeScript(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "script.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755))
	return path
}

func TestRunSuccess(t *testing.T) {
	dir := t.TempDir()
	script := writeScript(t, dir, "echo hello\nexit 0\n")

	r := New(testLogger())
	err := r.Run(context.Background(), dir, Request{Kind: KindHook, ScriptID: "install_0", Path: script})
	assert.NoError(t, err)
}

func TestRunFailedExitCode(t *testing.T) {
	dir := t.TempDir()
	script := writeScript(t, dir, "exit 3\n")

	r := New(testLogger())
	err := r.Run(context.Background(), dir, Request{Kind: KindHook, ScriptID: "install_0", Path: script})

	var failed *types.ScriptFailedError
	require.ErrorAs(t, err, &failed)
	assert.Equal(t, 3, failed.ExitCode)
}

func TestRunStreamsOutput(t *testing.T) {
	dir := t.TempDir()
	script := writeScript(t, dir, "echo line-one\necho line-two\n")

	var buf bytes.Buffer
	r := New(testLogger())
	err := r.Run(context.Background(), dir, Request{Kind: KindCron, ScriptID: "cron_0_0", Path: script, Stream: &buf})
	require.NoError(t, err)

	assert.Contains(t, buf.String(), "line-one")
	assert.Contains(t, buf.String(), "line-two")
}

func TestRunSetsEnv(t *testing.T) {
	dir := t.TempDir()
	script := writeScript(t, dir, "echo $LUCKY_SCRIPT_ID $LUCKY_HOOK $CUSTOM_VAR\n")

	var buf bytes.Buffer
	r := New(testLogger())
	err := r.Run(context.Background(), dir, Request{
		Kind:     KindHook,
		ScriptID: "install_0",
		HookName: "install",
		Path:     script,
		Env:      map[string]string{"CUSTOM_VAR": "custom-value"},
		Stream:   &buf,
	})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "install_0 install custom-value")
}
