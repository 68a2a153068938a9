package reconciler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katharostech/lucky/internal/state"
	"github.com/katharostech/lucky/internal/types"
)

func testLoggerStore(t *testing.T) *state.Store {
	t.Helper()
	return state.Open(t.TempDir()+"/state.yaml", testLogger())
}

func TestApplyAllReconcilesAndClearsPendingRemoval(t *testing.T) {
	engine := &fakeEngine{nextID: "id-1"}
	r := newReconciler(t, engine)
	s := testLoggerStore(t)

	s.Write(func(ds *state.DaemonState) {
		ds.DefaultContainer = types.NewDirty(types.NewContainerInfo("nginx:latest"))
		pending := types.NewContainerInfo("redis:7")
		pending.PendingRemoval = true
		pending.ID = "old-worker"
		ds.NamedContainers["worker"] = types.NewDirty(pending)
	})

	err := r.ApplyAll(context.Background(), s)
	require.NoError(t, err)

	s.Read(func(ds *state.DaemonState) {
		require.NotNil(t, ds.DefaultContainer)
		assert.Equal(t, "id-1", ds.DefaultContainer.Get().ID)
		assert.NotContains(t, ds.NamedContainers, "worker")
	})
	assert.Contains(t, engine.deleted, "old-worker")
}
