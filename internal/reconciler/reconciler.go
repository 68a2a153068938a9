// Package reconciler converges the live Docker state toward each
// container slot's desired configuration: the default container and
// every named container.
package reconciler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/katharostech/lucky/internal/dockeradapter"
	"github.com/katharostech/lucky/internal/types"
	"github.com/katharostech/lucky/internal/volumestore"
)

// stopTimeoutSeconds is the graceful-stop window given to a container
// before reconciliation deletes it.
const stopTimeoutSeconds = 10

// Engine is the subset of the Docker Adapter the reconciler drives.
// An interface so tests can substitute a fake engine and assert the
// exact sequence of calls without a real Docker daemon.
type Engine interface {
	Pull(ctx context.Context, image string) error
	Create(ctx context.Context, opts dockeradapter.CreateOptions) (string, error)
	Start(ctx context.Context, id string) error
	Stop(ctx context.Context, id string, timeoutSeconds int) error
	Delete(ctx context.Context, id string) error
}

// Reconciler applies the seven-step convergence algorithm to one
// container slot at a time. It is never invoked concurrently for the
// same slot; the State Store's write lock is what serializes callers.
type Reconciler struct {
	engine     Engine
	volumes    *volumestore.Store
	dataDir    string
	socketPath string
	logger     *slog.Logger
}

// New returns a Reconciler that creates containers with dataDir bind
// mounted read-only and socketPath bind mounted for IPC callbacks.
func New(engine Engine, volumes *volumestore.Store, dataDir, socketPath string, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		engine:     engine,
		volumes:    volumes,
		dataDir:    dataDir,
		socketPath: socketPath,
		logger:     logger,
	}
}

// Slot names one container: "" for the default container, otherwise a
// named-container key.
type Slot struct {
	Name string
	Info *types.Dirty[types.ContainerInfo]
}

// Converge applies the convergence algorithm to one slot. It returns
// (cleared, err): cleared is true when the slot should be removed
// from its map (pending_removal was processed).
func (r *Reconciler) Converge(ctx context.Context, slot Slot) (cleared bool, err error) {
	if slot.Info.IsClean() {
		return false, nil
	}

	info := slot.Info.Get()

	if info.HasRunningID() {
		if err := r.engine.Stop(ctx, info.ID, stopTimeoutSeconds); err != nil {
			return false, fmt.Errorf("reconcile %s: %w", slotLabel(slot.Name), err)
		}
		if err := r.engine.Delete(ctx, info.ID); err != nil {
			return false, fmt.Errorf("reconcile %s: %w", slotLabel(slot.Name), err)
		}
		info.ID = ""
	}

	if info.PendingRemoval {
		return true, nil
	}

	resolved := info.Config
	resolvedVolumes := make(map[string]string, len(resolved.Volumes))
	for target, source := range resolved.Volumes {
		if err := r.volumes.EnsureDir(source); err != nil {
			return false, fmt.Errorf("reconcile %s: prepare volume %q: %w", slotLabel(slot.Name), source, err)
		}
		resolvedVolumes[target] = r.volumes.Resolve(source)
	}
	resolved.Volumes = resolvedVolumes

	if info.PullImage {
		if err := r.engine.Pull(ctx, resolved.Image); err != nil {
			return false, fmt.Errorf("reconcile %s: %w", slotLabel(slot.Name), err)
		}
	}

	containerName := containerName(slot.Name)
	id, err := r.engine.Create(ctx, dockeradapter.CreateOptions{
		Name:       containerName,
		Config:     resolved,
		DataDir:    r.dataDir,
		SocketPath: r.socketPath,
	})
	if err != nil {
		return false, fmt.Errorf("reconcile %s: %w", slotLabel(slot.Name), err)
	}

	if err := r.engine.Start(ctx, id); err != nil {
		return false, fmt.Errorf("reconcile %s: %w", slotLabel(slot.Name), err)
	}

	slot.Info.Update(func(c *types.ContainerInfo) {
		c.ID = id
	})
	slot.Info.Clean()

	r.logger.Info("container reconciled", "slot", slotLabel(slot.Name), "id", id)
	return false, nil
}

// DeleteVolumeData removes the on-disk data backing a logical volume
// source. Absolute sources are left alone; only daemon-managed volume
// directories are ever deleted.
func (r *Reconciler) DeleteVolumeData(source string) error {
	return r.volumes.Delete(source)
}

func slotLabel(name string) string {
	if name == "" {
		return "default"
	}
	return name
}

func containerName(name string) string {
	if name == "" {
		return "lucky-default"
	}
	return "lucky-" + name
}
