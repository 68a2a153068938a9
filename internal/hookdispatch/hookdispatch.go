// Package hookdispatch turns a fired hook into script executions and,
// when the charm uses Docker, container reconciliation.
package hookdispatch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/katharostech/lucky/internal/dockeradapter"
	"github.com/katharostech/lucky/internal/hooktool"
	"github.com/katharostech/lucky/internal/reconciler"
	"github.com/katharostech/lucky/internal/scriptrunner"
	"github.com/katharostech/lucky/internal/state"
	"github.com/katharostech/lucky/internal/status"
	"github.com/katharostech/lucky/internal/types"
)

// internalInstallScriptID / internalStopScriptID are the script ids
// the built-in handlers report status under; the __lucky:: prefix
// keeps them out of charm-script log noise (see internal/status).
const (
	internalInstallScriptID = "__lucky::install"
	internalStopScriptID    = "__lucky::stop"
)

// Dispatcher runs the built-in pre/post handlers for a hook plus every
// script the charm bound to it.
type Dispatcher struct {
	runner      *scriptrunner.Runner
	reconciler  *reconciler.Reconciler
	tool        *hooktool.Adapter
	aggregator  *status.Aggregator
	store       *state.Store
	charmBinDir string
	useDocker   bool
	logger      *slog.Logger
}

// New constructs a Dispatcher. useDocker mirrors LuckyMetadata.UseDocker;
// it gates both the install pre-handler's docker bootstrap and the
// post-script reconciliation pass.
func New(
	runner *scriptrunner.Runner,
	recon *reconciler.Reconciler,
	tool *hooktool.Adapter,
	aggregator *status.Aggregator,
	store *state.Store,
	charmBinDir string,
	useDocker bool,
	logger *slog.Logger,
) *Dispatcher {
	return &Dispatcher{
		runner:      runner,
		reconciler:  recon,
		tool:        tool,
		aggregator:  aggregator,
		store:       store,
		charmBinDir: charmBinDir,
		useDocker:   useDocker,
		logger:      logger,
	}
}

// TriggerHook runs hook name: env vars for the call's duration, the
// pre-handler, every bound script (sync in order, async concurrently),
// reconciliation after each when Docker is in use, then the
// post-handler. The first failing script's error is returned; async
// peers are always awaited to completion regardless.
func (d *Dispatcher) TriggerHook(ctx context.Context, name string, env map[string]string, scripts []types.ScriptEntry) error {
	unset := setProcessEnv(env)
	defer unset()

	if err := d.preHandler(ctx, name); err != nil {
		return err
	}

	if err := d.runScripts(ctx, name, scripts); err != nil {
		return err
	}

	return d.postHandler(ctx, name)
}

func (d *Dispatcher) runScripts(ctx context.Context, hookName string, scripts []types.ScriptEntry) error {
	var wg sync.WaitGroup
	errCh := make(chan error, len(scripts))

	for i, entry := range scripts {
		scriptID := fmt.Sprintf("%s_%d", hookName, i)
		req := scriptrunner.Request{
			Kind:     scriptrunner.KindHook,
			ScriptID: scriptID,
			Path:     entry.Script,
			HookName: hookName,
		}

		run := func() error {
			if err := d.runner.Run(ctx, d.charmBinDir, req); err != nil {
				return err
			}
			if d.useDocker {
				return d.reconciler.ApplyAll(ctx, d.store)
			}
			return nil
		}

		if entry.Async {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errCh <- run()
			}()
		} else {
			if err := run(); err != nil {
				errCh <- err
			}
		}
	}

	wg.Wait()
	close(errCh)

	var firstErr error
	for err := range errCh {
		if err != nil {
			d.logger.Error("hook script failed", "hook", hookName, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (d *Dispatcher) preHandler(ctx context.Context, name string) error {
	switch name {
	case "install":
		if !d.useDocker {
			return nil
		}
		d.setInternalStatus(internalInstallScriptID, types.ScriptStatus{State: types.Maintenance, Message: "installing docker"})
		if err := dockeradapter.EnsureInstalled(ctx, d.logger); err != nil {
			return fmt.Errorf("install: ensure docker: %w", err)
		}
		d.setInternalStatus(internalInstallScriptID, types.ScriptStatus{State: types.Active})
	case "stop":
		if err := d.removeAllContainers(ctx); err != nil {
			return fmt.Errorf("stop: %w", err)
		}
	case "config-changed":
		if err := d.refreshCharmConfig(ctx); err != nil {
			return fmt.Errorf("config-changed: refresh charm config: %w", err)
		}
	}
	return nil
}

// refreshCharmConfig repopulates DaemonState.CharmConfig from a live
// config-get --all call, so get_config (internal/ipc) can serve the
// cache instead of shelling out on every request.
func (d *Dispatcher) refreshCharmConfig(ctx context.Context) error {
	cfg, err := d.tool.ConfigGetAll(ctx)
	if err != nil {
		return err
	}
	d.store.Write(func(st *state.DaemonState) {
		st.CharmConfig = cfg
	})
	return nil
}

func (d *Dispatcher) postHandler(ctx context.Context, name string) error {
	return nil
}

func (d *Dispatcher) removeAllContainers(ctx context.Context) error {
	d.store.Write(func(st *state.DaemonState) {
		if st.DefaultContainer != nil {
			st.DefaultContainer.Update(func(c *types.ContainerInfo) { c.PendingRemoval = true })
		}
		for _, info := range st.NamedContainers {
			info.Update(func(c *types.ContainerInfo) { c.PendingRemoval = true })
		}
	})
	if err := d.reconciler.ApplyAll(ctx, d.store); err != nil {
		return err
	}
	d.store.Write(func(st *state.DaemonState) {
		st.DefaultContainer = nil
		st.NamedContainers = map[string]*types.Dirty[types.ContainerInfo]{}
	})
	d.setInternalStatus(internalStopScriptID, types.ScriptStatus{State: types.Active})
	return nil
}

func (d *Dispatcher) setInternalStatus(scriptID string, s types.ScriptStatus) {
	d.store.Write(func(st *state.DaemonState) {
		st.ScriptStatuses[scriptID] = s
	})
	if err := d.aggregator.Publish(context.Background(), snapshotStatuses(d.store)); err != nil {
		d.logger.Warn("status publish failed", "error", err)
	}
}

func snapshotStatuses(s *state.Store) map[string]types.ScriptStatus {
	var out map[string]types.ScriptStatus
	s.Read(func(st *state.DaemonState) {
		out = make(map[string]types.ScriptStatus, len(st.ScriptStatuses))
		for k, v := range st.ScriptStatuses {
			out[k] = v
		}
	})
	return out
}

// setProcessEnv sets each key in env on the process, returning a
// closure that restores the pre-call state: unset entirely if the key
// wasn't already present, restored to its prior value otherwise. This
// is what keeps Hook env scope (§8 invariant 8) — after TriggerHook
// returns the process environment contains none of the keys it added.
func setProcessEnv(env map[string]string) func() {
	type restore struct {
		key      string
		hadValue bool
		value    string
	}
	var restores []restore

	for k, v := range env {
		prev, had := os.LookupEnv(k)
		restores = append(restores, restore{key: k, hadValue: had, value: prev})
		os.Setenv(k, v)
	}

	return func() {
		for _, r := range restores {
			if r.hadValue {
				os.Setenv(r.key, r.value)
			} else {
				os.Unsetenv(r.key)
			}
		}
	}
}
