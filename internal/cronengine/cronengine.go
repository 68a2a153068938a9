// Package cronengine evaluates the charm's cron schedules against the
// time elapsed since the last tick and spawns the scripts bound to
// any schedule that fired. The daemon itself never runs a ticker loop
// (§1 Non-goals); an external periodic caller drives this via cron_tick.
package cronengine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/katharostech/lucky/internal/reconciler"
	"github.com/katharostech/lucky/internal/scriptrunner"
	"github.com/katharostech/lucky/internal/state"
	"github.com/katharostech/lucky/internal/types"
)

const contextEnvVar = "JUJU_CONTEXT_ID"

// Engine evaluates cron_jobs from the charm's LuckyMetadata on each
// tick. It parses schedules with robfig/cron's standard parser but
// never starts that library's own background loop — Next is computed
// on demand, driven by the caller.
type Engine struct {
	runner      *scriptrunner.Runner
	reconciler  *reconciler.Reconciler
	store       *state.Store
	charmBinDir string
	useDocker   bool
	logger      *slog.Logger

	mu       sync.Mutex
	lastTick time.Time
}

// New constructs a cron Engine. lastTick seeds the "since" boundary
// for the first tick (typically the daemon's start time, or a value
// restored from state if that's ever persisted).
func New(
	runner *scriptrunner.Runner,
	recon *reconciler.Reconciler,
	store *state.Store,
	charmBinDir string,
	useDocker bool,
	lastTick time.Time,
	logger *slog.Logger,
) *Engine {
	return &Engine{
		runner:      runner,
		reconciler:  recon,
		store:       store,
		charmBinDir: charmBinDir,
		useDocker:   useDocker,
		logger:      logger,
		lastTick:    lastTick,
	}
}

// Job is one (schedule, scripts) pair from the charm's cron_jobs.
type Job struct {
	Expression string
	Scripts    []types.ScriptEntry
}

// Tick evaluates every job against the window (last_tick, now]. Each
// job whose next fire time after last_tick falls at or before now is
// run: sync scripts in-line within the job's own task, async scripts
// each in their own task, all tasks across all jobs running
// concurrently. The first error across all tasks is returned, but
// every task is awaited to completion regardless, and last_tick always
// advances to the now sampled at the start of this call — even a job
// with an invalid schedule does not hold last_tick back.
func (e *Engine) Tick(ctx context.Context, orchestratorContextID string, jobs []Job) error {
	e.mu.Lock()
	since := e.lastTick
	now := time.Now()
	e.mu.Unlock()

	restore := setEnv(contextEnvVar, orchestratorContextID)
	defer restore()

	var wg sync.WaitGroup
	errCh := make(chan error, len(jobs)*4)

	for jobIndex, job := range jobs {
		schedule, err := cron.ParseStandard(job.Expression)
		if err != nil {
			errCh <- fmt.Errorf("cron job %d: parse %q: %w", jobIndex, job.Expression, err)
			continue
		}

		next := schedule.Next(since)
		if next.After(now) {
			continue
		}

		wg.Add(1)
		go func(jobIndex int, job Job) {
			defer wg.Done()
			if err := e.runJob(ctx, jobIndex, job); err != nil {
				errCh <- err
			}
		}(jobIndex, job)
	}

	wg.Wait()
	close(errCh)

	var firstErr error
	for err := range errCh {
		if err != nil {
			e.logger.Error("cron job failed", "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	e.mu.Lock()
	e.lastTick = now
	e.mu.Unlock()

	return firstErr
}

func (e *Engine) runJob(ctx context.Context, jobIndex int, job Job) error {
	var wg sync.WaitGroup
	errCh := make(chan error, len(job.Scripts))

	for scriptIndex, entry := range job.Scripts {
		scriptID := fmt.Sprintf("cron_%d_%d", jobIndex, scriptIndex)
		req := scriptrunner.Request{
			Kind:     scriptrunner.KindCron,
			ScriptID: scriptID,
			Path:     entry.Script,
			HookName: "cron",
		}

		run := func() error {
			if err := e.runner.Run(ctx, e.charmBinDir, req); err != nil {
				return err
			}
			if e.useDocker {
				return e.reconciler.ApplyAll(ctx, e.store)
			}
			return nil
		}

		if entry.Async {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := run(); err != nil {
					errCh <- err
				}
			}()
		} else if err := run(); err != nil {
			errCh <- err
		}
	}

	wg.Wait()
	close(errCh)

	for err := range errCh {
		if err != nil {
			return err
		}
	}
	return nil
}

func setEnv(key, value string) func() {
	prev, had := os.LookupEnv(key)
	os.Setenv(key, value)
	return func() {
		if had {
			os.Setenv(key, prev)
		} else {
			os.Unsetenv(key)
		}
	}
}
