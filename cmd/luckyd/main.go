// Command luckyd is the Lucky daemon: one instance runs per charm unit,
// bridging hook/cron execution and container desired-state against the
// orchestrator's hook tools and, optionally, a local Docker engine.
package main

import (
	"log"
	"path/filepath"
	"time"

	"github.com/katharostech/lucky/internal/charmmeta"
	"github.com/katharostech/lucky/internal/config"
	"github.com/katharostech/lucky/internal/cronengine"
	"github.com/katharostech/lucky/internal/dockeradapter"
	"github.com/katharostech/lucky/internal/hookdispatch"
	"github.com/katharostech/lucky/internal/hooktool"
	"github.com/katharostech/lucky/internal/ipc"
	"github.com/katharostech/lucky/internal/reconciler"
	"github.com/katharostech/lucky/internal/scriptrunner"
	"github.com/katharostech/lucky/internal/state"
	"github.com/katharostech/lucky/internal/status"
	"github.com/katharostech/lucky/internal/supervisor"
	"github.com/katharostech/lucky/internal/volumestore"
)

func main() {
	cfg := config.Load()
	logger := cfg.NewLogger()

	logger.Info("lucky daemon starting",
		"socket", cfg.SocketPath,
		"data_dir", cfg.DataDir,
		"charm_dir", cfg.CharmDir,
	)

	charmName, meta, err := charmmeta.Load(cfg.CharmDir)
	if err != nil {
		log.Fatalf("failed to load charm metadata: %v", err)
	}
	logger.Info("charm metadata loaded", "charm", charmName, "use_docker", meta.UseDocker)

	statePath := filepath.Join(cfg.DataDir, "state.yaml")
	store := state.Open(statePath, logger)

	tool := hooktool.New()
	aggregator := status.New(tool)
	runner := scriptrunner.New(logger)
	volumes := volumestore.New(cfg.DataDir)

	var engine reconciler.Engine
	if meta.UseDocker {
		lazyClient := dockeradapter.NewLazyClient(logger)
		defer lazyClient.Close()
		engine = lazyClient
	}

	recon := reconciler.New(engine, volumes, cfg.DataDir, cfg.SocketPath, logger)

	charmBinDir := filepath.Join(cfg.CharmDir, "bin")
	dispatcher := hookdispatch.New(runner, recon, tool, aggregator, store, charmBinDir, meta.UseDocker, logger)
	cron := cronengine.New(runner, recon, store, charmBinDir, meta.UseDocker, time.Now(), logger)

	server := ipc.New(cfg.SocketPath, ipc.Deps{
		Store:      store,
		Tool:       tool,
		Aggregator: aggregator,
		Dispatcher: dispatcher,
		Cron:       cron,
		Reconciler: recon,
		CharmMeta:  meta,
	}, logger)

	sup := supervisor.New(server, store, logger)
	code := sup.Run()
	if code != 0 {
		log.Fatalf("lucky daemon exited with code %d", code)
	}
}
