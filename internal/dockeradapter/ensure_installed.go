package dockeradapter

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"

	"github.com/katharostech/lucky/internal/types"
)

// packageManagerInstallers lists candidate host package managers,
// tried in order, each paired with the command that installs a Docker
// engine package through it. The same os/exec-driven subprocess
// approach internal/scriptrunner and internal/hooktool use for every
// other host command this daemon runs.
var packageManagerInstallers = []struct {
	probe   string
	install []string
}{
	{"apt-get", []string{"apt-get", "install", "-y", "docker.io"}},
	{"dnf", []string{"dnf", "install", "-y", "docker"}},
	{"yum", []string{"yum", "install", "-y", "docker"}},
}

// EnsureInstalled makes sure a Docker engine is present on the host,
// installing it through whatever package manager is available if it
// isn't. It is a no-op if docker is already on PATH. This is the host
// provisioning step the install hook runs before any container
// reconciliation — distinct from the reconciler, which only ever talks
// to an engine that's already there.
func EnsureInstalled(ctx context.Context, logger *slog.Logger) error {
	if _, err := exec.LookPath("docker"); err == nil {
		logger.Info("docker engine already installed")
		return nil
	}

	for _, pm := range packageManagerInstallers {
		if _, err := exec.LookPath(pm.probe); err != nil {
			continue
		}
		logger.Info("installing docker engine", "package_manager", pm.probe)
		cmd := exec.CommandContext(ctx, pm.install[0], pm.install[1:]...)
		output, err := cmd.CombinedOutput()
		if err != nil {
			return &types.DockerError{Op: "install", Err: fmt.Errorf("%s: %w: %s", pm.probe, err, output)}
		}
		logger.Info("docker engine installed", "package_manager", pm.probe)
		return nil
	}

	return &types.DockerError{Op: "install", Err: fmt.Errorf("no supported package manager found on host")}
}
