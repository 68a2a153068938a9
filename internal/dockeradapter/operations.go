package dockeradapter

import (
	"context"
	"io"
	"strconv"
	"strings"

	dockercontainer "github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/go-connections/nat"
	v1 "github.com/opencontainers/image-spec/specs-go/v1"

	"github.com/katharostech/lucky/internal/types"
)

// CreateOptions carries everything the reconciler needs to create one
// container, already resolved: volume sources are real host paths
// (logical names have been expanded by internal/volumestore), and
// DataDir/SocketPath are the daemon's own paths to bind-mount in so
// the in-container CLI can call back.
type CreateOptions struct {
	Name       string
	Config     types.ContainerConfig
	DataDir    string
	SocketPath string
}

// Pull downloads image, draining the progress stream the way the
// SDK requires before the image is usable by Create.
func (c *Client) Pull(ctx context.Context, imageName string) error {
	c.logger.Info("pulling image", "image", imageName)
	stream, err := c.sdk.ImagePull(ctx, imageName, image.PullOptions{})
	if err != nil {
		return wrapErr("pull", "", err)
	}
	defer stream.Close()
	if _, err := io.Copy(io.Discard, stream); err != nil {
		return wrapErr("pull", "", err)
	}
	c.logger.Info("image pulled", "image", imageName)
	return nil
}

// Create builds a container from opts and returns its id. It does not
// start it.
func (c *Client) Create(ctx context.Context, opts CreateOptions) (string, error) {
	cfg := opts.Config

	internal := &dockercontainer.Config{
		Image: cfg.Image,
		Env:   envSlice(cfg.EnvVars),
	}
	if cfg.Entrypoint != "" {
		internal.Entrypoint = []string{cfg.Entrypoint}
	}
	if len(cfg.Command) > 0 {
		internal.Cmd = cfg.Command
	}

	mounts := []mount.Mount{
		{
			Type:     mount.TypeBind,
			Source:   opts.DataDir,
			Target:   opts.DataDir,
			ReadOnly: true,
		},
	}
	if opts.SocketPath != "" {
		mounts = append(mounts, mount.Mount{
			Type:     mount.TypeBind,
			Source:   opts.SocketPath,
			Target:   opts.SocketPath,
			ReadOnly: false,
		})
	}
	for target, source := range cfg.Volumes {
		mounts = append(mounts, mount.Mount{
			Type:   mount.TypeBind,
			Source: source,
			Target: target,
		})
	}

	host := &dockercontainer.HostConfig{
		Mounts:       mounts,
		PortBindings: portBindingMap(cfg.Ports),
	}

	var netConfig *network.NetworkingConfig
	if cfg.Network != "" {
		netConfig = &network.NetworkingConfig{
			EndpointsConfig: map[string]*network.EndpointSettings{
				cfg.Network: {},
			},
		}
	}

	var platform *v1.Platform
	resp, err := c.sdk.ContainerCreate(ctx, internal, host, netConfig, platform, opts.Name)
	if err != nil {
		return "", wrapErr("create", "", err)
	}
	c.logger.Info("container created", "id", shortID(resp.ID), "image", cfg.Image)
	return resp.ID, nil
}

// Start transitions a created container to running.
func (c *Client) Start(ctx context.Context, id string) error {
	if err := c.sdk.ContainerStart(ctx, id, dockercontainer.StartOptions{}); err != nil {
		return wrapErr("start", id, err)
	}
	c.logger.Info("container started", "id", shortID(id))
	return nil
}

// Stop sends a graceful stop with the given timeout.
func (c *Client) Stop(ctx context.Context, id string, timeout int) error {
	if err := c.sdk.ContainerStop(ctx, id, dockercontainer.StopOptions{Timeout: &timeout}); err != nil {
		return wrapErr("stop", id, err)
	}
	c.logger.Info("container stopped", "id", shortID(id))
	return nil
}

// Delete removes a container and its writable layer. Named volumes
// attached to it are left alone; volume lifecycle is owned by
// internal/volumestore, not by the container's own deletion.
func (c *Client) Delete(ctx context.Context, id string) error {
	err := c.sdk.ContainerRemove(ctx, id, dockercontainer.RemoveOptions{Force: true})
	if err != nil {
		return wrapErr("delete", id, err)
	}
	c.logger.Info("container removed", "id", shortID(id))
	return nil
}

// Info inspects container id and returns the engine's inspect response.
func (c *Client) Info(ctx context.Context, id string) (*dockercontainer.InspectResponse, error) {
	resp, err := c.sdk.ContainerInspect(ctx, id)
	if err != nil {
		return nil, wrapErr("info", id, err)
	}
	return &resp, nil
}

func envSlice(vars map[string]string) []string {
	if len(vars) == 0 {
		return nil
	}
	out := make([]string, 0, len(vars))
	for k, v := range vars {
		out = append(out, k+"="+v)
	}
	return out
}

func portBindingMap(ports []types.PortBinding) nat.PortMap {
	if len(ports) == 0 {
		return nil
	}
	out := nat.PortMap{}
	for _, p := range ports {
		key := nat.Port(strconv.Itoa(int(p.ContainerPort)) + "/" + strings.ToLower(p.Protocol))
		out[key] = append(out[key], nat.PortBinding{
			HostPort: strconv.Itoa(int(p.HostPort)),
		})
	}
	return out
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
