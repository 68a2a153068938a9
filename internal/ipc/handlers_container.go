package ipc

import (
	"context"
	"encoding/json"
	"net"

	"github.com/katharostech/lucky/internal/ipcproto"
	"github.com/katharostech/lucky/internal/state"
	"github.com/katharostech/lucky/internal/types"
)

// containerTarget names which slot a container RPC acts on: the
// nameless default container when Name is empty, otherwise a named
// container.
type containerTarget struct {
	Name string `json:"name"`
}

// withContainer runs fn against the Dirty[ContainerInfo] for
// target under the store's write lock, creating a fresh default-image
// entry only for image_set (handled by the caller); every other
// mutator returns a ValidationError if the slot doesn't exist yet.
func withContainer(s *Server, target containerTarget, fn func(*types.Dirty[types.ContainerInfo])) error {
	var found bool
	s.store.Write(func(ds *state.DaemonState) {
		entry := lookupContainer(ds, target.Name)
		if entry == nil {
			return
		}
		found = true
		fn(entry)
	})
	if !found {
		return &types.ValidationError{Field: "name", Reason: "no such container: " + containerLabel(target.Name)}
	}
	return nil
}

func lookupContainer(ds *state.DaemonState, name string) *types.Dirty[types.ContainerInfo] {
	if name == "" {
		return ds.DefaultContainer
	}
	return ds.NamedContainers[name]
}

func containerLabel(name string) string {
	if name == "" {
		return "default"
	}
	return name
}

func readContainer(s *Server, target containerTarget) (types.ContainerInfo, bool) {
	var info types.ContainerInfo
	var found bool
	s.store.Read(func(ds *state.DaemonState) {
		entry := lookupContainer(ds, target.Name)
		if entry == nil {
			return
		}
		found = true
		info = entry.Get()
	})
	return info, found
}

func handleContainerApply(ctx context.Context, s *Server, raw json.RawMessage) (interface{}, error) {
	if !s.charmMeta.UseDocker {
		return nil, &types.ValidationError{Field: "use_docker", Reason: "charm does not declare use_docker: true"}
	}
	if err := s.reconciler.ApplyAll(ctx, s.store); err != nil {
		return nil, err
	}
	return map[string]bool{"ok": true}, nil
}

func handleContainerDelete(ctx context.Context, s *Server, raw json.RawMessage) (interface{}, error) {
	var target containerTarget
	if err := json.Unmarshal(raw, &target); err != nil {
		return nil, &types.ValidationError{Field: "name", Reason: err.Error()}
	}
	if err := withContainer(s, target, func(c *types.Dirty[types.ContainerInfo]) {
		c.Update(func(info *types.ContainerInfo) { info.PendingRemoval = true })
	}); err != nil {
		return nil, err
	}
	return map[string]bool{"ok": true}, nil
}

type containerImageSetArgs struct {
	Name  string `json:"name"`
	Image string `json:"image"`
}

func handleContainerImageSet(ctx context.Context, s *Server, raw json.RawMessage) (interface{}, error) {
	var args containerImageSetArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, &types.ValidationError{Field: "image", Reason: err.Error()}
	}
	if args.Image == "" {
		return nil, &types.ValidationError{Field: "image", Reason: "image is required"}
	}

	s.store.Write(func(ds *state.DaemonState) {
		if args.Name == "" {
			if ds.DefaultContainer == nil {
				info := types.NewContainerInfo(args.Image)
				ds.DefaultContainer = types.NewDirty(info)
			} else {
				ds.DefaultContainer.Update(func(c *types.ContainerInfo) { c.Config.Image = args.Image })
			}
			return
		}
		if ds.HasContainerName(args.Name) {
			entry := ds.NamedContainers[args.Name]
			entry.Update(func(c *types.ContainerInfo) { c.Config.Image = args.Image })
			return
		}
		info := types.NewContainerInfo(args.Image)
		ds.NamedContainers[args.Name] = types.NewDirty(info)
	})
	return map[string]bool{"ok": true}, nil
}

func handleContainerImageGet(ctx context.Context, s *Server, raw json.RawMessage) (interface{}, error) {
	var target containerTarget
	if err := json.Unmarshal(raw, &target); err != nil {
		return nil, &types.ValidationError{Field: "name", Reason: err.Error()}
	}
	info, found := readContainer(s, target)
	if !found {
		return nil, &types.ValidationError{Field: "name", Reason: "no such container: " + containerLabel(target.Name)}
	}
	return map[string]string{"image": info.Config.Image}, nil
}

type containerSetEntrypointArgs struct {
	Name       string `json:"name"`
	Entrypoint string `json:"entrypoint"`
}

func handleContainerSetEntrypoint(ctx context.Context, s *Server, raw json.RawMessage) (interface{}, error) {
	var args containerSetEntrypointArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, &types.ValidationError{Field: "entrypoint", Reason: err.Error()}
	}
	err := withContainer(s, containerTarget{Name: args.Name}, func(c *types.Dirty[types.ContainerInfo]) {
		c.Update(func(info *types.ContainerInfo) { info.Config.Entrypoint = args.Entrypoint })
	})
	if err != nil {
		return nil, err
	}
	return map[string]bool{"ok": true}, nil
}

type containerSetCommandArgs struct {
	Name    string   `json:"name"`
	Command []string `json:"command"`
}

func handleContainerSetCommand(ctx context.Context, s *Server, raw json.RawMessage) (interface{}, error) {
	var args containerSetCommandArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, &types.ValidationError{Field: "command", Reason: err.Error()}
	}
	err := withContainer(s, containerTarget{Name: args.Name}, func(c *types.Dirty[types.ContainerInfo]) {
		c.Update(func(info *types.ContainerInfo) { info.Config.Command = args.Command })
	})
	if err != nil {
		return nil, err
	}
	return map[string]bool{"ok": true}, nil
}

type containerEnvGetArgs struct {
	Name string `json:"name"`
	Key  string `json:"key"`
}

func handleContainerEnvGet(ctx context.Context, s *Server, raw json.RawMessage) (interface{}, error) {
	var args containerEnvGetArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, &types.ValidationError{Field: "key", Reason: err.Error()}
	}
	info, found := readContainer(s, containerTarget{Name: args.Name})
	if !found {
		return nil, &types.ValidationError{Field: "name", Reason: "no such container: " + containerLabel(args.Name)}
	}
	return map[string]string{"value": info.Config.EnvVars[args.Key]}, nil
}

// handleContainerEnvGetAll streams every env var of one container,
// one frame per entry.
func handleContainerEnvGetAll(ctx context.Context, s *Server, conn net.Conn, raw json.RawMessage) error {
	var target containerTarget
	if err := json.Unmarshal(raw, &target); err != nil {
		return &types.ValidationError{Field: "name", Reason: err.Error()}
	}
	info, found := readContainer(s, target)
	if !found {
		return &types.ValidationError{Field: "name", Reason: "no such container: " + containerLabel(target.Name)}
	}

	type entry struct {
		Key   string `json:"key"`
		Value string `json:"value"`
	}
	entries := make([]entry, 0, len(info.Config.EnvVars))
	for k, v := range info.Config.EnvVars {
		entries = append(entries, entry{Key: k, Value: v})
	}

	for i, e := range entries {
		more := i < len(entries)-1
		data, err := json.Marshal(e)
		if err != nil {
			return &types.IPCError{Err: err}
		}
		if err := ipcproto.WriteResponse(conn, ipcproto.Response{Result: data, More: more}); err != nil {
			return err
		}
	}
	if len(entries) == 0 {
		return ipcproto.WriteResponse(conn, ipcproto.Response{})
	}
	return nil
}

type containerEnvSetArgs struct {
	Name   string            `json:"name"`
	Values map[string]string `json:"values"`
}

func handleContainerEnvSet(ctx context.Context, s *Server, raw json.RawMessage) (interface{}, error) {
	var args containerEnvSetArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, &types.ValidationError{Field: "values", Reason: err.Error()}
	}
	err := withContainer(s, containerTarget{Name: args.Name}, func(c *types.Dirty[types.ContainerInfo]) {
		c.Update(func(info *types.ContainerInfo) {
			if info.Config.EnvVars == nil {
				info.Config.EnvVars = map[string]string{}
			}
			for k, v := range args.Values {
				info.Config.EnvVars[k] = v
			}
		})
	})
	if err != nil {
		return nil, err
	}
	return map[string]bool{"ok": true}, nil
}

type containerVolumeArgs struct {
	Name   string `json:"name"`
	Target string `json:"target"`
	Source string `json:"source"`
}

func handleContainerVolumeAdd(ctx context.Context, s *Server, raw json.RawMessage) (interface{}, error) {
	var args containerVolumeArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, &types.ValidationError{Field: "target", Reason: err.Error()}
	}
	err := withContainer(s, containerTarget{Name: args.Name}, func(c *types.Dirty[types.ContainerInfo]) {
		c.Update(func(info *types.ContainerInfo) {
			if info.Config.Volumes == nil {
				info.Config.Volumes = map[string]string{}
			}
			info.Config.Volumes[args.Target] = args.Source
		})
	})
	if err != nil {
		return nil, err
	}
	return map[string]bool{"ok": true}, nil
}

type containerVolumeRemoveArgs struct {
	Name       string `json:"name"`
	Target     string `json:"target"`
	DeleteData bool   `json:"delete_data"`
}

// handleContainerVolumeRemove removes one target→source mapping and,
// when requested, deletes the underlying data — but only if no other
// volume in the same container maps to the same source (§8 invariant
// 7, grounded on the original daemon's volume_remove logic).
func handleContainerVolumeRemove(ctx context.Context, s *Server, raw json.RawMessage) (interface{}, error) {
	var args containerVolumeRemoveArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, &types.ValidationError{Field: "target", Reason: err.Error()}
	}

	var deleted bool
	var sourceToDelete string
	err := withContainer(s, containerTarget{Name: args.Name}, func(c *types.Dirty[types.ContainerInfo]) {
		c.Update(func(info *types.ContainerInfo) {
			source, ok := info.Config.Volumes[args.Target]
			if !ok {
				return
			}
			delete(info.Config.Volumes, args.Target)

			if !args.DeleteData {
				return
			}
			for _, other := range info.Config.Volumes {
				if other == source {
					return
				}
			}
			deleted = true
			sourceToDelete = source
		})
	})
	if err != nil {
		return nil, err
	}

	if deleted {
		if err := s.reconciler.DeleteVolumeData(sourceToDelete); err != nil {
			return nil, err
		}
	}

	return map[string]bool{"deleted": deleted}, nil
}

func handleContainerVolumeGetAll(ctx context.Context, s *Server, raw json.RawMessage) (interface{}, error) {
	var target containerTarget
	if err := json.Unmarshal(raw, &target); err != nil {
		return nil, &types.ValidationError{Field: "name", Reason: err.Error()}
	}
	info, found := readContainer(s, target)
	if !found {
		return nil, &types.ValidationError{Field: "name", Reason: "no such container: " + containerLabel(target.Name)}
	}
	return info.Config.Volumes, nil
}

type containerPortArgs struct {
	Name          string `json:"name"`
	HostPort      uint16 `json:"host_port"`
	ContainerPort uint16 `json:"container_port"`
	Protocol      string `json:"protocol"`
}

func handleContainerPortAdd(ctx context.Context, s *Server, raw json.RawMessage) (interface{}, error) {
	var args containerPortArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, &types.ValidationError{Field: "host_port", Reason: err.Error()}
	}
	if args.Protocol == "" {
		args.Protocol = "tcp"
	}
	binding := types.PortBinding{HostPort: args.HostPort, ContainerPort: args.ContainerPort, Protocol: args.Protocol}

	var conflict types.PortBinding
	var hasConflict bool
	err := withContainer(s, containerTarget{Name: args.Name}, func(c *types.Dirty[types.ContainerInfo]) {
		current := c.Get()
		if existing, ok := current.Config.ConflictingPort(binding); ok {
			conflict = existing
			hasConflict = true
			return
		}
		c.Update(func(info *types.ContainerInfo) { info.Config.AddPort(binding) })
	})
	if err != nil {
		return nil, err
	}
	if hasConflict {
		return nil, &types.ValidationError{
			Field:  "port",
			Reason: "conflicts with existing binding " + conflict.String(),
		}
	}
	return map[string]bool{"ok": true}, nil
}

func handleContainerPortRemove(ctx context.Context, s *Server, raw json.RawMessage) (interface{}, error) {
	var args containerPortArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, &types.ValidationError{Field: "host_port", Reason: err.Error()}
	}
	if args.Protocol == "" {
		args.Protocol = "tcp"
	}
	binding := types.PortBinding{HostPort: args.HostPort, ContainerPort: args.ContainerPort, Protocol: args.Protocol}
	err := withContainer(s, containerTarget{Name: args.Name}, func(c *types.Dirty[types.ContainerInfo]) {
		c.Update(func(info *types.ContainerInfo) { info.Config.RemovePort(binding) })
	})
	if err != nil {
		return nil, err
	}
	return map[string]bool{"ok": true}, nil
}

func handleContainerPortRemoveAll(ctx context.Context, s *Server, raw json.RawMessage) (interface{}, error) {
	var target containerTarget
	if err := json.Unmarshal(raw, &target); err != nil {
		return nil, &types.ValidationError{Field: "name", Reason: err.Error()}
	}
	err := withContainer(s, target, func(c *types.Dirty[types.ContainerInfo]) {
		c.Update(func(info *types.ContainerInfo) { info.Config.Ports = nil })
	})
	if err != nil {
		return nil, err
	}
	return map[string]bool{"ok": true}, nil
}

func handleContainerPortGetAll(ctx context.Context, s *Server, raw json.RawMessage) (interface{}, error) {
	var target containerTarget
	if err := json.Unmarshal(raw, &target); err != nil {
		return nil, &types.ValidationError{Field: "name", Reason: err.Error()}
	}
	info, found := readContainer(s, target)
	if !found {
		return nil, &types.ValidationError{Field: "name", Reason: "no such container: " + containerLabel(target.Name)}
	}
	return info.Config.Ports, nil
}

type containerNetworkSetArgs struct {
	Name    string `json:"name"`
	Network string `json:"network"`
}

func handleContainerNetworkSet(ctx context.Context, s *Server, raw json.RawMessage) (interface{}, error) {
	var args containerNetworkSetArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, &types.ValidationError{Field: "network", Reason: err.Error()}
	}
	err := withContainer(s, containerTarget{Name: args.Name}, func(c *types.Dirty[types.ContainerInfo]) {
		c.Update(func(info *types.ContainerInfo) { info.Config.Network = args.Network })
	})
	if err != nil {
		return nil, err
	}
	return map[string]bool{"ok": true}, nil
}
