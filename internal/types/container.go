package types

import "fmt"

// PortBinding maps one host port to one container port over a protocol.
// Equality is structural, which is what the port-add conflict
// detection and the container's port set rely on.
type PortBinding struct {
	HostPort      uint16 `yaml:"host_port"`
	ContainerPort uint16 `yaml:"container_port"`
	Protocol      string `yaml:"protocol"`
}

func (p PortBinding) String() string {
	return fmt.Sprintf("%d:%d/%s", p.HostPort, p.ContainerPort, p.Protocol)
}

// Conflicts reports whether p and other cannot coexist in the same
// container's port set: same protocol and (same host port or same
// container port), while not being the exact same binding.
func (p PortBinding) Conflicts(other PortBinding) bool {
	if p == other {
		return false
	}
	if p.Protocol != other.Protocol {
		return false
	}
	return p.HostPort == other.HostPort || p.ContainerPort == other.ContainerPort
}

// ContainerConfig is the desired, portable configuration for a
// container — the part of ContainerInfo that originates from the
// container-config RPCs.
type ContainerConfig struct {
	Image      string            `yaml:"image"`
	Entrypoint string            `yaml:"entrypoint,omitempty"`
	Command    []string          `yaml:"command,omitempty"`
	EnvVars    map[string]string `yaml:"env_vars,omitempty"`
	// Volumes maps the container-side target path to the host/volume
	// source. Sources that are not absolute paths are resolved under
	// the daemon's managed volume directory (internal/volumestore).
	Volumes map[string]string `yaml:"volumes,omitempty"`
	Ports   []PortBinding     `yaml:"ports,omitempty"`
	Network string            `yaml:"network,omitempty"`
}

// HasPort reports whether a structurally equal binding already exists.
func (c *ContainerConfig) HasPort(p PortBinding) bool {
	for _, existing := range c.Ports {
		if existing == p {
			return true
		}
	}
	return false
}

// ConflictingPort returns the first existing binding that conflicts
// with p, if any.
func (c *ContainerConfig) ConflictingPort(p PortBinding) (PortBinding, bool) {
	for _, existing := range c.Ports {
		if existing.Conflicts(p) {
			return existing, true
		}
	}
	return PortBinding{}, false
}

// AddPort inserts p if it isn't already present.
func (c *ContainerConfig) AddPort(p PortBinding) {
	if c.HasPort(p) {
		return
	}
	c.Ports = append(c.Ports, p)
}

// RemovePort deletes any binding structurally equal to p.
func (c *ContainerConfig) RemovePort(p PortBinding) {
	out := c.Ports[:0]
	for _, existing := range c.Ports {
		if existing != p {
			out = append(out, existing)
		}
	}
	c.Ports = out
}

// ContainerInfo is the desired state plus the runtime binding for one
// container slot (the default container, or one named container).
type ContainerInfo struct {
	Config         ContainerConfig `yaml:"config"`
	ID             string          `yaml:"id,omitempty"`
	PullImage      bool            `yaml:"pull_image"`
	PendingRemoval bool            `yaml:"pending_removal"`
}

// NewContainerInfo creates a desired container state for the given
// image, defaulting to pulling before create.
func NewContainerInfo(image string) ContainerInfo {
	return ContainerInfo{
		Config:    ContainerConfig{Image: image},
		PullImage: true,
	}
}

// HasRunningID reports whether a Docker container id is currently
// bound to this slot.
func (c *ContainerInfo) HasRunningID() bool {
	return c.ID != ""
}
