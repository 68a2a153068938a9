// Package state owns the daemon's single in-memory DaemonState and its
// on-disk representation. Every other component reaches the state only
// through Store.Read/Store.Write; no reference to the underlying
// DaemonState is ever allowed to escape a closure.
package state

import (
	"encoding/json"

	"github.com/katharostech/lucky/internal/types"
)

// DaemonState is the single structure persisted across daemon restarts.
type DaemonState struct {
	ScriptStatuses   map[string]types.ScriptStatus                `yaml:"script-statuses"`
	KV               map[string]*types.Dirty[string]               `yaml:"kv"`
	DefaultContainer *types.Dirty[types.ContainerInfo]              `yaml:"default_container"`
	NamedContainers  map[string]*types.Dirty[types.ContainerInfo]   `yaml:"named_containers"`
	CharmConfig      map[string]json.RawMessage                    `yaml:"charm_config"`
}

// New returns an empty DaemonState, ready to be mutated.
func New() *DaemonState {
	return &DaemonState{
		ScriptStatuses:  map[string]types.ScriptStatus{},
		KV:              map[string]*types.Dirty[string]{},
		NamedContainers: map[string]*types.Dirty[types.ContainerInfo]{},
		CharmConfig:     map[string]json.RawMessage{},
	}
}

// HasContainerName reports whether name is already taken by a named
// container entry. Used to enforce that the default container stays
// nameless and distinct from every named one (§3 invariant).
func (d *DaemonState) HasContainerName(name string) bool {
	_, ok := d.NamedContainers[name]
	return ok
}
