package types

import "gopkg.in/yaml.v3"

type dirtyDoc[T any] struct {
	Value T    `yaml:"value"`
	Dirty bool `yaml:"dirty"`
}

// MarshalYAML persists both the value and the dirty flag, so a container
// that was clean when the daemon last shut down is not needlessly
// recreated on the next reconciliation after a restart.
func (d *Dirty[T]) MarshalYAML() (interface{}, error) {
	return dirtyDoc[T]{Value: d.value, Dirty: d.dirty}, nil
}

// UnmarshalYAML restores both the value and the dirty flag.
func (d *Dirty[T]) UnmarshalYAML(node *yaml.Node) error {
	var doc dirtyDoc[T]
	if err := node.Decode(&doc); err != nil {
		return err
	}
	d.value = doc.Value
	d.dirty = doc.Dirty
	return nil
}
