package types

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// ScriptState is an ordered status a script (or the aggregated unit)
// can report. Ordering matters: the aggregated unit status is the
// highest-precedence state across all known scripts.
type ScriptState int

const (
	Maintenance ScriptState = iota
	Active
	Blocked
	Waiting
)

func (s ScriptState) String() string {
	switch s {
	case Maintenance:
		return "maintenance"
	case Active:
		return "active"
	case Blocked:
		return "blocked"
	case Waiting:
		return "waiting"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// MarshalYAML renders the state as its lowercase name rather than an
// integer, so state.yaml stays readable and stable across reorderings
// of the const block.
func (s ScriptState) MarshalYAML() (interface{}, error) {
	return s.String(), nil
}

// UnmarshalYAML parses the lowercase name back into a ScriptState.
func (s *ScriptState) UnmarshalYAML(node *yaml.Node) error {
	var name string
	if err := node.Decode(&name); err != nil {
		return err
	}
	parsed, err := ParseScriptState(name)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseScriptState parses the lowercase name of a state, as used on
// the wire and in state.yaml, into a ScriptState.
func ParseScriptState(name string) (ScriptState, error) {
	switch name {
	case "maintenance":
		return Maintenance, nil
	case "active":
		return Active, nil
	case "blocked":
		return Blocked, nil
	case "waiting":
		return Waiting, nil
	default:
		return 0, fmt.Errorf("unknown script state %q", name)
	}
}

// ScriptStatus is the state one script (or the aggregated unit) is
// reporting, plus an optional human-readable message.
type ScriptStatus struct {
	State   ScriptState `yaml:"state"`
	Message string      `yaml:"message,omitempty"`
}

func (s ScriptStatus) String() string {
	if s.Message == "" {
		return s.State.String()
	}
	return fmt.Sprintf("%s: %s", s.State, s.Message)
}
