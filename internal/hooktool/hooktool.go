// Package hooktool shells out to the orchestrator-provided hook tools
// (status-set, relation-get, and friends). Every function assumes the
// tools are on PATH and that JUJU_CONTEXT_ID is set on the process;
// failures propagate unchanged, wrapped in a types.HookToolError.
package hooktool

import (
	"bytes"
	"context"
	"encoding/json"
	"os/exec"
	"strconv"
	"strings"

	"github.com/katharostech/lucky/internal/types"
)

// Adapter runs hook tools as subprocesses of the daemon.
type Adapter struct{}

// New returns a ready Adapter. It carries no state: every call is a
// fresh subprocess invocation against the caller's environment.
func New() *Adapter {
	return &Adapter{}
}

func (a *Adapter) run(ctx context.Context, tool string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, tool, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", &types.HookToolError{Tool: tool, Args: args, Err: errWithStderr(err, stderr.String())}
	}
	return strings.TrimRight(stdout.String(), "\n"), nil
}

func errWithStderr(err error, stderr string) error {
	stderr = strings.TrimSpace(stderr)
	if stderr == "" {
		return err
	}
	return &stderrError{cause: err, stderr: stderr}
}

type stderrError struct {
	cause  error
	stderr string
}

func (e *stderrError) Error() string { return e.stderr }
func (e *stderrError) Unwrap() error { return e.cause }

// StatusSet reports the unit status through status-set.
func (a *Adapter) StatusSet(ctx context.Context, status types.ScriptStatus) error {
	args := []string{status.State.String()}
	if status.Message != "" {
		args = append(args, status.Message)
	}
	_, err := a.run(ctx, "status-set", args...)
	return err
}

// RelationSet writes key/value pairs to the current relation (or the
// named one, if relationID is non-empty).
func (a *Adapter) RelationSet(ctx context.Context, relationID string, values map[string]string) error {
	args := []string{}
	if relationID != "" {
		args = append(args, "-r", relationID)
	}
	for k, v := range values {
		args = append(args, k+"="+v)
	}
	_, err := a.run(ctx, "relation-set", args...)
	return err
}

// RelationGet reads one key (or, if key is empty, all settings as
// JSON) from a relation with a remote unit.
func (a *Adapter) RelationGet(ctx context.Context, relationID, unit, key string) (string, error) {
	args := []string{}
	if relationID != "" {
		args = append(args, "-r", relationID)
	}
	if key == "" {
		args = append(args, "-", "--format=json")
	} else {
		args = append(args, key)
	}
	if unit != "" {
		args = append(args, unit)
	}
	return a.run(ctx, "relation-get", args...)
}

// RelationGetAll reads every setting visible from the given relation
// and remote unit as a string map.
func (a *Adapter) RelationGetAll(ctx context.Context, relationID, unit string) (map[string]string, error) {
	raw, err := a.RelationGet(ctx, relationID, unit, "")
	if err != nil {
		return nil, err
	}
	return decodeStringMap(raw)
}

// RelationList lists the remote units on a relation.
func (a *Adapter) RelationList(ctx context.Context, relationID string) ([]string, error) {
	args := []string{"--format=json"}
	if relationID != "" {
		args = append(args, "-r", relationID)
	}
	raw, err := a.run(ctx, "relation-list", args...)
	if err != nil {
		return nil, err
	}
	return decodeStringSlice(raw)
}

// RelationIDs lists relation ids for the named relation endpoint.
func (a *Adapter) RelationIDs(ctx context.Context, relationName string) ([]string, error) {
	raw, err := a.run(ctx, "relation-ids", "--format=json", relationName)
	if err != nil {
		return nil, err
	}
	return decodeStringSlice(raw)
}

// IsLeader reports whether this unit holds application leadership.
func (a *Adapter) IsLeader(ctx context.Context) (bool, error) {
	raw, err := a.run(ctx, "is-leader", "--format=json")
	if err != nil {
		return false, err
	}
	var leader bool
	if err := json.Unmarshal([]byte(raw), &leader); err != nil {
		return false, &types.HookToolError{Tool: "is-leader", Err: err}
	}
	return leader, nil
}

// LeaderSet writes leader-scoped settings. The caller is responsible
// for only calling this when IsLeader is true; the tool itself refuses
// non-leader callers.
func (a *Adapter) LeaderSet(ctx context.Context, values map[string]string) error {
	args := make([]string, 0, len(values))
	for k, v := range values {
		args = append(args, k+"="+v)
	}
	_, err := a.run(ctx, "leader-set", args...)
	return err
}

// LeaderGet reads one leader-scoped setting, or all of them as raw
// JSON when key is empty.
func (a *Adapter) LeaderGet(ctx context.Context, key string) (string, error) {
	if key == "" {
		return a.run(ctx, "leader-get", "-", "--format=json")
	}
	return a.run(ctx, "leader-get", key)
}

// LeaderGetAll reads every leader-scoped setting as a string map.
func (a *Adapter) LeaderGetAll(ctx context.Context) (map[string]string, error) {
	raw, err := a.LeaderGet(ctx, "")
	if err != nil {
		return nil, err
	}
	return decodeStringMap(raw)
}

// ResourceGet resolves the local path to a charm resource, fetching it
// if this is the first call for that resource.
func (a *Adapter) ResourceGet(ctx context.Context, name string) (string, error) {
	return a.run(ctx, "resource-get", name)
}

// OpenPort requests the orchestrator open a port/protocol for the unit.
func (a *Adapter) OpenPort(ctx context.Context, port uint16, protocol string) error {
	_, err := a.run(ctx, "open-port", portSpec(port, protocol))
	return err
}

// ClosePort requests the orchestrator close a port/protocol.
func (a *Adapter) ClosePort(ctx context.Context, port uint16, protocol string) error {
	_, err := a.run(ctx, "close-port", portSpec(port, protocol))
	return err
}

// OpenedPorts lists the ports currently opened for the unit.
func (a *Adapter) OpenedPorts(ctx context.Context) ([]string, error) {
	raw, err := a.run(ctx, "opened-ports", "--format=json")
	if err != nil {
		return nil, err
	}
	return decodeStringSlice(raw)
}

// PrivateAddress returns the unit's private address.
func (a *Adapter) PrivateAddress(ctx context.Context) (string, error) {
	return a.run(ctx, "unit-get", "private-address")
}

// PublicAddress returns the unit's public address.
func (a *Adapter) PublicAddress(ctx context.Context) (string, error) {
	return a.run(ctx, "unit-get", "public-address")
}

// ConfigGet reads one charm config key, or the full config as JSON
// when key is empty.
func (a *Adapter) ConfigGet(ctx context.Context, key string) (string, error) {
	if key == "" {
		return a.run(ctx, "config-get", "--format=json")
	}
	return a.run(ctx, "config-get", key)
}

// ConfigGetAll reads the full charm config as raw JSON values, keyed
// by config name, suitable for DaemonState.CharmConfig.
func (a *Adapter) ConfigGetAll(ctx context.Context) (map[string]json.RawMessage, error) {
	raw, err := a.ConfigGet(ctx, "")
	if err != nil {
		return nil, err
	}
	out := map[string]json.RawMessage{}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, &types.HookToolError{Tool: "config-get", Err: err}
	}
	return out, nil
}

func portSpec(port uint16, protocol string) string {
	if protocol == "" {
		protocol = "tcp"
	}
	return strconv.Itoa(int(port)) + "/" + strings.ToLower(protocol)
}

func decodeStringMap(raw string) (map[string]string, error) {
	if raw == "" {
		return map[string]string{}, nil
	}
	out := map[string]string{}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, &types.HookToolError{Err: err}
	}
	return out, nil
}

func decodeStringSlice(raw string) ([]string, error) {
	if raw == "" {
		return nil, nil
	}
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, &types.HookToolError{Err: err}
	}
	return out, nil
}
