// Package status aggregates the per-script statuses the daemon tracks
// into a single orchestrator-visible unit status.
package status

import (
	"context"
	"strings"

	"github.com/katharostech/lucky/internal/types"
)

// internalScriptPrefix marks script ids whose status is daemon-internal
// bookkeeping (built-in hook handlers) rather than something a charm
// author wrote. These entries are aggregated the same as any other,
// but IsInternal lets callers (e.g. the IPC set_status logging) skip
// logging them as if a charm script reported them.
const internalScriptPrefix = "__lucky::"

// IsInternal reports whether id names a daemon-internal script status.
func IsInternal(id string) bool {
	return strings.HasPrefix(id, internalScriptPrefix)
}

// StatusSetter is the subset of hooktool.Adapter the aggregator needs;
// an interface so tests can supply a fake without shelling out.
type StatusSetter interface {
	StatusSet(ctx context.Context, status types.ScriptStatus) error
}

// Aggregator merges script_statuses into one ScriptStatus and reports
// it through the Hook-Tool Adapter.
type Aggregator struct {
	tool StatusSetter
}

// New returns an Aggregator that reports through tool.
func New(tool StatusSetter) *Aggregator {
	return &Aggregator{tool: tool}
}

// Aggregate reduces statuses to a single ScriptStatus: the
// highest-precedence state present, and the comma-joined messages of
// every entry that has one. Iteration order over the map determines
// message order, which is deterministic within one call but otherwise
// unspecified, per the aggregation contract.
func Aggregate(statuses map[string]types.ScriptStatus) types.ScriptStatus {
	result := types.ScriptStatus{State: types.Maintenance}
	var messages []string

	for _, s := range statuses {
		if s.State > result.State {
			result.State = s.State
		}
		if s.Message != "" {
			messages = append(messages, s.Message)
		}
	}

	result.Message = strings.Join(messages, ", ")
	return result
}

// Publish recomputes the aggregate from statuses and reports it
// through the hook-tool adapter's status-set.
func (a *Aggregator) Publish(ctx context.Context, statuses map[string]types.ScriptStatus) error {
	return a.tool.StatusSet(ctx, Aggregate(statuses))
}
