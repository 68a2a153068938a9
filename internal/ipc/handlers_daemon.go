package ipc

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/katharostech/lucky/internal/state"
	"github.com/katharostech/lucky/internal/status"
	"github.com/katharostech/lucky/internal/types"
)

func handleStopDaemon(ctx context.Context, s *Server, args json.RawMessage) (interface{}, error) {
	// Flag shutdown before replying: the accept loop stops admitting
	// new connections the moment this returns, but in-flight handlers
	// on other connections are allowed to finish (§5 Cancellation).
	s.Stop()
	return map[string]bool{"ok": true}, nil
}

type cronTickArgs struct {
	ContextID string `json:"context_id"`
}

func handleCronTick(ctx context.Context, s *Server, raw json.RawMessage) (interface{}, error) {
	var args cronTickArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, &types.ValidationError{Field: "context_id", Reason: err.Error()}
	}

	if err := s.cron.Tick(ctx, args.ContextID, s.cronJobsFromMeta()); err != nil {
		return nil, err
	}
	return map[string]bool{"ok": true}, nil
}

type triggerHookArgs struct {
	Name string            `json:"name"`
	Env  map[string]string `json:"env"`
}

func handleTriggerHook(ctx context.Context, s *Server, raw json.RawMessage) (interface{}, error) {
	var args triggerHookArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, &types.ValidationError{Field: "name", Reason: err.Error()}
	}
	if args.Name == "" {
		return nil, &types.ValidationError{Field: "name", Reason: "hook name is required"}
	}

	scripts := s.charmMeta.ScriptsForHook(args.Name)
	if err := s.dispatcher.TriggerHook(ctx, args.Name, args.Env, scripts); err != nil {
		return nil, err
	}
	return map[string]bool{"ok": true}, nil
}

type setStatusArgs struct {
	ScriptID string `json:"script_id"`
	State    string `json:"state"`
	Message  string `json:"message"`
}

func handleSetStatus(ctx context.Context, s *Server, raw json.RawMessage) (interface{}, error) {
	var args setStatusArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, &types.ValidationError{Field: "state", Reason: err.Error()}
	}

	st, err := types.ParseScriptState(args.State)
	if err != nil {
		return nil, &types.ValidationError{Field: "state", Reason: fmt.Sprintf("unknown state %q", args.State)}
	}

	newStatus := types.ScriptStatus{State: st, Message: args.Message}

	s.store.Write(func(ds *state.DaemonState) {
		ds.ScriptStatuses[args.ScriptID] = newStatus
	})

	if !status.IsInternal(args.ScriptID) {
		s.logger.Info("script status set", "script_id", args.ScriptID, "state", st.String())
	}

	var snapshot map[string]types.ScriptStatus
	s.store.Read(func(ds *state.DaemonState) {
		snapshot = make(map[string]types.ScriptStatus, len(ds.ScriptStatuses))
		for k, v := range ds.ScriptStatuses {
			snapshot[k] = v
		}
	})
	if err := s.aggregator.Publish(ctx, snapshot); err != nil {
		s.logger.Warn("status publish failed", "error", err)
	}

	return map[string]bool{"ok": true}, nil
}
