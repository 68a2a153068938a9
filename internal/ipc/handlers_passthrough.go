package ipc

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/katharostech/lucky/internal/state"
	"github.com/katharostech/lucky/internal/types"
)

type relationSetArgs struct {
	RelationID string            `json:"relation_id"`
	Values     map[string]string `json:"values"`
}

func handleRelationSet(ctx context.Context, s *Server, raw json.RawMessage) (interface{}, error) {
	var args relationSetArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, &types.ValidationError{Field: "values", Reason: err.Error()}
	}
	if err := s.tool.RelationSet(ctx, args.RelationID, args.Values); err != nil {
		return nil, err
	}
	return map[string]bool{"ok": true}, nil
}

type relationGetArgs struct {
	RelationID string `json:"relation_id"`
	Unit       string `json:"unit"`
	Key        string `json:"key"`
}

func handleRelationGet(ctx context.Context, s *Server, raw json.RawMessage) (interface{}, error) {
	var args relationGetArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, &types.ValidationError{Field: "key", Reason: err.Error()}
	}
	if args.Key == "" {
		values, err := s.tool.RelationGetAll(ctx, args.RelationID, args.Unit)
		if err != nil {
			return nil, err
		}
		return values, nil
	}
	value, err := s.tool.RelationGet(ctx, args.RelationID, args.Unit, args.Key)
	if err != nil {
		return nil, err
	}
	return map[string]string{"value": value}, nil
}

type relationListArgs struct {
	RelationID string `json:"relation_id"`
}

func handleRelationList(ctx context.Context, s *Server, raw json.RawMessage) (interface{}, error) {
	var args relationListArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, &types.ValidationError{Field: "relation_id", Reason: err.Error()}
	}
	units, err := s.tool.RelationList(ctx, args.RelationID)
	if err != nil {
		return nil, err
	}
	return units, nil
}

type relationIDsArgs struct {
	RelationName string `json:"relation_name"`
}

func handleRelationIDs(ctx context.Context, s *Server, raw json.RawMessage) (interface{}, error) {
	var args relationIDsArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, &types.ValidationError{Field: "relation_name", Reason: err.Error()}
	}
	ids, err := s.tool.RelationIDs(ctx, args.RelationName)
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func handleLeaderIsLeader(ctx context.Context, s *Server, raw json.RawMessage) (interface{}, error) {
	leader, err := s.tool.IsLeader(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]bool{"leader": leader}, nil
}

type leaderSetArgs struct {
	Values map[string]string `json:"values"`
}

func handleLeaderSet(ctx context.Context, s *Server, raw json.RawMessage) (interface{}, error) {
	var args leaderSetArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, &types.ValidationError{Field: "values", Reason: err.Error()}
	}
	if err := s.tool.LeaderSet(ctx, args.Values); err != nil {
		return nil, err
	}
	return map[string]bool{"ok": true}, nil
}

type leaderGetArgs struct {
	Key string `json:"key"`
}

func handleLeaderGet(ctx context.Context, s *Server, raw json.RawMessage) (interface{}, error) {
	var args leaderGetArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, &types.ValidationError{Field: "key", Reason: err.Error()}
	}
	if args.Key == "" {
		values, err := s.tool.LeaderGetAll(ctx)
		if err != nil {
			return nil, err
		}
		return values, nil
	}
	value, err := s.tool.LeaderGet(ctx, args.Key)
	if err != nil {
		return nil, err
	}
	return map[string]string{"value": value}, nil
}

type getConfigArgs struct {
	Key string `json:"key"`
}

// handleGetConfig reads from the DaemonState.CharmConfig cache rather
// than shelling out to config-get live: per §3, charm_config is a
// cache of orchestrator-provided configuration, refreshed by the
// config-changed pre-handler (internal/hookdispatch), not queried
// fresh on every call.
func handleGetConfig(ctx context.Context, s *Server, raw json.RawMessage) (interface{}, error) {
	var args getConfigArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, &types.ValidationError{Field: "key", Reason: err.Error()}
	}

	var snapshot map[string]json.RawMessage
	s.store.Read(func(ds *state.DaemonState) {
		snapshot = make(map[string]json.RawMessage, len(ds.CharmConfig))
		for k, v := range ds.CharmConfig {
			snapshot[k] = v
		}
	})

	if args.Key == "" {
		return snapshot, nil
	}
	value, ok := snapshot[args.Key]
	if !ok {
		return nil, &types.ValidationError{Field: "key", Reason: "unknown config key: " + args.Key}
	}
	return map[string]json.RawMessage{"value": value}, nil
}

type getResourceArgs struct {
	Name string `json:"name"`
}

func handleGetResource(ctx context.Context, s *Server, raw json.RawMessage) (interface{}, error) {
	var args getResourceArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, &types.ValidationError{Field: "name", Reason: err.Error()}
	}
	path, err := s.tool.ResourceGet(ctx, args.Name)
	if err != nil {
		return nil, err
	}
	return map[string]string{"path": path}, nil
}

type portArgs struct {
	Port     uint16 `json:"port"`
	Protocol string `json:"protocol"`
}

func handlePortOpen(ctx context.Context, s *Server, raw json.RawMessage) (interface{}, error) {
	var args portArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, &types.ValidationError{Field: "port", Reason: err.Error()}
	}
	if err := s.tool.OpenPort(ctx, args.Port, args.Protocol); err != nil {
		return nil, err
	}
	return map[string]bool{"ok": true}, nil
}

func handlePortClose(ctx context.Context, s *Server, raw json.RawMessage) (interface{}, error) {
	var args portArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, &types.ValidationError{Field: "port", Reason: err.Error()}
	}
	if err := s.tool.ClosePort(ctx, args.Port, args.Protocol); err != nil {
		return nil, err
	}
	return map[string]bool{"ok": true}, nil
}

func handlePortCloseAll(ctx context.Context, s *Server, raw json.RawMessage) (interface{}, error) {
	opened, err := s.tool.OpenedPorts(ctx)
	if err != nil {
		return nil, err
	}
	for _, spec := range opened {
		port, proto := splitPortSpec(spec)
		if err := s.tool.ClosePort(ctx, port, proto); err != nil {
			return nil, err
		}
	}
	return map[string]bool{"ok": true}, nil
}

func handlePortGetOpened(ctx context.Context, s *Server, raw json.RawMessage) (interface{}, error) {
	opened, err := s.tool.OpenedPorts(ctx)
	if err != nil {
		return nil, err
	}
	return opened, nil
}

func handleGetPrivateAddress(ctx context.Context, s *Server, raw json.RawMessage) (interface{}, error) {
	addr, err := s.tool.PrivateAddress(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]string{"address": addr}, nil
}

func handleGetPublicAddress(ctx context.Context, s *Server, raw json.RawMessage) (interface{}, error) {
	addr, err := s.tool.PublicAddress(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]string{"address": addr}, nil
}

func splitPortSpec(spec string) (uint16, string) {
	portStr, proto, found := strings.Cut(spec, "/")
	if !found {
		proto = "tcp"
	}
	port, _ := strconv.ParseUint(portStr, 10, 16)
	return uint16(port), proto
}
