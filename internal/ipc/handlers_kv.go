package ipc

import (
	"context"
	"encoding/json"
	"net"

	"github.com/katharostech/lucky/internal/ipcproto"
	"github.com/katharostech/lucky/internal/state"
	"github.com/katharostech/lucky/internal/types"
)

type unitKVGetArgs struct {
	Key string `json:"key"`
}

func handleUnitKVGet(ctx context.Context, s *Server, raw json.RawMessage) (interface{}, error) {
	var args unitKVGetArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, &types.ValidationError{Field: "key", Reason: err.Error()}
	}

	var value string
	var found bool
	s.store.Read(func(ds *state.DaemonState) {
		entry, ok := ds.KV[args.Key]
		if !ok {
			return
		}
		found = true
		value = entry.Get()
	})

	return map[string]interface{}{"found": found, "value": value}, nil
}

// handleUnitKVGetAll streams the entire kv map back, one frame per
// entry, the last frame with More=false. An empty map sends a single
// frame with an empty key and value and More=false.
func handleUnitKVGetAll(ctx context.Context, s *Server, conn net.Conn, raw json.RawMessage) error {
	type entry struct {
		Key   string `json:"key"`
		Value string `json:"value"`
	}
	var entries []entry
	s.store.Read(func(ds *state.DaemonState) {
		for k, v := range ds.KV {
			entries = append(entries, entry{Key: k, Value: v.Get()})
		}
	})

	for i, e := range entries {
		more := i < len(entries)-1
		if err := writeKVFrame(conn, e.Key, e.Value, more); err != nil {
			return err
		}
	}
	if len(entries) == 0 {
		return writeKVFrame(conn, "", "", false)
	}
	return nil
}

func writeKVFrame(conn net.Conn, key, value string, more bool) error {
	data, err := json.Marshal(map[string]string{"key": key, "value": value})
	if err != nil {
		return &types.IPCError{Err: err}
	}
	return ipcproto.WriteResponse(conn, ipcproto.Response{Result: data, More: more})
}

// unitKVSetArgs carries a batched upsert/delete: a present key with a
// non-nil value upserts, a present key with a nil value deletes.
type unitKVSetArgs struct {
	Values map[string]*string `json:"values"`
}

func handleUnitKVSet(ctx context.Context, s *Server, raw json.RawMessage) (interface{}, error) {
	var args unitKVSetArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, &types.ValidationError{Field: "values", Reason: err.Error()}
	}

	s.store.Write(func(ds *state.DaemonState) {
		for k, v := range args.Values {
			if v == nil {
				delete(ds.KV, k)
				continue
			}
			if existing, ok := ds.KV[k]; ok {
				existing.Update(func(value *string) { *value = *v })
			} else {
				ds.KV[k] = types.NewDirty(*v)
			}
		}
	})

	return map[string]bool{"ok": true}, nil
}
