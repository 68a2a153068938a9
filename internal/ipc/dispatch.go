package ipc

import (
	"context"
	"encoding/json"
	"net"

	"github.com/katharostech/lucky/internal/ipcproto"
	"github.com/katharostech/lucky/internal/types"
)

// handlerFunc answers one request with a single result (or error).
// args is the raw JSON the caller sent; handlers decode only the
// shape they expect.
type handlerFunc func(ctx context.Context, s *Server, args json.RawMessage) (interface{}, error)

// streamHandlerFunc answers one request with zero or more frames,
// writing directly to conn and setting More on every frame but the
// last.
type streamHandlerFunc func(ctx context.Context, s *Server, conn net.Conn, args json.RawMessage) error

// methods is the complete, closed enumeration of the IPC surface. A
// flat table keyed by name, per the redesign note preferring this over
// per-method types or interface dispatch.
var methods = map[string]handlerFunc{
	"stop_daemon":  handleStopDaemon,
	"cron_tick":    handleCronTick,
	"trigger_hook": handleTriggerHook,

	"set_status": handleSetStatus,

	"unit_kv_get": handleUnitKVGet,
	"unit_kv_set": handleUnitKVSet,

	"relation_set":        handleRelationSet,
	"relation_get":        handleRelationGet,
	"relation_list":       handleRelationList,
	"relation_ids":        handleRelationIDs,
	"leader_is_leader":    handleLeaderIsLeader,
	"leader_set":          handleLeaderSet,
	"leader_get":          handleLeaderGet,
	"get_config":          handleGetConfig,
	"get_resource":        handleGetResource,
	"port_open":           handlePortOpen,
	"port_close":          handlePortClose,
	"port_close_all":      handlePortCloseAll,
	"port_get_opened":     handlePortGetOpened,
	"get_private_address": handleGetPrivateAddress,
	"get_public_address":  handleGetPublicAddress,

	"container_apply":          handleContainerApply,
	"container_delete":         handleContainerDelete,
	"container_image_set":      handleContainerImageSet,
	"container_image_get":      handleContainerImageGet,
	"container_set_entrypoint": handleContainerSetEntrypoint,
	"container_set_command":    handleContainerSetCommand,
	"container_env_get":        handleContainerEnvGet,
	"container_env_set":        handleContainerEnvSet,
	"container_volume_add":     handleContainerVolumeAdd,
	"container_volume_remove":  handleContainerVolumeRemove,
	"container_volume_get_all": handleContainerVolumeGetAll,
	"container_port_add":       handleContainerPortAdd,
	"container_port_remove":    handleContainerPortRemove,
	"container_port_remove_all": handleContainerPortRemoveAll,
	"container_port_get_all":   handleContainerPortGetAll,
	"container_network_set":    handleContainerNetworkSet,
}

// streamMethods holds the handful of methods the spec marks as
// streaming: each may emit multiple frames for one request.
var streamMethods = map[string]streamHandlerFunc{
	"unit_kv_get_all":       handleUnitKVGetAll,
	"container_env_get_all": handleContainerEnvGetAll,
}

func (s *Server) dispatch(ctx context.Context, conn net.Conn, req ipcproto.Request) {
	if stream, ok := streamMethods[req.Method]; ok {
		if err := stream(ctx, s, conn, req.Args); err != nil {
			writeError(conn, err)
		}
		return
	}

	handler, ok := methods[req.Method]
	if !ok {
		writeError(conn, &types.IPCError{Method: req.Method, Err: &unknownMethodError{method: req.Method}})
		return
	}

	result, err := handler(ctx, s, req.Args)
	if err != nil {
		writeError(conn, err)
		return
	}
	if err := writeResult(conn, result); err != nil {
		s.logger.Warn("failed to write response", "method", req.Method, "error", err)
	}
}

type unknownMethodError struct{ method string }

func (e *unknownMethodError) Error() string { return "unknown method: " + e.method }
