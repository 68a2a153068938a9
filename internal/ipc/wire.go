package ipc

import (
	"encoding/json"
	"net"
	"os"

	"github.com/katharostech/lucky/internal/ipcproto"
)

func readRequest(conn net.Conn) (ipcproto.Request, error) {
	return ipcproto.ReadRequest(conn)
}

func writeResult(conn net.Conn, result interface{}) error {
	data, err := marshalResult(result)
	if err != nil {
		return err
	}
	return ipcproto.WriteResponse(conn, ipcproto.Response{Result: data})
}

func writeError(conn net.Conn, err error) error {
	return ipcproto.WriteResponse(conn, ipcproto.Response{Error: err.Error()})
}

func writeStreamFrame(conn net.Conn, result interface{}, more bool) error {
	data, err := marshalResult(result)
	if err != nil {
		return err
	}
	return ipcproto.WriteResponse(conn, ipcproto.Response{Result: data, More: more})
}

func marshalResult(result interface{}) ([]byte, error) {
	if result == nil {
		return nil, nil
	}
	return json.Marshal(result)
}

// removeStaleSocket clears a leftover socket file from an unclean
// shutdown so the new Listen call doesn't fail with "address in use".
func removeStaleSocket(path string) error {
	if path == "" {
		return nil
	}
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
