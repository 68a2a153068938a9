// Command lucky is the thin client used by charm hooks and operators
// to talk to luckyd: it opens the IPC socket, forwards one RPC, and
// prints the result. All the logic lives in the daemon; this is only a
// transport.
package main

import (
	"encoding/json"
	"fmt"
	"net"
	"os"

	"github.com/katharostech/lucky/internal/ipcproto"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: lucky <method> [json-args]")
		os.Exit(2)
	}
	method := os.Args[1]

	var args json.RawMessage
	if len(os.Args) > 2 {
		args = json.RawMessage(os.Args[2])
	}

	socketPath := os.Getenv("LUCKYD_SOCKET")
	if socketPath == "" {
		socketPath = "/run/lucky/lucky.sock"
	}

	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "lucky: connect %s: %v\n", socketPath, err)
		os.Exit(1)
	}
	defer conn.Close()

	if err := ipcproto.WriteRequest(conn, ipcproto.Request{Method: method, Args: args}); err != nil {
		fmt.Fprintf(os.Stderr, "lucky: send request: %v\n", err)
		os.Exit(1)
	}

	for {
		resp, err := ipcproto.ReadResponse(conn)
		if err != nil {
			fmt.Fprintf(os.Stderr, "lucky: read response: %v\n", err)
			os.Exit(1)
		}
		if resp.Error != "" {
			fmt.Fprintln(os.Stderr, "lucky: "+resp.Error)
			os.Exit(1)
		}
		if len(resp.Result) > 0 {
			fmt.Println(string(resp.Result))
		}
		if !resp.More {
			break
		}
	}
}
