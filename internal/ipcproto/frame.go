// Package ipcproto implements the wire protocol for the daemon's
// Unix-domain socket: a length-delimited JSON request/response scheme
// with a "more" bit on replies for streaming results. No example repo
// in the reference pack implements this exact scheme (canonical-snapd's
// unix-socket daemon speaks HTTP, not a bespoke frame format), so the
// framing itself is built directly on encoding/binary + encoding/json,
// the same two stdlib packages every pack repo reaches for when it
// needs a length-prefixed or JSON wire format at all.
package ipcproto

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"

	"github.com/katharostech/lucky/internal/types"
)

// maxFrameBytes bounds a single frame's payload so a misbehaving
// client can't make the daemon allocate unbounded memory.
const maxFrameBytes = 16 << 20

// Request is one call against the IPC service.
type Request struct {
	Method string          `json:"method"`
	Args   json.RawMessage `json:"args,omitempty"`
}

// Response is one frame of a reply. More is true on every frame of a
// streaming response except the last.
type Response struct {
	More   bool            `json:"more,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// WriteRequest frames and writes req to w: a 4-byte big-endian length
// prefix followed by the JSON-encoded request.
func WriteRequest(w io.Writer, req Request) error {
	return writeFrame(w, req)
}

// ReadRequest reads and decodes one length-delimited request from r.
func ReadRequest(r io.Reader) (Request, error) {
	var req Request
	err := readFrame(r, &req)
	return req, err
}

// WriteResponse frames and writes resp to w.
func WriteResponse(w io.Writer, resp Response) error {
	return writeFrame(w, resp)
}

// ReadResponse reads and decodes one length-delimited response from r.
func ReadResponse(r io.Reader) (Response, error) {
	var resp Response
	err := readFrame(r, &resp)
	return resp, err
}

func writeFrame(w io.Writer, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return &types.IPCError{Err: fmt.Errorf("encode frame: %w", err)}
	}
	if len(data) > maxFrameBytes {
		return &types.IPCError{Err: fmt.Errorf("frame too large: %d bytes", len(data))}
	}

	var header [4]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(data)))

	if _, err := w.Write(header[:]); err != nil {
		return &types.IPCError{Err: fmt.Errorf("write frame header: %w", err)}
	}
	if _, err := w.Write(data); err != nil {
		return &types.IPCError{Err: fmt.Errorf("write frame body: %w", err)}
	}
	return nil
}

func readFrame(r io.Reader, v interface{}) error {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return &types.IPCError{Err: err}
	}
	size := binary.BigEndian.Uint32(header[:])
	if size > maxFrameBytes {
		return &types.IPCError{Err: fmt.Errorf("frame too large: %d bytes", size)}
	}

	data := make([]byte, size)
	if _, err := io.ReadFull(r, data); err != nil {
		return &types.IPCError{Err: fmt.Errorf("read frame body: %w", err)}
	}

	if err := json.Unmarshal(data, v); err != nil {
		return &types.IPCError{Err: fmt.Errorf("decode frame: %w", err)}
	}
	return nil
}
