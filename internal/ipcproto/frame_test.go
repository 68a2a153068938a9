package ipcproto

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	req := Request{Method: "get_config", Args: json.RawMessage(`{"key":"port"}`)}

	require.NoError(t, WriteRequest(&buf, req))

	got, err := ReadRequest(&buf)
	require.NoError(t, err)
	assert.Equal(t, req.Method, got.Method)
	assert.JSONEq(t, string(req.Args), string(got.Args))
}

func TestResponseRoundTripMultipleFrames(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteResponse(&buf, Response{Result: json.RawMessage(`{"key":"a"}`), More: true}))
	require.NoError(t, WriteResponse(&buf, Response{Result: json.RawMessage(`{"key":"b"}`), More: false}))

	first, err := ReadResponse(&buf)
	require.NoError(t, err)
	assert.True(t, first.More)

	second, err := ReadResponse(&buf)
	require.NoError(t, err)
	assert.False(t, second.More)
}

func TestResponseCarriesError(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteResponse(&buf, Response{Error: "no such container: worker"}))

	got, err := ReadResponse(&buf)
	require.NoError(t, err)
	assert.Equal(t, "no such container: worker", got.Error)
}

func TestReadFrameRejectsOversized(t *testing.T) {
	var buf bytes.Buffer
	var header [4]byte
	header[0] = 0xFF
	header[1] = 0xFF
	header[2] = 0xFF
	header[3] = 0xFF
	buf.Write(header[:])

	_, err := ReadRequest(&buf)
	assert.Error(t, err)
}
