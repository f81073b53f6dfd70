package lsp

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestClient wires a Client directly to in-memory pipes, standing in
// for a subprocess so the framing and dispatch logic can be exercised
// without launching a real language server.
func newTestClient(t *testing.T) (*Client, *io.PipeWriter, *bufio.Reader) {
	t.Helper()
	clientStdin, serverReadsStdin := io.Pipe()
	serverWritesStdout, clientStdout := io.Pipe()

	c := &Client{
		stdin:   clientStdin,
		stdout:  bufio.NewReader(clientStdout),
		pending: make(map[int64]chan *response),
		closed:  make(chan struct{}),
		nextID:  1,
	}
	go c.readLoop()

	return c, serverWritesStdout, bufio.NewReader(serverReadsStdin)
}

func writeFrame(w io.Writer, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "Content-Length: %d\r\n\r\n%s", len(body), body)
	return err
}

func TestReadFrame_ParsesContentLengthBody(t *testing.T) {
	msg := map[string]any{"jsonrpc": "2.0", "id": 1, "result": "ok"}
	body, _ := json.Marshal(msg)
	framed := fmt.Sprintf("Content-Length: %d\r\n\r\n%s", len(body), body)

	raw, err := readFrame(bufio.NewReader(bytes.NewReader([]byte(framed))))
	require.NoError(t, err)
	assert.JSONEq(t, string(body), string(raw))
}

func TestClient_CallReceivesMatchingResponse(t *testing.T) {
	c, serverOut, serverIn := newTestClient(t)
	defer serverOut.Close()

	go func() {
		raw, err := readFrame(serverIn)
		require.NoError(t, err)
		var req request
		require.NoError(t, json.Unmarshal(raw, &req))
		assert.Equal(t, "textDocument/definition", req.Method)
		_ = writeFrame(serverOut, response{ID: req.ID, Result: json.RawMessage(`{"uri":"file:///proj/models.py"}`)})
	}()

	raw, err := c.call("textDocument/definition", map[string]any{}, time.Second)
	require.NoError(t, err)

	var loc Location
	require.NoError(t, json.Unmarshal(raw, &loc))
	assert.Equal(t, "file:///proj/models.py", loc.URI)
}

func TestClient_CallTimesOutWhenNoResponse(t *testing.T) {
	c, serverOut, serverIn := newTestClient(t)
	defer serverOut.Close()

	go func() {
		_, _ = readFrame(serverIn)
	}()

	_, err := c.call("textDocument/definition", map[string]any{}, 20*time.Millisecond)
	assert.Error(t, err)
}

func TestClient_ServerInitiatedRequestIsAutoAcked(t *testing.T) {
	c, serverOut, serverIn := newTestClient(t)
	require.NotNil(t, c)
	defer serverOut.Close()

	ackReceived := make(chan struct{})
	go func() {
		_ = writeFrame(serverOut, map[string]any{"jsonrpc": "2.0", "id": 99, "method": "window/workDoneProgress/create"})
		raw, err := readFrame(serverIn)
		if err == nil {
			var ack response
			_ = json.Unmarshal(raw, &ack)
			if ack.ID == 99 {
				close(ackReceived)
			}
		}
	}()

	select {
	case <-ackReceived:
	case <-time.After(time.Second):
		t.Fatal("server-initiated request was not auto-acknowledged")
	}
}
