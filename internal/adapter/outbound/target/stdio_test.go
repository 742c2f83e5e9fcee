package target

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// wireStdio plugs a StdioClient's stdin/stdout onto in-process pipes so the
// write/readLoop plumbing can be exercised without spawning a real
// subprocess. The caller must defer the returned closer (after deferring
// goleak.VerifyNone, so it runs first) to let readLoop's goroutine exit
// before the leak check runs.
func wireStdio(c *StdioClient) (stdinRead *io.PipeReader, stdoutWrite *io.PipeWriter, closer func()) {
	stdinRead, stdinWrite := io.Pipe()
	var stdoutRead *io.PipeReader
	stdoutRead, stdoutWrite = io.Pipe()
	c.stdin = stdinWrite
	go c.readLoop(stdoutRead)
	return stdinRead, stdoutWrite, func() {
		_ = stdinWrite.Close()
		_ = stdoutWrite.Close()
	}
}

func TestStdioClient_Notify_ErrorsWhenNotStarted(t *testing.T) {
	c := NewStdioClient("unused", nil, nil)
	err := c.Notify(context.Background(), "notifications/initialized", nil)
	assert.Error(t, err)
}

func TestStdioClient_Notify_SendsIDLessEnvelope(t *testing.T) {
	defer goleak.VerifyNone(t)
	c := NewStdioClient("unused", nil, nil)
	stdinRead, _, closer := wireStdio(c)
	defer closer()

	lineCh := make(chan []byte, 1)
	go func() {
		reader := bufio.NewReader(stdinRead)
		line, _ := reader.ReadBytes('\n')
		lineCh <- line
	}()

	require.NoError(t, c.Notify(context.Background(), "notifications/initialized", json.RawMessage(`{"n":1}`)))

	select {
	case line := <-lineCh:
		var decoded map[string]any
		require.NoError(t, json.Unmarshal(line, &decoded))
		_, hasID := decoded["id"]
		assert.False(t, hasID, "a notification must not carry an id field")
		assert.Equal(t, "notifications/initialized", decoded["method"])
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for notification to reach stdin")
	}
}

func TestStdioClient_Forward_RoundTrip(t *testing.T) {
	defer goleak.VerifyNone(t)
	c := NewStdioClient("unused", nil, nil)
	stdinRead, stdoutWrite, closer := wireStdio(c)
	defer closer()

	go func() {
		reader := bufio.NewReader(stdinRead)
		line, err := reader.ReadBytes('\n')
		if err != nil {
			return
		}
		var req map[string]any
		_ = json.Unmarshal(line, &req)
		resp, _ := json.Marshal(map[string]any{
			"jsonrpc": "2.0",
			"id":      req["id"],
			"result":  map[string]any{"pong": true},
		})
		_, _ = stdoutWrite.Write(append(resp, '\n'))
	}()

	raw, err := c.Forward(context.Background(), "ping", nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"pong":true}`, string(raw))
}

func TestStdioClient_Forward_ContextCancelled(t *testing.T) {
	defer goleak.VerifyNone(t)
	c := NewStdioClient("unused", nil, nil)
	stdinRead, _, closer := wireStdio(c)
	defer closer()
	go func() { _, _ = io.Copy(io.Discard, stdinRead) }()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Forward(ctx, "ping", nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStdioClient_Close_IsIdempotent(t *testing.T) {
	c := NewStdioClient("unused", nil, nil)
	assert.NoError(t, c.Close())
	assert.NoError(t, c.Close())
}
