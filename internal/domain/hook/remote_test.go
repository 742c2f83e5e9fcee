package hook

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcphook/proxy/internal/adapter/outbound/hookrpc"
	"github.com/mcphook/proxy/internal/domain/hookctx"
	"github.com/mcphook/proxy/internal/observability"
)

type fakeCaller struct {
	raw json.RawMessage
	err error
}

func (f fakeCaller) Call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	return f.raw, f.err
}

func newTestRemoteClient(c caller) *RemoteHookClient {
	return &RemoteHookClient{name: "test-hook", rpc: c, notImplemented: make(map[uint64]bool)}
}

func TestRemoteHookClient_Name(t *testing.T) {
	c := newTestRemoteClient(fakeCaller{})
	assert.Equal(t, "test-hook", c.Name())
}

func TestRemoteHookClient_ProcessRequest_Continue(t *testing.T) {
	c := newTestRemoteClient(fakeCaller{raw: json.RawMessage(`{"response":"continue","body":{"ok":true}}`)})
	dec, err := c.ProcessRequest(context.Background(), ToolCall{Name: "t"}, hookctx.Context{})
	require.NoError(t, err)
	assert.Equal(t, Continue, dec.Verdict)
}

func TestRemoteHookClient_ProcessRequest_Abort(t *testing.T) {
	c := newTestRemoteClient(fakeCaller{raw: json.RawMessage(`{"response":"abort","reason":"nope"}`)})
	dec, err := c.ProcessRequest(context.Background(), ToolCall{Name: "t"}, hookctx.Context{})
	require.NoError(t, err)
	assert.Equal(t, Abort, dec.Verdict)
	assert.Equal(t, "nope", dec.Reason)
}

func TestRemoteHookClient_TransportError_DegradesToContinue(t *testing.T) {
	c := newTestRemoteClient(fakeCaller{err: assert.AnError})
	dec, err := c.ProcessRequest(context.Background(), ToolCall{Name: "t"}, hookctx.Context{})
	require.NoError(t, err)
	assert.Equal(t, Continue, dec.Verdict)
}

func TestRemoteHookClient_NotImplemented_CachesWhenEnabled(t *testing.T) {
	calls := 0
	c := newTestRemoteClient(countingCaller{n: &calls, err: &hookrpc.CallError{Message: "operation not implemented"}})
	c.cacheNotImplemented = true

	_, _ = c.ProcessRequest(context.Background(), ToolCall{Name: "t"}, hookctx.Context{})
	_, _ = c.ProcessRequest(context.Background(), ToolCall{Name: "t"}, hookctx.Context{})

	assert.Equal(t, 1, calls, "second call should be served from the not-implemented cache")
}

type countingCaller struct {
	n   *int
	err error
}

func (c countingCaller) Call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	*c.n++
	return nil, c.err
}

func TestRemoteHookClient_UndecodableResponse_DegradesToContinue(t *testing.T) {
	c := newTestRemoteClient(fakeCaller{raw: json.RawMessage(`not json`)})
	dec, err := c.ProcessRequest(context.Background(), ToolCall{Name: "t"}, hookctx.Context{})
	require.NoError(t, err)
	assert.Equal(t, Continue, dec.Verdict)
}

func TestRemoteHookClient_WithInstrumentation_DoesNotPanic(t *testing.T) {
	inst, err := observability.NewInstrumentation("test-remote-hook")
	require.NoError(t, err)

	c := newTestRemoteClient(fakeCaller{raw: json.RawMessage(`{"response":"continue"}`)})
	WithInstrumentation(inst)(c)

	assert.NotPanics(t, func() {
		_, _ = c.ProcessRequest(context.Background(), ToolCall{Name: "t"}, hookctx.Context{})
		_, _ = c.ProcessResponse(context.Background(), map[string]any{}, ToolCall{Name: "t"}, hookctx.Context{})
		_, _ = c.ProcessToolsList(context.Background(), ToolsListRequest{}, hookctx.Context{})
		_, _ = c.ProcessToolsListResponse(context.Background(), ToolsListResult{}, hookctx.Context{})
		_, _ = c.ProcessToolException(context.Background(), assert.AnError, ToolCall{Name: "t"}, hookctx.Context{})
	})
}

var _ caller = fakeCaller{}
