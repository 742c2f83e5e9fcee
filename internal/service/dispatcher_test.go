package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcphook/proxy/internal/domain/hook"
	"github.com/mcphook/proxy/internal/domain/hookctx"
	"github.com/mcphook/proxy/internal/domain/session"
	"github.com/mcphook/proxy/internal/observability"
	"github.com/mcphook/proxy/internal/port/outbound"
)

type stubTarget struct {
	tools       hook.ToolsListResult
	toolsErr    error
	callResult  any
	callErr     error
	forwardResp json.RawMessage
	forwardErr  error
	notifyErr   error
	notified    []string
	closed      bool
}

func (s *stubTarget) ListTools(ctx context.Context) (hook.ToolsListResult, error) {
	return s.tools, s.toolsErr
}

func (s *stubTarget) CallTool(ctx context.Context, call hook.ToolCall) (any, error) {
	return s.callResult, s.callErr
}

func (s *stubTarget) Forward(ctx context.Context, method string, params json.RawMessage) (json.RawMessage, error) {
	return s.forwardResp, s.forwardErr
}

func (s *stubTarget) Notify(ctx context.Context, method string, params json.RawMessage) error {
	s.notified = append(s.notified, method)
	return s.notifyErr
}

func (s *stubTarget) Close() error {
	s.closed = true
	return nil
}

var _ outbound.TargetClient = (*stubTarget)(nil)

func newStore(t *testing.T, client *stubTarget) *session.Store {
	t.Helper()
	return session.NewStore(func(ctx context.Context) (outbound.TargetClient, error) {
		return client, nil
	}, nil)
}

type namedHook struct{ name string }

func (h namedHook) Name() string { return h.name }

type rejectRequestHook struct {
	namedHook
	reason string
}

func (h rejectRequestHook) ProcessRequest(ctx context.Context, call hook.ToolCall, hctx hookctx.Context) (hook.Decision, error) {
	return hook.Decision{Verdict: hook.Abort, Reason: h.reason}, nil
}

type rejectResponseHook struct {
	namedHook
	reason string
}

func (h rejectResponseHook) ProcessResponse(ctx context.Context, result any, call hook.ToolCall, hctx hookctx.Context) (hook.Decision, error) {
	return hook.Decision{Verdict: hook.Abort, Reason: h.reason}, nil
}

type recoveringExceptionHook struct {
	namedHook
	body any
}

func (h recoveringExceptionHook) ProcessToolException(ctx context.Context, exception error, call hook.ToolCall, hctx hookctx.Context) (hook.Decision, error) {
	return hook.Decision{Verdict: hook.Abort, Body: h.body}, nil
}

func toolCallRequest(id, name string) []byte {
	raw, _ := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"method":  "tools/call",
		"params":  map[string]any{"name": name, "arguments": map[string]any{}},
	})
	return raw
}

func decodeEnvelope(t *testing.T, raw []byte) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestHandleMessage_ToolCallSuccess(t *testing.T) {
	target := &stubTarget{callResult: map[string]any{"content": "ok"}}
	store := newStore(t, target)
	d := NewDispatcher(nil, store, nil)

	resp, isNotif := d.HandleMessage(context.Background(), "s1", toolCallRequest("1", "echo"))
	require.False(t, isNotif)
	env := decodeEnvelope(t, resp)
	assert.Nil(t, env["error"])
	assert.NotNil(t, env["result"])
}

func TestHandleMessage_WithInstrumentation_StillProducesCorrectResponses(t *testing.T) {
	inst, err := observability.NewInstrumentation("test-dispatcher")
	require.NoError(t, err)

	target := &stubTarget{callResult: map[string]any{"content": "ok"}}
	store := newStore(t, target)
	hooks := []hook.Hook{rejectRequestHook{namedHook: namedHook{"blocker"}, reason: "denied"}}
	d := NewDispatcher(hooks, store, nil).WithInstrumentation(inst)

	resp, isNotif := d.HandleMessage(context.Background(), "s1", toolCallRequest("1", "echo"))
	require.False(t, isNotif)
	env := decodeEnvelope(t, resp)
	assert.NotNil(t, env["error"])

	tlResp, isNotif := d.HandleMessage(context.Background(), "s1", []byte(`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`))
	require.False(t, isNotif)
	tlEnv := decodeEnvelope(t, tlResp)
	assert.NotNil(t, tlEnv["result"])
}

func TestHandleMessage_RequestRejectedReturnsDedicatedCode(t *testing.T) {
	target := &stubTarget{}
	store := newStore(t, target)
	hooks := []hook.Hook{rejectRequestHook{namedHook: namedHook{"blocker"}, reason: "denied"}}
	d := NewDispatcher(hooks, store, nil)

	resp, _ := d.HandleMessage(context.Background(), "s1", toolCallRequest("2", "echo"))
	env := decodeEnvelope(t, resp)
	errField := env["error"].(map[string]any)
	assert.Equal(t, float64(CodeRequestRejected), errField["code"])
	assert.Equal(t, "denied", errField["message"])
}

func TestHandleMessage_ResponseRejectedSynthesizesToolResult(t *testing.T) {
	target := &stubTarget{callResult: map[string]any{"content": "raw"}}
	store := newStore(t, target)
	hooks := []hook.Hook{rejectResponseHook{namedHook: namedHook{"scrubber"}, reason: "redacted"}}
	d := NewDispatcher(hooks, store, nil)

	resp, _ := d.HandleMessage(context.Background(), "s1", toolCallRequest("3", "echo"))
	env := decodeEnvelope(t, resp)
	assert.Nil(t, env["error"])
	result := env["result"].(map[string]any)
	content := result["content"].([]any)
	require.Len(t, content, 1)
	assert.Equal(t, "redacted", content[0].(map[string]any)["text"])
}

func TestHandleMessage_TargetErrorRecoveredByExceptionHook(t *testing.T) {
	target := &stubTarget{callErr: errors.New("target down")}
	store := newStore(t, target)
	hooks := []hook.Hook{recoveringExceptionHook{namedHook: namedHook{"recoverer"}, body: map[string]any{"content": "recovered"}}}
	d := NewDispatcher(hooks, store, nil)

	resp, _ := d.HandleMessage(context.Background(), "s1", toolCallRequest("4", "echo"))
	env := decodeEnvelope(t, resp)
	assert.Nil(t, env["error"])
	result := env["result"].(map[string]any)
	assert.Equal(t, "recovered", result["content"])
}

func TestHandleMessage_TargetErrorUnhandledMapsToInternalError(t *testing.T) {
	target := &stubTarget{callErr: errors.New("target down")}
	store := newStore(t, target)
	d := NewDispatcher(nil, store, nil)

	resp, _ := d.HandleMessage(context.Background(), "s1", toolCallRequest("5", "echo"))
	env := decodeEnvelope(t, resp)
	errField := env["error"].(map[string]any)
	assert.Equal(t, float64(CodeInternalError), errField["code"])
}

func TestHandleMessage_ToolsListDoesNotIncrementRequestCount(t *testing.T) {
	target := &stubTarget{tools: hook.ToolsListResult{Tools: []hook.Tool{{Name: "echo"}}}}
	store := newStore(t, target)
	d := NewDispatcher(nil, store, nil)

	raw, _ := json.Marshal(map[string]any{"jsonrpc": "2.0", "id": "l1", "method": "tools/list"})
	resp, _ := d.HandleMessage(context.Background(), "s1", raw)
	env := decodeEnvelope(t, resp)
	assert.Nil(t, env["error"])

	sess, err := store.GetOrCreate(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), sess.RequestCount())
}

func TestHandleMessage_UnknownMethodForwardedVerbatim(t *testing.T) {
	target := &stubTarget{forwardResp: json.RawMessage(`{"pong":true}`)}
	store := newStore(t, target)
	d := NewDispatcher(nil, store, nil)

	raw, _ := json.Marshal(map[string]any{"jsonrpc": "2.0", "id": "p1", "method": "ping"})
	resp, _ := d.HandleMessage(context.Background(), "s1", raw)
	env := decodeEnvelope(t, resp)
	result := env["result"].(map[string]any)
	assert.Equal(t, true, result["pong"])
}

func TestHandleMessage_NotificationForwardedFireAndForget(t *testing.T) {
	target := &stubTarget{forwardErr: errors.New("target never replies to notifications")}
	store := newStore(t, target)
	d := NewDispatcher(nil, store, nil)

	raw, _ := json.Marshal(map[string]any{"jsonrpc": "2.0", "method": "notifications/initialized"})
	resp, isNotif := d.HandleMessage(context.Background(), "s1", raw)
	require.True(t, isNotif)
	assert.Nil(t, resp)
	assert.Equal(t, []string{"notifications/initialized"}, target.notified)
}

func TestHandleMessage_NotificationProducesNoResponse(t *testing.T) {
	target := &stubTarget{forwardResp: json.RawMessage(`{}`)}
	store := newStore(t, target)
	d := NewDispatcher(nil, store, nil)

	raw, _ := json.Marshal(map[string]any{"jsonrpc": "2.0", "method": "notifications/initialized"})
	resp, isNotif := d.HandleMessage(context.Background(), "s1", raw)
	assert.True(t, isNotif)
	assert.Nil(t, resp)
}

func TestHandleMessage_MalformedJSONIsParseError(t *testing.T) {
	store := newStore(t, &stubTarget{})
	d := NewDispatcher(nil, store, nil)

	resp, _ := d.HandleMessage(context.Background(), "s1", []byte("not json"))
	env := decodeEnvelope(t, resp)
	errField := env["error"].(map[string]any)
	assert.Equal(t, float64(CodeParseError), errField["code"])
}
