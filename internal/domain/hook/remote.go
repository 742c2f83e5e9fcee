package hook

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/mcphook/proxy/internal/adapter/outbound/hookrpc"
	"github.com/mcphook/proxy/internal/domain/hookctx"
	"github.com/mcphook/proxy/internal/observability"
)

// notImplementedSentinel is the substring a remote hook's error message
// must contain for the engine to treat the operation as simply unimplemented
// rather than failed (§4.2).
const notImplementedSentinel = "not implemented"

// caller is the subset of hookrpc.Client that RemoteHookClient depends on,
// so tests can substitute a fake without spinning up an HTTP server.
type caller interface {
	Call(ctx context.Context, method string, params any) (json.RawMessage, error)
}

// RemoteHookClient wraps one {url, name} hook entry and exposes it as a
// Hook implementing all five processor interfaces. Every operation
// degrades to Continue (unchanged payload) on any failure — network error,
// timeout, non-2xx, decode error, or the "not implemented" sentinel — and
// logs the failure. Misbehaving remote hooks must never harm user traffic.
type RemoteHookClient struct {
	name   string
	rpc    caller
	logger *slog.Logger

	cacheNotImplemented bool
	mu                  sync.Mutex
	notImplemented      map[uint64]bool

	obs *observability.Instrumentation
}

// WithInstrumentation attaches tracing/metrics for this hook's RPC calls.
// A nil obs (the default) leaves call behavior unchanged.
func WithInstrumentation(obs *observability.Instrumentation) RemoteOption {
	return func(c *RemoteHookClient) { c.obs = obs }
}

// RemoteOption configures a RemoteHookClient.
type RemoteOption func(*RemoteHookClient)

// WithNotImplementedCache opts into caching "not implemented" results per
// (hook, operation) for the lifetime of this client, avoiding a repeat RPC
// for operations the hook has already told us it doesn't handle. Resolves
// the open question on caching in favor of "may cache, opt-in, default
// off" — the default is false.
func WithNotImplementedCache(enabled bool) RemoteOption {
	return func(c *RemoteHookClient) { c.cacheNotImplemented = enabled }
}

// NewRemoteHookClient builds a Hook that calls the given endpoint URL.
// Timeout is the per-call deadline (§4.2 recommends 30s); a zero value
// selects hookrpc.DefaultTimeout.
func NewRemoteHookClient(name, url string, timeout time.Duration, logger *slog.Logger, opts ...RemoteOption) *RemoteHookClient {
	c := &RemoteHookClient{
		name:           name,
		rpc:            hookrpc.New(url, timeout),
		logger:         logger,
		notImplemented: make(map[uint64]bool),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name implements Hook.
func (c *RemoteHookClient) Name() string { return c.name }

func (c *RemoteHookClient) cacheKey(operation string) uint64 {
	h := xxhash.New()
	_, _ = h.WriteString(c.name)
	_, _ = h.WriteString("|")
	_, _ = h.WriteString(operation)
	return h.Sum64()
}

func (c *RemoteHookClient) isCachedNotImplemented(operation string) bool {
	if !c.cacheNotImplemented {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.notImplemented[c.cacheKey(operation)]
}

func (c *RemoteHookClient) markNotImplemented(operation string) {
	if !c.cacheNotImplemented {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notImplemented[c.cacheKey(operation)] = true
}

// call invokes operation on the remote hook and decodes its reply, always
// degrading to a Continue decision and a nil error on any failure.
func (c *RemoteHookClient) call(ctx context.Context, operation string, params any) Decision {
	spanCtx, span := c.obs.StartHookSpan(ctx, c.name, operation)
	verdict := observability.VerdictContinue
	defer func() { c.obs.RecordHookOutcome(spanCtx, span, c.name, operation, verdict) }()

	if c.isCachedNotImplemented(operation) {
		return Decision{Verdict: Continue}
	}

	raw, err := c.rpc.Call(spanCtx, operation, params)
	if err != nil {
		var callErr *hookrpc.CallError
		if errors.As(err, &callErr) && strings.Contains(strings.ToLower(callErr.Message), notImplementedSentinel) {
			c.markNotImplemented(operation)
			return Decision{Verdict: Continue}
		}
		c.logf("remote hook call failed, degrading to continue", operation, err)
		verdict = observability.VerdictError
		return Decision{Verdict: Continue}
	}

	dec, err := decodeWireDecision(raw)
	if err != nil {
		c.logf("remote hook returned undecodable response, degrading to continue", operation, err)
		verdict = observability.VerdictError
		return Decision{Verdict: Continue}
	}
	if dec.Verdict == Abort {
		verdict = observability.VerdictAbort
	}
	return dec
}

func (c *RemoteHookClient) logf(msg, operation string, err error) {
	if c.logger == nil {
		return
	}
	c.logger.Error(msg, "hook", c.name, "operation", operation, "error", err)
}

// wireDecision is the JSON shape a hook endpoint replies with (§6):
// {"response":"continue"|"abort", "body":<any>, "reason"?:<string>}.
type wireDecision struct {
	Response string `json:"response"`
	Body     any    `json:"body"`
	Reason   string `json:"reason,omitempty"`
}

func decodeWireDecision(raw json.RawMessage) (Decision, error) {
	if len(raw) == 0 {
		return Decision{Verdict: Continue}, nil
	}
	var wd wireDecision
	if err := json.Unmarshal(raw, &wd); err != nil {
		return Decision{}, err
	}
	switch wd.Response {
	case "continue":
		return Decision{Verdict: Continue, Body: wd.Body}, nil
	case "abort":
		return Decision{Verdict: Abort, Body: wd.Body, Reason: wd.Reason}, nil
	default:
		return Decision{Verdict: Abort, Reason: "invalid hook response"}, nil
	}
}

// ProcessRequest implements RequestProcessor.
func (c *RemoteHookClient) ProcessRequest(ctx context.Context, call ToolCall, _ hookctx.Context) (Decision, error) {
	return c.call(ctx, "processRequest", call), nil
}

// ProcessResponse implements ResponseProcessor.
func (c *RemoteHookClient) ProcessResponse(ctx context.Context, result any, call ToolCall, _ hookctx.Context) (Decision, error) {
	return c.call(ctx, "processResponse", map[string]any{"result": result, "call": call}), nil
}

// ProcessToolsList implements ToolsListProcessor.
func (c *RemoteHookClient) ProcessToolsList(ctx context.Context, req ToolsListRequest, _ hookctx.Context) (Decision, error) {
	return c.call(ctx, "processToolsList", req), nil
}

// ProcessToolsListResponse implements ToolsListResponseProcessor.
func (c *RemoteHookClient) ProcessToolsListResponse(ctx context.Context, result ToolsListResult, _ hookctx.Context) (Decision, error) {
	return c.call(ctx, "processToolsListResponse", result), nil
}

// ProcessToolException implements ExceptionProcessor.
func (c *RemoteHookClient) ProcessToolException(ctx context.Context, exception error, call ToolCall, _ hookctx.Context) (Decision, error) {
	msg := ""
	if exception != nil {
		msg = exception.Error()
	}
	return c.call(ctx, "processToolException", map[string]any{"exception": msg, "call": call}), nil
}

var (
	_ Hook                       = (*RemoteHookClient)(nil)
	_ RequestProcessor           = (*RemoteHookClient)(nil)
	_ ResponseProcessor          = (*RemoteHookClient)(nil)
	_ ToolsListProcessor         = (*RemoteHookClient)(nil)
	_ ToolsListResponseProcessor = (*RemoteHookClient)(nil)
	_ ExceptionProcessor         = (*RemoteHookClient)(nil)
)
