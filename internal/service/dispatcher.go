// Package service implements the proxy dispatcher (§4.6) and tool
// discovery (§4.7): the pieces that own inbound transports, run the
// request/response through the hook chain for tools/call and tools/list,
// and forward every other JSON-RPC method straight to the target.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mcphook/proxy/internal/domain/chain"
	"github.com/mcphook/proxy/internal/domain/hook"
	"github.com/mcphook/proxy/internal/domain/hookctx"
	"github.com/mcphook/proxy/internal/domain/session"
	"github.com/mcphook/proxy/internal/observability"
	"github.com/mcphook/proxy/internal/port/outbound"
	"github.com/mcphook/proxy/pkg/mcp"
)

// JSON-RPC error codes (§6, §7). -32001/-32002 are this proxy's own,
// layered on top of the standard JSON-RPC reserved range.
const (
	CodeParseError       = -32700
	CodeInternalError    = -32603
	CodeRequestRejected  = -32001
	CodeResponseRejected = -32002
)

// Dispatcher owns the hook chain and session store and routes every
// inbound JSON-RPC message for a session, per §4.6.
type Dispatcher struct {
	hooks  []hook.Hook
	store  *session.Store
	logger *slog.Logger
	obs    *observability.Instrumentation
}

// NewDispatcher builds a Dispatcher over an already-resolved hook chain
// and session store.
func NewDispatcher(hooks []hook.Hook, store *session.Store, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{hooks: hooks, store: store, logger: logger}
}

// WithInstrumentation attaches tracing/metrics for the chain traversals
// this Dispatcher runs. A nil obs (the default) leaves HandleMessage
// exactly as before, every instrumentation call point is a no-op.
func (d *Dispatcher) WithInstrumentation(obs *observability.Instrumentation) *Dispatcher {
	d.obs = obs
	return d
}

// HandleMessage processes one raw inbound JSON-RPC message for sessionID.
// Decoding and method classification go through pkg/mcp (the MCP SDK's
// jsonrpc codec, §domain stack); responses are built directly as raw JSON
// rather than via jsonrpc.Response, since the SDK's jsonrpc.ID type does not
// round-trip a wire id of unknown shape (number or string) through
// interface{} cleanly (mirrored from the source's CreateJSONRPCError).
//
// HandleMessage never returns a transport-level Go error: malformed input,
// hook rejections and target failures are all encoded as a JSON-RPC
// response per §7's error table. The second return value is true when the
// inbound message was a notification (no id), in which case response is nil
// and nothing should be written back to the caller.
func (d *Dispatcher) HandleMessage(ctx context.Context, sessionID string, raw []byte) (response []byte, isNotification bool) {
	msg, err := mcp.WrapMessage(raw, mcp.ClientToServer)
	if err != nil {
		return encodeError(nil, CodeParseError, "parse error", nil), false
	}

	id := msg.RawID()
	isNotification = msg.IsNotification()
	method := msg.Method()

	if method == "" {
		return encodeError(id, CodeInternalError, "internal error", "missing method"), isNotification
	}

	if isNotification && method != "tools/call" && method != "tools/list" {
		// §6: "Notifications are forwarded, response ignored" — fire and
		// forget, never block the transport loop waiting on a reply a
		// notification-only method will never send.
		req := msg.Request()
		var params json.RawMessage
		if req != nil {
			params = req.Params
		}
		d.notify(ctx, sessionID, method, params)
		return nil, true
	}

	var out []byte
	switch method {
	case "tools/call":
		out = d.handleToolCall(ctx, sessionID, id, msg)
	case "tools/list":
		out = d.handleToolsList(ctx, sessionID, id)
	default:
		req := msg.Request()
		var params json.RawMessage
		if req != nil {
			params = req.Params
		}
		out = d.forward(ctx, sessionID, id, method, params)
	}

	if isNotification {
		return nil, true
	}
	return out, false
}

type toolCallParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
	Meta      map[string]any `json:"_meta,omitempty"`
}

func (d *Dispatcher) handleToolCall(ctx context.Context, sessionID string, id json.RawMessage, msg *mcp.Message) []byte {
	var params toolCallParams
	req := msg.Request()
	if req != nil && len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return encodeError(id, CodeInternalError, "internal error", err.Error())
		}
	}
	call := hook.ToolCall{Name: params.Name, Arguments: params.Arguments, Metadata: params.Meta}

	sess, err := d.store.ForRequest(ctx, sessionID)
	if err != nil {
		return encodeError(id, CodeInternalError, "internal error", err.Error())
	}
	hctx := d.hookContext(sessionID, sess)

	reqCtx, reqSpan := d.obs.StartChainSpan(ctx, observability.SpanChainRequest, sessionID)
	reqOutcome := chain.RunRequest(reqCtx, d.hooks, call, hctx, d.logger)
	d.obs.RecordHookOutcome(reqCtx, reqSpan, "chain", "request", chainVerdict(reqOutcome.Rejected))
	if reqOutcome.Rejected {
		// Hooks positioned before the one that rejected still get a
		// chance to see the rejection on its way back out, mirroring the
		// onion shape of the forward traversal.
		respCtx, respSpan := d.obs.StartChainSpan(ctx, observability.SpanChainResponse, sessionID)
		respOutcome := chain.RunResponse(respCtx, d.hooks, reqOutcome.LastIndex, reqOutcome.RejectionBody, reqOutcome.Payload, hctx, d.logger)
		d.obs.RecordHookOutcome(respCtx, respSpan, "chain", "response", chainVerdict(respOutcome.Rejected))
		if respOutcome.Rejected {
			return encodeError(id, CodeResponseRejected, respOutcome.RejectionReason, respOutcome.RejectionBody)
		}
		return encodeError(id, CodeRequestRejected, reqOutcome.RejectionReason, respOutcome.Payload)
	}

	result, callErr := sess.Client().CallTool(ctx, reqOutcome.Payload)
	if callErr != nil {
		excCtx, excSpan := d.obs.StartChainSpan(ctx, observability.SpanChainException, sessionID)
		excOutcome := chain.RunException(excCtx, d.hooks, callErr, reqOutcome.Payload, hctx, d.logger)
		d.obs.RecordHookOutcome(excCtx, excSpan, "chain", "exception", chainVerdict(!excOutcome.Handled))
		if excOutcome.Handled {
			return encodeResult(id, excOutcome.Body)
		}
		return encodeError(id, CodeInternalError, "forward failed", callErr.Error())
	}

	startIdx := len(d.hooks) - 1
	respCtx, respSpan := d.obs.StartChainSpan(ctx, observability.SpanChainResponse, sessionID)
	respOutcome := chain.RunResponse(respCtx, d.hooks, startIdx, result, reqOutcome.Payload, hctx, d.logger)
	d.obs.RecordHookOutcome(respCtx, respSpan, "chain", "response", chainVerdict(respOutcome.Rejected))
	if respOutcome.Rejected {
		synthesized := chain.SynthesizeToolResult(respOutcome.RejectionReason, respOutcome.RejectionBody)
		return encodeResult(id, synthesized)
	}
	return encodeResult(id, respOutcome.Payload)
}

// chainVerdict maps a traversal's aggregate rejected flag to the
// continue/abort labels recorded against the hook-outcomes counter.
func chainVerdict(rejected bool) string {
	if rejected {
		return observability.VerdictAbort
	}
	return observability.VerdictContinue
}

func (d *Dispatcher) handleToolsList(ctx context.Context, sessionID string, id json.RawMessage) []byte {
	// tools/list never increments the session's request count (§9 open
	// question, resolved to match the source).
	sess, err := d.store.GetOrCreate(ctx, sessionID)
	if err != nil {
		return encodeError(id, CodeInternalError, "internal error", err.Error())
	}
	hctx := d.hookContext(sessionID, sess)

	result, outcome, err := d.runToolsList(ctx, sessionID, hctx, sess)
	if err != nil {
		return encodeError(id, CodeInternalError, "forward failed", err.Error())
	}
	if outcome.requestRejected {
		return encodeError(id, CodeRequestRejected, outcome.reason, outcome.body)
	}
	if outcome.responseRejected {
		return encodeError(id, CodeResponseRejected, outcome.reason, outcome.body)
	}
	return encodeResult(id, result)
}

type toolsListOutcome struct {
	requestRejected  bool
	responseRejected bool
	reason           string
	body             any
}

// runToolsList runs the full tools/list round trip — request chain,
// target call, response chain — shared by live per-request handling and
// startup discovery (§4.7).
func (d *Dispatcher) runToolsList(ctx context.Context, sessionID string, hctx hookctx.Context, sess *session.Session) (hook.ToolsListResult, toolsListOutcome, error) {
	req := hook.ToolsListRequest{Method: "tools/list"}
	listCtx, listSpan := d.obs.StartChainSpan(ctx, observability.SpanChainToolsList, sessionID)
	listOutcome := chain.RunToolsList(listCtx, d.hooks, req, hctx, d.logger)
	d.obs.RecordHookOutcome(listCtx, listSpan, "chain", "tools_list", chainVerdict(listOutcome.Rejected))
	if listOutcome.Rejected {
		return hook.ToolsListResult{}, toolsListOutcome{requestRejected: true, reason: listOutcome.RejectionReason, body: listOutcome.RejectionBody}, nil
	}

	result, err := sess.Client().ListTools(ctx)
	if err != nil {
		return hook.ToolsListResult{}, toolsListOutcome{}, err
	}

	startIdx := len(d.hooks) - 1
	respCtx, respSpan := d.obs.StartChainSpan(ctx, observability.SpanChainToolsListResp, sessionID)
	respOutcome := chain.RunToolsListResponse(respCtx, d.hooks, startIdx, result, hctx, d.logger)
	d.obs.RecordHookOutcome(respCtx, respSpan, "chain", "tools_list_response", chainVerdict(respOutcome.Rejected))
	if respOutcome.Rejected {
		return hook.ToolsListResult{}, toolsListOutcome{responseRejected: true, reason: respOutcome.RejectionReason, body: respOutcome.RejectionBody}, nil
	}
	return respOutcome.Payload, toolsListOutcome{}, nil
}

func (d *Dispatcher) forward(ctx context.Context, sessionID string, id json.RawMessage, method string, params json.RawMessage) []byte {
	sess, err := d.store.GetOrCreate(ctx, sessionID)
	if err != nil {
		return encodeError(id, CodeInternalError, "internal error", err.Error())
	}
	raw, err := sess.Client().Forward(ctx, method, params)
	if err != nil {
		return encodeError(id, CodeInternalError, "forward failed", err.Error())
	}
	return encodeResult(id, raw)
}

// notify forwards a fire-and-forget JSON-RPC notification to the target.
// Any failure is logged, never surfaced to the caller — there is no
// response to carry it back to, and the caller already got nil, true.
func (d *Dispatcher) notify(ctx context.Context, sessionID, method string, params json.RawMessage) {
	sess, err := d.store.GetOrCreate(ctx, sessionID)
	if err != nil {
		if d.logger != nil {
			d.logger.Warn("dropping notification, session unavailable", "method", method, "error", err)
		}
		return
	}
	if err := sess.Client().Notify(ctx, method, params); err != nil && d.logger != nil {
		d.logger.Warn("notification forward failed", "method", method, "error", err)
	}
}

// hookClientAdapter narrows an outbound.TargetClient to the smaller
// hookctx.TargetClient surface hooks are allowed to side-channel query.
type hookClientAdapter struct {
	client outbound.TargetClient
}

func (a hookClientAdapter) ListTools(ctx context.Context) (any, error) {
	return a.client.ListTools(ctx)
}

func (a hookClientAdapter) CallTool(ctx context.Context, name string, arguments map[string]any) (any, error) {
	return a.client.CallTool(ctx, hook.ToolCall{Name: name, Arguments: arguments})
}

func (d *Dispatcher) hookContext(sessionID string, sess *session.Session) hookctx.Context {
	return hookctx.New(sessionID, hookClientAdapter{client: sess.Client()}, func(ctx context.Context) (hookctx.TargetClient, error) {
		newClient, err := d.store.RecreateClient(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		return hookClientAdapter{client: newClient}, nil
	})
}

type jsonRPCError struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Error   jsonRPCErrField `json:"error"`
}

type jsonRPCErrField struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

type jsonRPCResult struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result"`
}

func encodeError(id json.RawMessage, code int, message string, data any) []byte {
	if id == nil {
		id = json.RawMessage("null")
	}
	raw, err := json.Marshal(jsonRPCError{
		JSONRPC: "2.0",
		ID:      id,
		Error:   jsonRPCErrField{Code: code, Message: message, Data: data},
	})
	if err != nil {
		return []byte(fmt.Sprintf(`{"jsonrpc":"2.0","id":null,"error":{"code":%d,"message":"internal error"}}`, CodeInternalError))
	}
	return raw
}

func encodeResult(id json.RawMessage, result any) []byte {
	if id == nil {
		id = json.RawMessage("null")
	}
	if result == nil {
		result = json.RawMessage("null")
	}
	raw, err := json.Marshal(jsonRPCResult{JSONRPC: "2.0", ID: id, Result: result})
	if err != nil {
		return encodeError(id, CodeInternalError, "internal error", nil)
	}
	return raw
}
