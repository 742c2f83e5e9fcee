// Package outbound defines the outbound port interfaces the dispatcher and
// session store depend on to reach the target MCP server.
package outbound

import (
	"context"
	"encoding/json"

	"github.com/mcphook/proxy/internal/domain/hook"
)

// TargetClient is the polymorphic handle a Session holds for its target
// connection (§4.5). Two adapters implement it: a subprocess client
// speaking newline-delimited JSON-RPC over stdio, and an HTTP-stream
// client speaking a long-lived MCP HTTP session. Selection between them is
// purely config-driven; this interface is the injection point for test
// fakes.
type TargetClient interface {
	// ListTools asks the target for its tool set.
	ListTools(ctx context.Context) (hook.ToolsListResult, error)

	// CallTool invokes one tool on the target and returns its raw result
	// (arbitrary JSON shape, opaque to the dispatcher and chain engine).
	CallTool(ctx context.Context, call hook.ToolCall) (any, error)

	// Forward sends any other JSON-RPC method straight through to the
	// target and returns its raw result verbatim — used by the dispatcher
	// for every inbound method except tools/list and tools/call, which
	// pass through the hook chain instead.
	Forward(ctx context.Context, method string, params json.RawMessage) (json.RawMessage, error)

	// Notify sends a JSON-RPC notification to the target and does not wait
	// for, or expect, a reply. Used by the dispatcher for every inbound
	// notification other than tools/list and tools/call (which have no
	// notification form). The returned error reports a failure to send
	// (and, for an HTTP target, a non-2xx status); any reply body is
	// discarded, never returned.
	Notify(ctx context.Context, method string, params json.RawMessage) error

	// Close releases the underlying connection or process. Close is
	// idempotent.
	Close() error
}
