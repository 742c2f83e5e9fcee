// Package chain implements the hook chain engine: the explicit,
// index-driven traversal logic that runs an ordered []hook.Hook over a
// request, its response, a tools/list round-trip, or a target exception.
//
// The engine is deliberately written as flat loops over a slice, not as
// nested middleware or decorators — the stable numeric index of each hook
// is load-bearing (it is what "lastProcessedIndex" in the response
// traversal refers back to), and a decorator chain would bury it.
package chain

import (
	"encoding/json"
	"log/slog"

	"github.com/mcphook/proxy/internal/domain/hook"
)

// RequestOutcome is what a forward request-chain traversal produces.
type RequestOutcome struct {
	Payload         hook.ToolCall
	Rejected        bool
	RejectionBody   any
	RejectionReason string
	// LastIndex is the index of the last hook that actually ran (-1 if
	// none did, e.g. an empty chain or a chain with no request
	// processors). The response traversal starts here when the request
	// was rejected.
	LastIndex int
}

// ToolsListOutcome is the tools/list analogue of RequestOutcome.
type ToolsListOutcome struct {
	Payload         hook.ToolsListRequest
	Rejected        bool
	RejectionBody   any
	RejectionReason string
	LastIndex       int
}

// ResponseOutcome is what a reverse response-chain traversal produces.
type ResponseOutcome struct {
	Payload         any
	Rejected        bool
	RejectionBody   any
	RejectionReason string
}

// ToolsListResponseOutcome is the tools/list analogue of ResponseOutcome.
type ToolsListResponseOutcome struct {
	Payload         hook.ToolsListResult
	Rejected        bool
	RejectionBody   any
	RejectionReason string
}

// remarshal round-trips src through JSON into dst, used to coerce a hook's
// loosely-typed Decision.Body back into the strongly-typed payload the
// rest of the pipeline expects. If src is nil or the round-trip fails, dst
// is left untouched and ok is false so the caller can keep the prior
// payload instead.
func remarshal(src any, dst any, logger *slog.Logger, hookName string) bool {
	if src == nil {
		return false
	}
	raw, err := json.Marshal(src)
	if err != nil {
		logFailure(logger, hookName, "marshal hook body", err)
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		logFailure(logger, hookName, "unmarshal hook body", err)
		return false
	}
	return true
}

func logFailure(logger *slog.Logger, hookName, msg string, err error) {
	if logger == nil {
		return
	}
	logger.Warn(msg+", keeping prior payload", "hook", hookName, "error", err)
}

// jsonStringify renders v as a JSON string, falling back to a fixed
// placeholder if it cannot be marshaled (it always can for the plain
// data a hook body carries, but this keeps the helper total).
func jsonStringify(v any) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return "tool call rejected"
	}
	return string(raw)
}
