// Package hook defines the hook contract: the data exchanged between the
// chain engine and each hook in the chain, and the two hook variants
// (in-process "local" hooks and out-of-process "remote" hooks reached over
// HTTP) that implement it.
//
// A hook implements any subset of the five processor interfaces below. The
// chain engine type-asserts against each interface before calling it; a
// hook that does not implement a given interface is treated as a no-op
// pass-through for that interception point. Every hook carries a stable
// Name() used for logging and the not-implemented cache key; chain order is
// the order of the hook slice.
package hook

import (
	"context"
	"encoding/json"

	"github.com/mcphook/proxy/internal/domain/hookctx"
)

// Verdict is a hook's decision on whether a chain traversal continues.
type Verdict int

const (
	// Continue lets the (possibly modified) payload proceed down the chain.
	Continue Verdict = iota
	// Abort stops the chain traversal; Decision.Body/Reason replace the
	// downstream artifact and are surfaced to the caller.
	Abort
)

// String implements fmt.Stringer for log output.
func (v Verdict) String() string {
	switch v {
	case Continue:
		return "continue"
	case Abort:
		return "abort"
	default:
		return "unknown"
	}
}

// Decision is the outcome of a single hook invocation.
type Decision struct {
	Verdict Verdict
	// Body replaces the payload (on Continue) or becomes the rejection
	// artifact (on Abort). Hooks must return a new value rather than
	// mutate the one they were given.
	Body any
	// Reason is surfaced to the caller verbatim when Verdict is Abort.
	Reason string
}

// Tool describes a single tool advertised by the target server.
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

// ToolsListRequest is the synthetic payload the chain engine runs through
// the tools/list request hooks before the target is asked to list tools.
type ToolsListRequest struct {
	Method   string         `json:"method"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// ToolsListResult is the payload run through the tools/list response hooks
// after the target has answered.
type ToolsListResult struct {
	Tools []Tool `json:"tools"`
}

// ToolCall is the payload run through the tools/call request hooks.
type ToolCall struct {
	Name           string         `json:"name"`
	Arguments      map[string]any `json:"arguments,omitempty"`
	Metadata       map[string]any `json:"_meta,omitempty"`
	ToolDefinition *Tool          `json:"-"`
}

// Hook is the identity every chain member must provide. Concrete hooks
// additionally implement whichever of RequestProcessor, ResponseProcessor,
// ToolsListProcessor, ToolsListResponseProcessor and ExceptionProcessor
// they care about.
type Hook interface {
	Name() string
}

// RequestProcessor intercepts an inbound tools/call before it reaches the
// target.
type RequestProcessor interface {
	ProcessRequest(ctx context.Context, call ToolCall, hctx hookctx.Context) (Decision, error)
}

// ResponseProcessor intercepts a tool's result on the way back to the
// client.
type ResponseProcessor interface {
	ProcessResponse(ctx context.Context, result any, call ToolCall, hctx hookctx.Context) (Decision, error)
}

// ToolsListProcessor intercepts the synthetic tools/list request issued at
// discovery time.
type ToolsListProcessor interface {
	ProcessToolsList(ctx context.Context, req ToolsListRequest, hctx hookctx.Context) (Decision, error)
}

// ToolsListResponseProcessor intercepts the target's tools/list result
// before it is published as the advertised tool set.
type ToolsListResponseProcessor interface {
	ProcessToolsListResponse(ctx context.Context, result ToolsListResult, hctx hookctx.Context) (Decision, error)
}

// ExceptionProcessor gives a hook a chance to recover from a target-raised
// exception and produce a substitute tool result.
type ExceptionProcessor interface {
	ProcessToolException(ctx context.Context, exception error, call ToolCall, hctx hookctx.Context) (Decision, error)
}
