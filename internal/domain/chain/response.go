package chain

import (
	"context"
	"log/slog"

	"github.com/mcphook/proxy/internal/domain/hook"
	"github.com/mcphook/proxy/internal/domain/hookctx"
)

// RunResponse traverses hooks in reverse, from startIdx down to 0, over a
// tool call's result. startIdx is the request chain's LastIndex when the
// request was rejected, or len(hooks)-1 otherwise; passing -1 (the request
// chain ran no hooks) makes the loop a no-op, which is exactly the "skip
// response traversal if no request hook ran" rule. The traversal stops
// immediately on the first abort — later (lower-indexed) hooks never see
// the response at all.
func RunResponse(ctx context.Context, hooks []hook.Hook, startIdx int, result any, call hook.ToolCall, hctx hookctx.Context, logger *slog.Logger) ResponseOutcome {
	payload := result

	for i := startIdx; i >= 0; i-- {
		h := hooks[i]
		rp, ok := h.(hook.ResponseProcessor)
		if !ok {
			continue
		}

		current := payload
		dec, err := hook.InvokeSafely(logger, h.Name(), func() (hook.Decision, error) {
			return rp.ProcessResponse(ctx, current, call, hctx)
		})
		if err != nil {
			logFailure(logger, h.Name(), "response hook errored", err)
			continue
		}

		switch dec.Verdict {
		case hook.Continue:
			if dec.Body != nil {
				payload = dec.Body
			}
		case hook.Abort:
			return ResponseOutcome{
				Payload:         payload,
				Rejected:        true,
				RejectionBody:   dec.Body,
				RejectionReason: dec.Reason,
			}
		default:
			return ResponseOutcome{
				Payload:         payload,
				Rejected:        true,
				RejectionReason: "invalid hook response",
			}
		}
	}

	return ResponseOutcome{Payload: payload}
}

// SynthesizeToolResult builds the client-visible tool result for a
// response-chain rejection on a tools/call: {content:[{type:"text",
// text:<reason or body>}]}. reason wins when non-empty; otherwise body is
// rendered as its string form.
func SynthesizeToolResult(reason string, body any) map[string]any {
	text := reason
	if text == "" {
		if s, ok := body.(string); ok {
			text = s
		} else if body != nil {
			text = jsonStringify(body)
		}
	}
	return map[string]any{
		"content": []map[string]any{
			{"type": "text", "text": text},
		},
	}
}
