package chain

import (
	"context"
	"log/slog"

	"github.com/mcphook/proxy/internal/domain/hook"
	"github.com/mcphook/proxy/internal/domain/hookctx"
)

// RunToolsList is the tools/list analogue of RunRequest.
func RunToolsList(ctx context.Context, hooks []hook.Hook, req hook.ToolsListRequest, hctx hookctx.Context, logger *slog.Logger) ToolsListOutcome {
	payload := req
	lastIdx := -1

	for i, h := range hooks {
		tp, ok := h.(hook.ToolsListProcessor)
		if !ok {
			continue
		}

		current := payload
		dec, err := hook.InvokeSafely(logger, h.Name(), func() (hook.Decision, error) {
			return tp.ProcessToolsList(ctx, current, hctx)
		})
		if err != nil {
			logFailure(logger, h.Name(), "tools/list hook errored", err)
			continue
		}
		lastIdx = i

		switch dec.Verdict {
		case hook.Continue:
			remarshal(dec.Body, &payload, logger, h.Name())
		case hook.Abort:
			return ToolsListOutcome{
				Payload:         payload,
				Rejected:        true,
				RejectionBody:   dec.Body,
				RejectionReason: dec.Reason,
				LastIndex:       i,
			}
		default:
			return ToolsListOutcome{
				Payload:         payload,
				Rejected:        true,
				RejectionReason: "invalid hook response",
				LastIndex:       i,
			}
		}
	}

	return ToolsListOutcome{Payload: payload, LastIndex: lastIdx}
}

// RunToolsListResponse is the tools/list analogue of RunResponse: a reverse
// traversal from startIdx down to 0, stopping immediately on abort.
func RunToolsListResponse(ctx context.Context, hooks []hook.Hook, startIdx int, result hook.ToolsListResult, hctx hookctx.Context, logger *slog.Logger) ToolsListResponseOutcome {
	payload := result

	for i := startIdx; i >= 0; i-- {
		h := hooks[i]
		rp, ok := h.(hook.ToolsListResponseProcessor)
		if !ok {
			continue
		}

		current := payload
		dec, err := hook.InvokeSafely(logger, h.Name(), func() (hook.Decision, error) {
			return rp.ProcessToolsListResponse(ctx, current, hctx)
		})
		if err != nil {
			logFailure(logger, h.Name(), "tools/list response hook errored", err)
			continue
		}

		switch dec.Verdict {
		case hook.Continue:
			remarshal(dec.Body, &payload, logger, h.Name())
		case hook.Abort:
			return ToolsListResponseOutcome{
				Payload:         payload,
				Rejected:        true,
				RejectionBody:   dec.Body,
				RejectionReason: dec.Reason,
			}
		default:
			return ToolsListResponseOutcome{
				Payload:         payload,
				Rejected:        true,
				RejectionReason: "invalid hook response",
			}
		}
	}

	return ToolsListResponseOutcome{Payload: payload}
}
