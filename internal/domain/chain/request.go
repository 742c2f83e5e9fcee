package chain

import (
	"context"
	"log/slog"

	"github.com/mcphook/proxy/internal/domain/hook"
	"github.com/mcphook/proxy/internal/domain/hookctx"
)

// RunRequest traverses hooks forward (index 0..N-1) over call, stopping at
// the first hook that aborts. Hooks that don't implement RequestProcessor
// are skipped without advancing LastIndex. An empty chain (or one with no
// request processors) returns call unchanged with LastIndex -1.
func RunRequest(ctx context.Context, hooks []hook.Hook, call hook.ToolCall, hctx hookctx.Context, logger *slog.Logger) RequestOutcome {
	payload := call
	lastIdx := -1

	for i, h := range hooks {
		rp, ok := h.(hook.RequestProcessor)
		if !ok {
			continue
		}

		current := payload
		dec, err := hook.InvokeSafely(logger, h.Name(), func() (hook.Decision, error) {
			return rp.ProcessRequest(ctx, current, hctx)
		})
		if err != nil {
			logFailure(logger, h.Name(), "request hook errored", err)
			continue
		}
		lastIdx = i

		switch dec.Verdict {
		case hook.Continue:
			remarshal(dec.Body, &payload, logger, h.Name())
		case hook.Abort:
			return RequestOutcome{
				Payload:         payload,
				Rejected:        true,
				RejectionBody:   dec.Body,
				RejectionReason: dec.Reason,
				LastIndex:       i,
			}
		default:
			return RequestOutcome{
				Payload:         payload,
				Rejected:        true,
				RejectionReason: "invalid hook response",
				LastIndex:       i,
			}
		}
	}

	return RequestOutcome{Payload: payload, LastIndex: lastIdx}
}
