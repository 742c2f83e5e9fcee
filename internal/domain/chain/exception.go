package chain

import (
	"context"
	"log/slog"

	"github.com/mcphook/proxy/internal/domain/hook"
	"github.com/mcphook/proxy/internal/domain/hookctx"
)

// ExceptionOutcome is what RunException produces.
type ExceptionOutcome struct {
	// Handled is true if some hook aborted, meaning its Body is the
	// recovered tool result.
	Handled bool
	Body    any
	Reason  string
}

// RunException gives hooks, in forward order, a chance to recover from a
// target-raised exception. The first hook to abort "handled" the
// exception; its Decision.Body becomes the recovered tool result and the
// traversal stops there. If no hook aborts, the original exception
// propagates unchanged — Continue decisions from exception hooks are
// observational only, they cannot alter the exception seen by the next
// hook.
func RunException(ctx context.Context, hooks []hook.Hook, exception error, call hook.ToolCall, hctx hookctx.Context, logger *slog.Logger) ExceptionOutcome {
	for _, h := range hooks {
		ep, ok := h.(hook.ExceptionProcessor)
		if !ok {
			continue
		}

		dec, err := hook.InvokeSafely(logger, h.Name(), func() (hook.Decision, error) {
			return ep.ProcessToolException(ctx, exception, call, hctx)
		})
		if err != nil {
			logFailure(logger, h.Name(), "exception hook errored", err)
			continue
		}

		if dec.Verdict == hook.Abort {
			return ExceptionOutcome{Handled: true, Body: dec.Body, Reason: dec.Reason}
		}
	}

	return ExceptionOutcome{Handled: false}
}
