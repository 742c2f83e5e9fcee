package hook

import (
	"fmt"
	"log/slog"
)

// A local hook is any in-process Hook implementation supplied directly by
// the embedding program — no wrapper type is needed, since it already
// satisfies Hook and whichever processor interfaces it implements.
//
// Local hooks run inside the chain engine's own goroutine, so a panic in
// one must not take down the request it is handling. InvokeSafely runs fn
// and converts a recovered panic into a Continue decision, logging the
// panic value the way a crashed remote call is logged.
func InvokeSafely(logger *slog.Logger, name string, fn func() (Decision, error)) (dec Decision, err error) {
	defer func() {
		if r := recover(); r != nil {
			if logger != nil {
				logger.Error("hook panicked, degrading to continue",
					"hook", name, "panic", fmt.Sprintf("%v", r))
			}
			dec = Decision{Verdict: Continue}
			err = nil
		}
	}()
	return fn()
}
