// Package hookctx defines the capability value passed to every hook
// invocation, giving hooks read access to the session they are running
// against without letting them hold onto it across calls.
package hookctx

import "context"

// TargetClient is the minimal surface a hook-invocation context exposes
// for the target connection backing the current session. It deliberately
// mirrors only the subset of outbound.TargetClient that is safe for a
// hook to call mid-chain.
type TargetClient interface {
	ListTools(ctx context.Context) (any, error)
	CallTool(ctx context.Context, name string, arguments map[string]any) (any, error)
}

// Context is the capability bag handed to every hook invocation (§4.8).
// Hooks must not store it past the call that received it — the session
// store may swap the underlying target client at any time via
// RecreateClient, and a stored Context would observe a stale handle.
type Context struct {
	// ContextType discriminates the concrete kind of host this context
	// came from. The dispatcher always sets "passthrough-server".
	ContextType string

	// SessionID is the id of the session this invocation belongs to.
	SessionID string

	// Client is the session's current target client handle. Hooks may
	// side-channel query it (e.g. to re-list tools) but must not retain it.
	Client TargetClient

	// RecreateClient atomically closes the session's current target
	// client and installs a fresh one, returning the new handle. Intended
	// for use from a processToolException hook recovering from a broken
	// connection.
	RecreateClient func(ctx context.Context) (TargetClient, error)
}

// New builds a hook-invocation context for sessionID backed by client,
// with recreate wired to the session store's recreation callback.
func New(sessionID string, client TargetClient, recreate func(ctx context.Context) (TargetClient, error)) Context {
	return Context{
		ContextType:    "passthrough-server",
		SessionID:      sessionID,
		Client:         client,
		RecreateClient: recreate,
	}
}
