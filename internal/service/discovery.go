package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mcphook/proxy/internal/domain/hook"
	"github.com/mcphook/proxy/internal/domain/session"
)

// DiscoveryService runs the tools/list round trip once at startup against
// the default session, publishing the resulting advertised tool set (§4.7).
// A live client tools/list call still re-runs the full chain on every
// request via Dispatcher.handleToolsList — this service exists purely to
// surface what the target currently advertises for registration, logging
// and health-check purposes before any client connects.
type DiscoveryService struct {
	dispatcher *Dispatcher
	store      *session.Store
	logger     *slog.Logger

	mu    sync.RWMutex
	tools []hook.Tool
	err   error
}

// NewDiscoveryService wires a DiscoveryService over an already-built
// Dispatcher and the same session store it dispatches against.
func NewDiscoveryService(dispatcher *Dispatcher, store *session.Store, logger *slog.Logger) *DiscoveryService {
	return &DiscoveryService{dispatcher: dispatcher, store: store, logger: logger}
}

// Discover runs the tools/list request chain, calls the target, and runs
// the tools/list response chain, against the default session. A chain
// rejection is logged as a warning and leaves the advertised set empty —
// it is not fatal to startup; a remote hook or target outage shouldn't
// crash the proxy before any client ever connects.
func (d *DiscoveryService) Discover(ctx context.Context) error {
	sess, err := d.store.GetOrCreate(ctx, session.DefaultSessionID)
	if err != nil {
		return fmt.Errorf("open default session for discovery: %w", err)
	}
	hctx := d.dispatcher.hookContext(session.DefaultSessionID, sess)

	result, outcome, err := d.dispatcher.runToolsList(ctx, session.DefaultSessionID, hctx, sess)
	if err != nil {
		d.setResult(nil, err)
		return fmt.Errorf("discover tools: %w", err)
	}
	if outcome.requestRejected || outcome.responseRejected {
		d.logger.Warn("tool discovery aborted by hook chain, advertising no tools",
			"reason", outcome.reason)
		d.setResult(nil, nil)
		return nil
	}

	d.setResult(result.Tools, nil)
	d.logger.Info("tool discovery complete", "tools", len(result.Tools))
	return nil
}

func (d *DiscoveryService) setResult(tools []hook.Tool, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tools = tools
	d.err = err
}

// AdvertisedTools returns a copy of the tool set discovered at startup, or
// an empty slice if discovery has not run yet, failed, or was rejected by
// the hook chain.
func (d *DiscoveryService) AdvertisedTools() []hook.Tool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]hook.Tool, len(d.tools))
	copy(out, d.tools)
	return out
}

// LastError returns the error from the most recent failed discovery
// attempt, or nil if the last attempt succeeded (including a hook-chain
// rejection, which is not treated as an error).
func (d *DiscoveryService) LastError() error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.err
}
