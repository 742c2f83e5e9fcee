// Package session implements the session store (§4.4): lazily-created,
// explicitly torn down, keyed by an opaque id, each owning exactly one
// long-lived target client and a monotonic count of tool calls routed
// through it.
package session

import (
	"sync"
	"sync/atomic"

	"github.com/mcphook/proxy/internal/port/outbound"
)

// DefaultSessionID is the sentinel id used when an inbound transport
// cannot resolve a session id of its own (stdio mode, or an HTTP request
// with no mcp-session-id header).
const DefaultSessionID = "default"

// Session owns one target client and counts the tool calls routed through
// it. RequestCount increments exactly once per inbound tools/call that
// reaches the dispatcher — never for tools/list (§9 open question,
// resolved to match the source: "keep that").
type Session struct {
	id string

	mu     sync.RWMutex
	client outbound.TargetClient

	requestCount int64
}

func newSession(id string, client outbound.TargetClient) *Session {
	return &Session{id: id, client: client}
}

// ID returns the session's id.
func (s *Session) ID() string { return s.id }

// Client returns the session's current target client handle. The handle
// may be replaced concurrently by swapClient (e.g. during exception
// recovery); callers must not cache it beyond the current operation.
func (s *Session) Client() outbound.TargetClient {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.client
}

// RequestCount returns the number of tool calls routed through this
// session so far.
func (s *Session) RequestCount() int64 {
	return atomic.LoadInt64(&s.requestCount)
}

func (s *Session) incrementRequestCount() int64 {
	return atomic.AddInt64(&s.requestCount, 1)
}

// swapClient installs newClient as the session's current target client and
// returns the previous one (nil only if the session somehow had none).
func (s *Session) swapClient(newClient outbound.TargetClient) outbound.TargetClient {
	s.mu.Lock()
	defer s.mu.Unlock()
	old := s.client
	s.client = newClient
	return old
}
