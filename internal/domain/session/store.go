package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/mcphook/proxy/internal/port/outbound"
)

// ErrNotFound is returned when an operation targets a session id that does
// not exist in the store.
var ErrNotFound = errors.New("session: not found")

// ClientFactory creates a fresh target client for a new or recreated
// session. The store calls it at most once per session creation, and again
// whenever RecreateClient is invoked for exception recovery.
type ClientFactory func(ctx context.Context) (outbound.TargetClient, error)

// Store is the in-memory session store (§4.4). Creation of distinct ids
// may proceed concurrently; creation of the same id is serialized so at
// most one target client is ever created per id. Reads of the session map
// itself take only the shared read lock of a RWMutex; only the create path
// takes a per-id lock.
type Store struct {
	factory ClientFactory
	logger  *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session

	creationMu    sync.Mutex
	creationLocks map[string]*sync.Mutex
}

// NewStore builds a Store whose sessions are created via factory.
func NewStore(factory ClientFactory, logger *slog.Logger) *Store {
	return &Store{
		factory:       factory,
		logger:        logger,
		sessions:      make(map[string]*Session),
		creationLocks: make(map[string]*sync.Mutex),
	}
}

// GenerateID returns a fresh, process-lifetime-unique opaque session id.
func GenerateID() string {
	return uuid.New().String()
}

func (s *Store) lockFor(id string) *sync.Mutex {
	s.creationMu.Lock()
	defer s.creationMu.Unlock()
	l, ok := s.creationLocks[id]
	if !ok {
		l = &sync.Mutex{}
		s.creationLocks[id] = l
	}
	return l
}

func (s *Store) lookup(id string) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

// GetOrCreate returns the existing session for id, or creates one via the
// store's ClientFactory. Concurrent callers for distinct ids never block
// each other; concurrent callers for the same id see at most one target
// client created, with the rest observing the winner's session.
func (s *Store) GetOrCreate(ctx context.Context, id string) (*Session, error) {
	if sess, ok := s.lookup(id); ok {
		return sess, nil
	}

	lock := s.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	if sess, ok := s.lookup(id); ok {
		return sess, nil
	}

	client, err := s.factory(ctx)
	if err != nil {
		return nil, fmt.Errorf("create target client for session %q: %w", id, err)
	}

	sess := newSession(id, client)
	s.mu.Lock()
	s.sessions[id] = sess
	s.mu.Unlock()
	return sess, nil
}

// ForRequest is GetOrCreate plus an atomic increment of the session's
// request count, used for every inbound tools/call reaching the
// dispatcher.
func (s *Store) ForRequest(ctx context.Context, id string) (*Session, error) {
	sess, err := s.GetOrCreate(ctx, id)
	if err != nil {
		return nil, err
	}
	sess.incrementRequestCount()
	return sess, nil
}

// RecreateClient atomically closes id's current target client and installs
// a fresh one built from the store's ClientFactory, returning the new
// handle. Used by a processToolException hook recovering from a broken
// connection (§4.8). The old client's Close error is logged, never
// propagated — a caller in the middle of reading from the old handle is
// unaffected by the swap.
func (s *Store) RecreateClient(ctx context.Context, id string) (outbound.TargetClient, error) {
	sess, ok := s.lookup(id)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
	}

	newClient, err := s.factory(ctx)
	if err != nil {
		return nil, fmt.Errorf("recreate target client for session %q: %w", id, err)
	}

	old := sess.swapClient(newClient)
	if old != nil {
		if err := old.Close(); err != nil && s.logger != nil {
			s.logger.Error("error closing replaced target client", "session", id, "error", err)
		}
	}
	return newClient, nil
}

// Clear tears down and removes the session for id, closing its target
// client. It is a no-op if id is not present. Close errors are logged, not
// returned.
func (s *Store) Clear(id string) {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if !ok {
		return
	}
	if err := sess.Client().Close(); err != nil && s.logger != nil {
		s.logger.Error("error closing target client", "session", id, "error", err)
	}
}

// ClearAll tears down and removes every session, closing their target
// clients in parallel.
func (s *Store) ClearAll() {
	s.mu.Lock()
	sessions := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.sessions = make(map[string]*Session)
	s.mu.Unlock()

	var wg sync.WaitGroup
	for _, sess := range sessions {
		wg.Add(1)
		go func(sess *Session) {
			defer wg.Done()
			if err := sess.Client().Close(); err != nil && s.logger != nil {
				s.logger.Error("error closing target client", "session", sess.ID(), "error", err)
			}
		}(sess)
	}
	wg.Wait()
}

// Count returns the number of live sessions. Observational only.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
