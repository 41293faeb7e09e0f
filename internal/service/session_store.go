// Package service wires the live session store over a persistence backend.
package service

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/stockroom-hq/stockroom-go/internal/domain/session"
)

// SessionStore holds the single live session for the process. It is the
// only writer path for session state: login, refresh, and logout all go
// through Set/Clear, and everything else reads through Current. Writes are
// persisted through the backing store so the session survives a restart.
//
// Listeners are notified synchronously on every Set and Clear, before the
// call returns. Notification order across listeners is unspecified.
type SessionStore struct {
	mu        sync.RWMutex
	current   *session.Session
	listeners map[uint64]func(*session.Session)
	nextID    uint64

	persistence session.Persistence
	logger      *slog.Logger
}

// NewSessionStore creates a store hydrated from the persistence backend.
// A missing or corrupt record hydrates as unauthenticated. An expired
// access credential is kept: it is unusable for direct calls, but its
// refresh credential may still mint a new one.
func NewSessionStore(p session.Persistence, logger *slog.Logger) *SessionStore {
	if logger == nil {
		logger = slog.Default()
	}
	s := &SessionStore{
		listeners:   make(map[uint64]func(*session.Session)),
		persistence: p,
		logger:      logger,
	}

	if p != nil {
		sess, err := p.Load()
		switch {
		case err == nil:
			s.current = sess
			logger.Debug("session hydrated",
				"user_id", sess.UserID,
				"access_expired", sess.AccessExpired(0))
		case errors.Is(err, session.ErrNoSession):
			// Not authenticated; nothing to hydrate.
		default:
			logger.Warn("failed to hydrate session, starting unauthenticated", "error", err)
		}
	}
	return s
}

// Current returns a snapshot of the live session, or nil when
// unauthenticated.
func (s *SessionStore) Current() *session.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Clone()
}

// Set replaces the session wholesale, persists it, and notifies listeners
// before returning. Listeners observe either the old or the new session,
// never a partially updated one.
func (s *SessionStore) Set(sess *session.Session) {
	if sess == nil {
		s.Clear()
		return
	}
	stored := sess.Clone()
	stored.Permissions = session.NormalizeGrants(stored.Permissions)

	s.mu.Lock()
	s.current = stored
	s.mu.Unlock()

	if s.persistence != nil {
		if err := s.persistence.Save(stored); err != nil {
			// The in-memory session stands; only durability is degraded.
			s.logger.Warn("failed to persist session", "error", err)
		}
	}

	s.notify(stored)
}

// Clear drops the in-memory session, removes the persisted record, and
// notifies listeners with nil before returning.
func (s *SessionStore) Clear() {
	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()

	if s.persistence != nil {
		if err := s.persistence.Clear(); err != nil {
			s.logger.Warn("failed to clear persisted session", "error", err)
		}
	}

	s.notify(nil)
}

// Subscribe registers a listener for session changes. The listener receives
// the new session on Set and nil on Clear. The returned function removes
// the subscription and is safe to call more than once.
func (s *SessionStore) Subscribe(listener func(*session.Session)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = listener
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

// notify delivers the new state to every currently subscribed listener.
// Listeners run synchronously so delivery completes before Set/Clear
// returns; each listener gets its own snapshot.
func (s *SessionStore) notify(sess *session.Session) {
	s.mu.RLock()
	snapshot := make([]func(*session.Session), 0, len(s.listeners))
	for _, l := range s.listeners {
		snapshot = append(snapshot, l)
	}
	s.mu.RUnlock()

	for _, l := range snapshot {
		l(sess.Clone())
	}
}
