package session

import (
	"errors"
)

// ErrNoSession is returned by persistence backends when no usable session
// record exists: never stored, already cleared, or corrupt on disk.
// Corruption is deliberately indistinguishable from absence; a damaged
// record means "not authenticated", not a fatal error.
var ErrNoSession = errors.New("no stored session")

// Store is the live single-session store. Implementations hold at most one
// session, swap it atomically, and notify every subscribed listener
// synchronously before Set/Clear returns.
// This interface is defined in the domain to avoid circular imports.
// Implementation: service.SessionStore.
type Store interface {
	// Current returns a snapshot of the live session, or nil when
	// unauthenticated. The snapshot is the caller's to keep; it never
	// aliases the store's copy.
	Current() *Session

	// Set replaces the session wholesale. Listeners observe either the
	// old or the new session, never an intermediate state.
	Set(s *Session)

	// Clear drops the session and its persisted record.
	Clear()

	// Subscribe registers a listener called on every Set and Clear with
	// the new state (nil on Clear). The returned function unsubscribes
	// and is safe to call more than once.
	Subscribe(listener func(*Session)) (unsubscribe func())
}

// Persistence is the durable backing for the single session record.
// Implementations: state.FileStore (default), state.SQLiteStore.
type Persistence interface {
	// Load reads the stored session. Returns ErrNoSession when absent or
	// corrupt. An expired access credential is still returned; the
	// refresh credential may yet mint a new one.
	Load() (*Session, error)

	// Save writes the session, replacing any previous record.
	Save(s *Session) error

	// Clear removes the stored record. Clearing an empty store is not an
	// error.
	Clear() error
}
