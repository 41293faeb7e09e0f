// Package state persists the session record so credentials survive a
// process restart. It provides atomic writes, file locking, an integrity
// checksum, and absence-on-corruption semantics: a damaged record reads as
// "no session", never as a fatal error.
package state

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/stockroom-hq/stockroom-go/internal/domain/session"
)

// recordVersion is the schema version for forward compatibility.
const recordVersion = "1"

// Record is the top-level structure persisted under the storage key.
type Record struct {
	// Version is the schema version. Currently "1".
	Version string `json:"version"`

	// Checksum is the xxhash of the serialized session payload, hex
	// encoded. A mismatch marks the record as corrupt.
	Checksum string `json:"checksum"`

	// Session is the serialized principal.
	Session SessionRecord `json:"session"`
}

// SessionRecord is the wire form of session.Session.
type SessionRecord struct {
	UserID           string          `json:"user_id"`
	DisplayName      string          `json:"display_name"`
	Permissions      []session.Grant `json:"permissions"`
	AccessToken      string          `json:"access_token"`
	AccessExpiresAt  time.Time       `json:"expires_at"`
	RefreshToken     string          `json:"refresh_token"`
	RefreshExpiresAt *time.Time      `json:"refresh_expires_at,omitempty"`
	SavedAt          time.Time       `json:"saved_at"`
}

// newRecord builds a checksummed Record from a session.
func newRecord(s *session.Session) (Record, error) {
	sr := SessionRecord{
		UserID:           s.UserID,
		DisplayName:      s.DisplayName,
		Permissions:      s.Permissions,
		AccessToken:      s.AccessToken,
		AccessExpiresAt:  s.AccessExpiresAt,
		RefreshToken:     s.RefreshToken,
		RefreshExpiresAt: s.RefreshExpiresAt,
		SavedAt:          time.Now().UTC(),
	}
	sum, err := checksum(sr)
	if err != nil {
		return Record{}, err
	}
	return Record{
		Version:  recordVersion,
		Checksum: sum,
		Session:  sr,
	}, nil
}

// toSession converts the stored form back to the domain type. It does not
// validate expiry: an expired access credential is kept so a refresh can
// still be attempted with the refresh credential.
func (r Record) toSession() *session.Session {
	return &session.Session{
		UserID:           r.Session.UserID,
		DisplayName:      r.Session.DisplayName,
		Permissions:      session.NormalizeGrants(r.Session.Permissions),
		AccessToken:      r.Session.AccessToken,
		AccessExpiresAt:  r.Session.AccessExpiresAt,
		RefreshToken:     r.Session.RefreshToken,
		RefreshExpiresAt: r.Session.RefreshExpiresAt,
	}
}

// valid reports whether the record is structurally complete and passes the
// checksum. A session is never partially populated; a record missing its
// identity or tokens counts as corrupt.
func (r Record) valid() bool {
	if r.Session.UserID == "" || r.Session.AccessToken == "" {
		return false
	}
	sum, err := checksum(r.Session)
	if err != nil {
		return false
	}
	return sum == r.Checksum
}

// checksum computes the xxhash of the serialized session record.
func checksum(sr SessionRecord) (string, error) {
	data, err := json.Marshal(sr)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%016x", xxhash.Sum64(data)), nil
}
