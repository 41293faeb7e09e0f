// Package session holds the authenticated principal: the current user, the
// access and refresh credentials, and the permission set flattened from the
// user's roles at login or refresh time.
package session

import (
	"time"
)

// WildcardModule and WildcardAction form the superuser grant: a session
// holding ("*", "*") is allowed every (module, action) pair.
const (
	WildcardModule = "*"
	WildcardAction = "*"
)

// Grant is an allowed (module, action) pair. Grants are sourced from the
// remote authority and never mutated locally.
type Grant struct {
	// Module is the business module, e.g. "Users" or "Products".
	Module string `json:"module"`
	// Action is the operation within the module, e.g. "Read" or "Create".
	Action string `json:"action"`
}

// IsWildcard reports whether this grant is the superuser grant.
func (g Grant) IsWildcard() bool {
	return g.Module == WildcardModule && g.Action == WildcardAction
}

// Session is the authenticated principal. A process holds at most one live
// Session; it is either absent or fully populated, never partial. A Session
// is replaced wholesale on refresh and must be treated as immutable by
// everything outside the session store.
type Session struct {
	// UserID identifies the principal at the remote authority.
	UserID string
	// DisplayName is the human-readable name of the principal.
	DisplayName string
	// Permissions is the set of grants, unique by (module, action).
	Permissions []Grant

	// AccessToken is the short-lived opaque credential attached to API calls.
	AccessToken string
	// AccessExpiresAt is the absolute instant the access token stops working.
	AccessExpiresAt time.Time

	// RefreshToken is the longer-lived opaque credential used only to mint
	// a new access token.
	RefreshToken string
	// RefreshExpiresAt bounds the refresh token's life when the authority
	// reports one. Nil means the authority did not say; the server remains
	// the judge.
	RefreshExpiresAt *time.Time
}

// AccessExpired reports whether the access token is unusable for direct
// calls, treating anything inside the skew window as already expired so a
// request does not race the expiry instant.
func (s *Session) AccessExpired(skew time.Duration) bool {
	return !time.Now().Add(skew).Before(s.AccessExpiresAt)
}

// CanRefresh reports whether a refresh attempt is worth making: the refresh
// token is present and, when the authority reported an expiry, not past it.
func (s *Session) CanRefresh() bool {
	if s.RefreshToken == "" {
		return false
	}
	if s.RefreshExpiresAt != nil && time.Now().After(*s.RefreshExpiresAt) {
		return false
	}
	return true
}

// HasGrant reports whether the permission set contains the exact
// (module, action) pair or the superuser wildcard.
func (s *Session) HasGrant(module, action string) bool {
	for _, g := range s.Permissions {
		if g.IsWildcard() {
			return true
		}
		if g.Module == module && g.Action == action {
			return true
		}
	}
	return false
}

// NormalizeGrants de-duplicates grants by (module, action), preserving
// first-seen order. Login and refresh payloads may repeat pairs when the
// same grant arrives through multiple roles.
func NormalizeGrants(grants []Grant) []Grant {
	if len(grants) == 0 {
		return nil
	}
	seen := make(map[Grant]struct{}, len(grants))
	out := make([]Grant, 0, len(grants))
	for _, g := range grants {
		if _, ok := seen[g]; ok {
			continue
		}
		seen[g] = struct{}{}
		out = append(out, g)
	}
	return out
}

// Clone returns a deep copy so callers can hold a snapshot without aliasing
// the store's copy.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.Permissions = make([]Grant, len(s.Permissions))
	copy(out.Permissions, s.Permissions)
	if s.RefreshExpiresAt != nil {
		exp := *s.RefreshExpiresAt
		out.RefreshExpiresAt = &exp
	}
	return &out
}

// RedactToken shortens an opaque token for logging. Tokens are secrets;
// only a recognizable prefix ever reaches a log line.
func RedactToken(token string) string {
	if len(token) <= 8 {
		return "****"
	}
	return token[:8] + "****"
}
