package session

import (
	"testing"
	"time"
)

func testSession(grants ...Grant) *Session {
	return &Session{
		UserID:          "u-1",
		DisplayName:     "Dana",
		Permissions:     grants,
		AccessToken:     "access-token-abcdef",
		AccessExpiresAt: time.Now().Add(15 * time.Minute),
		RefreshToken:    "refresh-token-abcdef",
	}
}

func TestHasGrantExactPair(t *testing.T) {
	s := testSession(Grant{Module: "Users", Action: "Read"})

	if !s.HasGrant("Users", "Read") {
		t.Error("expected exact pair to be granted")
	}
	if s.HasGrant("Users", "Delete") {
		t.Error("different action should not be granted")
	}
	if s.HasGrant("Products", "Read") {
		t.Error("different module should not be granted")
	}
}

func TestHasGrantWildcard(t *testing.T) {
	s := testSession(Grant{Module: WildcardModule, Action: WildcardAction})

	for _, pair := range [][2]string{
		{"Users", "Read"},
		{"Products", "Delete"},
		{"Reports", "Export"},
	} {
		if !s.HasGrant(pair[0], pair[1]) {
			t.Errorf("wildcard session should grant (%s, %s)", pair[0], pair[1])
		}
	}
}

func TestHasGrantPartialWildcardNotSupported(t *testing.T) {
	// Only the full ("*", "*") grant is special; a module-scoped "*" is an
	// ordinary pair that matches nothing but itself.
	s := testSession(Grant{Module: "Users", Action: WildcardAction})
	if s.HasGrant("Users", "Read") {
		t.Error("module-scoped wildcard should not grant other actions")
	}
	if !s.HasGrant("Users", "*") {
		t.Error("the literal pair itself should still match")
	}
}

func TestAccessExpired(t *testing.T) {
	s := testSession()
	if s.AccessExpired(0) {
		t.Error("fresh token should not be expired")
	}

	s.AccessExpiresAt = time.Now().Add(-time.Second)
	if !s.AccessExpired(0) {
		t.Error("past expiry should read as expired")
	}

	// Inside the skew window counts as expired.
	s.AccessExpiresAt = time.Now().Add(10 * time.Second)
	if !s.AccessExpired(30 * time.Second) {
		t.Error("token inside the skew window should read as expired")
	}
}

func TestCanRefresh(t *testing.T) {
	s := testSession()
	if !s.CanRefresh() {
		t.Error("session with refresh token should be refreshable")
	}

	s.RefreshToken = ""
	if s.CanRefresh() {
		t.Error("missing refresh token should not be refreshable")
	}

	s = testSession()
	past := time.Now().Add(-time.Minute)
	s.RefreshExpiresAt = &past
	if s.CanRefresh() {
		t.Error("expired refresh token should not be refreshable")
	}

	future := time.Now().Add(time.Hour)
	s.RefreshExpiresAt = &future
	if !s.CanRefresh() {
		t.Error("future refresh expiry should be refreshable")
	}
}

func TestNormalizeGrants(t *testing.T) {
	in := []Grant{
		{Module: "Users", Action: "Read"},
		{Module: "Users", Action: "Read"},
		{Module: "Users", Action: "Create"},
		{Module: "Users", Action: "Read"},
	}
	out := NormalizeGrants(in)
	if len(out) != 2 {
		t.Fatalf("expected 2 unique grants, got %d", len(out))
	}
	if out[0] != (Grant{Module: "Users", Action: "Read"}) {
		t.Error("first-seen order should be preserved")
	}

	if NormalizeGrants(nil) != nil {
		t.Error("nil input should stay nil")
	}
}

func TestCloneIsDeep(t *testing.T) {
	exp := time.Now().Add(time.Hour)
	s := testSession(Grant{Module: "Users", Action: "Read"})
	s.RefreshExpiresAt = &exp

	c := s.Clone()
	c.Permissions[0].Action = "Delete"
	*c.RefreshExpiresAt = exp.Add(time.Hour)

	if s.Permissions[0].Action != "Read" {
		t.Error("clone should not share the permissions slice")
	}
	if !s.RefreshExpiresAt.Equal(exp) {
		t.Error("clone should not share the refresh expiry pointer")
	}

	var nilSess *Session
	if nilSess.Clone() != nil {
		t.Error("cloning nil should yield nil")
	}
}

func TestRedactToken(t *testing.T) {
	if got := RedactToken("abcdefghijkl"); got != "abcdefgh****" {
		t.Errorf("unexpected redaction: %q", got)
	}
	if got := RedactToken("short"); got != "****" {
		t.Errorf("short tokens should redact fully, got %q", got)
	}
}
