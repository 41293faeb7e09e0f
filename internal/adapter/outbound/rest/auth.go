package rest

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/stockroom-hq/stockroom-go/internal/domain/failure"
	"github.com/stockroom-hq/stockroom-go/internal/domain/session"
)

// loginRequest is the credential payload for the login endpoint.
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// refreshRequest carries the refresh credential to the refresh endpoint.
type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// authPayload is what the login and refresh endpoints return: a fresh
// credential pair plus the principal with permissions already flattened
// from roles by the remote authority.
type authPayload struct {
	AccessToken      string      `json:"access_token"`
	RefreshToken     string      `json:"refresh_token"`
	ExpiresIn        int64       `json:"expires_in"`
	RefreshExpiresIn int64       `json:"refresh_expires_in,omitempty"`
	User             userPayload `json:"user"`
}

type userPayload struct {
	ID          string          `json:"id"`
	DisplayName string          `json:"display_name"`
	Permissions []session.Grant `json:"permissions"`
}

// toSession converts the payload into a fully populated Session. A payload
// missing its credentials or principal is rejected; a Session is never
// partially populated.
func (p authPayload) toSession() (*session.Session, error) {
	if p.AccessToken == "" || p.User.ID == "" {
		return nil, failure.Classify(fmt.Errorf("auth payload incomplete"))
	}

	now := time.Now()
	sess := &session.Session{
		UserID:          p.User.ID,
		DisplayName:     p.User.DisplayName,
		Permissions:     session.NormalizeGrants(p.User.Permissions),
		AccessToken:     p.AccessToken,
		AccessExpiresAt: now.Add(time.Duration(p.ExpiresIn) * time.Second),
		RefreshToken:    p.RefreshToken,
	}
	if p.RefreshExpiresIn > 0 {
		exp := now.Add(time.Duration(p.RefreshExpiresIn) * time.Second)
		sess.RefreshExpiresAt = &exp
	}
	return sess, nil
}

// Login authenticates against the remote authority and installs the
// resulting session atomically. The returned snapshot is the caller's.
func (c *Client) Login(ctx context.Context, username, password string) (*session.Session, error) {
	var payload authPayload
	err := c.send(ctx, http.MethodPost, loginPath,
		loginRequest{Username: username, Password: password}, &payload, "", nil)
	if err != nil {
		return nil, failure.Classify(err)
	}

	sess, err := payload.toSession()
	if err != nil {
		return nil, failure.Classify(err)
	}

	c.sessions.Set(sess)
	c.logger.Info("logged in",
		"user_id", sess.UserID,
		"grants", len(sess.Permissions),
		"access_token", session.RedactToken(sess.AccessToken))
	return sess.Clone(), nil
}

// Logout revokes the session server-side best-effort and always clears the
// local session. A failed revoke call is returned for diagnostics but the
// local state is gone regardless.
func (c *Client) Logout(ctx context.Context) error {
	sess := c.sessions.Current()
	c.sessions.Clear()

	if sess == nil {
		return nil
	}

	err := c.send(ctx, http.MethodPost, logoutPath,
		refreshRequest{RefreshToken: sess.RefreshToken}, nil, sess.AccessToken, nil)
	if err != nil {
		c.logger.Warn("server-side logout failed, local session cleared anyway",
			"error", err)
		return failure.Classify(err)
	}
	c.logger.Info("logged out", "user_id", sess.UserID)
	return nil
}
