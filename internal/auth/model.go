// Package auth resolves who is making a request. It issues and verifies
// sessions (Redis backed or signed JWTs), gates protected routes, and runs
// the OAuth sign-in handshake.
//
// The gate only decides what happens when a protected path has no session;
// which paths are protected comes from the access package.
package auth

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// Session is the identity attached to a request after authentication. It is
// created on sign-in and never mutated afterwards.
type Session struct {
	UserID  string    `json:"user_id"`
	Name    string    `json:"name"`
	Email   string    `json:"email"`
	Image   string    `json:"image,omitempty"`
	Expires time.Time `json:"expires"`
}

// Valid reports whether the session carries an identity and has not expired.
func (s *Session) Valid(now time.Time) bool {
	return s != nil && s.UserID != "" && now.Before(s.Expires)
}

// Identity is what the OAuth provider tells us about the user.
type Identity struct {
	ID    string
	Name  string
	Email string
	Image string
}

// Verifier resolves the session carried by a request. It returns (nil, nil)
// when the request has no session or the session is invalid or expired;
// an error means the lookup itself failed.
type Verifier interface {
	Session(ctx context.Context, r *http.Request) (*Session, error)
}

// VerifierFunc adapts a function to the Verifier interface.
type VerifierFunc func(ctx context.Context, r *http.Request) (*Session, error)

// Session calls f.
func (f VerifierFunc) Session(ctx context.Context, r *http.Request) (*Session, error) {
	return f(ctx, r)
}

// Store issues and revokes sessions in addition to verifying them.
type Store interface {
	Verifier

	// Issue creates a session for id and returns the token to hand to the
	// client.
	Issue(ctx context.Context, id Identity) (token string, s *Session, err error)

	// Revoke invalidates token. Revoking an unknown token is not an error.
	Revoke(ctx context.Context, token string) error

	// TTL is how long issued sessions live.
	TTL() time.Duration
}

// TokenFrom reads the session token from the named cookie, falling back to
// an "Authorization: Bearer" header for non-browser clients.
func TokenFrom(r *http.Request, cookieName string) string {
	if c, err := r.Cookie(cookieName); err == nil && c.Value != "" {
		return c.Value
	}
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	return ""
}
