package auth

import (
	"context"

	"github.com/labstack/echo/v4"
)

type sessionKey struct{}

// Keys for the Echo context.
const (
	contextKeySession = "auth_session"
	contextKeyUserID  = "auth_user_id"
)

// WithSession returns a copy of ctx carrying s.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// SessionFrom returns the session stored in ctx, or nil.
func SessionFrom(ctx context.Context) *Session {
	s, _ := ctx.Value(sessionKey{}).(*Session)
	return s
}

// attach stores s on both the Echo context and the request context.
func attach(c echo.Context, s *Session) {
	req := c.Request()
	c.SetRequest(req.WithContext(WithSession(req.Context(), s)))
	c.Set(contextKeySession, s)
	c.Set(contextKeyUserID, s.UserID)
}

// GetSession retrieves the authenticated session from the Echo context.
// Returns nil if the request did not pass through the gate.
func GetSession(c echo.Context) *Session {
	session, ok := c.Get(contextKeySession).(*Session)
	if !ok {
		return nil
	}
	return session
}

// GetUserID retrieves the authenticated user's ID from the Echo context.
func GetUserID(c echo.Context) string {
	id, ok := c.Get(contextKeyUserID).(string)
	if !ok {
		return ""
	}
	return id
}
