// data.go provides typed context helpers for passing layout data from
// handlers and middleware to page components. Only simple types are stored
// so this package never imports a domain package.
//
// Data flow: Gate/CSRF -> Echo Context -> LayoutInjector -> Go Context -> component
package layouts

import "context"

// ctxKey is a private type for context keys to prevent collisions.
type ctxKey string

const (
	keyIsAuthenticated ctxKey = "layout_is_authenticated"
	keyUserID          ctxKey = "layout_user_id"
	keyUserName        ctxKey = "layout_user_name"
	keyUserEmail       ctxKey = "layout_user_email"
	keyUserImage       ctxKey = "layout_user_image"
	keyCSRFToken       ctxKey = "layout_csrf_token"
	keyActivePath      ctxKey = "layout_active_path"
	keyRequestID       ctxKey = "layout_request_id"
)

// User is the signed-in user as shown in the navigation bar.
type User struct {
	ID    string
	Name  string
	Email string
	Image string
}

// SetUser marks the context as authenticated for u.
func SetUser(ctx context.Context, u User) context.Context {
	ctx = context.WithValue(ctx, keyIsAuthenticated, true)
	ctx = context.WithValue(ctx, keyUserID, u.ID)
	ctx = context.WithValue(ctx, keyUserName, u.Name)
	ctx = context.WithValue(ctx, keyUserEmail, u.Email)
	return context.WithValue(ctx, keyUserImage, u.Image)
}

// IsAuthenticated reports whether a user was set on ctx.
func IsAuthenticated(ctx context.Context) bool {
	v, _ := ctx.Value(keyIsAuthenticated).(bool)
	return v
}

// GetUser returns the user set on ctx, or the zero User.
func GetUser(ctx context.Context) User {
	return User{
		ID:    stringValue(ctx, keyUserID),
		Name:  stringValue(ctx, keyUserName),
		Email: stringValue(ctx, keyUserEmail),
		Image: stringValue(ctx, keyUserImage),
	}
}

// DisplayName is the name shown for the user, falling back to the email.
func (u User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}

// SetCSRFToken stores the CSRF token forms must echo back.
func SetCSRFToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, keyCSRFToken, token)
}

// GetCSRFToken returns the CSRF token, or "".
func GetCSRFToken(ctx context.Context) string {
	return stringValue(ctx, keyCSRFToken)
}

// SetActivePath stores the request path for nav highlighting.
func SetActivePath(ctx context.Context, path string) context.Context {
	return context.WithValue(ctx, keyActivePath, path)
}

// GetActivePath returns the request path, or "".
func GetActivePath(ctx context.Context) string {
	return stringValue(ctx, keyActivePath)
}

// SetRequestID stores the request ID shown on error pages.
func SetRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, keyRequestID, id)
}

// GetRequestID returns the request ID, or "".
func GetRequestID(ctx context.Context) string {
	return stringValue(ctx, keyRequestID)
}

func stringValue(ctx context.Context, key ctxKey) string {
	v, _ := ctx.Value(key).(string)
	return v
}
