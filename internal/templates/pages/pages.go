// Package pages holds the shared pages that are not owned by a domain
// package: landing, sign-in, settings and the error page.
package pages

import (
	"net/http"
	"net/url"
)

// signInErrors maps sign-in error codes to what the page tells the user.
var signInErrors = map[string]string{
	"OAuthState":      "The sign-in attempt expired or was tampered with. Please try again.",
	"OAuthCallback":   "The provider could not confirm your identity. Please try again.",
	"SessionRequired": "Please sign in to access this page.",
}

// SignInMessage returns the text shown for a sign-in error code. Unknown
// codes get a generic message; an empty code gets none.
func SignInMessage(code string) string {
	if code == "" {
		return ""
	}
	if msg, ok := signInErrors[code]; ok {
		return msg
	}
	return "Unable to sign in."
}

// SignInData is what the sign-in page shows.
type SignInData struct {
	// CallbackURL is passed on to the provider handshake.
	CallbackURL string

	// Error is a sign-in error code from the query string.
	Error string

	// OAuthEnabled hides the provider button when no provider is configured.
	OAuthEnabled bool
}

// providerURL starts the OAuth handshake, carrying the callback along.
func (d SignInData) providerURL() string {
	href := "/api/auth/signin"
	if d.CallbackURL != "" {
		href += "?" + url.Values{"callbackUrl": {d.CallbackURL}}.Encode()
	}
	return href
}

func statusTitle(status int) string {
	if title := http.StatusText(status); title != "" {
		return title
	}
	return "Error"
}
