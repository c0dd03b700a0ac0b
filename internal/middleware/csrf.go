package middleware

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/stockroom/internal/envelope"
)

// csrfTokenLength is the number of random bytes in a CSRF token (32 bytes = 64 hex chars).
const csrfTokenLength = 32

// CSRFCookieName is the cookie that stores the CSRF token.
const CSRFCookieName = "stockroom_csrf"

// CSRFHeaderName is the header HTMX sends the token in.
const CSRFHeaderName = "X-CSRF-Token"

// csrfFormField is the hidden form field name for plain form posts.
const csrfFormField = "csrf_token"

// csrfContextKey is where the token is kept on the Echo context.
const csrfContextKey = "csrf_token"

// CSRF returns middleware that implements the double-submit cookie pattern
// on all state-changing requests (POST, PUT, PATCH, DELETE):
//
//  1. If no CSRF cookie exists, generate one and set it.
//  2. On mutating requests, compare the cookie with the X-CSRF-Token header
//     or, failing that, the csrf_token form field.
//  3. On mismatch, reject with 403: a failed envelope under /api, an HTTP
//     error elsewhere.
//
// Requests that carry a Bearer header and no session cookie have no ambient
// credentials and skip the check. A session cookie always means the check
// runs, whatever the Authorization header says.
func CSRF(sessionCookie string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()

			if hasBearer(req) && !hasCookie(req, sessionCookie) {
				return next(c)
			}

			cookieToken := ""
			if cookie, err := req.Cookie(CSRFCookieName); err == nil {
				cookieToken = cookie.Value
			}
			if cookieToken == "" {
				token, err := generateCSRFToken()
				if err != nil {
					return echo.NewHTTPError(http.StatusInternalServerError, "failed to generate CSRF token")
				}
				c.SetCookie(&http.Cookie{
					Name:     CSRFCookieName,
					Value:    token,
					Path:     "/",
					HttpOnly: false, // Must be readable by JS for HTMX to send it.
					Secure:   req.TLS != nil || req.Header.Get("X-Forwarded-Proto") == "https",
					SameSite: http.SameSiteLaxMode,
				})
				c.Set(csrfContextKey, token)

				// A fresh token cannot have been submitted yet.
				if !isSafeMethod(req.Method) {
					return csrfFailure(c)
				}
				return next(c)
			}
			c.Set(csrfContextKey, cookieToken)

			if isSafeMethod(req.Method) {
				return next(c)
			}

			submitted := req.Header.Get(CSRFHeaderName)
			if submitted == "" && !isJSON(req) {
				submitted = req.FormValue(csrfFormField)
			}
			if submitted == "" || subtle.ConstantTimeCompare([]byte(submitted), []byte(cookieToken)) != 1 {
				return csrfFailure(c)
			}
			return next(c)
		}
	}
}

func csrfFailure(c echo.Context) error {
	if isAPIPath(c.Request().URL.Path) {
		return envelope.Write(c, http.StatusForbidden, envelope.Fail(http.StatusText(http.StatusForbidden)))
	}
	return echo.NewHTTPError(http.StatusForbidden, "invalid or missing CSRF token")
}

// isSafeMethod returns true for HTTP methods that should not change state.
func isSafeMethod(method string) bool {
	return method == http.MethodGet ||
		method == http.MethodHead ||
		method == http.MethodOptions
}

func hasBearer(req *http.Request) bool {
	return strings.HasPrefix(req.Header.Get(echo.HeaderAuthorization), "Bearer ")
}

func hasCookie(req *http.Request, name string) bool {
	cookie, err := req.Cookie(name)
	return err == nil && cookie.Value != ""
}

// isJSON avoids consuming a JSON body while looking for the form field.
func isJSON(req *http.Request) bool {
	return strings.HasPrefix(req.Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON)
}

func isAPIPath(path string) bool {
	return path == "/api" || strings.HasPrefix(path, "/api/")
}

// generateCSRFToken generates a cryptographically random hex-encoded token.
func generateCSRFToken() (string, error) {
	b := make([]byte, csrfTokenLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// GetCSRFToken retrieves the CSRF token from the Echo context.
func GetCSRFToken(c echo.Context) string {
	if token, ok := c.Get(csrfContextKey).(string); ok {
		return token
	}
	return ""
}
