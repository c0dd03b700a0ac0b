package auth

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/go-querystring/query"
	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/stockroom/internal/access"
	"github.com/keyxmakerx/stockroom/internal/apperror"
	"github.com/keyxmakerx/stockroom/internal/envelope"
)

// SignInPath is the sign-in entry point unauthenticated browsers are sent to.
const SignInPath = "/signin"

// DefaultCallback is where a successful sign-in lands without a callback.
const DefaultCallback = "/dashboard"

// signInQuery is the query string of the sign-in redirect.
type signInQuery struct {
	CallbackURL string `url:"callbackUrl,omitempty"`
	Error       string `url:"error,omitempty"`
}

// SignInURL returns the sign-in page URL that brings the user back to
// callback afterwards.
func SignInURL(callback string) string {
	return signInURL(signInQuery{CallbackURL: callback})
}

func signInURL(q signInQuery) string {
	v, err := query.Values(q)
	if err != nil || len(v) == 0 {
		return SignInPath
	}
	return SignInPath + "?" + v.Encode()
}

// Gate returns middleware that enforces the route table. Paths classified as
// RequiresSession proceed only with a valid, unexpired session, which is then
// attached to the request. Anything else is redirected to sign-in (pages) or
// rejected with an Unauthorized envelope (API). Public paths pass through
// untouched.
func Gate(v Verifier, table *access.Table) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if table.Classify(req.URL.Path) != access.RequiresSession {
				return next(c)
			}

			session, err := v.Session(req.Context(), req)
			if err != nil {
				// A failed lookup is treated the same as no session.
				slog.Warn("session lookup failed",
					slog.String("path", req.URL.Path),
					slog.Any("error", err),
				)
				session = nil
			}
			if !session.Valid(time.Now()) {
				return handleUnauthenticated(c)
			}

			attach(c, session)
			return next(c)
		}
	}
}

// handleUnauthenticated returns the appropriate response for unauthenticated
// requests: an envelope for API clients, a redirect for browsers.
func handleUnauthenticated(c echo.Context) error {
	if IsAPIRequest(c) {
		return envelope.WriteError(c, apperror.NewUnauthorized())
	}

	target := SignInURL(c.Request().URL.RequestURI())

	// HTMX requests get a redirect header so the full page navigates.
	if isHTMXRequest(c) {
		c.Response().Header().Set("HX-Redirect", target)
		return c.NoContent(http.StatusNoContent)
	}
	return c.Redirect(http.StatusSeeOther, target)
}

// IsAPIRequest returns true if the request targets the /api tree.
func IsAPIRequest(c echo.Context) bool {
	path := c.Request().URL.Path
	return path == "/api" || strings.HasPrefix(path, "/api/")
}

// isHTMXRequest returns true if the request was made by HTMX.
func isHTMXRequest(c echo.Context) bool {
	return c.Request().Header.Get("HX-Request") == "true"
}
