package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// CORSConfig holds configuration for the CORS middleware.
type CORSConfig struct {
	// AllowedOrigins may make cross-origin requests. ["*"] allows all but
	// disables credentials.
	AllowedOrigins []string

	// AllowCredentials lets browsers send the session cookie cross-origin.
	AllowCredentials bool
}

var (
	corsAllowMethods = strings.Join([]string{
		http.MethodGet,
		http.MethodPost,
		http.MethodOptions,
	}, ", ")

	corsAllowHeaders = strings.Join([]string{
		echo.HeaderContentType,
		echo.HeaderAuthorization,
		echo.HeaderXRequestID,
		CSRFHeaderName,
		"HX-Request",
		"HX-Current-URL",
		"HX-Target",
		"HX-Trigger",
	}, ", ")

	corsExposeHeaders = strings.Join([]string{
		echo.HeaderXRequestID,
		"HX-Redirect",
		"HX-Refresh",
		"HX-Trigger",
	}, ", ")
)

// CORS returns middleware that answers cross-origin requests from allowed
// origins. The web UI is same-origin; this exists for external API clients.
// Requests from other origins pass through without CORS headers and the
// browser blocks the response.
func CORS(cfg CORSConfig) echo.MiddlewareFunc {
	allowAll := false
	originSet := make(map[string]bool)
	for _, o := range cfg.AllowedOrigins {
		if o == "*" {
			allowAll = true
		}
		originSet[o] = true
	}

	// SECURITY: a wildcard origin with credentials would let any site make
	// authenticated calls.
	if allowAll && cfg.AllowCredentials {
		slog.Warn("CORS misconfiguration: wildcard origin with credentials; credentials disabled")
		cfg.AllowCredentials = false
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			res := c.Response()
			origin := req.Header.Get(echo.HeaderOrigin)

			if origin == "" || !(allowAll || originSet[origin]) {
				return next(c)
			}

			res.Header().Set(echo.HeaderAccessControlAllowOrigin, origin)
			res.Header().Add(echo.HeaderVary, echo.HeaderOrigin)
			if cfg.AllowCredentials {
				res.Header().Set(echo.HeaderAccessControlAllowCredentials, "true")
			}

			if req.Method == http.MethodOptions {
				res.Header().Set(echo.HeaderAccessControlAllowMethods, corsAllowMethods)
				res.Header().Set(echo.HeaderAccessControlAllowHeaders, corsAllowHeaders)
				res.Header().Set(echo.HeaderAccessControlMaxAge, "3600")
				return c.NoContent(http.StatusNoContent)
			}

			res.Header().Set(echo.HeaderAccessControlExposeHeaders, corsExposeHeaders)
			return next(c)
		}
	}
}
