// Package middleware provides the HTTP middleware applied to every Stockroom
// request. See internal/app/app.go for the order they are registered in.
package middleware

import (
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/stockroom/internal/auth"
)

// RequestLogger returns middleware that logs every HTTP request with
// structured fields: method, path, status, latency, remote IP, request ID
// and, once the gate has run, the user ID.
func RequestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				// Let the error handler write the response so the logged
				// status is the one the client sees.
				c.Error(err)
			}

			req := c.Request()
			res := c.Response()

			attrs := []slog.Attr{
				slog.String("method", req.Method),
				slog.String("path", req.URL.Path),
				slog.Int("status", res.Status),
				slog.Duration("latency", time.Since(start)),
				slog.String("remote_ip", c.RealIP()),
				slog.String("request_id", RequestIDFrom(c)),
			}
			if req.URL.RawQuery != "" {
				attrs = append(attrs, slog.String("query", req.URL.RawQuery))
			}
			if userID := auth.GetUserID(c); userID != "" {
				attrs = append(attrs, slog.String("user_id", userID))
			}

			level := slog.LevelInfo
			if res.Status >= 500 {
				level = slog.LevelError
			} else if res.Status >= 400 {
				level = slog.LevelWarn
			}

			slog.LogAttrs(req.Context(), level, "request", attrs...)
			return nil
		}
	}
}
