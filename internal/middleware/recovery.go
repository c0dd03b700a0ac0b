package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/stockroom/internal/apperror"
	"github.com/keyxmakerx/stockroom/internal/envelope"
)

// Recovery returns middleware that recovers from panics outside the API
// wrapper (page handlers, other middleware), logs the stack trace, and
// answers with an Internal failure: an envelope under /api, a plain 500
// elsewhere.
func Recovery() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (returnErr error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				slog.Error("panic recovered",
					slog.Any("panic", r),
					slog.String("stack", string(debug.Stack())),
					slog.String("method", c.Request().Method),
					slog.String("path", c.Request().URL.Path),
					slog.String("request_id", RequestIDFrom(c)),
				)

				if c.Response().Committed {
					returnErr = nil
					return
				}
				if isAPIPath(c.Request().URL.Path) {
					returnErr = envelope.WriteError(c, apperror.NewInternal(fmt.Errorf("panic: %v", r)))
					return
				}
				returnErr = c.String(http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
			}()

			return next(c)
		}
	}
}
