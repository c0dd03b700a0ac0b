package middleware

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// maxRequestIDLength bounds client-supplied IDs echoed into logs.
const maxRequestIDLength = 128

const requestIDContextKey = "request_id"

// RequestID assigns every request an ID, reusing a sane X-Request-ID from the
// client or proxy, and echoes it on the response.
func RequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := c.Request().Header.Get(echo.HeaderXRequestID)
			if !validRequestID(id) {
				id = uuid.NewString()
			}
			c.Set(requestIDContextKey, id)
			c.Response().Header().Set(echo.HeaderXRequestID, id)
			return next(c)
		}
	}
}

// RequestIDFrom returns the ID assigned by RequestID, or "".
func RequestIDFrom(c echo.Context) string {
	if id, ok := c.Get(requestIDContextKey).(string); ok {
		return id
	}
	return ""
}

func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		b := id[i]
		if b < 0x21 || b > 0x7e {
			return false
		}
	}
	return true
}
