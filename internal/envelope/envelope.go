// Package envelope defines the single response shape every API outcome is
// normalized into before it leaves the server.
package envelope

import (
	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/stockroom/internal/apperror"
)

// Envelope is the uniform API response body.
//
// Success=false always has a Message and never Data. Success=true may carry
// a Message and carries the handler's raw result in Data.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// OK wraps a handler result.
func OK(data any) Envelope {
	return Envelope{Success: true, Data: data}
}

// Fail builds a failure envelope. An empty message falls back to the
// internal kind's text so the invariant holds.
func Fail(message string) Envelope {
	if message == "" {
		message = apperror.KindInternal.Text()
	}
	return Envelope{Success: false, Message: message}
}

// FromError converts any error into a failure envelope and the status code
// it should be written with.
func FromError(err error) (int, Envelope) {
	return apperror.SafeCode(err), Fail(apperror.SafeMessage(err))
}

// Write sends env as JSON with the given status.
func Write(c echo.Context, status int, env Envelope) error {
	return c.JSON(status, env)
}

// WriteError sends the failure envelope for err.
func WriteError(c echo.Context, err error) error {
	status, env := FromError(err)
	return c.JSON(status, env)
}
