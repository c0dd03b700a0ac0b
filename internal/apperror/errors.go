// Package apperror provides the closed set of error kinds used across
// Stockroom. Every failure that crosses the API boundary is expressed as one
// of these kinds. Each kind carries a canonical client-facing text and the
// HTTP status it maps to.
//
// NEVER return raw database or infrastructure errors to the client. Always
// wrap them in an apperror type or return a generic internal error.
//
// Adding a new failure mode means adding one Kind here, not inventing ad hoc
// strings at the call site.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is a symbolic error category.
type Kind int

const (
	// KindInternal is an unrecognized failure. It is distinct from every
	// domain kind and always renders a generic message.
	KindInternal Kind = iota
	KindBadRequestBody
	KindInvalidProperties
	KindMissingRequiredProperties
	KindTypeMismatches
	KindInvalidIDFormat
	KindMethodNotAllowed
	KindNotFound
	KindUnauthorized
	KindNoResultsFound
)

// Kinds lists every kind in canonical order. Field error rendering follows
// this order.
var Kinds = []Kind{
	KindBadRequestBody,
	KindInvalidProperties,
	KindMissingRequiredProperties,
	KindTypeMismatches,
	KindInvalidIDFormat,
	KindMethodNotAllowed,
	KindNotFound,
	KindUnauthorized,
	KindNoResultsFound,
	KindInternal,
}

type kindInfo struct {
	name   string
	text   string
	status int
}

var kindTable = map[Kind]kindInfo{
	KindBadRequestBody:            {"BadRequestBody", "Bad Request Body", http.StatusBadRequest},
	KindInvalidProperties:         {"InvalidProperties", "InvalidProperties", http.StatusBadRequest},
	KindMissingRequiredProperties: {"MissingRequiredProperties", "MissingRequiredProperties", http.StatusBadRequest},
	KindTypeMismatches:            {"TypeMismatches", "TypeMismatches", http.StatusBadRequest},
	KindInvalidIDFormat:           {"InvalidIdFormat", "Invalid ID Format", http.StatusBadRequest},
	KindMethodNotAllowed:          {"MethodNotAllowed", "Method Not Allowed", http.StatusMethodNotAllowed},
	KindNotFound:                  {"NotFound", "Not Found", http.StatusNotFound},
	KindUnauthorized:              {"Unauthorized", "Unauthorized", http.StatusUnauthorized},
	KindNoResultsFound:            {"NoResultsFound", "No Results Found", http.StatusNotFound},
	KindInternal:                  {"Internal", "Internal Server Error", http.StatusInternalServerError},
}

// String returns the symbolic name of the kind (e.g. "InvalidIdFormat").
func (k Kind) String() string {
	if info, ok := kindTable[k]; ok {
		return info.name
	}
	return kindTable[KindInternal].name
}

// Text returns the canonical client-facing text for the kind.
func (k Kind) Text() string {
	if info, ok := kindTable[k]; ok {
		return info.text
	}
	return kindTable[KindInternal].text
}

// Status returns the HTTP status code the kind maps to.
func (k Kind) Status() int {
	if info, ok := kindTable[k]; ok {
		return info.status
	}
	return http.StatusInternalServerError
}

// AppError is the base error type for all domain errors. It carries the
// kind, its HTTP status code, and a human-readable message safe to show to
// the client.
type AppError struct {
	// Kind is the taxonomy entry this error belongs to.
	Kind Kind `json:"-"`

	// Code is the HTTP status code (e.g., 404, 400, 500).
	Code int `json:"-"`

	// Message is a human-readable description safe for the client.
	Message string `json:"message"`

	// Internal holds the underlying error for logging. Never exposed to client.
	Internal error `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("%s: %s (internal: %v)", e.Kind, e.Message, e.Internal)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *AppError) Unwrap() error {
	return e.Internal
}

// New creates an AppError of the given kind. The message is the kind's
// canonical text, followed by ": detail" when detail is non-empty.
func New(kind Kind, detail string) *AppError {
	msg := kind.Text()
	if detail != "" {
		msg = msg + ": " + detail
	}
	return &AppError{
		Kind:    kind,
		Code:    kind.Status(),
		Message: msg,
	}
}

// --- Constructors for common error types ---

// NewBadRequestBody creates a 400 error for an unreadable or invalid body.
func NewBadRequestBody(detail string) *AppError {
	return New(KindBadRequestBody, detail)
}

// NewInvalidProperties creates a 400 error for values that fail constraints.
func NewInvalidProperties(detail string) *AppError {
	return New(KindInvalidProperties, detail)
}

// NewInvalidIDFormat creates a 400 error for malformed identifiers.
func NewInvalidIDFormat(id string) *AppError {
	return New(KindInvalidIDFormat, id)
}

// NewMethodNotAllowed creates a 405 error.
func NewMethodNotAllowed() *AppError {
	return New(KindMethodNotAllowed, "")
}

// NewNotFound creates a 404 Not Found error.
func NewNotFound(detail string) *AppError {
	return New(KindNotFound, detail)
}

// NewNoResultsFound creates a 404 error for empty list results.
func NewNoResultsFound(detail string) *AppError {
	return New(KindNoResultsFound, detail)
}

// NewUnauthorized creates a 401 Unauthorized error. The message is always
// the bare kind text so clients never learn why a session was rejected.
func NewUnauthorized() *AppError {
	return New(KindUnauthorized, "")
}

// NewInternal creates a 500 Internal Server Error. The real error is stored
// in Internal for logging but the client only sees a generic message.
func NewInternal(err error) *AppError {
	return &AppError{
		Kind:     KindInternal,
		Code:     http.StatusInternalServerError,
		Message:  KindInternal.Text(),
		Internal: err,
	}
}

// KindOf returns the kind of err. Errors that are not (and do not wrap) an
// *AppError are KindInternal.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// SafeMessage returns the client-safe error message from an error. If the
// error is an AppError, returns its Message field (which is safe to expose).
// For any other error type, returns the generic internal text to prevent
// leaking internal details like collection names or stack traces.
func SafeMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return KindInternal.Text()
}

// SafeCode returns the HTTP status code from an AppError, or 500 for
// any other error type.
func SafeCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return http.StatusInternalServerError
}
