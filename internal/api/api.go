// Package api wraps typed handlers so every API call follows the same steps:
// session check, input validation, a single handler invocation, and
// normalization of the outcome into an envelope.
//
// No raw error leaves a wrapped handler. Domain errors keep their kind and
// status; anything else, panics included, becomes an internal failure whose
// cause is logged but never returned.
package api

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/stockroom/internal/access"
	"github.com/keyxmakerx/stockroom/internal/apperror"
	"github.com/keyxmakerx/stockroom/internal/auth"
	"github.com/keyxmakerx/stockroom/internal/envelope"
	"github.com/keyxmakerx/stockroom/internal/validate"
)

// DefaultMaxBody caps request bodies read by the wrapper.
const DefaultMaxBody = 1 << 20

// Source says where a handler's input comes from.
type Source int

const (
	// None means the handler takes no input; In is left at its zero value.
	None Source = iota
	// Body validates the JSON request body.
	Body
	// Query validates the URL query string.
	Query
)

// Request is the per-call context handed to a handler. It is built once by
// the wrapper and never modified.
type Request struct {
	// Session is the caller's session. It is always set on protected routes
	// and may be nil on public ones.
	Session *auth.Session

	Path      string
	RequestID string

	// Params are the route's path parameters.
	Params map[string]string
}

// Param returns the named path parameter.
func (r Request) Param(name string) string {
	return r.Params[name]
}

// HandlerFunc is a typed API handler. It runs only after the session check
// and validation succeed.
type HandlerFunc[In, Out any] func(ctx context.Context, in In, rc Request) (Out, error)

// Wrapper holds what every wrapped handler shares.
type Wrapper struct {
	verifier auth.Verifier
	table    *access.Table
	maxBody  int64
	now      func() time.Time
}

// NewWrapper creates a wrapper that checks sessions with v against table.
func NewWrapper(v auth.Verifier, table *access.Table) *Wrapper {
	return &Wrapper{verifier: v, table: table, maxBody: DefaultMaxBody, now: time.Now}
}

type options struct {
	status int
}

// Option customizes a single wrapped handler.
type Option func(*options)

// WithStatus sets the status written on success, e.g. 201 for creates.
func WithStatus(code int) Option {
	return func(o *options) { o.status = code }
}

// Handle adapts h into an Echo handler. The steps run in a fixed order:
//
//  1. protected route: re-verify the session, else Unauthorized
//  2. validate input from src, else BadRequestBody with the field lines
//  3. call h exactly once
//  4. map a returned error (or panic) onto its taxonomy kind
//  5. write {success:true, data} on success
func Handle[In, Out any](w *Wrapper, src Source, h HandlerFunc[In, Out], opts ...Option) echo.HandlerFunc {
	o := options{status: http.StatusOK}
	for _, opt := range opts {
		opt(&o)
	}

	return func(c echo.Context) error {
		req := c.Request()
		ctx := req.Context()
		path := req.URL.Path

		// 1. Session.
		session, err := w.verifier.Session(ctx, req)
		if err != nil {
			slog.Warn("session lookup failed",
				slog.String("path", path),
				slog.Any("error", err),
			)
			session = nil
		}
		if !session.Valid(w.now()) {
			session = nil
		}
		if session == nil && w.table.Classify(path) == access.RequiresSession {
			return envelope.WriteError(c, apperror.NewUnauthorized())
		}

		// 2. Input.
		var in In
		switch src {
		case Body:
			body, err := io.ReadAll(io.LimitReader(req.Body, w.maxBody+1))
			if err != nil {
				return envelope.WriteError(c, apperror.NewBadRequestBody("unreadable body"))
			}
			if int64(len(body)) > w.maxBody {
				return envelope.WriteError(c, apperror.NewBadRequestBody("body too large"))
			}
			res := validate.JSON[In](body)
			if !res.Valid() {
				return envelope.WriteError(c, res.Errors().AsError())
			}
			in = res.Value()
		case Query:
			res := validate.Query[In](c.QueryParams())
			if !res.Valid() {
				return envelope.WriteError(c, res.Errors().AsError())
			}
			in = res.Value()
		}

		rc := Request{
			Session:   session,
			Path:      path,
			RequestID: requestID(c),
			Params:    params(c),
		}
		if session != nil {
			ctx = auth.WithSession(ctx, session)
		}

		// 3. Handler.
		out, err := invoke(ctx, h, in, rc)

		// 4. Failure.
		if err != nil {
			if apperror.KindOf(err) == apperror.KindInternal {
				slog.Error("api handler failed",
					slog.String("method", req.Method),
					slog.String("path", path),
					slog.String("request_id", rc.RequestID),
					slog.Any("error", err),
				)
			}
			return envelope.WriteError(c, err)
		}

		// 5. Success.
		return envelope.Write(c, o.status, envelope.OK(out))
	}
}

// invoke calls h, converting a panic into an error.
func invoke[In, Out any](ctx context.Context, h HandlerFunc[In, Out], in In, rc Request) (out Out, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h(ctx, in, rc)
}

func requestID(c echo.Context) string {
	if id := c.Response().Header().Get(echo.HeaderXRequestID); id != "" {
		return id
	}
	return c.Request().Header.Get(echo.HeaderXRequestID)
}

func params(c echo.Context) map[string]string {
	names := c.ParamNames()
	values := c.ParamValues()
	out := make(map[string]string, len(names))
	for i, name := range names {
		if i < len(values) {
			out[name] = values[i]
		}
	}
	return out
}
