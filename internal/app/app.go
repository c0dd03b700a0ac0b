// Package app is the application bootstrap and dependency injection root.
// It holds the shared infrastructure (Mongo, Redis, session store, Echo
// instance) and wires the middleware, the auth handshake and the inventory
// domain together.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/keyxmakerx/stockroom/internal/access"
	"github.com/keyxmakerx/stockroom/internal/apperror"
	"github.com/keyxmakerx/stockroom/internal/auth"
	"github.com/keyxmakerx/stockroom/internal/config"
	"github.com/keyxmakerx/stockroom/internal/database"
	"github.com/keyxmakerx/stockroom/internal/envelope"
	"github.com/keyxmakerx/stockroom/internal/inventory"
	"github.com/keyxmakerx/stockroom/internal/middleware"
	"github.com/keyxmakerx/stockroom/internal/templates/layouts"
	"github.com/keyxmakerx/stockroom/internal/templates/pages"
)

// Deps are the collaborators the app is built from. Inventory defaults to a
// Mongo-backed repository when Mongo is set.
type Deps struct {
	Mongo     *database.Mongo
	Redis     *redis.Client
	Sessions  auth.Store
	Inventory inventory.Repository
}

// App holds all shared dependencies and the Echo HTTP server instance.
// Created once at startup in main.go and used to register all routes.
type App struct {
	// Config holds the loaded application configuration.
	Config *config.Config

	// Mongo is the document store for inventory; nil in tests.
	Mongo *database.Mongo

	// Redis backs server-side sessions; nil when sessions are JWTs.
	Redis *redis.Client

	// Sessions issues and verifies sessions.
	Sessions auth.Store

	// Routes is the protected route table shared by the gate and wrapper.
	Routes *access.Table

	// Echo is the HTTP server instance.
	Echo *echo.Echo

	inventory   inventory.Repository
	authLimiter *middleware.RateLimiter
	done        chan struct{}
}

// New creates the app, configures the Echo server with global middleware
// and error handling, and registers every route.
func New(cfg *config.Config, d Deps) *App {
	e := echo.New()

	// We log our own startup line.
	e.HideBanner = true
	e.HidePort = true

	// c.RealIP() must see the client, not the proxy, for rate limiting and
	// request logs.
	middleware.TrustedProxies(e, cfg.HTTP.TrustedProxies)

	repo := d.Inventory
	if repo == nil && d.Mongo != nil {
		repo = inventory.NewRepository(d.Mongo.DB)
	}

	app := &App{
		Config:      cfg,
		Mongo:       d.Mongo,
		Redis:       d.Redis,
		Sessions:    d.Sessions,
		Routes:      access.Default(),
		Echo:        e,
		inventory:   repo,
		authLimiter: middleware.NewRateLimiter(cfg.HTTP.AuthRateLimit, cfg.HTTP.AuthRateWindow),
		done:        make(chan struct{}),
	}

	middleware.LayoutInjector = injectLayout
	app.setupMiddleware()
	e.HTTPErrorHandler = app.errorHandler
	e.Static("/static", "static")
	app.RegisterRoutes()

	return app
}

// setupMiddleware registers global middleware on the Echo instance.
// Order matters: recovery is outermost, the gate innermost.
func (a *App) setupMiddleware() {
	// Must be outermost to catch panics from all other middleware.
	a.Echo.Use(middleware.Recovery())

	// Before logging so every log line carries the ID.
	a.Echo.Use(middleware.RequestID())

	a.Echo.Use(middleware.RequestLogger())
	a.Echo.Use(middleware.SecurityHeaders())

	// Answers preflights before the gate sees them.
	a.Echo.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins:   append([]string{a.Config.BaseURL}, a.Config.HTTP.CORSOrigins...),
		AllowCredentials: true,
	}))

	a.Echo.Use(middleware.CSRF(a.Config.Auth.CookieName))

	// Route table enforcement for pages and API alike.
	a.Echo.Use(auth.Gate(a.Sessions, a.Routes))
}

// injectLayout copies the session user, CSRF token, path and request ID
// into the context page components read.
func injectLayout(c echo.Context, ctx context.Context) context.Context {
	s := auth.GetSession(c)
	if s == nil {
		s = auth.SessionFrom(ctx)
	}
	if s != nil {
		ctx = layouts.SetUser(ctx, layouts.User{ID: s.UserID, Name: s.Name, Email: s.Email, Image: s.Image})
	}
	ctx = layouts.SetCSRFToken(ctx, middleware.GetCSRFToken(c))
	ctx = layouts.SetActivePath(ctx, c.Request().URL.Path)
	return layouts.SetRequestID(ctx, middleware.RequestIDFrom(c))
}

// errorHandler is the custom Echo error handler. Under /api every failure
// becomes an envelope whose message comes from the error kind. Pages render
// the error page, except 401 which sends the browser to sign-in.
//
// HTMX requests that fail are retargeted to the body so the error page
// replaces the whole document instead of landing in a fragment target.
func (a *App) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	appErr, status := a.classify(err, c)

	if auth.IsAPIRequest(c) {
		var writeErr error
		if appErr != nil {
			writeErr = envelope.WriteError(c, appErr)
		} else {
			writeErr = envelope.Write(c, status, envelope.Fail(http.StatusText(status)))
		}
		if writeErr != nil {
			slog.Error("writing error response failed", slog.Any("error", writeErr))
		}
		return
	}

	code := status
	message := defaultErrorMessage(code)
	if appErr != nil {
		code = appErr.Code
		if appErr.Kind != apperror.KindInternal {
			message = appErr.Message
		} else {
			message = defaultErrorMessage(code)
		}
	}

	if code == http.StatusUnauthorized {
		target := auth.SignInURL(c.Request().URL.RequestURI())
		if isHTMXRequest(c) {
			c.Response().Header().Set("HX-Redirect", target)
			_ = c.NoContent(http.StatusNoContent)
			return
		}
		_ = c.Redirect(http.StatusSeeOther, target)
		return
	}

	if isHTMXRequest(c) {
		c.Response().Header().Set("HX-Retarget", "body")
		c.Response().Header().Set("HX-Reswap", "innerHTML")
	}
	if err := middleware.Render(c, code, pages.ErrorPage(code, message)); err != nil {
		slog.Error("rendering error page failed", slog.Any("error", err))
	}
}

// classify maps err onto the taxonomy. Router errors become their kind;
// transport-level rejections with no kind return a nil AppError and their
// status. Internal failures are logged here with their cause.
func (a *App) classify(err error, c echo.Context) (*apperror.AppError, int) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		if appErr.Kind == apperror.KindInternal {
			a.logInternal(c, appErr.Internal)
		}
		return appErr, appErr.Code
	}

	var echoErr *echo.HTTPError
	if errors.As(err, &echoErr) {
		switch echoErr.Code {
		case http.StatusNotFound:
			return apperror.NewNotFound(""), http.StatusNotFound
		case http.StatusMethodNotAllowed:
			return apperror.NewMethodNotAllowed(), http.StatusMethodNotAllowed
		case http.StatusUnauthorized:
			return apperror.NewUnauthorized(), http.StatusUnauthorized
		case http.StatusBadRequest:
			return apperror.NewBadRequestBody(""), http.StatusBadRequest
		case http.StatusRequestEntityTooLarge:
			return apperror.NewBadRequestBody("body too large"), http.StatusBadRequest
		}
		if echoErr.Code >= http.StatusInternalServerError {
			a.logInternal(c, err)
			return apperror.NewInternal(err), http.StatusInternalServerError
		}
		return nil, echoErr.Code
	}

	a.logInternal(c, err)
	return apperror.NewInternal(err), http.StatusInternalServerError
}

func (a *App) logInternal(c echo.Context, cause error) {
	slog.Error("internal error",
		slog.Any("error", cause),
		slog.String("method", c.Request().Method),
		slog.String("path", c.Request().URL.Path),
		slog.String("request_id", middleware.RequestIDFrom(c)),
	)
}

// defaultErrorMessage returns a user-friendly message for common HTTP status
// codes when the error carries none that is safe to show.
func defaultErrorMessage(code int) string {
	switch code {
	case http.StatusBadRequest:
		return "The request was invalid or cannot be processed."
	case http.StatusUnauthorized:
		return "You need to sign in to access this page."
	case http.StatusForbidden:
		return "The form expired. Reload the page and try again."
	case http.StatusNotFound:
		return "The page you're looking for doesn't exist or has been moved."
	case http.StatusMethodNotAllowed:
		return "This action is not allowed."
	case http.StatusTooManyRequests:
		return "You're making too many requests. Please slow down."
	case http.StatusInternalServerError:
		return "Something went wrong on our end. Please try again."
	default:
		return "An unexpected error occurred."
	}
}

// isHTMXRequest returns true if the request was initiated by HTMX.
func isHTMXRequest(c echo.Context) bool {
	return c.Request().Header.Get("HX-Request") == "true"
}

// Start begins listening for HTTP requests on the configured port. It
// blocks until the server stops.
func (a *App) Start() error {
	go a.authLimiter.Run(a.done)

	addr := fmt.Sprintf(":%d", a.Config.Port)
	slog.Info("starting Stockroom server",
		slog.String("addr", addr),
		slog.String("env", a.Config.Env),
	)
	return a.Echo.Start(addr)
}

// Shutdown drains in-flight requests and stops background work.
func (a *App) Shutdown(ctx context.Context) error {
	select {
	case <-a.done:
	default:
		close(a.done)
	}
	return a.Echo.Shutdown(ctx)
}
