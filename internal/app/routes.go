package app

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/stockroom/internal/api"
	"github.com/keyxmakerx/stockroom/internal/auth"
	"github.com/keyxmakerx/stockroom/internal/inventory"
	"github.com/keyxmakerx/stockroom/internal/middleware"
	"github.com/keyxmakerx/stockroom/internal/templates/pages"
)

// healthTimeout bounds each dependency ping in /healthz.
const healthTimeout = 2 * time.Second

// RegisterRoutes sets up all application routes. Which of them need a
// session is decided by the route table the gate enforces, not here.
func (a *App) RegisterRoutes() {
	e := a.Echo
	w := api.NewWrapper(a.Sessions, a.Routes)

	// --- Public pages ---
	e.GET("/", a.landing)
	e.GET("/healthz", a.health)
	e.GET(auth.SignInPath, a.signInPage)

	// --- Auth handshake ---
	oauth := auth.NewOAuthHandler(
		auth.GitHubConfig(a.Config.OAuth.ClientID, a.Config.OAuth.ClientSecret, a.Config.OAuth.RedirectURL),
		auth.GitHubUserURL,
		a.Sessions,
		a.Config.Auth.CookieName,
	)
	limited := a.authLimiter.Middleware()
	if a.Config.OAuth.Enabled() {
		e.GET("/api/auth/signin", oauth.SignIn, limited)
		e.GET("/api/auth/callback", oauth.Callback, limited)
	}
	e.POST("/api/auth/signout", oauth.SignOut)
	e.GET("/api/auth/session", api.Handle(w, api.None, currentSession))

	// --- Settings ---
	e.GET("/settings", a.settingsPage)
	e.GET("/settings/*", a.settingsPage)

	// --- Inventory ---
	inventory.RegisterRoutes(e, inventory.NewHandler(inventory.NewService(a.inventory)), w)
}

// currentSession reports the caller's session, or null when signed out.
func currentSession(_ context.Context, _ struct{}, rc api.Request) (*auth.Session, error) {
	return rc.Session, nil
}

func (a *App) landing(c echo.Context) error {
	a.optionalSession(c)
	return middleware.Render(c, http.StatusOK, pages.Landing())
}

// signInPage renders the sign-in page, or sends an already signed-in user
// straight on to the callback.
func (a *App) signInPage(c echo.Context) error {
	callback := c.QueryParam("callbackUrl")
	if a.optionalSession(c) != nil {
		return c.Redirect(http.StatusSeeOther, auth.SafeCallback(callback))
	}
	return middleware.Render(c, http.StatusOK, pages.SignIn(pages.SignInData{
		CallbackURL:  callback,
		Error:        c.QueryParam("error"),
		OAuthEnabled: a.Config.OAuth.Enabled(),
	}))
}

func (a *App) settingsPage(c echo.Context) error {
	return middleware.Render(c, http.StatusOK, pages.Settings())
}

// optionalSession resolves the session on a public page so the layout can
// show the signed-in user. Lookup failures count as signed out.
func (a *App) optionalSession(c echo.Context) *auth.Session {
	req := c.Request()
	s, err := a.Sessions.Session(req.Context(), req)
	if err != nil || !s.Valid(time.Now()) {
		return nil
	}
	c.SetRequest(req.WithContext(auth.WithSession(req.Context(), s)))
	return s
}

// health pings each backing store. Any failure turns the response into 503.
func (a *App) health(c echo.Context) error {
	checks := map[string]string{}
	healthy := true

	ping := func(name string, fn func(context.Context) error) {
		ctx, cancel := context.WithTimeout(c.Request().Context(), healthTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			checks[name] = "down"
			healthy = false
			return
		}
		checks[name] = "ok"
	}

	if a.Mongo != nil {
		ping("mongo", a.Mongo.Ping)
	}
	if a.Redis != nil {
		ping("redis", func(ctx context.Context) error { return a.Redis.Ping(ctx).Err() })
	}

	status := http.StatusOK
	state := "ok"
	if !healthy {
		status = http.StatusServiceUnavailable
		state = "degraded"
	}
	return c.JSON(status, map[string]any{"status": state, "checks": checks})
}
