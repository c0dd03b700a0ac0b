package auth

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

// Cookies used during the OAuth round trip.
const (
	stateCookieName    = "oauth_state"
	callbackCookieName = "oauth_callback"
	stateCookieMaxAge  = 10 * 60
)

// GitHubUserURL is the GitHub REST endpoint for the signed-in user.
const GitHubUserURL = "https://api.github.com/user"

// Sign-in error codes shown on the sign-in page.
const (
	errOAuthState    = "OAuthState"
	errOAuthCallback = "OAuthCallback"
	errSessionIssue  = "SessionRequired"
)

// GitHubConfig returns an OAuth2 config for GitHub sign-in.
func GitHubConfig(clientID, clientSecret, redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Endpoint:     github.Endpoint,
		Scopes:       []string{"read:user", "user:email"},
	}
}

// OAuthHandler runs the sign-in handshake and manages the session cookie.
// Token exchange is delegated to x/oauth2; this handler owns the state
// check, the user lookup and the session cookie.
type OAuthHandler struct {
	config      *oauth2.Config
	userInfoURL string
	store       Store
	cookieName  string
}

// NewOAuthHandler creates the handler. userInfoURL is the provider endpoint
// returning the signed-in user as JSON.
func NewOAuthHandler(config *oauth2.Config, userInfoURL string, store Store, cookieName string) *OAuthHandler {
	return &OAuthHandler{
		config:      config,
		userInfoURL: userInfoURL,
		store:       store,
		cookieName:  cookieName,
	}
}

// SignIn starts the handshake (GET /api/auth/signin).
func (h *OAuthHandler) SignIn(c echo.Context) error {
	state, err := generateSessionToken()
	if err != nil {
		return fmt.Errorf("generating oauth state: %w", err)
	}

	setCookie(c, stateCookieName, state, stateCookieMaxAge)
	setCookie(c, callbackCookieName, SafeCallback(c.QueryParam("callbackUrl")), stateCookieMaxAge)

	return c.Redirect(http.StatusFound, h.config.AuthCodeURL(state))
}

// Callback completes the handshake (GET /api/auth/callback): it checks the
// state, exchanges the code, looks up the user and issues a session.
func (h *OAuthHandler) Callback(c echo.Context) error {
	ctx := c.Request().Context()

	expected := cookieValue(c, stateCookieName)
	got := c.QueryParam("state")
	callback := SafeCallback(cookieValue(c, callbackCookieName))
	clearCookie(c, stateCookieName)
	clearCookie(c, callbackCookieName)

	if expected == "" || subtle.ConstantTimeCompare([]byte(expected), []byte(got)) != 1 {
		return c.Redirect(http.StatusSeeOther, signInURL(signInQuery{CallbackURL: callback, Error: errOAuthState}))
	}
	if providerErr := c.QueryParam("error"); providerErr != "" {
		slog.Info("oauth provider returned an error", slog.String("error", providerErr))
		return c.Redirect(http.StatusSeeOther, signInURL(signInQuery{CallbackURL: callback, Error: errOAuthCallback}))
	}

	token, err := h.config.Exchange(ctx, c.QueryParam("code"))
	if err != nil {
		slog.Warn("oauth code exchange failed", slog.Any("error", err))
		return c.Redirect(http.StatusSeeOther, signInURL(signInQuery{CallbackURL: callback, Error: errOAuthCallback}))
	}

	id, err := h.fetchIdentity(c, token)
	if err != nil {
		slog.Warn("oauth user lookup failed", slog.Any("error", err))
		return c.Redirect(http.StatusSeeOther, signInURL(signInQuery{CallbackURL: callback, Error: errOAuthCallback}))
	}

	raw, session, err := h.store.Issue(ctx, id)
	if err != nil {
		slog.Error("issuing session failed", slog.Any("error", err))
		return c.Redirect(http.StatusSeeOther, signInURL(signInQuery{CallbackURL: callback, Error: errSessionIssue}))
	}

	setCookie(c, h.cookieName, raw, int(h.store.TTL().Seconds()))

	slog.Info("user signed in",
		slog.String("user_id", session.UserID),
		slog.String("email", session.Email),
	)
	return c.Redirect(http.StatusSeeOther, callback)
}

// SignOut revokes the session and clears the cookie (POST /api/auth/signout).
func (h *OAuthHandler) SignOut(c echo.Context) error {
	if token := TokenFrom(c.Request(), h.cookieName); token != "" {
		// The cookie is cleared regardless.
		if err := h.store.Revoke(c.Request().Context(), token); err != nil {
			slog.Warn("revoking session failed", slog.Any("error", err))
		}
	}
	clearCookie(c, h.cookieName)

	if isHTMXRequest(c) {
		c.Response().Header().Set("HX-Redirect", "/")
		return c.NoContent(http.StatusNoContent)
	}
	return c.Redirect(http.StatusSeeOther, "/")
}

// providerUser is the subset of the provider's user document we read.
// GitHub returns a numeric id, other providers a string, so ID is raw.
type providerUser struct {
	ID        json.RawMessage `json:"id"`
	Login     string          `json:"login"`
	Name      string          `json:"name"`
	Email     string          `json:"email"`
	AvatarURL string          `json:"avatar_url"`
}

func (h *OAuthHandler) fetchIdentity(c echo.Context, token *oauth2.Token) (Identity, error) {
	ctx := c.Request().Context()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.userInfoURL, nil)
	if err != nil {
		return Identity{}, err
	}
	req.Header.Set("Accept", "application/json")

	client := h.config.Client(ctx, token)
	client.Timeout = 10 * time.Second
	resp, err := client.Do(req)
	if err != nil {
		return Identity{}, fmt.Errorf("requesting user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Identity{}, fmt.Errorf("user info returned status %d", resp.StatusCode)
	}

	var u providerUser
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&u); err != nil {
		return Identity{}, fmt.Errorf("decoding user info: %w", err)
	}

	id := rawID(u.ID)
	if id == "" {
		return Identity{}, fmt.Errorf("user info has no id")
	}
	name := u.Name
	if name == "" {
		name = u.Login
	}
	return Identity{ID: id, Name: name, Email: u.Email, Image: u.AvatarURL}, nil
}

func rawID(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n int64
	if err := json.Unmarshal(raw, &n); err == nil {
		return strconv.FormatInt(n, 10)
	}
	return ""
}

// SafeCallback returns raw if it is a local absolute path, otherwise the
// default landing page. Protocol-relative and absolute URLs are rejected so
// sign-in cannot be used as an open redirect.
func SafeCallback(raw string) string {
	if raw == "" || !strings.HasPrefix(raw, "/") ||
		strings.HasPrefix(raw, "//") || strings.HasPrefix(raw, "/\\") {
		return DefaultCallback
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return DefaultCallback
	}
	return raw
}

// --- Cookie helpers ---

func cookieValue(c echo.Context, name string) string {
	cookie, err := c.Cookie(name)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// setCookie sets an HttpOnly, SameSite=Lax cookie, Secure when behind TLS.
func setCookie(c echo.Context, name, value string, maxAge int) {
	req := c.Request()
	c.SetCookie(&http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   req.TLS != nil || req.Header.Get("X-Forwarded-Proto") == "https",
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	})
}

// clearCookie removes a cookie by setting MaxAge to -1.
func clearCookie(c echo.Context, name string) {
	c.SetCookie(&http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}
