package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keyxmakerx/stockroom/internal/auth"
	"github.com/keyxmakerx/stockroom/internal/config"
	"github.com/keyxmakerx/stockroom/internal/middleware"
)

const testCookie = "stockroom_session"

func testConfig() *config.Config {
	return &config.Config{
		Env:     "test",
		Port:    8080,
		BaseURL: "http://localhost:8080",
		Auth: config.AuthConfig{
			SecretKey:  "test-secret-key-0123456789",
			SessionTTL: time.Hour,
			Strategy:   config.StrategyJWT,
			CookieName: testCookie,
		},
		OAuth: config.OAuthConfig{
			ClientID:     "id",
			ClientSecret: "secret",
			RedirectURL:  "http://localhost:8080/api/auth/callback",
		},
		HTTP: config.HTTPConfig{
			TrustedProxies: []string{"127.0.0.0/8"},
			AuthRateLimit:  100,
			AuthRateWindow: time.Minute,
		},
	}
}

// newTestApp builds the app on a JWT store and, when rdb is set, a Redis
// health check. No inventory repository is wired; tests here never reach
// an inventory handler.
func newTestApp(t *testing.T, rdb *redis.Client) (*App, *auth.JWTStore) {
	t.Helper()
	store, err := auth.NewJWTStore("test-secret-key-0123456789", testCookie, time.Hour)
	require.NoError(t, err)
	return New(testConfig(), Deps{Redis: rdb, Sessions: store}), store
}

func signedInCookie(t *testing.T, store *auth.JWTStore) *http.Cookie {
	t.Helper()
	token, _, err := store.Issue(context.Background(), auth.Identity{ID: "42", Name: "Ada", Email: "ada@example.com"})
	require.NoError(t, err)
	return &http.Cookie{Name: testCookie, Value: token}
}

func serve(a *App, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	a.Echo.ServeHTTP(rec, req)
	return rec
}

func envelopeOf(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var env map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

func TestAPI_UnknownRouteIsNotFoundEnvelope(t *testing.T) {
	a, _ := newTestApp(t, nil)

	rec := serve(a, httptest.NewRequest(http.MethodGet, "/api/nope", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	env := envelopeOf(t, rec)
	assert.Equal(t, false, env["success"])
	assert.Equal(t, "Not Found", env["message"])
}

func TestAPI_WrongMethodIsMethodNotAllowedEnvelope(t *testing.T) {
	a, _ := newTestApp(t, nil)

	req := httptest.NewRequest(http.MethodDelete, "/api/auth/session", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer anything")
	rec := serve(a, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "Method Not Allowed", envelopeOf(t, rec)["message"])
}

func TestAPI_ProtectedWithoutSession(t *testing.T) {
	a, _ := newTestApp(t, nil)

	rec := serve(a, httptest.NewRequest(http.MethodGet, "/api/inventory", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	env := envelopeOf(t, rec)
	assert.Equal(t, false, env["success"])
	assert.Equal(t, "Unauthorized", env["message"])
}

func TestAPI_SessionEndpoint(t *testing.T) {
	a, store := newTestApp(t, nil)

	signedOut := serve(a, httptest.NewRequest(http.MethodGet, "/api/auth/session", nil))
	require.Equal(t, http.StatusOK, signedOut.Code)
	env := envelopeOf(t, signedOut)
	assert.Equal(t, true, env["success"])
	assert.Nil(t, env["data"])

	req := httptest.NewRequest(http.MethodGet, "/api/auth/session", nil)
	req.AddCookie(signedInCookie(t, store))
	signedIn := serve(a, req)
	require.Equal(t, http.StatusOK, signedIn.Code)
	data := envelopeOf(t, signedIn)["data"].(map[string]any)
	assert.Equal(t, "42", data["user_id"])
	assert.Equal(t, "Ada", data["name"])
}

func TestPage_ProtectedRedirectsToSignIn(t *testing.T) {
	a, _ := newTestApp(t, nil)

	rec := serve(a, httptest.NewRequest(http.MethodGet, "/settings/general", nil))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/signin?callbackUrl=%2Fsettings%2Fgeneral", rec.Header().Get(echo.HeaderLocation))
}

func TestPage_SettingsWithSession(t *testing.T) {
	a, store := newTestApp(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/settings", nil)
	req.AddCookie(signedInCookie(t, store))
	rec := serve(a, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "ada@example.com")
	assert.Contains(t, body, `aria-current="page"`)
	assert.Contains(t, body, `<meta name="csrf-token"`)
}

func TestPage_UnknownRouteRendersErrorPage(t *testing.T) {
	a, _ := newTestApp(t, nil)

	rec := serve(a, httptest.NewRequest(http.MethodGet, "/nope", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Header().Get(echo.HeaderContentType), "text/html")
	body := rec.Body.String()
	assert.Contains(t, body, "404 Not Found")
	assert.Contains(t, body, rec.Header().Get(echo.HeaderXRequestID))
}

func TestPage_SignIn(t *testing.T) {
	a, store := newTestApp(t, nil)

	rec := serve(a, httptest.NewRequest(http.MethodGet, "/signin?callbackUrl=%2Fhistory&error=OAuthState", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "expired or was tampered with")
	assert.Contains(t, body, `href="/api/auth/signin?callbackUrl=%2Fhistory"`)

	req := httptest.NewRequest(http.MethodGet, "/signin?callbackUrl=%2Fhistory", nil)
	req.AddCookie(signedInCookie(t, store))
	signedIn := serve(a, req)
	assert.Equal(t, http.StatusSeeOther, signedIn.Code)
	assert.Equal(t, "/history", signedIn.Header().Get(echo.HeaderLocation))
}

func TestSignOut_RequiresCSRFToken(t *testing.T) {
	a, store := newTestApp(t, nil)
	session := signedInCookie(t, store)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/signout", nil)
	req.AddCookie(session)
	req.AddCookie(&http.Cookie{Name: middleware.CSRFCookieName, Value: "tok"})
	rec := serve(a, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/auth/signout", nil)
	req.AddCookie(session)
	req.AddCookie(&http.Cookie{Name: middleware.CSRFCookieName, Value: "tok"})
	req.Header.Set(middleware.CSRFHeaderName, "tok")
	rec = serve(a, req)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get(echo.HeaderLocation))
}

func TestSignOut_BearerHeaderDoesNotSkipCSRFForCookieSession(t *testing.T) {
	a, store := newTestApp(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/signout", nil)
	req.AddCookie(signedInCookie(t, store))
	req.Header.Set(echo.HeaderAuthorization, "Bearer not-a-real-token")
	rec := serve(a, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Forbidden", envelopeOf(t, rec)["message"])
}

func TestHealth(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	a, _ := newTestApp(t, rdb)

	rec := serve(a, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","checks":{"redis":"ok"}}`, rec.Body.String())

	mr.Close()
	rec = serve(a, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `"redis":"down"`))
}

func TestGlobalHeaders(t *testing.T) {
	a, _ := newTestApp(t, nil)

	rec := serve(a, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Contains(t, rec.Body.String(), "Stockroom")
}

func TestOAuthRoutesOnlyWhenConfigured(t *testing.T) {
	cfg := testConfig()
	cfg.OAuth = config.OAuthConfig{}
	store, err := auth.NewJWTStore("test-secret-key-0123456789", testCookie, time.Hour)
	require.NoError(t, err)
	a := New(cfg, Deps{Sessions: store})

	rec := serve(a, httptest.NewRequest(http.MethodGet, "/api/auth/signin", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	page := serve(a, httptest.NewRequest(http.MethodGet, "/signin", nil))
	assert.Contains(t, page.Body.String(), "No sign-in provider is configured.")
}

func TestShutdownIsIdempotent(t *testing.T) {
	a, _ := newTestApp(t, nil)
	ctx := context.Background()

	assert.NoError(t, a.Shutdown(ctx))
	assert.NoError(t, a.Shutdown(ctx))
}
