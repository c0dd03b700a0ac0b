package pages

import (
	"context"
	"strings"
	"testing"

	"github.com/a-h/templ"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keyxmakerx/stockroom/internal/templates/layouts"
)

func renderPage(t *testing.T, ctx context.Context, c templ.Component) string {
	t.Helper()
	var sb strings.Builder
	require.NoError(t, c.Render(ctx, &sb))
	return sb.String()
}

func TestSignInMessage(t *testing.T) {
	assert.Empty(t, SignInMessage(""))
	assert.Equal(t, "Please sign in to access this page.", SignInMessage("SessionRequired"))
	assert.Equal(t, "Unable to sign in.", SignInMessage("<script>"))
}

func TestSignIn(t *testing.T) {
	html := renderPage(t, context.Background(), SignIn(SignInData{
		CallbackURL:  "/inventory?page=2",
		Error:        "OAuthCallback",
		OAuthEnabled: true,
	}))

	assert.Contains(t, html, "The provider could not confirm your identity.")
	assert.Contains(t, html, `href="/api/auth/signin?callbackUrl=%2Finventory%3Fpage%3D2"`)
}

func TestSignIn_Disabled(t *testing.T) {
	html := renderPage(t, context.Background(), SignIn(SignInData{}))

	assert.Contains(t, html, "No sign-in provider is configured.")
	assert.NotContains(t, html, "/api/auth/signin")
	assert.NotContains(t, html, `role="alert"`)
}

func TestLanding(t *testing.T) {
	out := renderPage(t, context.Background(), Landing())
	assert.Contains(t, out, `<a class="button primary" href="/signin">Sign in</a>`)

	ctx := layouts.SetUser(context.Background(), layouts.User{ID: "1", Name: "Ada"})
	in := renderPage(t, ctx, Landing())
	assert.Contains(t, in, `href="/dashboard">Go to dashboard</a>`)
}

func TestSettings_EscapesUser(t *testing.T) {
	ctx := layouts.SetUser(context.Background(), layouts.User{ID: "1", Name: "<b>Ada</b>", Email: "ada@example.com"})

	html := renderPage(t, ctx, Settings())

	assert.Contains(t, html, "&lt;b&gt;Ada&lt;/b&gt;")
	assert.NotContains(t, html, "<b>Ada</b>")
	assert.Contains(t, html, "ada@example.com")
}

func TestErrorPage(t *testing.T) {
	ctx := layouts.SetRequestID(context.Background(), "req-42")

	html := renderPage(t, ctx, ErrorPage(404, "Gone <now>"))

	assert.Contains(t, html, "<h1>404 Not Found</h1>")
	assert.Contains(t, html, "Gone &lt;now&gt;")
	assert.Contains(t, html, "<code>req-42</code>")

	unknown := renderPage(t, context.Background(), ErrorPage(599, ""))
	assert.Contains(t, unknown, "<h1>599 Error</h1>")
}
