package middleware

import (
	"context"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
)

// LayoutInjector copies layout data (session user, CSRF token, active path)
// from the Echo context into the Go context page components read from. It
// is set once at startup by the app package so this package never imports
// auth.
var LayoutInjector func(echo.Context, context.Context) context.Context

// IsHTMX returns true if the request was initiated by HTMX and is not a
// boosted navigation. Boosted requests expect a full page.
func IsHTMX(c echo.Context) bool {
	return c.Request().Header.Get("HX-Request") == "true" &&
		c.Request().Header.Get("HX-Boosted") != "true"
}

// Render writes a component as HTML with the given status code, running the
// LayoutInjector first when one is registered.
func Render(c echo.Context, statusCode int, component templ.Component) error {
	ctx := c.Request().Context()
	if LayoutInjector != nil {
		ctx = LayoutInjector(c, ctx)
	}

	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	c.Response().WriteHeader(statusCode)
	return component.Render(ctx, c.Response().Writer)
}
