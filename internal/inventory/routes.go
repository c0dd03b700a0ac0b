package inventory

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/stockroom/internal/api"
)

// RegisterRoutes adds the inventory API and pages. Protection comes from the
// route table checked by the gate and again by the wrapper, not from
// per-route middleware.
func RegisterRoutes(e *echo.Echo, h *Handler, w *api.Wrapper) {
	// API.
	g := e.Group("/api")
	g.GET("/inventory", api.Handle(w, api.Query, h.ListItems))
	g.POST("/inventory", api.Handle(w, api.Body, h.CreateItem, api.WithStatus(http.StatusCreated)))
	g.GET("/inventory/:id", api.Handle(w, api.None, h.GetItem))
	g.POST("/inventory/:id/check-out", api.Handle(w, api.Body, h.CheckOut))
	g.POST("/inventory/:id/check-in", api.Handle(w, api.Body, h.CheckIn))
	g.GET("/history", api.Handle(w, api.Query, h.ListHistory))

	// Pages.
	e.GET("/dashboard", h.DashboardPage)
	e.GET("/inventory", h.InventoryPage)
	e.POST("/inventory", h.CreateItemForm)
	e.GET("/history", h.HistoryPage)
	e.GET("/check-out", h.CheckOutPage)
	e.POST("/check-out", h.CheckOutForm)
	e.GET("/check-in", h.CheckInPage)
	e.POST("/check-in", h.CheckInForm)
}
