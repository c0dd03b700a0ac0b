package inventory

import (
	"context"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/stockroom/internal/api"
	"github.com/keyxmakerx/stockroom/internal/apperror"
	"github.com/keyxmakerx/stockroom/internal/auth"
	"github.com/keyxmakerx/stockroom/internal/middleware"
	"github.com/keyxmakerx/stockroom/internal/paging"
	"github.com/keyxmakerx/stockroom/internal/validate"
)

// recentHistoryLimit is how many movements the dashboard shows.
const recentHistoryLimit = 5

// itemSorts and historySorts are the sort keys page links may carry.
var (
	itemSorts    = []string{"name", "sku", "category", "location", "quantity", "checked_out", "created_at"}
	historySorts = []string{"date", "item_name", "action", "quantity"}
)

// Handler serves the inventory API (through the api wrapper) and the
// inventory pages.
type Handler struct {
	service Service
}

// NewHandler creates a new inventory handler.
func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// --- API handlers (wrapped by api.Handle) ---

// ListItems handles GET /api/inventory.
func (h *Handler) ListItems(ctx context.Context, q ListItemsQuery, _ api.Request) (paging.Page[Item], error) {
	return h.service.ListItems(ctx, paging.Resolve(paging.Inventory, q.Overrides()))
}

// GetItem handles GET /api/inventory/:id.
func (h *Handler) GetItem(ctx context.Context, _ struct{}, rc api.Request) (*Item, error) {
	return h.service.GetItem(ctx, rc.Param("id"))
}

// CreateItem handles POST /api/inventory.
func (h *Handler) CreateItem(ctx context.Context, req CreateItemRequest, rc api.Request) (*Item, error) {
	return h.service.CreateItem(ctx, req, rc.Session)
}

// CheckOut handles POST /api/inventory/:id/check-out.
func (h *Handler) CheckOut(ctx context.Context, req MovementRequest, rc api.Request) (*Movement, error) {
	return h.service.CheckOut(ctx, rc.Param("id"), req, rc.Session)
}

// CheckIn handles POST /api/inventory/:id/check-in.
func (h *Handler) CheckIn(ctx context.Context, req MovementRequest, rc api.Request) (*Movement, error) {
	return h.service.CheckIn(ctx, rc.Param("id"), req, rc.Session)
}

// ListHistory handles GET /api/history.
func (h *Handler) ListHistory(ctx context.Context, q ListHistoryQuery, _ api.Request) (paging.Page[HistoryEntry], error) {
	return h.service.History(ctx, paging.Resolve(paging.History, q.Overrides()))
}

// --- Pages ---

// DashboardPage renders GET /dashboard: stock totals and recent movements.
func (h *Handler) DashboardPage(c echo.Context) error {
	ctx := c.Request().Context()

	stats, err := h.service.Stats(ctx)
	if err != nil {
		return err
	}

	p := paging.Resolve(paging.History, paging.Overrides{}.WithLimit(recentHistoryLimit))
	recent, err := h.service.History(ctx, p)
	if recent, err = emptyOnNoResults(p, recent, err); err != nil {
		return err
	}
	return middleware.Render(c, http.StatusOK, DashboardPage(stats, recent.Items))
}

// InventoryPage renders GET /inventory with pagination links.
func (h *Handler) InventoryPage(c echo.Context) error {
	o := allowSort(paging.FromValues(paging.Inventory, c.QueryParams()), itemSorts)
	p := paging.Resolve(paging.Inventory, o)

	page, err := h.service.ListItems(c.Request().Context(), p)
	if page, err = emptyOnNoResults(p, page, err); err != nil {
		return err
	}
	return middleware.Render(c, http.StatusOK, InventoryPage(page, p))
}

// HistoryPage renders GET /history, optionally filtered by item or action.
func (h *Handler) HistoryPage(c echo.Context) error {
	o := allowSort(paging.FromValues(paging.History, c.QueryParams(), FilterItemID, FilterAction), historySorts)
	p := paging.Resolve(paging.History, o)

	page, err := h.service.History(c.Request().Context(), p)
	if page, err = emptyOnNoResults(p, page, err); err != nil {
		return err
	}
	return middleware.Render(c, http.StatusOK, HistoryPage(page, p))
}

// CheckOutPage renders GET /check-out.
func (h *Handler) CheckOutPage(c echo.Context) error {
	return h.movementPage(c, ActionCheckOut)
}

// CheckInPage renders GET /check-in.
func (h *Handler) CheckInPage(c echo.Context) error {
	return h.movementPage(c, ActionCheckIn)
}

func (h *Handler) movementPage(c echo.Context, action string) error {
	p := paging.Resolve(paging.Inventory, paging.Overrides{}.WithLimit(paging.MaxLimit))
	page, err := h.service.ListItems(c.Request().Context(), p)
	if page, err = emptyOnNoResults(p, page, err); err != nil {
		return err
	}
	return middleware.Render(c, http.StatusOK, MovementPage(action, page.Items, c.QueryParam(FilterItemID)))
}

// CreateItemForm handles POST /inventory from the inventory page form.
func (h *Handler) CreateItemForm(c echo.Context) error {
	form, err := formValues(c)
	if err != nil {
		return err
	}
	res := validate.Query[CreateItemRequest](form)
	if !res.Valid() {
		return res.Errors().AsError()
	}
	if _, err := h.service.CreateItem(c.Request().Context(), res.Value(), auth.GetSession(c)); err != nil {
		return err
	}
	return redirect(c, "/inventory")
}

// CheckOutForm handles POST /check-out.
func (h *Handler) CheckOutForm(c echo.Context) error {
	return h.movementForm(c, h.service.CheckOut)
}

// CheckInForm handles POST /check-in.
func (h *Handler) CheckInForm(c echo.Context) error {
	return h.movementForm(c, h.service.CheckIn)
}

type moveFunc func(ctx context.Context, id string, req MovementRequest, actor *auth.Session) (*Movement, error)

func (h *Handler) movementForm(c echo.Context, move moveFunc) error {
	form, err := formValues(c)
	if err != nil {
		return err
	}
	id := form.Get(FilterItemID)
	form.Del(FilterItemID)

	res := validate.Query[MovementRequest](form)
	if !res.Valid() {
		return res.Errors().AsError()
	}
	if _, err := move(c.Request().Context(), id, res.Value(), auth.GetSession(c)); err != nil {
		return err
	}
	return redirect(c, "/history?"+FilterItemID+"="+url.QueryEscape(id))
}

// --- Helpers ---

// emptyOnNoResults turns NoResultsFound into an empty page; pages show an
// empty state where the API reports the kind.
func emptyOnNoResults[T any](p paging.Params, page paging.Page[T], err error) (paging.Page[T], error) {
	if err != nil && apperror.KindOf(err) == apperror.KindNoResultsFound {
		return paging.NewPage[T](nil, p, 0), nil
	}
	return page, err
}

// allowSort drops a sort key the listing does not support so the default
// applies.
func allowSort(o paging.Overrides, allowed []string) paging.Overrides {
	if o.Sort == nil {
		return o
	}
	for _, s := range allowed {
		if *o.Sort == s {
			return o
		}
	}
	o.Sort = nil
	return o
}

// formValues returns the posted form without the CSRF field and without
// blank values, so optional fields fall back to their zero value.
func formValues(c echo.Context) (url.Values, error) {
	form, err := c.FormParams()
	if err != nil {
		return nil, apperror.NewBadRequestBody("unreadable form")
	}
	out := url.Values{}
	for key, vals := range form {
		if key == "csrf_token" {
			continue
		}
		for _, v := range vals {
			if v != "" {
				out.Add(key, v)
			}
		}
	}
	return out, nil
}

// redirect sends the browser to target after a successful form post.
func redirect(c echo.Context, target string) error {
	if middleware.IsHTMX(c) {
		c.Response().Header().Set("HX-Redirect", target)
		return c.NoContent(http.StatusNoContent)
	}
	return c.Redirect(http.StatusSeeOther, target)
}
