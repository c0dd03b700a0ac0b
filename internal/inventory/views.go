package inventory

import (
	"strconv"
	"strings"
	"time"

	"github.com/a-h/templ"

	"github.com/keyxmakerx/stockroom/internal/paging"
)

// dateFormat is how history timestamps are shown.
const dateFormat = "2006-01-02 15:04"

// column is a sortable header on the inventory table.
type column struct {
	Key   string
	Label string
}

var itemColumns = []column{
	{"name", "Name"},
	{"sku", "SKU"},
	{"category", "Category"},
	{"location", "Location"},
	{"quantity", "On hand"},
	{"checked_out", "Out"},
}

// listURL builds a link to base for the given overrides using the same
// fragment the API reads.
func listURL(base string, lt paging.ListType, o paging.Overrides) templ.SafeURL {
	q := strings.TrimPrefix(paging.BuildQuery(lt, o), "&")
	if q == "" {
		return templ.URL(base)
	}
	return templ.URL(base + "?" + q)
}

// sortURL sorts by key, flipping the order when key is already the active
// sort. Changing the sort goes back to the first page.
func sortURL(base string, lt paging.ListType, p paging.Params, key string) templ.SafeURL {
	order := paging.Asc
	if p.Sort == key && p.Order == paging.Asc {
		order = paging.Desc
	}
	return listURL(base, lt, p.Overrides().WithPage(0).WithSort(key).WithOrder(order))
}

func sortMarker(p paging.Params, key string) string {
	switch {
	case p.Sort != key:
		return ""
	case p.Order == paging.Asc:
		return " ▲"
	default:
		return " ▼"
	}
}

func pageURL(base string, lt paging.ListType, p paging.Params, page int) templ.SafeURL {
	return listURL(base, lt, p.Overrides().WithPage(page))
}

// itemLink points a per-row action at one item.
func itemLink(base string, it Item) templ.SafeURL {
	return templ.URL(base + "?" + FilterItemID + "=" + it.ID.Hex())
}

func formatDate(t time.Time) string {
	return t.In(time.UTC).Format(dateFormat)
}

// performedBy names who made a movement, falling back to the user ID.
func performedBy(e HistoryEntry) string {
	if e.UserName != "" {
		return e.UserName
	}
	return e.UserID
}

func movementTitle(action string) string {
	if action == ActionCheckIn {
		return "Check in"
	}
	return "Check out"
}

func optionLabel(it Item) string {
	return it.Name + " (" + strconv.Itoa(it.Quantity) + " on hand, " + strconv.Itoa(it.CheckedOut) + " out)"
}
