// Package paging derives list query parameters (page, limit, sort, order)
// from per-list defaults plus caller overrides, and serializes them into a
// canonical query string fragment.
//
// The same fragment is produced for links rendered on the server and for
// requests read back from the client, so the two always agree.
package paging

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
)

// ListType names a paginated listing with its own defaults.
type ListType string

const (
	History   ListType = "history"
	Inventory ListType = "inventory"
)

// Order is a sort direction.
type Order string

const (
	Asc  Order = "asc"
	Desc Order = "desc"
)

// Valid reports whether o is asc or desc.
func (o Order) Valid() bool { return o == Asc || o == Desc }

// Direction returns 1 for ascending and -1 for descending, the form document
// stores expect for sort specs.
func (o Order) Direction() int {
	if o == Desc {
		return -1
	}
	return 1
}

// Query keys, in serialization order.
const (
	KeyPage  = "page"
	KeyLimit = "limit"
	KeySort  = "sort"
	KeyOrder = "order"
)

// DefaultLimit applies when a list type has no defaults of its own.
const DefaultLimit = 10

// MaxLimit caps the page size FromValues accepts from page links. API
// schemas enforce the same bound with validate tags.
const MaxLimit = 100

// MaxPage caps the page index FromValues accepts from page links.
const MaxPage = 1_000_000

// Filter is an extra key/value appended after the paging keys.
type Filter struct {
	Key   string
	Value string
}

// Params are effective list parameters.
type Params struct {
	Page    int      `json:"page"`
	Limit   int      `json:"limit"`
	Sort    string   `json:"sort"`
	Order   Order    `json:"order"`
	Filters []Filter `json:"-"`
}

// Skip is the number of records before the current page. It saturates at
// math.MaxInt64 instead of overflowing.
func (p Params) Skip() int64 {
	if p.Page <= 0 || p.Limit <= 0 {
		return 0
	}
	page, limit := int64(p.Page), int64(p.Limit)
	if page > math.MaxInt64/limit {
		return math.MaxInt64
	}
	return page * limit
}

// Filter returns the value of the named filter, or "".
func (p Params) Filter(key string) string {
	for i := len(p.Filters) - 1; i >= 0; i-- {
		if p.Filters[i].Key == key {
			return p.Filters[i].Value
		}
	}
	return ""
}

var defaults = map[ListType]Params{
	History:   {Page: 0, Limit: 10, Sort: "date", Order: Desc},
	Inventory: {Page: 0, Limit: 5, Sort: "name", Order: Asc},
}

// Overrides are caller supplied replacements. A nil field keeps the default.
type Overrides struct {
	Page    *int
	Limit   *int
	Sort    *string
	Order   *Order
	Filters []Filter
}

// WithPage returns a copy of o with the page set.
func (o Overrides) WithPage(page int) Overrides {
	o.Page = &page
	return o
}

// WithLimit returns a copy of o with the limit set.
func (o Overrides) WithLimit(limit int) Overrides {
	o.Limit = &limit
	return o
}

// WithSort returns a copy of o with the sort field set.
func (o Overrides) WithSort(sort string) Overrides {
	o.Sort = &sort
	return o
}

// WithOrder returns a copy of o with the order set.
func (o Overrides) WithOrder(order Order) Overrides {
	o.Order = &order
	return o
}

// WithFilter returns a copy of o with a filter appended.
func (o Overrides) WithFilter(key, value string) Overrides {
	filters := make([]Filter, len(o.Filters), len(o.Filters)+1)
	copy(filters, o.Filters)
	o.Filters = append(filters, Filter{Key: key, Value: value})
	return o
}

// effective is the merged parameter set. A nil pointer means the key has no
// value and is left out of the fragment.
type effective struct {
	page    *int
	limit   *int
	sort    string
	order   Order
	filters []Filter
}

func merge(lt ListType, o Overrides) effective {
	var e effective
	if d, ok := defaults[lt]; ok {
		page, limit := d.Page, d.Limit
		e = effective{page: &page, limit: &limit, sort: d.Sort, order: d.Order}
	}
	if o.Page != nil && *o.Page >= 0 {
		page := *o.Page
		e.page = &page
	}
	if o.Limit != nil && *o.Limit > 0 {
		limit := *o.Limit
		e.limit = &limit
	}
	if o.Sort != nil && *o.Sort != "" {
		e.sort = *o.Sort
	}
	if o.Order != nil && o.Order.Valid() {
		e.order = *o.Order
	}
	for _, f := range o.Filters {
		if f.Key == "" || f.Value == "" || reserved(f.Key) {
			continue
		}
		e.filters = append(e.filters, f)
	}
	return e
}

// Resolve merges overrides into the defaults for lt. Invalid overrides
// (negative page, non-positive limit, empty sort, unknown order) are ignored.
// Unknown list types fall back to page 0 and DefaultLimit.
func Resolve(lt ListType, o Overrides) Params {
	e := merge(lt, o)
	p := Params{Limit: DefaultLimit, Sort: e.sort, Order: e.order, Filters: e.filters}
	if e.page != nil {
		p.Page = *e.page
	}
	if e.limit != nil {
		p.Limit = *e.limit
	}
	return p
}

// BuildQuery serializes the effective parameters as "&key=value" pairs in the
// order page, limit, sort, order, then filters in the order supplied. Empty
// values are skipped and an empty set yields "".
func BuildQuery(lt ListType, o Overrides) string {
	e := merge(lt, o)

	var b strings.Builder
	add := func(k, v string) {
		if v == "" {
			return
		}
		b.WriteByte('&')
		b.WriteString(url.QueryEscape(k))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(v))
	}
	if e.page != nil {
		add(KeyPage, strconv.Itoa(*e.page))
	}
	if e.limit != nil {
		add(KeyLimit, strconv.Itoa(*e.limit))
	}
	add(KeySort, e.sort)
	add(KeyOrder, string(e.order))
	for _, f := range e.filters {
		add(f.Key, f.Value)
	}
	return b.String()
}

// ParseQuery reads a fragment produced by BuildQuery back into overrides.
// A leading "?" or "&" is accepted. Unknown keys become filters in the order
// they appear.
func ParseQuery(fragment string) (Overrides, error) {
	var o Overrides
	fragment = strings.TrimLeft(fragment, "?&")
	if fragment == "" {
		return o, nil
	}
	for _, part := range strings.Split(fragment, "&") {
		if part == "" {
			continue
		}
		rawKey, rawValue, _ := strings.Cut(part, "=")
		key, err := url.QueryUnescape(rawKey)
		if err != nil {
			return Overrides{}, fmt.Errorf("parsing key %q: %w", rawKey, err)
		}
		value, err := url.QueryUnescape(rawValue)
		if err != nil {
			return Overrides{}, fmt.Errorf("parsing value of %q: %w", key, err)
		}

		switch key {
		case KeyPage:
			n, err := strconv.Atoi(value)
			if err != nil {
				return Overrides{}, fmt.Errorf("parsing page: %w", err)
			}
			o = o.WithPage(n)
		case KeyLimit:
			n, err := strconv.Atoi(value)
			if err != nil {
				return Overrides{}, fmt.Errorf("parsing limit: %w", err)
			}
			o = o.WithLimit(n)
		case KeySort:
			o = o.WithSort(value)
		case KeyOrder:
			o = o.WithOrder(Order(value))
		default:
			o = o.WithFilter(key, value)
		}
	}
	return o, nil
}

// FromValues reads overrides from request query values. Values that do not
// parse are dropped so the default applies; page and limit are clamped to
// MaxPage and MaxLimit. Only the named filter keys are picked up, in the
// order given.
func FromValues(lt ListType, values url.Values, filterKeys ...string) Overrides {
	var o Overrides
	if n, err := strconv.Atoi(values.Get(KeyPage)); err == nil {
		o = o.WithPage(min(n, MaxPage))
	}
	if n, err := strconv.Atoi(values.Get(KeyLimit)); err == nil {
		o = o.WithLimit(min(n, MaxLimit))
	}
	if s := values.Get(KeySort); s != "" {
		o = o.WithSort(s)
	}
	if s := values.Get(KeyOrder); s != "" {
		o = o.WithOrder(Order(s))
	}
	for _, k := range filterKeys {
		if v := values.Get(k); v != "" {
			o = o.WithFilter(k, v)
		}
	}
	return o
}

// Overrides returns p as a full set of overrides, for building links that
// move away from it (next page, different sort).
func (p Params) Overrides() Overrides {
	o := Overrides{}.WithPage(p.Page).WithLimit(p.Limit)
	if p.Sort != "" {
		o = o.WithSort(p.Sort)
	}
	if p.Order != "" {
		o = o.WithOrder(p.Order)
	}
	for _, f := range p.Filters {
		o = o.WithFilter(f.Key, f.Value)
	}
	return o
}

func reserved(key string) bool {
	switch key {
	case KeyPage, KeyLimit, KeySort, KeyOrder:
		return true
	}
	return false
}
