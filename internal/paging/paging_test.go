package paging

import (
	"math"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildQuery_HistoryDefaults(t *testing.T) {
	assert.Equal(t, "&page=0&limit=10&sort=date&order=desc", BuildQuery(History, Overrides{}))
}

func TestBuildQuery_InventoryLimitOverride(t *testing.T) {
	got := BuildQuery(Inventory, Overrides{}.WithLimit(20))
	assert.Equal(t, "&page=0&limit=20&sort=name&order=asc", got)
}

func TestBuildQuery_EveryOverride(t *testing.T) {
	o := Overrides{}.WithPage(3).WithLimit(25).WithSort("quantity").WithOrder(Desc)
	assert.Equal(t, "&page=3&limit=25&sort=quantity&order=desc", BuildQuery(Inventory, o))
}

func TestBuildQuery_Deterministic(t *testing.T) {
	o := Overrides{}.WithPage(1).WithFilter("item_id", "abc").WithFilter("action", "check-in")
	first := BuildQuery(History, o)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, BuildQuery(History, o))
	}
}

func TestBuildQuery_FiltersKeepSuppliedOrder(t *testing.T) {
	o := Overrides{}.WithFilter("zeta", "1").WithFilter("alpha", "2")
	assert.Equal(t, "&page=0&limit=10&sort=date&order=desc&zeta=1&alpha=2", BuildQuery(History, o))
}

func TestBuildQuery_SkipsEmptyAndReservedFilters(t *testing.T) {
	o := Overrides{}.
		WithFilter("item_id", "").
		WithFilter("", "x").
		WithFilter("page", "9").
		WithFilter("q", "drill bit")
	assert.Equal(t, "&page=0&limit=10&sort=date&order=desc&q=drill+bit", BuildQuery(History, o))
}

func TestBuildQuery_IgnoresInvalidOverrides(t *testing.T) {
	o := Overrides{}.WithPage(-1).WithLimit(0).WithSort("").WithOrder("sideways")
	assert.Equal(t, BuildQuery(Inventory, Overrides{}), BuildQuery(Inventory, o))
}

func TestBuildQuery_LimitOverrideWinsAboveMaxLimit(t *testing.T) {
	assert.Equal(t, "&page=0&limit=500&sort=name&order=asc", BuildQuery(Inventory, Overrides{}.WithLimit(500)))
	assert.Equal(t, 500, Resolve(Inventory, Overrides{}.WithLimit(500)).Limit)
}

func TestBuildQuery_UnknownListType(t *testing.T) {
	assert.Equal(t, "", BuildQuery("unknown", Overrides{}))
	assert.Equal(t, "&sort=name", BuildQuery("unknown", Overrides{}.WithSort("name")))
}

func TestBuildQuery_NeverBareAmpersand(t *testing.T) {
	for _, lt := range []ListType{History, Inventory, "unknown"} {
		got := BuildQuery(lt, Overrides{})
		assert.NotEqual(t, "&", got)
	}
}

func TestBuildQuery_RoundTrip(t *testing.T) {
	cases := []struct {
		lt ListType
		o  Overrides
	}{
		{History, Overrides{}},
		{Inventory, Overrides{}.WithLimit(20)},
		{History, Overrides{}.WithPage(4).WithOrder(Asc).WithFilter("item_id", "65a1f0c2e4b0a1b2c3d4e5f6")},
		{Inventory, Overrides{}.WithSort("sku").WithFilter("q", "a&b=c")},
		{"unknown", Overrides{}},
		{"unknown", Overrides{}.WithLimit(3)},
	}
	for _, tc := range cases {
		want := BuildQuery(tc.lt, tc.o)
		parsed, err := ParseQuery(want)
		require.NoError(t, err)
		assert.Equal(t, want, BuildQuery(tc.lt, parsed), want)
	}
}

func TestParseQuery(t *testing.T) {
	o, err := ParseQuery("?page=2&limit=20&sort=name&order=asc&item_id=abc&q=a%26b")
	require.NoError(t, err)

	require.NotNil(t, o.Page)
	require.NotNil(t, o.Limit)
	require.NotNil(t, o.Sort)
	require.NotNil(t, o.Order)
	assert.Equal(t, 2, *o.Page)
	assert.Equal(t, 20, *o.Limit)
	assert.Equal(t, "name", *o.Sort)
	assert.Equal(t, Asc, *o.Order)
	assert.Equal(t, []Filter{{"item_id", "abc"}, {"q", "a&b"}}, o.Filters)
}

func TestParseQuery_Empty(t *testing.T) {
	for _, s := range []string{"", "&", "?", "&&"} {
		o, err := ParseQuery(s)
		require.NoError(t, err)
		assert.Equal(t, Overrides{}, o)
	}
}

func TestParseQuery_BadNumber(t *testing.T) {
	_, err := ParseQuery("&page=two")
	assert.Error(t, err)

	_, err = ParseQuery("&limit=%zz")
	assert.Error(t, err)
}

func TestResolve(t *testing.T) {
	p := Resolve(History, Overrides{}.WithPage(2).WithFilter("item_id", "abc"))
	assert.Equal(t, 2, p.Page)
	assert.Equal(t, 10, p.Limit)
	assert.Equal(t, "date", p.Sort)
	assert.Equal(t, Desc, p.Order)
	assert.Equal(t, "abc", p.Filter("item_id"))
	assert.Equal(t, "", p.Filter("missing"))
	assert.Equal(t, int64(20), p.Skip())

	unknown := Resolve("unknown", Overrides{})
	assert.Equal(t, DefaultLimit, unknown.Limit)
}

func TestParams_OverridesRebuildsSameFragment(t *testing.T) {
	o := Overrides{}.WithPage(1).WithFilter("item_id", "x")
	p := Resolve(History, o)
	assert.Equal(t, BuildQuery(History, o), BuildQuery(History, p.Overrides()))
}

func TestFromValues(t *testing.T) {
	v := url.Values{
		"page":    {"1"},
		"limit":   {"abc"},
		"order":   {"asc"},
		"item_id": {"i1"},
		"other":   {"ignored"},
	}
	o := FromValues(History, v, "item_id", "action")
	assert.Equal(t, "&page=1&limit=10&sort=date&order=asc&item_id=i1", BuildQuery(History, o))
}

func TestFromValues_ClampsPageAndLimit(t *testing.T) {
	v := url.Values{"page": {"9223372036854775807"}, "limit": {"500"}}
	p := Resolve(Inventory, FromValues(Inventory, v))
	assert.Equal(t, MaxPage, p.Page)
	assert.Equal(t, MaxLimit, p.Limit)
}

func TestSkip(t *testing.T) {
	assert.Equal(t, int64(10), Params{Page: 2, Limit: 5}.Skip())
	assert.Equal(t, int64(0), Params{Page: -1, Limit: 5}.Skip())
	assert.Equal(t, int64(0), Params{Page: 3, Limit: 0}.Skip())

	huge := Resolve(Inventory, Overrides{}.WithPage(math.MaxInt))
	assert.Equal(t, int64(math.MaxInt64), huge.Skip())
}

func TestOrder(t *testing.T) {
	assert.True(t, Asc.Valid())
	assert.True(t, Desc.Valid())
	assert.False(t, Order("up").Valid())
	assert.Equal(t, 1, Asc.Direction())
	assert.Equal(t, -1, Desc.Direction())
}

func TestNewMeta(t *testing.T) {
	m := NewMeta(Params{Page: 1, Limit: 5}, 12)
	assert.Equal(t, Meta{Total: 12, Page: 1, Limit: 5, TotalPages: 3, HasNext: true, HasPrevious: true}, m)

	m = NewMeta(Params{Page: 2, Limit: 5}, 12)
	assert.False(t, m.HasNext)

	m = NewMeta(Params{Page: math.MaxInt, Limit: 5}, 10)
	assert.False(t, m.HasNext)
	assert.True(t, m.HasPrevious)

	m = NewMeta(Params{Page: 0, Limit: 0}, 0)
	assert.Equal(t, 0, m.TotalPages)
	assert.Equal(t, DefaultLimit, m.Limit)
	assert.False(t, m.HasNext)
	assert.False(t, m.HasPrevious)
}

func TestNewPage_NilItems(t *testing.T) {
	p := NewPage[string](nil, Params{Limit: 5}, 0)
	assert.NotNil(t, p.Items)
	assert.Empty(t, p.Items)
}
