package validate

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keyxmakerx/stockroom/internal/apperror"
)

type line struct {
	SKU string `json:"sku" validate:"required"`
	Qty int    `json:"qty" validate:"min=1"`
}

type createItem struct {
	Name     string   `json:"name" validate:"required,max=100"`
	Quantity int      `json:"quantity" validate:"gte=0"`
	Category string   `json:"category,omitempty" validate:"omitempty,oneof=tools parts"`
	Tags     []string `json:"tags,omitempty"`
	Lines    []line   `json:"lines,omitempty" validate:"dive"`
}

type listQuery struct {
	Page   int    `json:"page" validate:"gte=0"`
	Limit  int    `json:"limit" validate:"omitempty,min=1,max=100"`
	Order  string `json:"order" validate:"omitempty,oneof=asc desc"`
	ItemID string `json:"item_id"`
}

func TestJSON_Valid(t *testing.T) {
	res := JSON[createItem]([]byte(`{"name":"Drill","quantity":3,"category":"tools","tags":["a","b"]}`))

	require.True(t, res.Valid(), res.Errors().String())
	assert.Nil(t, res.Errors())
	assert.Equal(t, createItem{Name: "Drill", Quantity: 3, Category: "tools", Tags: []string{"a", "b"}}, res.Value())
}

func TestJSON_MissingRequired(t *testing.T) {
	res := JSON[createItem]([]byte(`{"quantity":3}`))

	require.False(t, res.Valid())
	assert.Equal(t, []string{"name"}, res.Errors().Fields())
	assert.Equal(t, apperror.KindMissingRequiredProperties, res.Errors()["name"].Kind)
	assert.Equal(t, "MissingRequiredProperties: name", res.Errors().String())
	assert.Equal(t, "Bad Request Body:\nMissingRequiredProperties: name", res.Errors().AsError().Message)
}

func TestJSON_EmptyBodyReportsRequiredFields(t *testing.T) {
	res := JSON[createItem](nil)

	require.False(t, res.Valid())
	assert.Equal(t, apperror.KindMissingRequiredProperties, res.Errors()["name"].Kind)
}

func TestJSON_TypeMismatchIsNotAlsoReportedAsMissing(t *testing.T) {
	res := JSON[createItem]([]byte(`{"name":42,"quantity":"three"}`))

	require.False(t, res.Valid())
	errs := res.Errors()
	assert.Equal(t, apperror.KindTypeMismatches, errs["name"].Kind)
	assert.Equal(t, apperror.KindTypeMismatches, errs["quantity"].Kind)
	assert.Equal(t, "expected integer", errs["quantity"].Detail)
	assert.Equal(t, "TypeMismatches: name, quantity", errs.String())
}

func TestJSON_UnknownKeyIsInvalidProperty(t *testing.T) {
	res := JSON[createItem]([]byte(`{"name":"Drill","colour":"red"}`))

	require.False(t, res.Valid())
	assert.Equal(t, apperror.KindInvalidProperties, res.Errors()["colour"].Kind)
}

func TestJSON_ConstraintFailure(t *testing.T) {
	res := JSON[createItem]([]byte(`{"name":"Drill","quantity":-1,"category":"food"}`))

	require.False(t, res.Valid())
	errs := res.Errors()
	assert.Equal(t, Issue{Kind: apperror.KindInvalidProperties, Detail: "gte=0"}, errs["quantity"])
	assert.Equal(t, Issue{Kind: apperror.KindInvalidProperties, Detail: "oneof=tools parts"}, errs["category"])
}

func TestJSON_GroupsKindsInTaxonomyOrder(t *testing.T) {
	res := JSON[createItem]([]byte(`{"quantity":"x","category":"food","extra":1}`))

	require.False(t, res.Valid())
	assert.Equal(t,
		"InvalidProperties: category, extra\nMissingRequiredProperties: name\nTypeMismatches: quantity",
		res.Errors().String())
}

func TestJSON_NestedIssuesCollapseToTopLevelField(t *testing.T) {
	res := JSON[createItem]([]byte(`{"name":"Kit","lines":[{"sku":"","qty":1},{"sku":"A","qty":0}]}`))

	require.False(t, res.Valid())
	errs := res.Errors()
	assert.Len(t, errs, 1)
	assert.Contains(t, errs, "lines")
}

func TestJSON_NestedTypeMismatchFlagsTopLevelField(t *testing.T) {
	res := JSON[createItem]([]byte(`{"name":"Kit","lines":[{"sku":"A","qty":"many"}]}`))

	require.False(t, res.Valid())
	assert.Equal(t, apperror.KindTypeMismatches, res.Errors()["lines"].Kind)
}

func TestJSON_NotAnObject(t *testing.T) {
	for _, body := range []string{`[1,2]`, `"name"`, `null`, `{"name":`, `{"name":"a"} {"name":"b"}`} {
		t.Run(body, func(t *testing.T) {
			res := JSON[createItem]([]byte(body))
			require.False(t, res.Valid())
			assert.Equal(t, apperror.KindBadRequestBody, res.Errors()[""].Kind)
		})
	}
}

func TestMap_Valid(t *testing.T) {
	res := Map[createItem](map[string]any{"name": "Saw", "quantity": 2})

	require.True(t, res.Valid())
	assert.Equal(t, "Saw", res.Value().Name)
	assert.Equal(t, 2, res.Value().Quantity)
}

func TestQuery_ConvertsTypes(t *testing.T) {
	res := Query[listQuery](url.Values{"page": {"2"}, "limit": {"20"}, "order": {"desc"}, "item_id": {"abc"}})

	require.True(t, res.Valid(), res.Errors().String())
	assert.Equal(t, listQuery{Page: 2, Limit: 20, Order: "desc", ItemID: "abc"}, res.Value())
}

func TestQuery_Issues(t *testing.T) {
	res := Query[listQuery](url.Values{"page": {"x"}, "limit": {"0"}, "order": {"sideways"}, "debug": {"1"}})

	require.False(t, res.Valid())
	errs := res.Errors()
	assert.Equal(t, apperror.KindTypeMismatches, errs["page"].Kind)
	assert.Equal(t, apperror.KindInvalidProperties, errs["order"].Kind)
	assert.Equal(t, apperror.KindInvalidProperties, errs["debug"].Kind)
	// limit=0 is dropped by omitempty.
	assert.NotContains(t, errs, "limit")
}

func TestTopSegment(t *testing.T) {
	assert.Equal(t, "name", topSegment("createItem.name"))
	assert.Equal(t, "lines", topSegment("createItem.lines[0].sku"))
	assert.Equal(t, "meta", topSegment("createItem.meta.owner.id"))
}
