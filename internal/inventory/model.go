// Package inventory is the stock domain: items, check-in and check-out
// movements, and the history they leave behind. Handlers are wrapped by the
// api package; this package only declares input shapes and business rules.
package inventory

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/keyxmakerx/stockroom/internal/paging"
)

// Movement actions recorded in history.
const (
	ActionCheckIn  = "check-in"
	ActionCheckOut = "check-out"
)

// Item is a stocked thing. Quantity is what is on the shelf; CheckedOut is
// what is currently out with someone.
type Item struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name       string             `bson:"name" json:"name"`
	SKU        string             `bson:"sku,omitempty" json:"sku,omitempty"`
	Category   string             `bson:"category,omitempty" json:"category,omitempty"`
	Location   string             `bson:"location,omitempty" json:"location,omitempty"`
	Quantity   int                `bson:"quantity" json:"quantity"`
	CheckedOut int                `bson:"checked_out" json:"checked_out"`
	CreatedBy  string             `bson:"created_by,omitempty" json:"created_by,omitempty"`
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time          `bson:"updated_at" json:"updated_at"`
}

// HistoryEntry records one movement of stock.
type HistoryEntry struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ItemID   primitive.ObjectID `bson:"item_id" json:"item_id"`
	ItemName string             `bson:"item_name" json:"item_name"`
	Action   string             `bson:"action" json:"action"`
	Quantity int                `bson:"quantity" json:"quantity"`
	UserID   string             `bson:"user_id" json:"user_id"`
	UserName string             `bson:"user_name,omitempty" json:"user_name,omitempty"`
	Notes    string             `bson:"notes,omitempty" json:"notes,omitempty"`
	Date     time.Time          `bson:"date" json:"date"`
}

// Stats summarizes stock for the dashboard.
type Stats struct {
	Items      int64 `bson:"items" json:"items"`
	OnHand     int64 `bson:"on_hand" json:"on_hand"`
	CheckedOut int64 `bson:"checked_out" json:"checked_out"`
}

// Movement is the result of a check-in or check-out.
type Movement struct {
	Item  *Item         `json:"item"`
	Entry *HistoryEntry `json:"entry"`
}

// --- Request schemas (validated by the api wrapper) ---

// CreateItemRequest is the body of POST /api/inventory.
type CreateItemRequest struct {
	Name     string `json:"name" validate:"required,min=1,max=120"`
	SKU      string `json:"sku,omitempty" validate:"omitempty,max=64,printascii"`
	Category string `json:"category,omitempty" validate:"omitempty,max=64"`
	Location string `json:"location,omitempty" validate:"omitempty,max=120"`
	Quantity int    `json:"quantity" validate:"gte=0,lte=1000000"`
}

// MovementRequest is the body of the check-in and check-out endpoints.
type MovementRequest struct {
	Quantity int    `json:"quantity" validate:"required,min=1,max=100000"`
	Notes    string `json:"notes,omitempty" validate:"omitempty,max=500"`
}

// ListItemsQuery is the query of GET /api/inventory.
type ListItemsQuery struct {
	Page  int    `json:"page" validate:"gte=0,lte=1000000"`
	Limit int    `json:"limit" validate:"omitempty,min=1,max=100"`
	Sort  string `json:"sort" validate:"omitempty,oneof=name sku category location quantity checked_out created_at"`
	Order string `json:"order" validate:"omitempty,oneof=asc desc"`
}

// Overrides converts the query into paging overrides.
func (q ListItemsQuery) Overrides() paging.Overrides {
	return overrides(q.Page, q.Limit, q.Sort, q.Order)
}

// ListHistoryQuery is the query of GET /api/history.
type ListHistoryQuery struct {
	Page   int    `json:"page" validate:"gte=0,lte=1000000"`
	Limit  int    `json:"limit" validate:"omitempty,min=1,max=100"`
	Sort   string `json:"sort" validate:"omitempty,oneof=date item_name action quantity"`
	Order  string `json:"order" validate:"omitempty,oneof=asc desc"`
	ItemID string `json:"item_id" validate:"omitempty"`
	Action string `json:"action" validate:"omitempty,oneof=check-in check-out"`
}

// Overrides converts the query into paging overrides. Filters keep a fixed
// order so links built from them are stable.
func (q ListHistoryQuery) Overrides() paging.Overrides {
	o := overrides(q.Page, q.Limit, q.Sort, q.Order)
	if q.ItemID != "" {
		o = o.WithFilter(FilterItemID, q.ItemID)
	}
	if q.Action != "" {
		o = o.WithFilter(FilterAction, q.Action)
	}
	return o
}

// History filter keys.
const (
	FilterItemID = "item_id"
	FilterAction = "action"
)

func overrides(page, limit int, sort, order string) paging.Overrides {
	o := paging.Overrides{}.WithPage(page)
	if limit > 0 {
		o = o.WithLimit(limit)
	}
	if sort != "" {
		o = o.WithSort(sort)
	}
	if order != "" {
		o = o.WithOrder(paging.Order(order))
	}
	return o
}
