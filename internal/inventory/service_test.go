package inventory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/keyxmakerx/stockroom/internal/apperror"
	"github.com/keyxmakerx/stockroom/internal/auth"
	"github.com/keyxmakerx/stockroom/internal/paging"
)

// --- Mock Repository ---

// mockRepo implements Repository for testing.
type mockRepo struct {
	listItemsFn     func(ctx context.Context, p paging.Params) ([]Item, int64, error)
	findItemFn      func(ctx context.Context, id primitive.ObjectID) (*Item, error)
	createItemFn    func(ctx context.Context, item *Item) error
	adjustFn        func(ctx context.Context, id primitive.ObjectID, qty int) (*Item, error)
	insertHistoryFn func(ctx context.Context, entry *HistoryEntry) error
	listHistoryFn   func(ctx context.Context, f HistoryFilter, p paging.Params) ([]HistoryEntry, int64, error)
	statsFn         func(ctx context.Context) (Stats, error)
}

func (m *mockRepo) ListItems(ctx context.Context, p paging.Params) ([]Item, int64, error) {
	if m.listItemsFn != nil {
		return m.listItemsFn(ctx, p)
	}
	return nil, 0, nil
}

func (m *mockRepo) FindItem(ctx context.Context, id primitive.ObjectID) (*Item, error) {
	if m.findItemFn != nil {
		return m.findItemFn(ctx, id)
	}
	return nil, apperror.NewNotFound("item " + id.Hex())
}

func (m *mockRepo) CreateItem(ctx context.Context, item *Item) error {
	if m.createItemFn != nil {
		return m.createItemFn(ctx, item)
	}
	item.ID = primitive.NewObjectID()
	return nil
}

func (m *mockRepo) Adjust(ctx context.Context, id primitive.ObjectID, qty int) (*Item, error) {
	if m.adjustFn != nil {
		return m.adjustFn(ctx, id, qty)
	}
	return &Item{ID: id, Name: "Drill"}, nil
}

func (m *mockRepo) InsertHistory(ctx context.Context, entry *HistoryEntry) error {
	if m.insertHistoryFn != nil {
		return m.insertHistoryFn(ctx, entry)
	}
	return nil
}

func (m *mockRepo) ListHistory(ctx context.Context, f HistoryFilter, p paging.Params) ([]HistoryEntry, int64, error) {
	if m.listHistoryFn != nil {
		return m.listHistoryFn(ctx, f, p)
	}
	return nil, 0, nil
}

func (m *mockRepo) Stats(ctx context.Context) (Stats, error) {
	if m.statsFn != nil {
		return m.statsFn(ctx)
	}
	return Stats{}, nil
}

// --- Helpers ---

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestService(repo *mockRepo) *service {
	return &service{repo: repo, now: func() time.Time { return fixedNow }}
}

func actor() *auth.Session {
	return &auth.Session{UserID: "u1", Name: "Ada", Expires: fixedNow.Add(time.Hour)}
}

// --- Tests ---

func TestParseID(t *testing.T) {
	oid := primitive.NewObjectID()
	got, err := ParseID(oid.Hex())
	require.NoError(t, err)
	assert.Equal(t, oid, got)

	_, err = ParseID("not-an-id")
	require.Error(t, err)
	assert.Equal(t, apperror.KindInvalidIDFormat, apperror.KindOf(err))
}

func TestGetItem_InvalidID(t *testing.T) {
	svc := newTestService(&mockRepo{})

	_, err := svc.GetItem(context.Background(), "123")
	assert.Equal(t, apperror.KindInvalidIDFormat, apperror.KindOf(err))
}

func TestGetItem_NotFoundPassesThrough(t *testing.T) {
	svc := newTestService(&mockRepo{})

	_, err := svc.GetItem(context.Background(), primitive.NewObjectID().Hex())
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
}

func TestListItems(t *testing.T) {
	var got paging.Params
	repo := &mockRepo{listItemsFn: func(_ context.Context, p paging.Params) ([]Item, int64, error) {
		got = p
		return []Item{{Name: "Drill"}}, 12, nil
	}}
	svc := newTestService(repo)
	p := paging.Resolve(paging.Inventory, paging.Overrides{}.WithPage(1))

	page, err := svc.ListItems(context.Background(), p)
	require.NoError(t, err)

	assert.Equal(t, p, got)
	assert.Len(t, page.Items, 1)
	assert.Equal(t, int64(12), page.Meta.Total)
	assert.Equal(t, 3, page.Meta.TotalPages)
	assert.True(t, page.Meta.HasPrevious)
	assert.True(t, page.Meta.HasNext)
}

func TestListItems_Empty(t *testing.T) {
	svc := newTestService(&mockRepo{})

	_, err := svc.ListItems(context.Background(), paging.Resolve(paging.Inventory, paging.Overrides{}))
	assert.Equal(t, apperror.KindNoResultsFound, apperror.KindOf(err))
}

func TestListItems_RepoErrorIsInternal(t *testing.T) {
	repo := &mockRepo{listItemsFn: func(context.Context, paging.Params) ([]Item, int64, error) {
		return nil, 0, errors.New("connection reset")
	}}
	svc := newTestService(repo)

	_, err := svc.ListItems(context.Background(), paging.Params{})
	assert.Equal(t, apperror.KindInternal, apperror.KindOf(err))
	assert.Equal(t, "Internal Server Error", apperror.SafeMessage(err))
}

func TestCreateItem_SanitizesAndStamps(t *testing.T) {
	var saved *Item
	repo := &mockRepo{createItemFn: func(_ context.Context, item *Item) error {
		saved = item
		item.ID = primitive.NewObjectID()
		return nil
	}}
	svc := newTestService(repo)

	item, err := svc.CreateItem(context.Background(), CreateItemRequest{
		Name:     "<b>Cordless</b>   drill",
		SKU:      "DR-1",
		Quantity: 3,
	}, actor())
	require.NoError(t, err)

	assert.Same(t, saved, item)
	assert.Equal(t, "Cordless drill", item.Name)
	assert.Equal(t, "u1", item.CreatedBy)
	assert.Equal(t, fixedNow, item.CreatedAt)
	assert.Equal(t, 3, item.Quantity)
}

func TestCreateItem_NameEmptyAfterSanitizing(t *testing.T) {
	svc := newTestService(&mockRepo{})

	_, err := svc.CreateItem(context.Background(), CreateItemRequest{Name: "<script>x</script>"}, actor())
	assert.Equal(t, apperror.KindInvalidProperties, apperror.KindOf(err))
}

func TestCreateItem_DomainErrorPassesThrough(t *testing.T) {
	repo := &mockRepo{createItemFn: func(context.Context, *Item) error {
		return apperror.NewInvalidProperties("sku already exists")
	}}
	svc := newTestService(repo)

	_, err := svc.CreateItem(context.Background(), CreateItemRequest{Name: "Drill"}, actor())
	assert.Equal(t, apperror.KindInvalidProperties, apperror.KindOf(err))
	assert.Equal(t, "InvalidProperties: sku already exists", apperror.SafeMessage(err))
}

func TestCheckOut_RecordsHistory(t *testing.T) {
	id := primitive.NewObjectID()
	var delta int
	var recorded *HistoryEntry
	repo := &mockRepo{
		adjustFn: func(_ context.Context, got primitive.ObjectID, qty int) (*Item, error) {
			delta = qty
			return &Item{ID: got, Name: "Drill", Quantity: 2, CheckedOut: 1}, nil
		},
		insertHistoryFn: func(_ context.Context, e *HistoryEntry) error {
			recorded = e
			return nil
		},
	}
	svc := newTestService(repo)

	mv, err := svc.CheckOut(context.Background(), id.Hex(), MovementRequest{Quantity: 1, Notes: "<i>site A</i>"}, actor())
	require.NoError(t, err)

	assert.Equal(t, 1, delta)
	require.NotNil(t, recorded)
	assert.Same(t, recorded, mv.Entry)
	assert.Equal(t, id, recorded.ItemID)
	assert.Equal(t, "Drill", recorded.ItemName)
	assert.Equal(t, ActionCheckOut, recorded.Action)
	assert.Equal(t, "u1", recorded.UserID)
	assert.Equal(t, "Ada", recorded.UserName)
	assert.Equal(t, "site A", recorded.Notes)
	assert.Equal(t, fixedNow, recorded.Date)
}

func TestCheckIn_NegativeDelta(t *testing.T) {
	var delta int
	repo := &mockRepo{adjustFn: func(_ context.Context, id primitive.ObjectID, qty int) (*Item, error) {
		delta = qty
		return &Item{ID: id}, nil
	}}
	svc := newTestService(repo)

	mv, err := svc.CheckIn(context.Background(), primitive.NewObjectID().Hex(), MovementRequest{Quantity: 4}, actor())
	require.NoError(t, err)
	assert.Equal(t, -4, delta)
	assert.Equal(t, ActionCheckIn, mv.Entry.Action)
}

func TestMove_InsufficientStock(t *testing.T) {
	repo := &mockRepo{adjustFn: func(context.Context, primitive.ObjectID, int) (*Item, error) {
		return nil, ErrInsufficientStock
	}}
	svc := newTestService(repo)

	_, err := svc.CheckOut(context.Background(), primitive.NewObjectID().Hex(), MovementRequest{Quantity: 9}, actor())
	assert.Equal(t, apperror.KindInvalidProperties, apperror.KindOf(err))
	assert.Contains(t, apperror.SafeMessage(err), "stock on hand")

	_, err = svc.CheckIn(context.Background(), primitive.NewObjectID().Hex(), MovementRequest{Quantity: 9}, actor())
	assert.Contains(t, apperror.SafeMessage(err), "checked out stock")
}

func TestMove_Guards(t *testing.T) {
	adjusted := false
	repo := &mockRepo{adjustFn: func(context.Context, primitive.ObjectID, int) (*Item, error) {
		adjusted = true
		return &Item{}, nil
	}}
	svc := newTestService(repo)
	ctx := context.Background()

	_, err := svc.CheckOut(ctx, primitive.NewObjectID().Hex(), MovementRequest{Quantity: 1}, nil)
	assert.Equal(t, apperror.KindUnauthorized, apperror.KindOf(err))

	_, err = svc.CheckOut(ctx, "bad", MovementRequest{Quantity: 1}, actor())
	assert.Equal(t, apperror.KindInvalidIDFormat, apperror.KindOf(err))

	_, err = svc.CheckOut(ctx, primitive.NewObjectID().Hex(), MovementRequest{Quantity: 0}, actor())
	assert.Equal(t, apperror.KindInvalidProperties, apperror.KindOf(err))

	assert.False(t, adjusted)
}

func TestMove_HistoryFailureUndoesAdjustment(t *testing.T) {
	var deltas []int
	repo := &mockRepo{
		adjustFn: func(_ context.Context, id primitive.ObjectID, qty int) (*Item, error) {
			deltas = append(deltas, qty)
			return &Item{ID: id, Name: "Drill"}, nil
		},
		insertHistoryFn: func(context.Context, *HistoryEntry) error {
			return errors.New("write concern")
		},
	}
	svc := newTestService(repo)

	mv, err := svc.CheckOut(context.Background(), primitive.NewObjectID().Hex(), MovementRequest{Quantity: 3}, actor())

	require.Error(t, err)
	assert.Nil(t, mv)
	assert.Equal(t, apperror.KindInternal, apperror.KindOf(err))
	assert.Equal(t, []int{3, -3}, deltas)
}

func TestMove_HistoryFailureWhenUndoAlsoFails(t *testing.T) {
	calls := 0
	repo := &mockRepo{
		adjustFn: func(_ context.Context, id primitive.ObjectID, _ int) (*Item, error) {
			calls++
			if calls > 1 {
				return nil, errors.New("connection reset")
			}
			return &Item{ID: id}, nil
		},
		insertHistoryFn: func(context.Context, *HistoryEntry) error {
			return errors.New("write concern")
		},
	}
	svc := newTestService(repo)

	_, err := svc.CheckIn(context.Background(), primitive.NewObjectID().Hex(), MovementRequest{Quantity: 1}, actor())

	require.Error(t, err)
	assert.Equal(t, apperror.KindInternal, apperror.KindOf(err))
	assert.Equal(t, 2, calls)
}

func TestHistory_Filters(t *testing.T) {
	id := primitive.NewObjectID()
	var got HistoryFilter
	repo := &mockRepo{listHistoryFn: func(_ context.Context, f HistoryFilter, _ paging.Params) ([]HistoryEntry, int64, error) {
		got = f
		return []HistoryEntry{{ItemID: id}}, 1, nil
	}}
	svc := newTestService(repo)

	o := paging.Overrides{}.WithFilter(FilterItemID, id.Hex()).WithFilter(FilterAction, ActionCheckIn)
	page, err := svc.History(context.Background(), paging.Resolve(paging.History, o))
	require.NoError(t, err)

	require.NotNil(t, got.ItemID)
	assert.Equal(t, id, *got.ItemID)
	assert.Equal(t, ActionCheckIn, got.Action)
	assert.Len(t, page.Items, 1)
}

func TestHistory_InvalidItemFilter(t *testing.T) {
	svc := newTestService(&mockRepo{})

	o := paging.Overrides{}.WithFilter(FilterItemID, "zzz")
	_, err := svc.History(context.Background(), paging.Resolve(paging.History, o))
	assert.Equal(t, apperror.KindInvalidIDFormat, apperror.KindOf(err))
}

func TestHistory_Empty(t *testing.T) {
	svc := newTestService(&mockRepo{})

	_, err := svc.History(context.Background(), paging.Resolve(paging.History, paging.Overrides{}))
	assert.Equal(t, apperror.KindNoResultsFound, apperror.KindOf(err))
}

func TestStats(t *testing.T) {
	repo := &mockRepo{statsFn: func(context.Context) (Stats, error) {
		return Stats{Items: 2, OnHand: 7, CheckedOut: 1}, nil
	}}
	svc := newTestService(repo)

	st, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Stats{Items: 2, OnHand: 7, CheckedOut: 1}, st)
}
