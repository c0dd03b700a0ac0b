package inventory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/keyxmakerx/stockroom/internal/apperror"
	"github.com/keyxmakerx/stockroom/internal/auth"
	"github.com/keyxmakerx/stockroom/internal/paging"
	"github.com/keyxmakerx/stockroom/internal/sanitize"
)

// Service defines the business logic contract for inventory. Handlers call
// these methods; they never touch the repository directly.
type Service interface {
	ListItems(ctx context.Context, p paging.Params) (paging.Page[Item], error)
	GetItem(ctx context.Context, id string) (*Item, error)
	CreateItem(ctx context.Context, req CreateItemRequest, actor *auth.Session) (*Item, error)
	CheckOut(ctx context.Context, id string, req MovementRequest, actor *auth.Session) (*Movement, error)
	CheckIn(ctx context.Context, id string, req MovementRequest, actor *auth.Session) (*Movement, error)
	History(ctx context.Context, p paging.Params) (paging.Page[HistoryEntry], error)
	Stats(ctx context.Context) (Stats, error)
}

type service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates a new inventory service.
func NewService(repo Repository) Service {
	return &service{repo: repo, now: time.Now}
}

// ParseID parses a hex object ID, reporting InvalidIdFormat on failure.
func ParseID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, apperror.NewInvalidIDFormat(id)
	}
	return oid, nil
}

func (s *service) ListItems(ctx context.Context, p paging.Params) (paging.Page[Item], error) {
	items, total, err := s.repo.ListItems(ctx, p)
	if err != nil {
		return paging.Page[Item]{}, apperror.NewInternal(err)
	}
	if total == 0 {
		return paging.Page[Item]{}, apperror.NewNoResultsFound("items")
	}
	return paging.NewPage(items, p, total), nil
}

func (s *service) GetItem(ctx context.Context, id string) (*Item, error) {
	oid, err := ParseID(id)
	if err != nil {
		return nil, err
	}
	return s.repo.FindItem(ctx, oid)
}

func (s *service) CreateItem(ctx context.Context, req CreateItemRequest, actor *auth.Session) (*Item, error) {
	name := sanitize.Text(req.Name)
	if name == "" {
		return nil, apperror.NewInvalidProperties("name")
	}

	now := s.now().UTC()
	item := &Item{
		Name:      name,
		SKU:       sanitize.Text(req.SKU),
		Category:  sanitize.Text(req.Category),
		Location:  sanitize.Text(req.Location),
		Quantity:  req.Quantity,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if actor != nil {
		item.CreatedBy = actor.UserID
	}

	if err := s.repo.CreateItem(ctx, item); err != nil {
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, apperror.NewInternal(fmt.Errorf("creating item: %w", err))
	}

	slog.Info("item created",
		slog.String("item_id", item.ID.Hex()),
		slog.String("name", item.Name),
	)
	return item, nil
}

func (s *service) CheckOut(ctx context.Context, id string, req MovementRequest, actor *auth.Session) (*Movement, error) {
	return s.move(ctx, id, ActionCheckOut, req, actor)
}

func (s *service) CheckIn(ctx context.Context, id string, req MovementRequest, actor *auth.Session) (*Movement, error) {
	return s.move(ctx, id, ActionCheckIn, req, actor)
}

// move applies a stock movement and records it in history.
func (s *service) move(ctx context.Context, id, action string, req MovementRequest, actor *auth.Session) (*Movement, error) {
	if actor == nil {
		return nil, apperror.NewUnauthorized()
	}
	oid, err := ParseID(id)
	if err != nil {
		return nil, err
	}
	if req.Quantity <= 0 {
		return nil, apperror.NewInvalidProperties("quantity")
	}

	delta := req.Quantity
	if action == ActionCheckIn {
		delta = -req.Quantity
	}

	item, err := s.repo.Adjust(ctx, oid, delta)
	if err != nil {
		if errors.Is(err, ErrInsufficientStock) {
			if action == ActionCheckOut {
				return nil, apperror.NewInvalidProperties("quantity exceeds stock on hand")
			}
			return nil, apperror.NewInvalidProperties("quantity exceeds checked out stock")
		}
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, apperror.NewInternal(fmt.Errorf("adjusting stock: %w", err))
	}

	entry := &HistoryEntry{
		ItemID:   item.ID,
		ItemName: item.Name,
		Action:   action,
		Quantity: req.Quantity,
		UserID:   actor.UserID,
		UserName: actor.Name,
		Notes:    sanitize.Text(req.Notes),
		Date:     s.now().UTC(),
	}
	if err := s.repo.InsertHistory(ctx, entry); err != nil {
		// Every stock change has a history entry, so the adjustment is undone.
		// The undo runs even if the request was cancelled.
		if _, undoErr := s.repo.Adjust(context.WithoutCancel(ctx), oid, -delta); undoErr != nil {
			slog.Error("undoing stock movement failed",
				slog.String("item_id", oid.Hex()),
				slog.String("action", action),
				slog.Int("quantity", req.Quantity),
				slog.Any("history_error", err),
				slog.Any("error", undoErr),
			)
		}
		return nil, apperror.NewInternal(fmt.Errorf("recording history: %w", err))
	}

	slog.Info("stock moved",
		slog.String("item_id", item.ID.Hex()),
		slog.String("action", action),
		slog.Int("quantity", req.Quantity),
		slog.String("user_id", actor.UserID),
	)
	return &Movement{Item: item, Entry: entry}, nil
}

func (s *service) History(ctx context.Context, p paging.Params) (paging.Page[HistoryEntry], error) {
	var f HistoryFilter
	if raw := p.Filter(FilterItemID); raw != "" {
		oid, err := ParseID(raw)
		if err != nil {
			return paging.Page[HistoryEntry]{}, err
		}
		f.ItemID = &oid
	}
	f.Action = p.Filter(FilterAction)

	entries, total, err := s.repo.ListHistory(ctx, f, p)
	if err != nil {
		return paging.Page[HistoryEntry]{}, apperror.NewInternal(err)
	}
	if total == 0 {
		return paging.Page[HistoryEntry]{}, apperror.NewNoResultsFound("history")
	}
	return paging.NewPage(entries, p, total), nil
}

func (s *service) Stats(ctx context.Context) (Stats, error) {
	st, err := s.repo.Stats(ctx)
	if err != nil {
		return Stats{}, apperror.NewInternal(err)
	}
	return st, nil
}
