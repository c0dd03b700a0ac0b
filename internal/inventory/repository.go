package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/keyxmakerx/stockroom/internal/apperror"
	"github.com/keyxmakerx/stockroom/internal/paging"
)

// Collection names.
const (
	itemsCollection   = "items"
	historyCollection = "history"
)

// ErrInsufficientStock is returned by Adjust when the guarded field would go
// negative.
var ErrInsufficientStock = errors.New("insufficient stock")

// HistoryFilter narrows a history listing.
type HistoryFilter struct {
	ItemID *primitive.ObjectID
	Action string
}

// Repository defines the data access contract for inventory documents.
// All methods take a context for cancellation and timeout propagation.
type Repository interface {
	ListItems(ctx context.Context, p paging.Params) ([]Item, int64, error)
	FindItem(ctx context.Context, id primitive.ObjectID) (*Item, error)
	CreateItem(ctx context.Context, item *Item) error

	// Adjust moves qty units between shelf and checked-out in one atomic
	// update. A positive qty checks out, a negative qty checks in.
	Adjust(ctx context.Context, id primitive.ObjectID, qty int) (*Item, error)

	InsertHistory(ctx context.Context, entry *HistoryEntry) error
	ListHistory(ctx context.Context, f HistoryFilter, p paging.Params) ([]HistoryEntry, int64, error)
	Stats(ctx context.Context) (Stats, error)
}

// mongoRepository implements Repository with MongoDB.
type mongoRepository struct {
	items   *mongo.Collection
	history *mongo.Collection
}

// NewRepository creates a MongoDB-backed repository.
func NewRepository(db *mongo.Database) Repository {
	return &mongoRepository{
		items:   db.Collection(itemsCollection),
		history: db.Collection(historyCollection),
	}
}

// EnsureIndexes creates the indexes listings and lookups rely on.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(itemsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "name", Value: 1}}},
		{
			Keys:    bson.D{{Key: "sku", Value: 1}},
			Options: options.Index().SetUnique(true).SetPartialFilterExpression(bson.M{"sku": bson.M{"$type": "string"}}),
		},
	})
	if err != nil {
		return fmt.Errorf("creating item indexes: %w", err)
	}

	_, err = db.Collection(historyCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "date", Value: -1}}},
		{Keys: bson.D{{Key: "item_id", Value: 1}, {Key: "date", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("creating history indexes: %w", err)
	}
	return nil
}

// findOptions turns paging params into a sorted, bounded find. _id breaks
// ties so page boundaries are stable.
func findOptions(p paging.Params) *options.FindOptions {
	sort := bson.D{}
	if p.Sort != "" {
		sort = append(sort, bson.E{Key: p.Sort, Value: p.Order.Direction()})
	}
	sort = append(sort, bson.E{Key: "_id", Value: p.Order.Direction()})

	return options.Find().
		SetSort(sort).
		SetSkip(p.Skip()).
		SetLimit(int64(p.Limit))
}

func (r *mongoRepository) ListItems(ctx context.Context, p paging.Params) ([]Item, int64, error) {
	total, err := r.items.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, fmt.Errorf("counting items: %w", err)
	}

	cursor, err := r.items.Find(ctx, bson.M{}, findOptions(p))
	if err != nil {
		return nil, 0, fmt.Errorf("listing items: %w", err)
	}
	defer cursor.Close(ctx)

	var items []Item
	if err := cursor.All(ctx, &items); err != nil {
		return nil, 0, fmt.Errorf("decoding items: %w", err)
	}
	return items, total, nil
}

func (r *mongoRepository) FindItem(ctx context.Context, id primitive.ObjectID) (*Item, error) {
	var item Item
	err := r.items.FindOne(ctx, bson.M{"_id": id}).Decode(&item)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperror.NewNotFound("item " + id.Hex())
	}
	if err != nil {
		return nil, fmt.Errorf("finding item: %w", err)
	}
	return &item, nil
}

func (r *mongoRepository) CreateItem(ctx context.Context, item *Item) error {
	if item.ID.IsZero() {
		item.ID = primitive.NewObjectID()
	}
	if _, err := r.items.InsertOne(ctx, item); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperror.NewInvalidProperties("sku already exists")
		}
		return fmt.Errorf("inserting item: %w", err)
	}
	return nil
}

func (r *mongoRepository) Adjust(ctx context.Context, id primitive.ObjectID, qty int) (*Item, error) {
	// The guard keeps both counters non-negative under concurrent updates.
	guard := "quantity"
	need := qty
	if qty < 0 {
		guard = "checked_out"
		need = -qty
	}

	filter := bson.M{"_id": id, guard: bson.M{"$gte": need}}
	update := bson.M{
		"$inc": bson.M{"quantity": -qty, "checked_out": qty},
		"$set": bson.M{"updated_at": time.Now().UTC()},
	}

	var item Item
	err := r.items.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&item)
	if errors.Is(err, mongo.ErrNoDocuments) {
		// Tell a missing item apart from a failed guard.
		if _, findErr := r.FindItem(ctx, id); findErr != nil {
			return nil, findErr
		}
		return nil, ErrInsufficientStock
	}
	if err != nil {
		return nil, fmt.Errorf("adjusting item: %w", err)
	}
	return &item, nil
}

func (r *mongoRepository) InsertHistory(ctx context.Context, entry *HistoryEntry) error {
	if entry.ID.IsZero() {
		entry.ID = primitive.NewObjectID()
	}
	if _, err := r.history.InsertOne(ctx, entry); err != nil {
		return fmt.Errorf("inserting history entry: %w", err)
	}
	return nil
}

func (r *mongoRepository) ListHistory(ctx context.Context, f HistoryFilter, p paging.Params) ([]HistoryEntry, int64, error) {
	filter := bson.M{}
	if f.ItemID != nil {
		filter["item_id"] = *f.ItemID
	}
	if f.Action != "" {
		filter["action"] = f.Action
	}

	total, err := r.history.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("counting history: %w", err)
	}

	cursor, err := r.history.Find(ctx, filter, findOptions(p))
	if err != nil {
		return nil, 0, fmt.Errorf("listing history: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []HistoryEntry
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, 0, fmt.Errorf("decoding history: %w", err)
	}
	return entries, total, nil
}

func (r *mongoRepository) Stats(ctx context.Context) (Stats, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "items", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "on_hand", Value: bson.D{{Key: "$sum", Value: "$quantity"}}},
			{Key: "checked_out", Value: bson.D{{Key: "$sum", Value: "$checked_out"}}},
		}}},
	}

	cursor, err := r.items.Aggregate(ctx, pipeline)
	if err != nil {
		return Stats{}, fmt.Errorf("aggregating stats: %w", err)
	}
	defer cursor.Close(ctx)

	var out []Stats
	if err := cursor.All(ctx, &out); err != nil {
		return Stats{}, fmt.Errorf("decoding stats: %w", err)
	}
	if len(out) == 0 {
		return Stats{}, nil
	}
	return out[0], nil
}
