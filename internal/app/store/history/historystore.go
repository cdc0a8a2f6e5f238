// internal/app/store/history/historystore.go
package historystore

import (
	"context"
	"time"

	"github.com/dalemusser/sevadesk/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store archives snapshots of cards leaving the pipeline. It only inserts.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("history_snapshots")}
}

// Record appends snapshots.
func (s *Store) Record(ctx context.Context, snaps ...models.HistorySnapshot) error {
	if len(snaps) == 0 {
		return nil
	}
	now := time.Now().UTC()
	docs := make([]interface{}, len(snaps))
	for i, h := range snaps {
		if h.ID.IsZero() {
			h.ID = primitive.NewObjectID()
		}
		if h.CreatedAt.IsZero() {
			h.CreatedAt = now
		}
		docs[i] = h
	}
	_, err := s.c.InsertMany(ctx, docs)
	return err
}

// Filter narrows List. Dates are container date keys, inclusive.
type Filter struct {
	Status     models.SnapshotStatus
	CustomerID *primitive.ObjectID
	From       string
	To         string
	Limit      int64
}

// List returns snapshots matching f, newest first.
func (s *Store) List(ctx context.Context, f Filter) ([]models.HistorySnapshot, error) {
	q := bson.M{}
	if f.Status != "" {
		q["status"] = f.Status
	}
	if f.CustomerID != nil {
		q["customer._id"] = *f.CustomerID
	}
	if f.From != "" || f.To != "" {
		dq := bson.M{}
		if f.From != "" {
			dq["$gte"] = f.From
		}
		if f.To != "" {
			dq["$lte"] = f.To
		}
		q["date"] = dq
	}
	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	cur, err := s.c.Find(ctx, q, options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(limit))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.HistorySnapshot
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
