// internal/app/store/commits/commitstore.go
package commitstore

import (
	"context"
	"time"

	"github.com/dalemusser/sevadesk/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store is the append-only commit ledger. Records are never updated or
// deleted.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("commits")}
}

// Add appends records in one insert. The message rule is enforced by the
// caller before this is reached.
func (s *Store) Add(ctx context.Context, recs ...models.CommitRecord) error {
	if len(recs) == 0 {
		return nil
	}
	now := time.Now().UTC()
	docs := make([]interface{}, len(recs))
	for i, r := range recs {
		if r.ID.IsZero() {
			r.ID = primitive.NewObjectID()
		}
		if r.CreatedAt.IsZero() {
			r.CreatedAt = now
		}
		docs[i] = r
	}
	_, err := s.c.InsertMany(ctx, docs)
	return err
}

// ListByCustomer returns a customer's commits, newest first.
func (s *Store) ListByCustomer(ctx context.Context, customerID primitive.ObjectID, limit int64) ([]models.CommitRecord, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	cur, err := s.c.Find(ctx, bson.M{"customer_id": customerID}, options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(limit))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.CommitRecord
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CountByCustomerAction counts commits of one action for a customer.
func (s *Store) CountByCustomerAction(ctx context.Context, customerID primitive.ObjectID, action string) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"customer_id": customerID, "action": action})
}
