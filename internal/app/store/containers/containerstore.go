// internal/app/store/containers/containerstore.go
package containerstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/sevadesk/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrNotFound is returned when no container matches.
var ErrNotFound = errors.New("container not found")

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("containers")}
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Container, error) {
	var c models.Container
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&c); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Container{}, ErrNotFound
		}
		return models.Container{}, err
	}
	return c, nil
}

// Find returns the container for (date, mode) without creating it.
func (s *Store) Find(ctx context.Context, date string, mode models.Mode) (models.Container, error) {
	var c models.Container
	if err := s.c.FindOne(ctx, bson.M{"date": date, "mode": mode}).Decode(&c); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Container{}, ErrNotFound
		}
		return models.Container{}, err
	}
	return c, nil
}

// GetOrCreate upserts the container keyed by (date, mode). The limit is
// only written on insert; updated_at is refreshed on every call.
//
// Two concurrent upserts of the same key can race on the unique index; the
// loser retries once and then finds the winner's document.
func (s *Store) GetOrCreate(ctx context.Context, date string, mode models.Mode, defaultLimit int) (models.Container, error) {
	if defaultLimit <= 0 {
		defaultLimit = models.DefaultContainerLimit
	}
	now := time.Now().UTC()
	filter := bson.M{"date": date, "mode": mode}
	update := bson.M{
		"$set": bson.M{"updated_at": now},
		"$setOnInsert": bson.M{
			"_id":        primitive.NewObjectID(),
			"date":       date,
			"mode":       mode,
			"limit":      defaultLimit,
			"created_at": now,
		},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var c models.Container
	err := s.c.FindOneAndUpdate(ctx, filter, update, opts).Decode(&c)
	if err != nil && wafflemongo.IsDup(err) {
		err = s.c.FindOneAndUpdate(ctx, filter, update, opts).Decode(&c)
	}
	if err != nil {
		return models.Container{}, err
	}
	return c, nil
}

// SetUnlock opens (until != nil) or closes (until == nil) the admin unlock
// window and returns the updated container.
func (s *Store) SetUnlock(ctx context.Context, id primitive.ObjectID, until *time.Time, by primitive.ObjectID) (models.Container, error) {
	update := bson.M{}
	if until != nil {
		update["$set"] = bson.M{
			"unlock_expires_at": until.UTC(),
			"unlocked_by_id":    by,
			"updated_at":        time.Now().UTC(),
		}
	} else {
		update["$set"] = bson.M{"updated_at": time.Now().UTC()}
		update["$unset"] = bson.M{"unlock_expires_at": "", "unlocked_by_id": ""}
	}
	return s.findAndUpdate(ctx, id, update)
}

// SetLimit changes the slot limit.
func (s *Store) SetLimit(ctx context.Context, id primitive.ObjectID, limit int) (models.Container, error) {
	return s.findAndUpdate(ctx, id, bson.M{"$set": bson.M{
		"limit":      limit,
		"updated_at": time.Now().UTC(),
	}})
}

func (s *Store) findAndUpdate(ctx context.Context, id primitive.ObjectID, update bson.M) (models.Container, error) {
	var c models.Container
	err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&c)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Container{}, ErrNotFound
		}
		return models.Container{}, err
	}
	return c, nil
}

// ListRange returns every container with from <= date <= to, ordered by
// date then mode. An empty mode lists both modes. The result is not
// capped; the (date, mode) index allows at most two containers per day, so
// callers bound it by bounding the range.
func (s *Store) ListRange(ctx context.Context, from, to string, mode models.Mode) ([]models.Container, error) {
	dateQ := bson.M{}
	if from != "" {
		dateQ["$gte"] = from
	}
	if to != "" {
		dateQ["$lte"] = to
	}
	filter := bson.M{}
	if len(dateQ) > 0 {
		filter["date"] = dateQ
	}
	if mode != "" {
		filter["mode"] = mode
	}

	cur, err := s.c.Find(ctx, filter, options.Find().
		SetSort(bson.D{{Key: "date", Value: 1}, {Key: "mode", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Container
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
