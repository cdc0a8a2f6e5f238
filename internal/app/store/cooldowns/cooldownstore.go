// internal/app/store/cooldowns/cooldownstore.go
package cooldownstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/sevadesk/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("cooldown_settings")}
}

// Get returns the active override for userID. ok is false when the user
// has none.
func (s *Store) Get(ctx context.Context, userID primitive.ObjectID) (models.CooldownSetting, bool, error) {
	var cs models.CooldownSetting
	err := s.c.FindOne(ctx, bson.M{"_id": userID, "active": true}).Decode(&cs)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.CooldownSetting{}, false, nil
		}
		return models.CooldownSetting{}, false, err
	}
	return cs, true, nil
}

// Set upserts an active override.
func (s *Store) Set(ctx context.Context, userID primitive.ObjectID, minutes int, by primitive.ObjectID) (models.CooldownSetting, error) {
	now := time.Now().UTC()
	var cs models.CooldownSetting
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": userID},
		bson.M{"$set": bson.M{
			"minutes":    minutes,
			"active":     true,
			"set_by_id":  by,
			"updated_at": now,
		}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&cs)
	if err != nil {
		return models.CooldownSetting{}, err
	}
	return cs, nil
}

// Clear deactivates the override, keeping the record for reference.
func (s *Store) Clear(ctx context.Context, userID primitive.ObjectID, by primitive.ObjectID) error {
	_, err := s.c.UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{"$set": bson.M{"active": false, "set_by_id": by, "updated_at": time.Now().UTC()}},
	)
	return err
}
