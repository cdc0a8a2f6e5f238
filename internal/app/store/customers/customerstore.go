// internal/app/store/customers/customerstore.go
package customerstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/sevadesk/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	// ErrNotFound is returned when a customer is not in the location.
	ErrNotFound = errors.New("customer not found")
	// ErrDuplicate is returned when a customer already exists in the
	// target location.
	ErrDuplicate = errors.New("customer already exists in location")
)

// Collection returns the collection name backing a location.
func Collection(loc models.Location) string {
	return "customers_" + string(loc)
}

// Store reads and relocates customer records across the location
// collections.
type Store struct {
	db *mongo.Database
}

func New(db *mongo.Database) *Store {
	return &Store{db: db}
}

func (s *Store) coll(loc models.Location) *mongo.Collection {
	return s.db.Collection(Collection(loc))
}

// Create inserts a new customer into loc.
func (s *Store) Create(ctx context.Context, loc models.Location, c models.Customer) (models.Customer, error) {
	now := time.Now().UTC()
	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	c.NameCI = text.Fold(c.Name)
	if c.Status == "" {
		c.Status = models.CustomerActive
	}
	c.CreatedAt = now
	c.UpdatedAt = now
	if _, err := s.coll(loc).InsertOne(ctx, c); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Customer{}, ErrDuplicate
		}
		return models.Customer{}, err
	}
	return c, nil
}

func (s *Store) Get(ctx context.Context, loc models.Location, id primitive.ObjectID) (models.Customer, error) {
	var c models.Customer
	if err := s.coll(loc).FindOne(ctx, bson.M{"_id": id}).Decode(&c); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Customer{}, ErrNotFound
		}
		return models.Customer{}, err
	}
	return c, nil
}

// GetMany returns the customers of loc with the given ids in the order of
// ids. It returns ErrNotFound if any id is missing.
func (s *Store) GetMany(ctx context.Context, loc models.Location, ids []primitive.ObjectID) ([]models.Customer, error) {
	cur, err := s.coll(loc).Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var found []models.Customer
	if err := cur.All(ctx, &found); err != nil {
		return nil, err
	}
	byID := make(map[primitive.ObjectID]models.Customer, len(found))
	for _, c := range found {
		byID[c.ID] = c
	}
	out := make([]models.Customer, 0, len(ids))
	for _, id := range ids {
		c, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: %s in %s", ErrNotFound, id.Hex(), loc)
		}
		out = append(out, c)
	}
	return out, nil
}

// Locate finds which location holds the customer.
func (s *Store) Locate(ctx context.Context, id primitive.ObjectID) (models.Customer, models.Location, error) {
	for _, loc := range models.Locations {
		c, err := s.Get(ctx, loc, id)
		if err == nil {
			return c, loc, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return models.Customer{}, "", err
		}
	}
	return models.Customer{}, "", ErrNotFound
}

// CountIn counts how many of ids already exist in loc.
func (s *Store) CountIn(ctx context.Context, loc models.Location, ids []primitive.ObjectID) (int64, error) {
	return s.coll(loc).CountDocuments(ctx, bson.M{"_id": bson.M{"$in": ids}})
}

// InsertMany inserts relocated customers into loc. A duplicate key means
// one of them is already there and surfaces as ErrDuplicate.
func (s *Store) InsertMany(ctx context.Context, loc models.Location, cs []models.Customer) error {
	docs := make([]interface{}, len(cs))
	for i, c := range cs {
		docs[i] = c
	}
	if _, err := s.coll(loc).InsertMany(ctx, docs, options.InsertMany().SetOrdered(true)); err != nil {
		if wafflemongo.IsDup(err) || mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// DeleteMany removes ids from loc and returns how many were removed.
func (s *Store) DeleteMany(ctx context.Context, loc models.Location, ids []primitive.ObjectID) (int64, error) {
	res, err := s.coll(loc).DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// Relocate moves customers from one location to another. mutate adjusts
// each record before it is inserted at the destination.
func (s *Store) Relocate(ctx context.Context, from, to models.Location, cs []models.Customer, mutate func(*models.Customer)) ([]models.Customer, error) {
	now := time.Now().UTC()
	moved := make([]models.Customer, len(cs))
	ids := make([]primitive.ObjectID, len(cs))
	for i, c := range cs {
		if mutate != nil {
			mutate(&c)
		}
		c.UpdatedAt = now
		moved[i] = c
		ids[i] = c.ID
	}
	if err := s.InsertMany(ctx, to, moved); err != nil {
		return nil, err
	}
	if _, err := s.DeleteMany(ctx, from, ids); err != nil {
		return nil, err
	}
	return moved, nil
}

// SetPlacement updates the sitting customers' status and back-reference.
// A nil containerID clears the back-reference.
func (s *Store) SetPlacement(ctx context.Context, ids []primitive.ObjectID, status models.CustomerStatus, containerID *primitive.ObjectID) error {
	update := bson.M{}
	set := bson.M{"status": status, "updated_at": time.Now().UTC()}
	if containerID != nil {
		set["active_container_id"] = *containerID
	} else {
		update["$unset"] = bson.M{"active_container_id": ""}
	}
	update["$set"] = set
	_, err := s.coll(models.LocationSitting).UpdateMany(ctx, bson.M{"_id": bson.M{"$in": ids}}, update)
	return err
}

// MarkQualified flags sitting customers as diksha-qualified.
func (s *Store) MarkQualified(ctx context.Context, ids []primitive.ObjectID) error {
	_, err := s.coll(models.LocationSitting).UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": ids}},
		bson.M{"$set": bson.M{"diksha_qualified": true, "updated_at": time.Now().UTC()}},
	)
	return err
}
