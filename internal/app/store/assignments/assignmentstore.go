// internal/app/store/assignments/assignmentstore.go
package assignmentstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dalemusser/sevadesk/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	// ErrNotFound is returned when no assignment matches.
	ErrNotFound = errors.New("assignment not found")
	// ErrConflict is returned when a conditional write matched nothing
	// because the card changed since it was read.
	ErrConflict = errors.New("assignment changed concurrently")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("assignments")}
}

// Change describes one write to an assignment. Every change bumps the
// version and refreshes updated_at.
type Change struct {
	Set   bson.M
	Unset []string
	Move  *models.MoveEntry
}

func (ch Change) update() bson.M {
	set := bson.M{}
	for k, v := range ch.Set {
		set[k] = v
	}
	if _, ok := set["updated_at"]; !ok {
		set["updated_at"] = time.Now().UTC()
	}
	inc := bson.M{"version": 1}
	u := bson.M{"$set": set, "$inc": inc}
	if len(ch.Unset) > 0 {
		unset := bson.M{}
		for _, k := range ch.Unset {
			unset[k] = ""
		}
		u["$unset"] = unset
	}
	if ch.Move != nil {
		u["$push"] = bson.M{"move_history": ch.Move}
		inc["move_count"] = 1
	}
	return u
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Assignment, error) {
	var a models.Assignment
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&a); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Assignment{}, ErrNotFound
		}
		return models.Assignment{}, err
	}
	return a, nil
}

// GroupMembers returns the live cards of a container sharing pairID, in
// placement order.
func (s *Store) GroupMembers(ctx context.Context, containerID, pairID primitive.ObjectID) ([]models.Assignment, error) {
	return s.find(ctx, bson.M{
		"container_id": containerID,
		"status":       models.StatusInContainer,
		"pair_id":      pairID,
	})
}

// ListLive returns the live cards of a container in placement order.
func (s *Store) ListLive(ctx context.Context, containerID primitive.ObjectID) ([]models.Assignment, error) {
	return s.find(ctx, bson.M{"container_id": containerID, "status": models.StatusInContainer})
}

func (s *Store) find(ctx context.Context, filter bson.M) ([]models.Assignment, error) {
	cur, err := s.c.Find(ctx, filter, options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Assignment
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CountLive counts live cards placed in containerID, skipping exclude.
func (s *Store) CountLive(ctx context.Context, containerID primitive.ObjectID, exclude []primitive.ObjectID) (int64, error) {
	filter := bson.M{"container_id": containerID, "status": models.StatusInContainer}
	if len(exclude) > 0 {
		filter["_id"] = bson.M{"$nin": exclude}
	}
	return s.c.CountDocuments(ctx, filter)
}

// CountReserved counts live MEETING cards holding a reservation on the
// DIKSHA container containerID, skipping exclude. Cards held by a confirm
// keep counting when their prior decision was PENDING.
func (s *Store) CountReserved(ctx context.Context, containerID primitive.ObjectID, exclude []primitive.ObjectID) (int64, error) {
	filter := bson.M{
		"occupied_container_id": containerID,
		"status":                models.StatusInContainer,
		"$or": bson.A{
			bson.M{"meeting_decision": models.DecisionPending},
			bson.M{"meeting_decision": models.DecisionProcessing, "lease.prior_decision": models.DecisionPending},
		},
	}
	if len(exclude) > 0 {
		filter["_id"] = bson.M{"$nin": exclude}
	}
	return s.c.CountDocuments(ctx, filter)
}

// CountLiveForCustomers counts live cards belonging to any of customerIDs.
func (s *Store) CountLiveForCustomers(ctx context.Context, customerIDs []primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{
		"customer_id": bson.M{"$in": customerIDs},
		"status":      models.StatusInContainer,
	})
}

// InsertMany stores new cards after checking each state is reachable.
func (s *Store) InsertMany(ctx context.Context, as []models.Assignment) error {
	docs := make([]interface{}, len(as))
	for i, a := range as {
		if err := a.Validate(); err != nil {
			return fmt.Errorf("assignment %s: %w", a.ID.Hex(), err)
		}
		docs[i] = a
	}
	_, err := s.c.InsertMany(ctx, docs)
	return err
}

// UpdateVersioned applies ch to the live card id only if it still has
// version. It returns ErrConflict when the card moved on.
func (s *Store) UpdateVersioned(ctx context.Context, id primitive.ObjectID, version int64, ch Change) error {
	res, err := s.c.UpdateOne(ctx, bson.M{
		"_id":     id,
		"version": version,
		"status":  models.StatusInContainer,
	}, ch.update())
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrConflict
	}
	return nil
}

// UpdateMany applies ch to the given cards that also match where, and
// returns how many matched. The caller compares the count against the
// number of cards it expected to change.
func (s *Store) UpdateMany(ctx context.Context, ids []primitive.ObjectID, where bson.M, ch Change) (int64, error) {
	filter := bson.M{"_id": bson.M{"$in": ids}}
	for k, v := range where {
		filter[k] = v
	}
	res, err := s.c.UpdateMany(ctx, filter, ch.update())
	if err != nil {
		return 0, err
	}
	return res.MatchedCount, nil
}

// DeleteMany removes the given cards that also match where and returns
// how many were removed.
func (s *Store) DeleteMany(ctx context.Context, ids []primitive.ObjectID, where bson.M) (int64, error) {
	filter := bson.M{"_id": bson.M{"$in": ids}}
	for k, v := range where {
		filter[k] = v
	}
	res, err := s.c.DeleteMany(ctx, filter)
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// AcquireLease moves the listed live cards from expected to PROCESSING
// and stamps them with lease. Cards are taken one at a time in id order
// and acquisition stops at the first card that is not in the expected
// state, so of two callers racing for the same group the one that loses
// the lowest id takes nothing else. It returns how many cards were taken.
func (s *Store) AcquireLease(ctx context.Context, ids []primitive.ObjectID, expected models.Decision, lease models.Lease) (int64, error) {
	lease.PriorDecision = expected
	sorted := append([]primitive.ObjectID(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Hex() < sorted[j].Hex() })

	ch := Change{Set: bson.M{
		"meeting_decision": models.DecisionProcessing,
		"lease":            lease,
	}}
	var taken int64
	for _, id := range sorted {
		res, err := s.c.UpdateOne(ctx, bson.M{
			"_id":              id,
			"status":           models.StatusInContainer,
			"card_status":      bson.M{"$ne": models.CardQualified},
			"meeting_decision": expected,
		}, ch.update())
		if err != nil {
			return taken, err
		}
		if res.MatchedCount == 0 {
			break
		}
		taken++
	}
	return taken, nil
}

// restorePipeline puts back the decision held before the lease.
var restorePipeline = mongo.Pipeline{
	{{Key: "$set", Value: bson.D{
		{Key: "meeting_decision", Value: "$lease.prior_decision"},
		{Key: "updated_at", Value: "$$NOW"},
		{Key: "version", Value: bson.D{{Key: "$add", Value: bson.A{"$version", 1}}}},
	}}},
	{{Key: "$unset", Value: "lease"}},
}

// ReleaseLease restores every card still held under token.
func (s *Store) ReleaseLease(ctx context.Context, token string) (int64, error) {
	res, err := s.c.UpdateMany(ctx, bson.M{
		"lease.token":      token,
		"meeting_decision": models.DecisionProcessing,
	}, restorePipeline)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// ReapExpiredLeases restores cards whose lease expired before now.
func (s *Store) ReapExpiredLeases(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.c.UpdateMany(ctx, bson.M{
		"meeting_decision": models.DecisionProcessing,
		"lease.expires_at": bson.M{"$lt": now.UTC()},
	}, restorePipeline)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// Leased returns the filter fragment matching cards held under token.
func Leased(token string) bson.M {
	return bson.M{"lease.token": token, "meeting_decision": models.DecisionProcessing}
}

// Movable returns the filter fragment matching live cards that are neither
// qualified nor held by a confirm.
func Movable() bson.M {
	return bson.M{
		"status":           models.StatusInContainer,
		"card_status":      bson.M{"$ne": models.CardQualified},
		"meeting_decision": bson.M{"$ne": models.DecisionProcessing},
	}
}

// Live returns the filter fragment matching live cards.
func Live() bson.M {
	return bson.M{"status": models.StatusInContainer}
}
