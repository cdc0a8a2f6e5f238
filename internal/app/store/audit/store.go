// internal/app/store/audit/store.go
package audit

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Event categories
const (
	CategoryCalendar = "calendar"
	CategoryAdmin    = "admin"
)

// Calendar events
const (
	EventCardsApproved    = "cards_approved"
	EventCardsShifted     = "cards_shifted"
	EventBypassToggled    = "bypass_toggled"
	EventDateChanged      = "date_changed"
	EventCardsConfirmed   = "cards_confirmed"
	EventCardsRejected    = "cards_rejected"
	EventCardsOut         = "cards_out"
	EventCardsQualified   = "cards_qualified"
	EventConfirmContended = "confirm_contended"
)

// Admin events
const (
	EventContainerUnlocked     = "container_unlocked"
	EventContainerRelocked     = "container_relocked"
	EventContainerLimitChanged = "container_limit_changed"
	EventCooldownSet           = "cooldown_set"
	EventCooldownCleared       = "cooldown_cleared"
	EventLeasesReaped          = "leases_reaped"
)

// Event is one activity record. The calendar only writes these; the admin
// audit feed reads them back.
type Event struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Timestamp time.Time          `bson:"timestamp" json:"timestamp"`

	Category  string `bson:"category" json:"category"`
	EventType string `bson:"event_type" json:"eventType"`

	ActorID    *primitive.ObjectID `bson:"actor_id,omitempty" json:"actorId,omitempty"`
	ActorLabel string              `bson:"actor_label,omitempty" json:"actorLabel,omitempty"`

	ContainerID   *primitive.ObjectID  `bson:"container_id,omitempty" json:"containerId,omitempty"`
	AssignmentIDs []primitive.ObjectID `bson:"assignment_ids,omitempty" json:"assignmentIds,omitempty"`
	CustomerIDs   []primitive.ObjectID `bson:"customer_ids,omitempty" json:"customerIds,omitempty"`

	IP        string `bson:"ip,omitempty" json:"ip,omitempty"`
	UserAgent string `bson:"user_agent,omitempty" json:"-"`

	Success       bool   `bson:"success" json:"success"`
	FailureReason string `bson:"failure_reason,omitempty" json:"failureReason,omitempty"`

	Details map[string]string `bson:"details,omitempty" json:"details,omitempty"`
}

// QueryFilter narrows Query results.
type QueryFilter struct {
	ActorID     *primitive.ObjectID
	ContainerID *primitive.ObjectID
	Category    string
	EventType   string
	StartTime   *time.Time
	EndTime     *time.Time
	Limit       int64
}

// Store persists audit events.
type Store struct {
	c *mongo.Collection
}

// New creates an audit store over the audit_events collection.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("audit_events")}
}

// Log inserts an event, filling the id and timestamp when unset.
func (s *Store) Log(ctx context.Context, event Event) error {
	if event.ID.IsZero() {
		event.ID = primitive.NewObjectID()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	_, err := s.c.InsertOne(ctx, event)
	return err
}

// Query returns events matching filter, newest first.
func (s *Store) Query(ctx context.Context, filter QueryFilter) ([]Event, error) {
	query := bson.M{}
	if filter.ActorID != nil {
		query["actor_id"] = filter.ActorID
	}
	if filter.ContainerID != nil {
		query["container_id"] = filter.ContainerID
	}
	if filter.Category != "" {
		query["category"] = filter.Category
	}
	if filter.EventType != "" {
		query["event_type"] = filter.EventType
	}
	if filter.StartTime != nil || filter.EndTime != nil {
		tq := bson.M{}
		if filter.StartTime != nil {
			tq["$gte"] = *filter.StartTime
		}
		if filter.EndTime != nil {
			tq["$lte"] = *filter.EndTime
		}
		query["timestamp"] = tq
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetLimit(limit)

	cur, err := s.c.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var events []Event
	if err := cur.All(ctx, &events); err != nil {
		return nil, err
	}
	return events, nil
}
