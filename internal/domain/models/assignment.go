// internal/domain/models/assignment.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Kind is the grouping kind of a card.
type Kind string

const (
	KindSingle Kind = "SINGLE"
	KindCouple Kind = "COUPLE"
	KindFamily Kind = "FAMILY"
)

// KindForSize returns the kind a group of n members has.
func KindForSize(n int) Kind {
	switch {
	case n <= 1:
		return KindSingle
	case n == 2:
		return KindCouple
	default:
		return KindFamily
	}
}

// Roles within a group.
const (
	RolePrimary = "PRIMARY"
	RolePartner = "PARTNER"
	RoleMember  = "MEMBER"
)

// MoveEntry is one appended record of a card's date change.
type MoveEntry struct {
	FromDate         string             `bson:"from_date" json:"fromDate"`
	ToDate           string             `bson:"to_date" json:"toDate"`
	FromOccupiedDate string             `bson:"from_occupied_date,omitempty" json:"fromOccupiedDate,omitempty"`
	ToOccupiedDate   string             `bson:"to_occupied_date,omitempty" json:"toOccupiedDate,omitempty"`
	MovedAt          time.Time          `bson:"moved_at" json:"movedAt"`
	MovedBy          string             `bson:"moved_by" json:"movedBy"`
	MovedByID        primitive.ObjectID `bson:"moved_by_id" json:"movedById"`
	Reason           string             `bson:"reason,omitempty" json:"reason,omitempty"`
}

// Lease marks a card held by an in-flight confirm.
type Lease struct {
	Token         string             `bson:"token" json:"token"`
	ExpiresAt     time.Time          `bson:"expires_at" json:"expiresAt"`
	PriorDecision Decision           `bson:"prior_decision" json:"priorDecision"`
	OwnerID       primitive.ObjectID `bson:"owner_id" json:"ownerId"`
}

// Assignment binds one customer to one container.
//
// A live card counts toward its own container, and while it holds a
// PENDING decision with an occupied container it also reserves a slot in
// that DIKSHA container.
type Assignment struct {
	ID           primitive.ObjectID `bson:"_id" json:"id"`
	CustomerID   primitive.ObjectID `bson:"customer_id" json:"customerId"`
	CustomerName string             `bson:"customer_name" json:"customerName"`

	ContainerID primitive.ObjectID `bson:"container_id" json:"containerId"`
	Date        string             `bson:"date" json:"date"`
	Mode        Mode               `bson:"mode" json:"mode"`

	AssignmentState `bson:",inline"`

	Kind       Kind                `bson:"kind" json:"kind"`
	PairID     *primitive.ObjectID `bson:"pair_id,omitempty" json:"pairId"`
	RoleInPair string              `bson:"role_in_pair,omitempty" json:"roleInPair,omitempty"`

	OccupiedDate        string              `bson:"occupied_date,omitempty" json:"occupiedDate,omitempty"`
	OccupiedContainerID *primitive.ObjectID `bson:"occupied_container_id,omitempty" json:"occupiedContainerId,omitempty"`
	OccupiedMode        Mode                `bson:"occupied_mode,omitempty" json:"occupiedMode,omitempty"`

	Bypass bool `bson:"bypass" json:"bypass"`

	MoveHistory []MoveEntry `bson:"move_history,omitempty" json:"moveHistory,omitempty"`
	MoveCount   int         `bson:"move_count" json:"moveCount"`
	LastMovedAt *time.Time  `bson:"last_moved_at,omitempty" json:"lastMovedAt,omitempty"`

	Lease *Lease `bson:"lease,omitempty" json:"-"`

	// Version increases by one on every write and backs optimistic
	// concurrency checks.
	Version int64 `bson:"version" json:"version"`

	AddedByID   primitive.ObjectID `bson:"added_by_id" json:"addedById"`
	AddedByName string             `bson:"added_by_name" json:"addedByName"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// Reserves reports whether the card holds a DIKSHA reservation. A card
// held by a confirm keeps the reservation it had before the lease.
func (a Assignment) Reserves() bool {
	if !a.Live() || a.OccupiedContainerID == nil {
		return false
	}
	if a.MeetingDecision == DecisionProcessing {
		return a.Lease != nil && a.Lease.PriorDecision == DecisionPending
	}
	return a.MeetingDecision == DecisionPending
}

// Grouped reports whether the card belongs to a COUPLE or FAMILY.
func (a Assignment) Grouped() bool {
	return a.PairID != nil && a.Kind != KindSingle
}
