// internal/domain/models/history.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SnapshotStatus tags why a snapshot was taken.
type SnapshotStatus string

const (
	SnapshotConfirmed         SnapshotStatus = "CONFIRMED"
	SnapshotBypassToPending   SnapshotStatus = "BYPASS_TO_PENDING"
	SnapshotRejectedTrash     SnapshotStatus = "REJECTED_TRASH"
	SnapshotRejectedToPending SnapshotStatus = "REJECTED_TO_PENDING"
)

// Valid reports whether s is a known snapshot status.
func (s SnapshotStatus) Valid() bool {
	switch s {
	case SnapshotConfirmed, SnapshotBypassToPending, SnapshotRejectedTrash, SnapshotRejectedToPending:
		return true
	}
	return false
}

// HistorySnapshot is a denormalized copy of an assignment and its customer
// taken when the card leaves the live pipeline. Snapshots are never updated.
type HistorySnapshot struct {
	ID primitive.ObjectID `bson:"_id" json:"id"`

	Assignment Assignment `bson:"assignment" json:"assignment"`
	Customer   Customer   `bson:"customer" json:"customer"`

	Status      SnapshotStatus      `bson:"status" json:"status"`
	ContainerID primitive.ObjectID  `bson:"container_id" json:"containerId"`
	Date        string              `bson:"date" json:"date"`
	Mode        Mode                `bson:"mode" json:"mode"`
	PairID      *primitive.ObjectID `bson:"pair_id,omitempty" json:"pairId,omitempty"`

	ActorID       primitive.ObjectID `bson:"actor_id" json:"actorId"`
	ActorLabel    string             `bson:"actor_label" json:"actorLabel"`
	CommitMessage string             `bson:"commit_message" json:"commitMessage"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
}
