// internal/domain/models/container.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Mode is the stage a container belongs to.
type Mode string

const (
	ModeMeeting Mode = "MEETING"
	ModeDiksha  Mode = "DIKSHA"
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	return m == ModeMeeting || m == ModeDiksha
}

// DefaultContainerLimit is the slot limit a container receives on creation
// when no configured default is supplied.
const DefaultContainerLimit = 20

// Container is a capacity bucket keyed by (date, mode).
//
// Containers are created lazily the first time a card targets a date and
// mode, and are never deleted. Capacity is not stored on the container; it
// is derived from the assignments that reference it.
type Container struct {
	ID   primitive.ObjectID `bson:"_id" json:"id"`
	Date string             `bson:"date" json:"date"` // YYYY-MM-DD in the calendar time zone
	Mode Mode               `bson:"mode" json:"mode"`

	Limit int `bson:"limit" json:"limit"`

	// UnlockExpiresAt grants temporary over-capacity access while in the future.
	UnlockExpiresAt *time.Time          `bson:"unlock_expires_at,omitempty" json:"unlockExpiresAt,omitempty"`
	UnlockedByID    *primitive.ObjectID `bson:"unlocked_by_id,omitempty" json:"unlockedById,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// IsUnlocked reports whether the admin unlock window is still open at now.
func (c Container) IsUnlocked(now time.Time) bool {
	return c.UnlockExpiresAt != nil && c.UnlockExpiresAt.After(now)
}
