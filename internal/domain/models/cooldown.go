// internal/domain/models/cooldown.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CooldownOptions are the override values an admin may choose from.
var CooldownOptions = []int{0, 2, 5, 10}

// ValidCooldownMinutes reports whether m is one of CooldownOptions.
func ValidCooldownMinutes(m int) bool {
	for _, o := range CooldownOptions {
		if o == m {
			return true
		}
	}
	return false
}

// CooldownSetting is a per-user override of the move cooldown.
type CooldownSetting struct {
	UserID    primitive.ObjectID `bson:"_id" json:"userId"`
	Minutes   int                `bson:"minutes" json:"minutes"`
	Active    bool               `bson:"active" json:"active"`
	SetByID   primitive.ObjectID `bson:"set_by_id" json:"setById"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updatedAt"`
}
