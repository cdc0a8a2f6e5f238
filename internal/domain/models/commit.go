// internal/domain/models/commit.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Commit actions recorded by the calendar.
const (
	ActionApprove           = "APPROVE"
	ActionAssignMeeting     = "ASSIGN_MEETING"
	ActionApproveForDiksha  = "APPROVE_FOR_DIKSHA"
	ActionBypassOn          = "BYPASS_ON"
	ActionBypassOff         = "BYPASS_OFF"
	ActionChangeDateDetach  = "CHANGE_DATE_DETACH"
	ActionChangeDateGroup   = "CHANGE_DATE_GROUP"
	ActionChangeDateSingle  = "CHANGE_DATE_SINGLE"
	ActionConfirm           = "CONFIRM"
	ActionConfirmBypass     = "CONFIRM_BYPASS"
	ActionRejectTrash       = "REJECT_TRASH"
	ActionRejectPushPending = "REJECT_PUSH_PENDING"
	ActionOut               = "OUT"
	ActionQualify           = "QUALIFY"
)

// CommitRecord is an immutable ledger entry for one customer and one action.
type CommitRecord struct {
	ID         primitive.ObjectID `bson:"_id" json:"id"`
	CustomerID primitive.ObjectID `bson:"customer_id" json:"customerId"`
	UserID     primitive.ObjectID `bson:"user_id" json:"userId"`
	ActorLabel string             `bson:"actor_label" json:"actorLabel"`
	Message    string             `bson:"message" json:"message"`
	Action     string             `bson:"action" json:"action"`
	Meta       map[string]any     `bson:"meta,omitempty" json:"meta,omitempty"`
	CreatedAt  time.Time          `bson:"created_at" json:"createdAt"`
}
