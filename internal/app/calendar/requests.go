package calendar

import (
	"encoding/json"

	"github.com/dalemusser/sevadesk/internal/app/policy/capacitypolicy"
	"github.com/dalemusser/sevadesk/internal/domain/models"
)

// ApproveRequest places customers from the intake pools into a container.
type ApproveRequest struct {
	CustomerIDs   []string `json:"customerIds" validate:"required,min=1,max=12,dive,objectid" label:"Customers"`
	OccupyDate    string   `json:"occupyDate,omitempty" validate:"omitempty,datekey" label:"Occupy date"`
	Bypass        bool     `json:"bypass"`
	CommitMessage string   `json:"commitMessage"`
}

// ShiftRequest moves an existing group between MEETING and DIKSHA.
type ShiftRequest struct {
	ToMode        string `json:"toMode" validate:"required,mode" label:"Target mode"`
	ToDate        string `json:"toDate,omitempty" validate:"omitempty,datekey" label:"Target date"`
	OccupyDate    string `json:"occupyDate,omitempty" validate:"omitempty,datekey" label:"Occupy date"`
	CommitMessage string `json:"commitMessage"`
	Guard
}

// BypassRequest toggles the bypass flag of a MEETING group.
type BypassRequest struct {
	Bypass        bool   `json:"bypass"`
	OccupyDate    string `json:"occupyDate,omitempty" validate:"omitempty,datekey" label:"Occupy date"`
	CommitMessage string `json:"commitMessage"`
	Guard
}

// ChangeDateRequest re-dates some or all members of a group.
// MoveMembers is "ALL", "SINGLE" or a list of assignment ids.
type ChangeDateRequest struct {
	NewDate         string          `json:"newDate,omitempty"`
	NewOccupiedDate string          `json:"newOccupiedDate,omitempty"`
	MoveReason      string          `json:"moveReason,omitempty" validate:"max=500" label:"Move reason"`
	MoveMembers     json.RawMessage `json:"moveMembers,omitempty"`
	CommitMessage   string          `json:"commitMessage"`
	Guard
}

// ConfirmRequest confirms a MEETING group.
type ConfirmRequest struct {
	CommitMessage string `json:"commitMessage"`
	Guard
}

// Reject actions.
const (
	RejectTrash       = "TRASH"
	RejectPushPending = "PUSH_PENDING"
)

// RejectRequest rejects a group in place or back to the pending pool.
type RejectRequest struct {
	RejectAction  string `json:"rejectAction"`
	CommitMessage string `json:"commitMessage"`
	Guard
}

// OutRequest takes a group out of its container.
type OutRequest struct {
	CommitMessage string `json:"commitMessage"`
	Guard
}

// QualifyRequest marks a DIKSHA group done.
type QualifyRequest struct {
	CommitMessage string `json:"commitMessage"`
}

// ContainerRequest names a container by date and mode.
type ContainerRequest struct {
	Date string `json:"date" validate:"required,datekey" label:"Date"`
	Mode string `json:"mode" validate:"required,mode" label:"Mode"`
}

// UnlockRequest opens a temporary over-capacity window.
type UnlockRequest struct {
	Minutes int `json:"minutes"`
}

// LimitRequest changes a container's slot limit.
type LimitRequest struct {
	Limit int `json:"limit"`
}

// CooldownRequest sets a user's cooldown override.
type CooldownRequest struct {
	Minutes int `json:"minutes"`
}

// Result is the success payload of a card operation.
type Result struct {
	Assignments []models.Assignment `json:"assignments,omitempty"`
	Already     bool                `json:"already,omitempty"`
	Partial     bool                `json:"partial,omitempty"`
	ContainerID string              `json:"containerId,omitempty"`
	Date        string              `json:"date,omitempty"`
	Mode        models.Mode         `json:"mode,omitempty"`
}

// Fields renders r for apierr.OK.
func (r Result) Fields() map[string]any {
	out := map[string]any{}
	if r.Assignments != nil {
		out["assignments"] = r.Assignments
	}
	if r.Already {
		out["already"] = true
	}
	if r.Partial {
		out["partial"] = true
	}
	if r.ContainerID != "" {
		out["containerId"] = r.ContainerID
		out["date"] = r.Date
		out["mode"] = r.Mode
	}
	return out
}

// ContainerView is a container with its current occupancy.
type ContainerView struct {
	models.Container
	Usage  capacitypolicy.Usage `json:"usage"`
	Locked bool                 `json:"locked"`
}
