// internal/domain/models/actor.go
package models

import (
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RoleAdmin is the only role the calendar treats specially.
const RoleAdmin = "admin"

// Actor is the signed-in user performing a calendar operation.
type Actor struct {
	ID        primitive.ObjectID
	Name      string
	Role      string
	IP        string
	UserAgent string
}

// IsAdmin reports whether the actor may run admin-only operations.
func (a Actor) IsAdmin() bool {
	r := strings.ToLower(a.Role)
	return r == RoleAdmin || r == "superadmin"
}

// Label is the human name recorded in commits and snapshots.
func (a Actor) Label() string {
	if a.Name != "" {
		return a.Name
	}
	return a.ID.Hex()
}
