// internal/app/system/authz/authz.go
package authz

import (
	"net"
	"net/http"
	"strings"

	"github.com/dalemusser/sevadesk/internal/app/system/auth"
	"github.com/dalemusser/sevadesk/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserCtx returns the user's role (lowercased), name, Mongo ObjectID, and a found flag.
// If no user is present in context or the user ID is malformed, it returns
// "visitor", "", NilObjectID, false. This ensures callers can trust that
// ok=true means a valid, authenticated user with a valid ObjectID.
func UserCtx(r *http.Request) (role string, name string, userID primitive.ObjectID, ok bool) {
	user, ok := auth.CurrentUser(r)
	if !ok {
		return "visitor", "", primitive.NilObjectID, false
	}
	userID, err := primitive.ObjectIDFromHex(user.ID)
	if err != nil {
		// Malformed user ID in session - fail closed.
		return "visitor", "", primitive.NilObjectID, false
	}
	return strings.ToLower(user.Role), user.Name, userID, true
}

// IsAdmin reports whether the current request's user is an admin.
// Superadmins count as admins.
func IsAdmin(r *http.Request) bool {
	return HasAnyRole(r, "admin", "superadmin")
}

// Actor builds the calendar actor for the signed-in user.
func Actor(r *http.Request) (models.Actor, bool) {
	role, name, id, ok := UserCtx(r)
	if !ok {
		return models.Actor{}, false
	}
	return models.Actor{
		ID:        id,
		Name:      name,
		Role:      role,
		IP:        ClientIP(r),
		UserAgent: r.UserAgent(),
	}, true
}

// ClientIP extracts the client IP, preferring the first X-Forwarded-For hop.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
