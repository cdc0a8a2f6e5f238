// internal/app/system/authz/roles.go
package authz

import (
	"net/http"
	"strings"
)

// HasAnyRole reports whether the current request's user has any of the given roles.
// Returns false if no user is present (i.e., not signed in).
func HasAnyRole(r *http.Request, roles ...string) bool {
	role, _, _, ok := UserCtx(r)
	if !ok {
		return false
	}
	for _, want := range roles {
		if role == strings.ToLower(strings.TrimSpace(want)) {
			return true
		}
	}
	return false
}

// IsSelf reports whether the signed-in user is the user identified by hex.
func IsSelf(r *http.Request, hex string) bool {
	_, _, id, ok := UserCtx(r)
	return ok && id.Hex() == hex
}
