package authz_test

import (
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/sevadesk/internal/app/system/auth"
	"github.com/dalemusser/sevadesk/internal/app/system/authz"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// testUserID returns a valid ObjectID hex string for tests.
func testUserID() string {
	return primitive.NewObjectID().Hex()
}

func TestUserCtx_NoUser(t *testing.T) {
	req := httptest.NewRequest("GET", "/test", nil)

	role, name, id, ok := authz.UserCtx(req)
	if ok {
		t.Fatal("expected ok=false without a user")
	}
	if role != "visitor" || name != "" || id != primitive.NilObjectID {
		t.Errorf("unexpected visitor values: %q %q %v", role, name, id)
	}
}

func TestUserCtx_MalformedID_FailsClosed(t *testing.T) {
	req := httptest.NewRequest("GET", "/test", nil)
	req = auth.WithTestUser(req, &auth.SessionUser{ID: "not-hex", Role: "admin"})

	if _, _, _, ok := authz.UserCtx(req); ok {
		t.Error("expected ok=false for malformed user ID")
	}
	if authz.IsAdmin(req) {
		t.Error("expected IsAdmin=false for malformed user ID")
	}
}

func TestIsAdmin(t *testing.T) {
	tests := []struct {
		role string
		want bool
	}{
		{"admin", true},
		{"Admin", true},
		{"superadmin", true},
		{"staff", false},
		{"", false},
	}
	for _, tc := range tests {
		t.Run(tc.role, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/test", nil)
			req = auth.WithTestUser(req, &auth.SessionUser{ID: testUserID(), Role: tc.role})
			if got := authz.IsAdmin(req); got != tc.want {
				t.Errorf("IsAdmin(%q) = %v, want %v", tc.role, got, tc.want)
			}
		})
	}
}

func TestActor(t *testing.T) {
	id := testUserID()
	req := httptest.NewRequest("POST", "/api/containers", nil)
	req.RemoteAddr = "10.0.0.7:51234"
	req.Header.Set("User-Agent", "desk-test")
	req = auth.WithTestUser(req, &auth.SessionUser{ID: id, Name: "Asha", Role: "ADMIN"})

	actor, ok := authz.Actor(req)
	if !ok {
		t.Fatal("expected actor")
	}
	if actor.ID.Hex() != id {
		t.Errorf("actor ID = %s, want %s", actor.ID.Hex(), id)
	}
	if actor.Role != "admin" || !actor.IsAdmin() {
		t.Errorf("expected lowercased admin role, got %q", actor.Role)
	}
	if actor.IP != "10.0.0.7" {
		t.Errorf("actor IP = %q", actor.IP)
	}
	if actor.UserAgent != "desk-test" {
		t.Errorf("actor UA = %q", actor.UserAgent)
	}
	if actor.Label() != "Asha" {
		t.Errorf("actor label = %q", actor.Label())
	}
}

func TestActor_NoUser(t *testing.T) {
	req := httptest.NewRequest("GET", "/test", nil)
	if _, ok := authz.Actor(req); ok {
		t.Error("expected no actor without a user")
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name   string
		xff    string
		xri    string
		remote string
		want   string
	}{
		{"forwarded first hop", "203.0.113.5, 10.0.0.1", "", "10.0.0.1:80", "203.0.113.5"},
		{"real ip", "", "198.51.100.2", "10.0.0.1:80", "198.51.100.2"},
		{"remote addr", "", "", "192.0.2.9:4444", "192.0.2.9"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tc.remote
			if tc.xff != "" {
				req.Header.Set("X-Forwarded-For", tc.xff)
			}
			if tc.xri != "" {
				req.Header.Set("X-Real-IP", tc.xri)
			}
			if got := authz.ClientIP(req); got != tc.want {
				t.Errorf("ClientIP = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestHasAnyRole(t *testing.T) {
	req := httptest.NewRequest("GET", "/test", nil)
	req = auth.WithTestUser(req, &auth.SessionUser{ID: testUserID(), Role: "Supervisor"})

	if !authz.HasAnyRole(req, "admin", "supervisor") {
		t.Error("expected supervisor to match")
	}
	if authz.HasAnyRole(req, "admin") {
		t.Error("expected admin not to match")
	}
}

func TestIsSelf(t *testing.T) {
	id := testUserID()
	req := httptest.NewRequest("GET", "/test", nil)
	req = auth.WithTestUser(req, &auth.SessionUser{ID: id, Role: "staff"})

	if !authz.IsSelf(req, id) {
		t.Error("expected IsSelf for own ID")
	}
	if authz.IsSelf(req, testUserID()) {
		t.Error("expected IsSelf=false for another ID")
	}
}
