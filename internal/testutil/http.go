package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/sevadesk/internal/app/system/auth"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TestUser represents user data for testing HTTP handlers.
type TestUser struct {
	ID   string
	Name string
	Role string
}

// OID returns the user's ObjectID.
func (u TestUser) OID() primitive.ObjectID {
	id, _ := primitive.ObjectIDFromHex(u.ID)
	return id
}

// AdminUser returns a TestUser with admin role.
func AdminUser() TestUser {
	return TestUser{
		ID:   primitive.NewObjectID().Hex(),
		Name: "Test Admin",
		Role: "admin",
	}
}

// StaffUser returns a TestUser with the ordinary desk role.
func StaffUser() TestUser {
	return TestUser{
		ID:   primitive.NewObjectID().Hex(),
		Name: "Test Staff",
		Role: "staff",
	}
}

// WithUser adds a user to the request context for testing authenticated handlers.
// This bypasses the session middleware and injects the user directly.
func WithUser(r *http.Request, user TestUser) *http.Request {
	return auth.WithTestUser(r, &auth.SessionUser{
		ID:   user.ID,
		Name: user.Name,
		Role: user.Role,
	})
}

// JSONRequest builds a request with body encoded as JSON and the user in context.
func JSONRequest(t *testing.T, method, target string, body any, user TestUser) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	return WithUser(req, user)
}

// DecodeJSON decodes the recorder body into a generic map.
func DecodeJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response (%d %q): %v", rec.Code, rec.Body.String(), err)
	}
	return out
}

// AssertError checks the status and the machine-readable error code.
func AssertError(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) map[string]any {
	t.Helper()
	if rec.Code != status {
		t.Errorf("status code: got %d, want %d (body %s)", rec.Code, status, rec.Body.String())
	}
	body := DecodeJSON(t, rec)
	if got, _ := body["error"].(string); got != code {
		t.Errorf("error code: got %q, want %q", got, code)
	}
	return body
}

// AssertOK checks for a 200 {"ok": true} response and returns the body.
func AssertOK(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	if rec.Code != http.StatusOK {
		t.Fatalf("status code: got %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
	body := DecodeJSON(t, rec)
	if ok, _ := body["ok"].(bool); !ok {
		t.Errorf("expected ok=true, got %v", body)
	}
	return body
}
