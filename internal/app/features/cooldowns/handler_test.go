package cooldowns_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dalemusser/sevadesk/internal/app/calendar"
	"github.com/dalemusser/sevadesk/internal/app/features/cooldowns"
	"github.com/dalemusser/sevadesk/internal/app/system/auth"
	"github.com/dalemusser/sevadesk/internal/testutil"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func setup(t *testing.T) http.Handler {
	t.Helper()
	db := testutil.SetupTestDB(t)
	eng, err := calendar.New(db, calendar.Config{CooldownMinutes: 5}, nil, nil, zap.NewNop())
	if err != nil {
		t.Fatalf("calendar.New: %v", err)
	}
	sm, err := auth.NewSessionManager("0123456789abcdef0123456789abcdef", "test-session", "", time.Hour, false, zap.NewNop())
	if err != nil {
		t.Fatalf("NewSessionManager: %v", err)
	}
	r := chi.NewRouter()
	r.Mount("/api/cooldowns", cooldowns.Routes(cooldowns.NewHandler(eng, zap.NewNop()), sm))
	return r
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func cooldownOf(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	c, _ := testutil.AssertOK(t, rec)["cooldown"].(map[string]any)
	return c
}

func TestCooldowns_SelfAndAdmin(t *testing.T) {
	r := setup(t)
	staff := testutil.StaffUser()
	admin := testutil.AdminUser()

	c := cooldownOf(t, serve(r, testutil.JSONRequest(t, http.MethodGet, "/api/cooldowns/me", nil, staff)))
	if c["minutes"] != float64(5) || c["override"] != false || c["userId"] != staff.ID {
		t.Errorf("me = %v", c)
	}

	// Staff may read themselves but not others.
	cooldownOf(t, serve(r, testutil.JSONRequest(t, http.MethodGet, "/api/cooldowns/"+staff.ID, nil, staff)))
	testutil.AssertError(t, serve(r, testutil.JSONRequest(t, http.MethodGet, "/api/cooldowns/"+admin.ID, nil, staff)),
		http.StatusForbidden, "FORBIDDEN")

	testutil.AssertError(t, serve(r, testutil.JSONRequest(t, http.MethodPut, "/api/cooldowns/"+staff.ID, map[string]any{"minutes": 2}, staff)),
		http.StatusForbidden, "FORBIDDEN")
	testutil.AssertError(t, serve(r, testutil.JSONRequest(t, http.MethodPut, "/api/cooldowns/"+staff.ID, map[string]any{"minutes": 7}, admin)),
		http.StatusBadRequest, calendar.CodeInvalidMinutes)

	c = cooldownOf(t, serve(r, testutil.JSONRequest(t, http.MethodPut, "/api/cooldowns/"+staff.ID, map[string]any{"minutes": 0}, admin)))
	if c["minutes"] != float64(0) || c["override"] != true {
		t.Errorf("after set = %v", c)
	}
	c = cooldownOf(t, serve(r, testutil.JSONRequest(t, http.MethodGet, "/api/cooldowns/me", nil, staff)))
	if c["minutes"] != float64(0) {
		t.Errorf("me after set = %v", c)
	}

	c = cooldownOf(t, serve(r, testutil.JSONRequest(t, http.MethodDelete, "/api/cooldowns/"+staff.ID, nil, admin)))
	if c["minutes"] != float64(5) || c["override"] != false {
		t.Errorf("after clear = %v", c)
	}
}

func TestCooldowns_SignedOut(t *testing.T) {
	r := setup(t)
	testutil.AssertError(t, serve(r, httptest.NewRequest(http.MethodGet, "/api/cooldowns/me", nil)),
		http.StatusUnauthorized, "UNAUTHORIZED")
}
