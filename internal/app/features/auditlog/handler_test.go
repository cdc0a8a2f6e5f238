package auditlog_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dalemusser/sevadesk/internal/app/features/auditlog"
	"github.com/dalemusser/sevadesk/internal/app/store/audit"
	"github.com/dalemusser/sevadesk/internal/app/system/auth"
	"github.com/dalemusser/sevadesk/internal/testutil"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func setup(t *testing.T) (http.Handler, *audit.Store) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	sm, err := auth.NewSessionManager("0123456789abcdef0123456789abcdef", "test-session", "", time.Hour, false, zap.NewNop())
	if err != nil {
		t.Fatalf("NewSessionManager: %v", err)
	}
	h := auditlog.NewHandler(db, zap.NewNop())
	r := chi.NewRouter()
	r.Mount("/api/audit", auditlog.Routes(h, sm))
	return r, h.Store
}

func TestServeList(t *testing.T) {
	r, store := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	container := primitive.NewObjectID()
	day := time.Date(2025, 6, 20, 9, 0, 0, 0, time.UTC)
	for _, e := range []audit.Event{
		{Timestamp: day, Category: audit.CategoryCalendar, EventType: audit.EventCardsApproved, ContainerID: &container, Success: true},
		{Timestamp: day.Add(time.Hour), Category: audit.CategoryCalendar, EventType: audit.EventCardsConfirmed, ContainerID: &container, Success: true},
		{Timestamp: day.Add(24 * time.Hour), Category: audit.CategoryAdmin, EventType: audit.EventContainerUnlocked, ContainerID: &container, Success: true},
	} {
		if err := store.Log(ctx, e); err != nil {
			t.Fatalf("seed audit event: %v", err)
		}
	}

	admin := testutil.AdminUser()
	tests := []struct {
		name  string
		query string
		count float64
	}{
		{"all", "", 3},
		{"calendar only", "?category=calendar", 2},
		{"by event type", "?category=admin&eventType=container_unlocked", 1},
		{"by container", "?containerId=" + container.Hex(), 3},
		{"other container", "?containerId=" + primitive.NewObjectID().Hex(), 0},
		{"single day", "?from=2025-06-20&to=2025-06-20", 2},
		{"limited", "?limit=1", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, testutil.JSONRequest(t, http.MethodGet, "/api/audit"+tt.query, nil, admin))
			if body := testutil.AssertOK(t, rec); body["count"] != tt.count {
				t.Errorf("count = %v, want %v", body["count"], tt.count)
			}
		})
	}
}

func TestServeList_BadInput(t *testing.T) {
	r, _ := setup(t)
	admin := testutil.AdminUser()

	tests := []struct {
		name  string
		query string
		code  string
	}{
		{"unknown category", "?category=auth", "INVALID_INPUT"},
		{"event outside category", "?category=admin&eventType=cards_approved", "INVALID_INPUT"},
		{"bad container id", "?containerId=zzz", "INVALID_ID"},
		{"bad date", "?from=20-06-2025", "INVALID_INPUT"},
		{"limit too large", "?limit=5000", "INVALID_INPUT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, testutil.JSONRequest(t, http.MethodGet, "/api/audit"+tt.query, nil, admin))
			testutil.AssertError(t, rec, http.StatusBadRequest, tt.code)
		})
	}
}

func TestServeList_AdminOnly(t *testing.T) {
	r, _ := setup(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, testutil.JSONRequest(t, http.MethodGet, "/api/audit", nil, testutil.StaffUser()))
	testutil.AssertError(t, rec, http.StatusForbidden, "FORBIDDEN")

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/audit", nil))
	testutil.AssertError(t, rec, http.StatusUnauthorized, "UNAUTHORIZED")
}
