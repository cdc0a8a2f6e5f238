package health_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dalemusser/sevadesk/internal/app/features/health"
	"github.com/dalemusser/sevadesk/internal/app/system/datekey"
	"github.com/dalemusser/sevadesk/internal/testutil"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

type report struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Today    string `json:"today"`
	Timezone string `json:"timezone"`
	Error    string `json:"error"`
}

func kolkataClock(t *testing.T) datekey.Clock {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		t.Skipf("zoneinfo unavailable: %v", err)
	}
	// 20:00 UTC is already the next day in Kolkata.
	at := time.Date(2025, 6, 19, 20, 0, 0, 0, time.UTC)
	return datekey.NewClockAt(loc, func() time.Time { return at })
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) report {
	t.Helper()
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q", ct)
	}
	var rep report
	if err := json.Unmarshal(rec.Body.Bytes(), &rep); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	return rep
}

func TestServe_DatabaseConnected(t *testing.T) {
	db := testutil.SetupTestDB(t)
	router := health.Routes(health.NewHandler(db.Client(), kolkataClock(t), zap.NewNop()))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	rep := decode(t, rec)
	if rep.Status != "ok" || rep.Database != "connected" {
		t.Errorf("unexpected report: %+v", rep)
	}
	if rep.Today != "2025-06-20" || rep.Timezone != "Asia/Kolkata" {
		t.Errorf("calendar day: got %s in %s", rep.Today, rep.Timezone)
	}
}

func TestServe_DatabaseDisconnected(t *testing.T) {
	ctx, cancel := testutil.TestContext()
	defer cancel()

	// Nothing listens on port 1, so every ping fails server selection.
	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI("mongodb://127.0.0.1:1").
		SetServerSelectionTimeout(200*time.Millisecond))
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer func() { _ = client.Disconnect(context.Background()) }()

	rec := httptest.NewRecorder()
	health.NewHandler(client, datekey.Clock{}, zap.NewNop()).Serve(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status %d, got %d", http.StatusServiceUnavailable, rec.Code)
	}
	rep := decode(t, rec)
	if rep.Database != "disconnected" || rep.Error == "" {
		t.Errorf("unexpected report: %+v", rep)
	}
	if rep.Timezone != "UTC" {
		t.Errorf("zero clock should report UTC, got %q", rep.Timezone)
	}
}
