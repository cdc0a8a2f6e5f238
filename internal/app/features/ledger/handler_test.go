package ledger_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/sevadesk/internal/app/calendar"
	"github.com/dalemusser/sevadesk/internal/app/features/ledger"
	"github.com/dalemusser/sevadesk/internal/domain/models"
	"github.com/dalemusser/sevadesk/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func newHandler(t *testing.T) (*ledger.Handler, *calendar.Engine) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	eng, err := calendar.New(db, calendar.Config{}, nil, nil, zap.NewNop())
	if err != nil {
		t.Fatalf("calendar.New: %v", err)
	}
	return ledger.NewHandler(eng, zap.NewNop()), eng
}

func TestServeCustomerCommits(t *testing.T) {
	h, eng := newHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	customer := primitive.NewObjectID()
	if err := eng.Commits.Add(ctx,
		models.CommitRecord{CustomerID: customer, Message: "first", Action: models.ActionApprove},
		models.CommitRecord{CustomerID: customer, Message: "second", Action: models.ActionOut},
	); err != nil {
		t.Fatalf("seed commits: %v", err)
	}

	req := testutil.JSONRequest(t, http.MethodGet, "/api/customers/"+customer.Hex()+"/commits?limit=1", nil, testutil.StaffUser())
	req = testutil.WithChiURLParam(req, "id", customer.Hex())
	rec := httptest.NewRecorder()
	h.ServeCustomerCommits(rec, req)

	body := testutil.AssertOK(t, rec)
	if body["count"] != float64(1) {
		t.Errorf("count = %v, want 1", body["count"])
	}

	req = testutil.JSONRequest(t, http.MethodGet, "/api/customers/x/commits", nil, testutil.StaffUser())
	req = testutil.WithChiURLParam(req, "id", "x")
	rec = httptest.NewRecorder()
	h.ServeCustomerCommits(rec, req)
	testutil.AssertError(t, rec, http.StatusBadRequest, "INVALID_ID")
}

func TestServeHistory(t *testing.T) {
	h, eng := newHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	customer := primitive.NewObjectID()
	if err := eng.History.Record(ctx, models.HistorySnapshot{
		Customer: models.Customer{ID: customer, Name: "Archived"},
		Status:   models.SnapshotRejectedTrash,
		Date:     "2099-01-05",
		Mode:     models.ModeMeeting,
	}); err != nil {
		t.Fatalf("seed history: %v", err)
	}

	tests := []struct {
		name  string
		query string
		count float64
		code  string
	}{
		{"all", "", 1, ""},
		{"by status", "?status=REJECTED_TRASH", 1, ""},
		{"other status", "?status=CONFIRMED", 0, ""},
		{"by customer", "?customerId=" + customer.Hex(), 1, ""},
		{"out of range", "?from=2099-02-01", 0, ""},
		{"unknown status", "?status=LOST", 0, "INVALID_INPUT"},
		{"bad date", "?from=01-02-2099", 0, calendar.CodeInvalidDate},
		{"bad limit", "?limit=ten", 0, "INVALID_INPUT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHistory(rec, testutil.JSONRequest(t, http.MethodGet, "/api/history"+tt.query, nil, testutil.StaffUser()))
			if tt.code != "" {
				testutil.AssertError(t, rec, http.StatusBadRequest, tt.code)
				return
			}
			if body := testutil.AssertOK(t, rec); body["count"] != tt.count {
				t.Errorf("count = %v, want %v", body["count"], tt.count)
			}
		})
	}
}
