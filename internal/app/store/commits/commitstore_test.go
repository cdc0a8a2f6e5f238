package commitstore_test

import (
	"testing"
	"time"

	commitstore "github.com/dalemusser/sevadesk/internal/app/store/commits"
	"github.com/dalemusser/sevadesk/internal/domain/models"
	"github.com/dalemusser/sevadesk/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_AddAndList(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := commitstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	customer := primitive.NewObjectID()
	user := primitive.NewObjectID()
	base := time.Now().UTC().Truncate(time.Millisecond)

	if err := store.Add(ctx,
		models.CommitRecord{CustomerID: customer, UserID: user, Message: "approved", Action: models.ActionApprove, CreatedAt: base},
		models.CommitRecord{CustomerID: customer, UserID: user, Message: "moved", Action: models.ActionChangeDateSingle, CreatedAt: base.Add(time.Second),
			Meta: map[string]any{"fromDate": "2025-06-20"}},
		models.CommitRecord{CustomerID: primitive.NewObjectID(), UserID: user, Message: "other", Action: models.ActionOut},
	); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	recs, err := store.ListByCustomer(ctx, customer, 0)
	if err != nil {
		t.Fatalf("ListByCustomer failed: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
	if recs[0].Action != models.ActionChangeDateSingle || recs[1].Action != models.ActionApprove {
		t.Errorf("expected newest first, got %s then %s", recs[0].Action, recs[1].Action)
	}
	if recs[0].ID.IsZero() || recs[0].Meta["fromDate"] != "2025-06-20" {
		t.Errorf("unexpected record: %+v", recs[0])
	}

	limited, _ := store.ListByCustomer(ctx, customer, 1)
	if len(limited) != 1 {
		t.Errorf("expected limit 1, got %d", len(limited))
	}

	n, err := store.CountByCustomerAction(ctx, customer, models.ActionApprove)
	if err != nil || n != 1 {
		t.Errorf("CountByCustomerAction: got %d (%v), want 1", n, err)
	}
}

func TestStore_AddNothing(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := commitstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := store.Add(ctx); err != nil {
		t.Errorf("Add with no records: %v", err)
	}
}
