package validators_test

import (
	"testing"
	"time"

	customerstore "github.com/dalemusser/sevadesk/internal/app/store/customers"
	"github.com/dalemusser/sevadesk/internal/app/system/validators"
	"github.com/dalemusser/sevadesk/internal/domain/models"
	"github.com/dalemusser/sevadesk/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestEnsureAll_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("first EnsureAll failed: %v", err)
	}
	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("second EnsureAll failed: %v", err)
	}
}

func TestEnsureAll_CreatesCollections(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	names, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		t.Fatalf("ListCollectionNames failed: %v", err)
	}
	have := make(map[string]bool, len(names))
	for _, n := range names {
		have[n] = true
	}

	want := []string{"containers", "assignments", "commits", "history_snapshots", "cooldown_settings", "audit_events"}
	for _, loc := range models.Locations {
		want = append(want, customerstore.Collection(loc))
	}
	for _, n := range want {
		if !have[n] {
			t.Errorf("collection %q was not created", n)
		}
	}
}

func TestContainersSchema(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}
	coll := db.Collection("containers")
	now := time.Now().UTC()

	tests := []struct {
		name    string
		doc     bson.M
		wantErr bool
	}{
		{"valid", bson.M{"date": "2025-06-20", "mode": "MEETING", "limit": 20, "created_at": now}, false},
		{"unknown mode", bson.M{"date": "2025-06-20", "mode": "SATSANG", "limit": 20, "created_at": now}, true},
		{"bad date", bson.M{"date": "20/06/2025", "mode": "DIKSHA", "limit": 20, "created_at": now}, true},
		{"negative limit", bson.M{"date": "2025-06-21", "mode": "DIKSHA", "limit": -1, "created_at": now}, true},
		{"missing limit", bson.M{"date": "2025-06-22", "mode": "DIKSHA", "created_at": now}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.doc["_id"] = primitive.NewObjectID()
			_, err := coll.InsertOne(ctx, tt.doc)
			if tt.wantErr && err == nil {
				t.Error("expected the validator to reject the document")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestAssignmentsSchema_AcceptsFixtures(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	// Documents written through the stores must satisfy the validators.
	fx := testutil.NewFixtures(t, db)
	c := fx.CreateContainer(ctx, "2025-06-20", models.ModeMeeting, 20)
	fx.CreateCards(ctx, c, testutil.CardOptions{Decision: models.DecisionPending}, "Asha", "Ravi")

	_, err := db.Collection("assignments").InsertOne(ctx, bson.M{
		"customer_id": primitive.NewObjectID(), "container_id": c.ID,
		"date": "2025-06-20", "mode": "MEETING", "status": "LOST", "kind": "SINGLE", "version": 1,
	})
	if err == nil {
		t.Error("expected an unknown status to be rejected")
	}
}
