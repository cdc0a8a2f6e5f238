package indexes_test

import (
	"testing"
	"time"

	"github.com/dalemusser/sevadesk/internal/app/system/indexes"
	"github.com/dalemusser/sevadesk/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
)

func TestEnsureAll_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	// SetupTestDB already ran EnsureAll once
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("second EnsureAll failed: %v", err)
	}
}

func TestEnsureAll_CreatesContainerUniqueIndex(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	cur, err := db.Collection("containers").Indexes().List(ctx)
	if err != nil {
		t.Fatalf("List indexes failed: %v", err)
	}
	defer cur.Close(ctx)

	found := false
	for cur.Next(ctx) {
		var idx bson.M
		if err := cur.Decode(&idx); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if idx["name"] == "uniq_containers_date_mode" {
			found = true
			if u, _ := idx["unique"].(bool); !u {
				t.Error("expected uniq_containers_date_mode to be unique")
			}
		}
	}
	if !found {
		t.Error("expected uniq_containers_date_mode index")
	}

	now := time.Now().UTC()
	doc := bson.M{"date": "2025-06-01", "mode": "MEETING", "limit": 20, "created_at": now}
	if _, err := db.Collection("containers").InsertOne(ctx, doc); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	dup := bson.M{"date": "2025-06-01", "mode": "MEETING", "limit": 20, "created_at": now}
	if _, err := db.Collection("containers").InsertOne(ctx, dup); err == nil {
		t.Error("expected duplicate (date, mode) insert to fail")
	}
}
