// Package testutil holds shared helpers for tests that need MongoDB,
// fixtures, or chi request plumbing.
package testutil

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/dalemusser/sevadesk/internal/app/system/indexes"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const defaultTestURI = "mongodb://localhost:27017"

// TestContext returns a context bounded for a single test step.
func TestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}

// SetupTestDB connects to SEVADESK_TEST_MONGO_URI (or localhost), creates a
// throw-away database with the production indexes, and drops it when the
// test finishes. The test is skipped when MongoDB is unreachable.
func SetupTestDB(t *testing.T) *mongo.Database {
	t.Helper()

	uri := os.Getenv("SEVADESK_TEST_MONGO_URI")
	if uri == "" {
		uri = defaultTestURI
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(3*time.Second))
	if err != nil {
		t.Skipf("mongo connect failed (%v); skipping", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		t.Skipf("mongo not reachable at %s (%v); skipping", uri, err)
	}

	name := fmt.Sprintf("sevadesk_test_%s", primitive.NewObjectID().Hex())
	db := client.Database(name)

	if err := indexes.EnsureAll(ctx, db); err != nil {
		_ = client.Disconnect(context.Background())
		t.Fatalf("ensure indexes: %v", err)
	}

	t.Cleanup(func() {
		cctx, ccancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer ccancel()
		_ = db.Drop(cctx)
		_ = client.Disconnect(cctx)
	})

	return db
}
