// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

/*
EnsureAll is called at startup and by test database setup. Each collection
set is reconciled independently and errors are aggregated so every problem
is visible in one startup failure.
*/
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string
	for _, set := range desired() {
		if err := ensureIndexSet(ctx, db.Collection(set.collection), set.models); err != nil {
			problems = append(problems, set.collection+": "+err.Error())
		}
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

type indexSet struct {
	collection string
	models     []mongo.IndexModel
}

func named(name string, keys bson.D) mongo.IndexModel {
	return mongo.IndexModel{Keys: keys, Options: options.Index().SetName(name)}
}

func unique(name string, keys bson.D) mongo.IndexModel {
	return mongo.IndexModel{Keys: keys, Options: options.Index().SetName(name).SetUnique(true)}
}

func desired() []indexSet {
	return []indexSet{
		{"containers", []mongo.IndexModel{
			// get-or-create relies on this to stay race-safe
			unique("uniq_containers_date_mode", bson.D{{Key: "date", Value: 1}, {Key: "mode", Value: 1}}),
		}},
		{"assignments", []mongo.IndexModel{
			named("idx_assign_container_status_pair", bson.D{
				{Key: "container_id", Value: 1}, {Key: "status", Value: 1}, {Key: "pair_id", Value: 1},
			}),
			named("idx_assign_occupied_status_decision", bson.D{
				{Key: "occupied_container_id", Value: 1}, {Key: "status", Value: 1}, {Key: "meeting_decision", Value: 1},
			}),
			named("idx_assign_customer_status", bson.D{{Key: "customer_id", Value: 1}, {Key: "status", Value: 1}}),
			named("idx_assign_decision_lease_expiry", bson.D{{Key: "meeting_decision", Value: 1}, {Key: "lease.expires_at", Value: 1}}),
			named("idx_assign_lease_token", bson.D{{Key: "lease.token", Value: 1}}),
		}},
		{"commits", []mongo.IndexModel{
			named("idx_commits_customer_created", bson.D{{Key: "customer_id", Value: 1}, {Key: "created_at", Value: -1}}),
		}},
		{"history_snapshots", []mongo.IndexModel{
			named("idx_history_status_date", bson.D{{Key: "status", Value: 1}, {Key: "date", Value: 1}}),
			named("idx_history_customer_created", bson.D{{Key: "customer._id", Value: 1}, {Key: "created_at", Value: -1}}),
		}},
		{"customers_today", []mongo.IndexModel{
			named("idx_customers_today_name_ci", bson.D{{Key: "name_ci", Value: 1}}),
		}},
		{"customers_pending", []mongo.IndexModel{
			named("idx_customers_pending_name_ci", bson.D{{Key: "name_ci", Value: 1}}),
		}},
		{"customers_sitting", []mongo.IndexModel{
			named("idx_customers_sitting_name_ci", bson.D{{Key: "name_ci", Value: 1}}),
			named("idx_customers_sitting_active_container", bson.D{{Key: "active_container_id", Value: 1}}),
		}},
		{"audit_events", []mongo.IndexModel{
			named("idx_audit_timestamp", bson.D{{Key: "timestamp", Value: -1}}),
			named("idx_audit_category_type_ts", bson.D{
				{Key: "category", Value: 1}, {Key: "event_type", Value: 1}, {Key: "timestamp", Value: -1},
			}),
			named("idx_audit_actor_ts", bson.D{{Key: "actor_id", Value: 1}, {Key: "timestamp", Value: -1}}),
			named("idx_audit_container_ts", bson.D{{Key: "container_id", Value: 1}, {Key: "timestamp", Value: -1}}),
		}},
	}
}

/* -------------------------------------------------------------------------- */
/* Reconcile one collection's indexes against the desired set                 */
/* -------------------------------------------------------------------------- */

type existingIndex struct {
	Name   string `bson:"name"`
	Key    bson.D `bson:"key"`
	Unique *bool  `bson:"unique,omitempty"`
}

func keySig(keys bson.D) string {
	parts := make([]string, 0, len(keys))
	for _, kv := range keys {
		parts = append(parts, fmt.Sprintf("%s:%v", kv.Key, kv.Value))
	}
	return strings.Join(parts, ", ")
}

func boolOf(b *bool) bool { return b != nil && *b }

func listExisting(ctx context.Context, coll *mongo.Collection) (map[string]existingIndex, error) {
	cur, err := coll.Indexes().List(ctx)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := map[string]existingIndex{}
	for cur.Next(ctx) {
		var idx existingIndex
		if err := cur.Decode(&idx); err != nil {
			zap.L().Warn("failed to decode existing index",
				zap.String("collection", coll.Name()), zap.Error(err))
			continue
		}
		out[keySig(idx.Key)] = idx
	}
	return out, cur.Err()
}

// ensureIndexSet creates missing indexes, and drops and recreates an index
// whose keys match but whose name or uniqueness differ.
func ensureIndexSet(ctx context.Context, coll *mongo.Collection, models []mongo.IndexModel) error {
	existing, err := listExisting(ctx, coll)
	if err != nil {
		// a collection that does not exist yet has no indexes
		existing = map[string]existingIndex{}
	}

	var errs []string
	for _, m := range models {
		start := time.Now()
		name := *m.Options.Name
		wantUnique := boolOf(m.Options.Unique)
		sig := keySig(m.Keys.(bson.D))

		if ex, ok := existing[sig]; ok {
			if ex.Name == name && boolOf(ex.Unique) == wantUnique {
				continue
			}
			zap.L().Info("replacing index",
				zap.String("collection", coll.Name()),
				zap.String("from", ex.Name),
				zap.String("to", name),
				zap.Bool("unique", wantUnique))
			if _, err := coll.Indexes().DropOne(ctx, ex.Name); err != nil {
				errs = append(errs, fmt.Sprintf("%s: drop %s failed: %v", name, ex.Name, err))
				continue
			}
		}

		if _, err := coll.Indexes().CreateOne(ctx, m); err != nil {
			if wantUnique && mongo.IsDuplicateKeyError(err) {
				errs = append(errs, fmt.Sprintf("%s: cannot create unique index on [%s], duplicates present", name, sig))
			} else {
				errs = append(errs, fmt.Sprintf("%s: %v", name, err))
			}
			continue
		}
		zap.L().Info("index ensured",
			zap.String("collection", coll.Name()),
			zap.String("name", name),
			zap.String("keys", sig),
			zap.Duration("took", time.Since(start)))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}
