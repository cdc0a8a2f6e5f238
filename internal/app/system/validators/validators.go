// internal/app/system/validators/validators.go
package validators

import (
	"context"
	"errors"
	"strings"

	customerstore "github.com/dalemusser/sevadesk/internal/app/store/customers"
	"github.com/dalemusser/sevadesk/internal/domain/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const datePattern = `^[0-9]{4}-[0-9]{2}-[0-9]{2}$`

// EnsureAll creates collections (if missing) and tries to attach JSON-Schema
// validators. On servers that don't support collMod/validators (e.g. some
// DocumentDB versions), we log and skip gracefully.
//
// Collections must exist before the first transaction touches them, so this
// runs at startup even where validators are unsupported.
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	ensure := func(coll string, schema bson.M) {
		if _, err := ensureCollection(ctx, db, coll); err != nil {
			problems = append(problems, coll+": "+err.Error())
			return
		}
		if schema == nil {
			return
		}
		if err := setValidator(ctx, db, coll, schema); err != nil {
			if isNoSuchCommand(err) || isNotImplemented(err) {
				zap.L().Info("validator skipped (unsupported)", zap.String("collection", coll))
				return
			}
			problems = append(problems, coll+": "+err.Error())
		}
	}

	ensure("containers", containersSchema())
	ensure("assignments", assignmentsSchema())
	for _, loc := range models.Locations {
		ensure(customerstore.Collection(loc), customersSchema())
	}
	ensure("commits", commitsSchema())

	// No validators; the collections still have to exist.
	ensure("history_snapshots", nil)
	ensure("cooldown_settings", nil)
	ensure("audit_events", nil)

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* ---------------------- collection helpers & logging ---------------------- */

// collectionExists returns true when <name> already exists.
func collectionExists(ctx context.Context, db *mongo.Database, name string) (bool, error) {
	names, err := db.ListCollectionNames(ctx, bson.M{"name": name})
	if err != nil {
		return false, err
	}
	return len(names) > 0, nil
}

// ensureCollection idempotently makes sure <name> exists.
// Returns created==true only if we actually created it.
func ensureCollection(ctx context.Context, db *mongo.Database, name string) (created bool, err error) {
	exists, listErr := collectionExists(ctx, db, name)
	if listErr == nil && exists {
		return false, nil
	}
	if err := db.CreateCollection(ctx, name); err != nil {
		// Lost a race with another instance, or a prior run.
		if isNamespaceExistsErr(err) {
			return false, nil
		}
		zap.L().Warn("createCollection failed", zap.String("collection", name), zap.Error(err))
		return false, err
	}
	zap.L().Info("created collection", zap.String("collection", name))
	return true, nil
}

/* ------------------------------ validators ------------------------------- */

func setValidator(ctx context.Context, db *mongo.Database, name string, validator bson.M) error {
	cmd := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
		{Key: "validationLevel", Value: "moderate"},
		{Key: "validationAction", Value: "error"},
	}
	var out bson.M
	if err := db.RunCommand(ctx, cmd).Decode(&out); err != nil {
		return err
	}
	zap.L().Debug("validator ensured", zap.String("collection", name))
	return nil
}

/* ------------------------- error helpers ------------------------- */

func isNamespaceExistsErr(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 48 || strings.Contains(strings.ToLower(ce.Message), "already exists")) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "already exists") || strings.Contains(s, "namespace exists")
}

func isNoSuchCommand(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 59 || strings.Contains(strings.ToLower(ce.Message), "no such command")) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "no such command")
}

func isNotImplemented(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 115 ||
		strings.Contains(strings.ToLower(ce.Message), "not implemented") ||
		strings.Contains(strings.ToLower(ce.Message), "not supported")) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "not implemented") || strings.Contains(s, "not supported")
}

/* ------------------------- JSON-Schema docs ---------------------- */

var (
	integer = bson.M{"bsonType": bson.A{"int", "long"}}
	modes   = bson.M{"enum": bson.A{string(models.ModeMeeting), string(models.ModeDiksha)}}
	dateKey = bson.M{"bsonType": "string", "pattern": datePattern}
)

func containersSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"date", "mode", "limit", "created_at"},
			"properties": bson.M{
				"date":              dateKey,
				"mode":              modes,
				"limit":             bson.M{"bsonType": bson.A{"int", "long"}, "minimum": 0},
				"unlock_expires_at": bson.M{"bsonType": "date"},
				"unlocked_by_id":    bson.M{"bsonType": "objectId"},
				"created_at":        bson.M{"bsonType": "date"},
				"updated_at":        bson.M{"bsonType": "date"},
			},
		},
	}
}

func assignmentsSchema() bson.M {
	decisions := bson.A{}
	for _, d := range []models.Decision{
		models.DecisionPending, models.DecisionProcessing, models.DecisionApprovedFor,
		models.DecisionConfirmed, models.DecisionRejected, models.DecisionBypass,
		models.DecisionBypassConfirmed,
	} {
		decisions = append(decisions, string(d))
	}

	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"customer_id", "container_id", "date", "mode", "status", "kind", "version"},
			"properties": bson.M{
				"customer_id":  bson.M{"bsonType": "objectId"},
				"container_id": bson.M{"bsonType": "objectId"},
				"date":         dateKey,
				"mode":         modes,
				"status": bson.M{"enum": bson.A{
					string(models.StatusInContainer), string(models.StatusOut), string(models.StatusRejected),
				}},
				"card_status": bson.M{"enum": bson.A{
					string(models.CardQualified), string(models.CardRejected),
				}},
				"meeting_decision": bson.M{"enum": decisions},
				"kind": bson.M{"enum": bson.A{
					string(models.KindSingle), string(models.KindCouple), string(models.KindFamily),
				}},
				"pair_id":       bson.M{"bsonType": "objectId"},
				"occupied_date": dateKey,
				"occupied_mode": modes,
				"bypass":        bson.M{"bsonType": "bool"},
				"move_count":    integer,
				"move_history":  bson.M{"bsonType": "array"},
				"version":       bson.M{"bsonType": bson.A{"int", "long"}, "minimum": 1},
			},
		},
	}
}

func customersSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"name", "name_ci", "status"},
			"properties": bson.M{
				"name":    bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"},
				"name_ci": bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"},
				"status": bson.M{"enum": bson.A{
					string(models.CustomerActive), string(models.CustomerInEvent), string(models.CustomerRejected),
				}},
				"diksha_eligible":     bson.M{"bsonType": "bool"},
				"diksha_qualified":    bson.M{"bsonType": "bool"},
				"active_container_id": bson.M{"bsonType": "objectId"},
			},
		},
	}
}

func commitsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"customer_id", "message", "action", "created_at"},
			"properties": bson.M{
				"customer_id": bson.M{"bsonType": "objectId"},
				"message":     bson.M{"bsonType": "string", "minLength": 1},
				"action":      bson.M{"bsonType": "string", "minLength": 1},
				"created_at":  bson.M{"bsonType": "date"},
			},
		},
	}
}
