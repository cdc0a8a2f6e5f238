// Package txn runs multi-collection mutations in a MongoDB transaction.
//
// Standalone deployments cannot run transactions. Run detects that case and
// runs the function without a session, so the same code path works in
// development and in tests against a single mongod.
package txn

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Run executes fn inside a transaction. fn must use the ctx it is given so
// its operations join the session.
func Run(ctx context.Context, db *mongo.Database, log *zap.Logger, fn func(ctx context.Context) error) error {
	sess, err := db.Client().StartSession()
	if err != nil {
		if IsNotSupported(err) {
			return fn(ctx)
		}
		return err
	}
	defer sess.EndSession(ctx)

	ran := false
	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		ran = true
		return nil, fn(sc)
	})
	if err != nil && IsNotSupported(err) {
		if log != nil {
			log.Debug("transactions unavailable, running without", zap.Error(err), zap.Bool("partial", ran))
		}
		return fn(ctx)
	}
	return err
}

// IsNotSupported reports whether err means the deployment cannot run
// transactions or sessions.
func IsNotSupported(err error) bool {
	if err == nil {
		return false
	}

	var ce mongo.CommandError
	if errors.As(err, &ce) {
		// IllegalOperation and the standalone / unsupported-in-transaction codes
		switch ce.Code {
		case 20, 51, 263:
			return true
		}
	}

	msg := strings.ToLower(err.Error())
	has := func(s string) bool { return strings.Contains(msg, s) }
	switch {
	case has("transaction") && has("replica set"):
		return true
	case has("session") && has("not supported"):
		return true
	case has("transaction") && has("session"):
		return true
	case has("illegal operation"):
		return true
	}
	return false
}
