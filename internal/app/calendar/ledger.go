package calendar

import (
	"context"
	"fmt"

	historystore "github.com/dalemusser/sevadesk/internal/app/store/history"
	"github.com/dalemusser/sevadesk/internal/app/system/apierr"
	"github.com/dalemusser/sevadesk/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DefaultLedgerLimit caps ledger reads when the caller gives no limit.
const DefaultLedgerLimit = 100

// CustomerCommits returns the newest commit records of a customer.
func (e *Engine) CustomerCommits(ctx context.Context, customerID primitive.ObjectID, limit int64) ([]models.CommitRecord, error) {
	if limit <= 0 || limit > 500 {
		limit = DefaultLedgerLimit
	}
	recs, err := e.Commits.ListByCustomer(ctx, customerID, limit)
	if err != nil {
		return nil, fmt.Errorf("list commits: %w", err)
	}
	return recs, nil
}

// HistoryQuery filters Snapshots.
type HistoryQuery struct {
	Status     string
	CustomerID *primitive.ObjectID
	From       string
	To         string
	Limit      int64
}

// Snapshots lists history snapshots newest first.
func (e *Engine) Snapshots(ctx context.Context, q HistoryQuery) ([]models.HistorySnapshot, error) {
	st := models.SnapshotStatus(q.Status)
	if st != "" && !st.Valid() {
		return nil, apierr.BadRequest("INVALID_INPUT", "unknown snapshot status").With("status", q.Status)
	}
	if q.From != "" {
		if err := parseDate("from", q.From); err != nil {
			return nil, err
		}
	}
	if q.To != "" {
		if err := parseDate("to", q.To); err != nil {
			return nil, err
		}
	}
	snaps, err := e.History.List(ctx, historystore.Filter{
		Status:     st,
		CustomerID: q.CustomerID,
		From:       q.From,
		To:         q.To,
		Limit:      q.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	return snaps, nil
}
