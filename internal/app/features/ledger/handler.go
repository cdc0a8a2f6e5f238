// internal/app/features/ledger/handler.go
package ledger

import (
	"net/http"
	"strconv"

	"github.com/dalemusser/sevadesk/internal/app/calendar"
	"github.com/dalemusser/sevadesk/internal/app/system/apierr"
	"github.com/dalemusser/sevadesk/internal/app/system/inputval"
	"github.com/dalemusser/sevadesk/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Handler serves the read side of the commit ledger and the history archive.
type Handler struct {
	Engine *calendar.Engine
	Log    *zap.Logger
}

func NewHandler(engine *calendar.Engine, logger *zap.Logger) *Handler {
	return &Handler{Engine: engine, Log: logger}
}

// ServeCustomerCommits handles GET /api/customers/{id}/commits?limit.
func (h *Handler) ServeCustomerCommits(w http.ResponseWriter, r *http.Request) {
	id, err := inputval.PathID(r, "id")
	if err != nil {
		apierr.Write(w, h.Log, err)
		return
	}
	limit, err := limitParam(r)
	if err != nil {
		apierr.Write(w, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "ledger.commits")
	defer cancel()

	recs, err := h.Engine.CustomerCommits(ctx, id, limit)
	if err != nil {
		apierr.Write(w, h.Log, err)
		return
	}
	apierr.OK(w, map[string]any{"commits": recs, "count": len(recs)})
}

// ServeHistory handles GET /api/history?status&customerId&from&to&limit.
func (h *Handler) ServeHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := limitParam(r)
	if err != nil {
		apierr.Write(w, h.Log, err)
		return
	}
	hq := calendar.HistoryQuery{
		Status: q.Get("status"),
		From:   q.Get("from"),
		To:     q.Get("to"),
		Limit:  limit,
	}
	if raw := q.Get("customerId"); raw != "" {
		cid, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			apierr.Write(w, h.Log, apierr.BadRequest("INVALID_ID", "customerId is not a valid id"))
			return
		}
		hq.CustomerID = &cid
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "ledger.history")
	defer cancel()

	snaps, err := h.Engine.Snapshots(ctx, hq)
	if err != nil {
		apierr.Write(w, h.Log, err)
		return
	}
	apierr.OK(w, map[string]any{"snapshots": snaps, "count": len(snaps)})
}

func limitParam(r *http.Request) (int64, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 0 {
		return 0, apierr.BadRequest("INVALID_INPUT", "limit must be a positive number").With("param", "limit")
	}
	return n, nil
}
