// internal/app/features/auditlog/list.go
package auditlog

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dalemusser/sevadesk/internal/app/store/audit"
	"github.com/dalemusser/sevadesk/internal/app/system/apierr"
	"github.com/dalemusser/sevadesk/internal/app/system/datekey"
	"github.com/dalemusser/sevadesk/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ServeList handles GET /api/audit?category&eventType&actorId&containerId&from&to&limit.
// Dates are UTC calendar days; to is inclusive.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		apierr.Write(w, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "audit log list")
	defer cancel()

	events, err := h.Store.Query(ctx, filter)
	if err != nil {
		apierr.Write(w, h.Log, err)
		return
	}
	if events == nil {
		events = []audit.Event{}
	}
	apierr.OK(w, map[string]any{"events": events, "count": len(events)})
}

func parseFilter(r *http.Request) (audit.QueryFilter, error) {
	q := r.URL.Query()
	f := audit.QueryFilter{
		Category:  strings.TrimSpace(q.Get("category")),
		EventType: strings.TrimSpace(q.Get("eventType")),
	}

	switch f.Category {
	case "", audit.CategoryCalendar, audit.CategoryAdmin:
	default:
		return f, badParam("category", "unknown category")
	}
	if f.EventType != "" && !knownEventType(f.Category, f.EventType) {
		return f, badParam("eventType", "unknown event type for category")
	}

	for _, p := range []struct {
		name string
		dst  **primitive.ObjectID
	}{{"actorId", &f.ActorID}, {"containerId", &f.ContainerID}} {
		raw := strings.TrimSpace(q.Get(p.name))
		if raw == "" {
			continue
		}
		id, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			return f, apierr.BadRequest("INVALID_ID", p.name+" is not a valid id").With("param", p.name)
		}
		*p.dst = &id
	}

	if raw := q.Get("from"); raw != "" {
		t, err := day(raw)
		if err != nil {
			return f, badParam("from", "from must be YYYY-MM-DD")
		}
		f.StartTime = &t
	}
	if raw := q.Get("to"); raw != "" {
		t, err := day(raw)
		if err != nil {
			return f, badParam("to", "to must be YYYY-MM-DD")
		}
		end := t.Add(24*time.Hour - time.Nanosecond)
		f.EndTime = &end
	}

	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n <= 0 || n > maxLimit {
			return f, badParam("limit", "limit must be between 1 and 500")
		}
		f.Limit = n
	}
	return f, nil
}

func day(s string) (time.Time, error) {
	if !datekey.Valid(s) {
		return time.Time{}, apierr.BadRequest("INVALID_INPUT", "bad date")
	}
	return time.Parse(datekey.Layout, s)
}

func badParam(name, msg string) error {
	return apierr.BadRequest("INVALID_INPUT", msg).With("param", name)
}
