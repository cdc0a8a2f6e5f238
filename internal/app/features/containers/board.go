package containers

import (
	"net/http"

	"github.com/dalemusser/sevadesk/internal/app/calendar"
	"github.com/dalemusser/sevadesk/internal/app/system/apierr"
	"github.com/dalemusser/sevadesk/internal/app/system/inputval"
	"github.com/dalemusser/sevadesk/internal/app/system/timeouts"
)

// ServeBoard handles GET /api/containers?from&to&mode.
func (h *Handler) ServeBoard(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "containers.board")
	defer cancel()

	views, err := h.Engine.Board(ctx, q.Get("from"), q.Get("to"), q.Get("mode"))
	if err != nil {
		apierr.Write(w, h.Log, err)
		return
	}
	if views == nil {
		views = []calendar.ContainerView{}
	}
	apierr.OK(w, map[string]any{"containers": views})
}

// HandleGetOrCreate handles POST /api/containers {date, mode}.
func (h *Handler) HandleGetOrCreate(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.actor(w, r); !ok {
		return
	}
	var req calendar.ContainerRequest
	if err := inputval.Decode(r, &req); err != nil {
		apierr.Write(w, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "containers.get_or_create")
	defer cancel()

	v, err := h.Engine.GetOrCreate(ctx, req)
	if err != nil {
		apierr.Write(w, h.Log, err)
		return
	}
	apierr.OK(w, map[string]any{"container": v})
}

// ServeContainer handles GET /api/containers/{id}.
func (h *Handler) ServeContainer(w http.ResponseWriter, r *http.Request) {
	id, _, ok := h.ids(w, r, false)
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "containers.get")
	defer cancel()

	v, err := h.Engine.Container(ctx, id)
	if err != nil {
		apierr.Write(w, h.Log, err)
		return
	}
	apierr.OK(w, map[string]any{"container": v})
}

// ServeAssignments handles GET /api/containers/{id}/assignments.
func (h *Handler) ServeAssignments(w http.ResponseWriter, r *http.Request) {
	id, _, ok := h.ids(w, r, false)
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "containers.assignments")
	defer cancel()

	as, err := h.Engine.ListAssignments(ctx, id)
	if err != nil {
		apierr.Write(w, h.Log, err)
		return
	}
	apierr.OK(w, map[string]any{"assignments": as, "count": len(as)})
}

// HandleUnlock handles POST /api/containers/{id}/unlock {minutes}. Admin only.
func (h *Handler) HandleUnlock(w http.ResponseWriter, r *http.Request) {
	a, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, _, ok := h.ids(w, r, false)
	if !ok {
		return
	}
	var req calendar.UnlockRequest
	if err := inputval.Decode(r, &req); err != nil {
		apierr.Write(w, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "containers.unlock")
	defer cancel()

	v, err := h.Engine.Unlock(ctx, a, id, req)
	if err != nil {
		apierr.Write(w, h.Log, err)
		return
	}
	apierr.OK(w, map[string]any{"container": v})
}

// HandleRelock handles POST /api/containers/{id}/relock. Admin only.
func (h *Handler) HandleRelock(w http.ResponseWriter, r *http.Request) {
	a, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, _, ok := h.ids(w, r, false)
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "containers.relock")
	defer cancel()

	v, err := h.Engine.Relock(ctx, a, id)
	if err != nil {
		apierr.Write(w, h.Log, err)
		return
	}
	apierr.OK(w, map[string]any{"container": v})
}

// HandleSetLimit handles POST /api/containers/{id}/limit {limit}. Admin only.
func (h *Handler) HandleSetLimit(w http.ResponseWriter, r *http.Request) {
	a, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, _, ok := h.ids(w, r, false)
	if !ok {
		return
	}
	var req calendar.LimitRequest
	if err := inputval.Decode(r, &req); err != nil {
		apierr.Write(w, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "containers.limit")
	defer cancel()

	v, err := h.Engine.SetLimit(ctx, a, id, req)
	if err != nil {
		apierr.Write(w, h.Log, err)
		return
	}
	apierr.OK(w, map[string]any{"container": v})
}
