package containers

import (
	"net/http"

	"github.com/dalemusser/sevadesk/internal/app/calendar"
	"github.com/dalemusser/sevadesk/internal/app/system/apierr"
	"github.com/dalemusser/sevadesk/internal/app/system/inputval"
	"github.com/dalemusser/sevadesk/internal/app/system/timeouts"
)

// HandleApprove handles POST /api/containers/{id}/approve.
func (h *Handler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	a, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, _, ok := h.ids(w, r, false)
	if !ok {
		return
	}
	var req calendar.ApproveRequest
	if err := inputval.Decode(r, &req); err != nil {
		apierr.Write(w, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "cards.approve")
	defer cancel()

	res, err := h.Engine.Approve(ctx, a, id, req)
	if err != nil {
		apierr.Write(w, h.Log, err)
		return
	}
	apierr.OK(w, res.Fields())
}

// Card transitions under /api/containers/{id}/assignments/{aid}.
func (h *Handler) HandleShift() http.HandlerFunc {
	return cardOp(h, "cards.assign", h.Engine.Shift)
}

func (h *Handler) HandleBypass() http.HandlerFunc {
	return cardOp(h, "cards.bypass", h.Engine.SetBypass)
}

func (h *Handler) HandleChangeDate() http.HandlerFunc {
	return cardOp(h, "cards.change_date", h.Engine.ChangeDate)
}

func (h *Handler) HandleConfirm() http.HandlerFunc {
	return cardOp(h, "cards.confirm", h.Engine.Confirm)
}

func (h *Handler) HandleReject() http.HandlerFunc {
	return cardOp(h, "cards.reject", h.Engine.Reject)
}

func (h *Handler) HandleOut() http.HandlerFunc {
	return cardOp(h, "cards.out", h.Engine.Out)
}

func (h *Handler) HandleDone() http.HandlerFunc {
	return cardOp(h, "cards.done", h.Engine.Qualify)
}
