// internal/app/features/containers/handler.go
package containers

import (
	"context"
	"net/http"

	"github.com/dalemusser/sevadesk/internal/app/calendar"
	"github.com/dalemusser/sevadesk/internal/app/system/apierr"
	"github.com/dalemusser/sevadesk/internal/app/system/authz"
	"github.com/dalemusser/sevadesk/internal/app/system/inputval"
	"github.com/dalemusser/sevadesk/internal/app/system/timeouts"
	"github.com/dalemusser/sevadesk/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Handler serves the container board and the card operations inside a
// container.
type Handler struct {
	Engine *calendar.Engine
	Log    *zap.Logger
}

func NewHandler(engine *calendar.Engine, logger *zap.Logger) *Handler {
	return &Handler{Engine: engine, Log: logger}
}

// actor returns the signed-in user, answering 401 when there is none.
func (h *Handler) actor(w http.ResponseWriter, r *http.Request) (models.Actor, bool) {
	a, ok := authz.Actor(r)
	if !ok {
		apierr.Write(w, h.Log, apierr.Unauthorized("sign in required"))
		return models.Actor{}, false
	}
	return a, true
}

// ids parses the container id and, when withCard is set, the assignment id.
func (h *Handler) ids(w http.ResponseWriter, r *http.Request, withCard bool) (containerID, assignmentID primitive.ObjectID, ok bool) {
	containerID, err := inputval.PathID(r, "id")
	if err != nil {
		apierr.Write(w, h.Log, err)
		return containerID, assignmentID, false
	}
	if withCard {
		if assignmentID, err = inputval.PathID(r, "aid"); err != nil {
			apierr.Write(w, h.Log, err)
			return containerID, assignmentID, false
		}
	}
	return containerID, assignmentID, true
}

// cardOp wires the shared plumbing of every card transition: actor, ids,
// body decode, a Long timeout and the result rendering.
func cardOp[Req any](h *Handler, name string, op func(ctx context.Context, a models.Actor, cid, aid primitive.ObjectID, req Req) (calendar.Result, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, ok := h.actor(w, r)
		if !ok {
			return
		}
		cid, aid, ok := h.ids(w, r, true)
		if !ok {
			return
		}
		var req Req
		if err := inputval.Decode(r, &req); err != nil {
			apierr.Write(w, h.Log, err)
			return
		}

		ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, name)
		defer cancel()

		res, err := op(ctx, a, cid, aid, req)
		if err != nil {
			apierr.Write(w, h.Log, err)
			return
		}
		apierr.OK(w, res.Fields())
	}
}
