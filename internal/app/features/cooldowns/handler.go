// internal/app/features/cooldowns/handler.go
package cooldowns

import (
	"net/http"

	"github.com/dalemusser/sevadesk/internal/app/calendar"
	"github.com/dalemusser/sevadesk/internal/app/system/apierr"
	"github.com/dalemusser/sevadesk/internal/app/system/authz"
	"github.com/dalemusser/sevadesk/internal/app/system/inputval"
	"github.com/dalemusser/sevadesk/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// Handler serves per-user move cooldown settings.
type Handler struct {
	Engine *calendar.Engine
	Log    *zap.Logger
}

func NewHandler(engine *calendar.Engine, logger *zap.Logger) *Handler {
	return &Handler{Engine: engine, Log: logger}
}

// ServeMine handles GET /api/cooldowns/me.
func (h *Handler) ServeMine(w http.ResponseWriter, r *http.Request) {
	_, _, uid, ok := authz.UserCtx(r)
	if !ok {
		apierr.Write(w, h.Log, apierr.Unauthorized("sign in required"))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "cooldowns.me")
	defer cancel()

	v, err := h.Engine.CooldownFor(ctx, uid)
	if err != nil {
		apierr.Write(w, h.Log, err)
		return
	}
	apierr.OK(w, map[string]any{"cooldown": v})
}

// ServeCooldown handles GET /api/cooldowns/{userID}. Admins may read any
// user; everyone else only themselves.
func (h *Handler) ServeCooldown(w http.ResponseWriter, r *http.Request) {
	if _, _, _, ok := authz.UserCtx(r); !ok {
		apierr.Write(w, h.Log, apierr.Unauthorized("sign in required"))
		return
	}
	target, err := inputval.PathID(r, "userID")
	if err != nil {
		apierr.Write(w, h.Log, err)
		return
	}
	if !authz.IsSelf(r, target.Hex()) && !authz.IsAdmin(r) {
		apierr.Write(w, h.Log, apierr.Forbidden("admin only"))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "cooldowns.get")
	defer cancel()

	v, err := h.Engine.CooldownFor(ctx, target)
	if err != nil {
		apierr.Write(w, h.Log, err)
		return
	}
	apierr.OK(w, map[string]any{"cooldown": v})
}

// HandleSet handles PUT /api/cooldowns/{userID} {minutes}.
func (h *Handler) HandleSet(w http.ResponseWriter, r *http.Request) {
	a, ok := authz.Actor(r)
	if !ok {
		apierr.Write(w, h.Log, apierr.Unauthorized("sign in required"))
		return
	}
	target, err := inputval.PathID(r, "userID")
	if err != nil {
		apierr.Write(w, h.Log, err)
		return
	}
	var req calendar.CooldownRequest
	if err := inputval.Decode(r, &req); err != nil {
		apierr.Write(w, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "cooldowns.set")
	defer cancel()

	v, err := h.Engine.SetCooldown(ctx, a, target, req)
	if err != nil {
		apierr.Write(w, h.Log, err)
		return
	}
	apierr.OK(w, map[string]any{"cooldown": v})
}

// HandleClear handles DELETE /api/cooldowns/{userID}.
func (h *Handler) HandleClear(w http.ResponseWriter, r *http.Request) {
	a, ok := authz.Actor(r)
	if !ok {
		apierr.Write(w, h.Log, apierr.Unauthorized("sign in required"))
		return
	}
	target, err := inputval.PathID(r, "userID")
	if err != nil {
		apierr.Write(w, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "cooldowns.clear")
	defer cancel()

	v, err := h.Engine.ClearCooldown(ctx, a, target)
	if err != nil {
		apierr.Write(w, h.Log, err)
		return
	}
	apierr.OK(w, map[string]any{"cooldown": v})
}
