// internal/app/features/session/handler.go
package session

import (
	"net/http"

	"github.com/dalemusser/sevadesk/internal/app/system/apierr"
	"github.com/dalemusser/sevadesk/internal/app/system/auth"
	"go.uber.org/zap"
)

type Handler struct {
	Log        *zap.Logger
	SessionMgr *auth.SessionManager
}

func NewHandler(sessionMgr *auth.SessionManager, logger *zap.Logger) *Handler {
	return &Handler{
		Log:        logger,
		SessionMgr: sessionMgr,
	}
}

// ServeCurrent handles GET /api/session and reports who the cookie belongs to.
func (h *Handler) ServeCurrent(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		apierr.Write(w, h.Log, apierr.Unauthorized("sign in required"))
		return
	}
	apierr.OK(w, map[string]any{"user": map[string]string{
		"id":   u.ID,
		"name": u.Name,
		"role": u.Role,
	}})
}

// HandleLogout handles POST /api/session/logout. It always answers ok so a
// client with an already-expired cookie can still clear it.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.SessionMgr.SignOut(w, r); err != nil {
		h.Log.Error("logout: save session", zap.Error(err))
		apierr.Write(w, h.Log, err)
		return
	}
	apierr.OK(w, nil)
}
