// internal/app/features/session/routes.go
package session

import (
	"github.com/go-chi/chi/v5"
)

// Routes mounts the session endpoints (typically under "/api/session").
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeCurrent)
	r.Post("/logout", h.HandleLogout)
	return r
}
