// internal/app/features/cooldowns/routes.go
package cooldowns

import (
	"github.com/dalemusser/sevadesk/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes returns the router mounted at /api/cooldowns.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)

		pr.Get("/me", h.ServeMine)
		pr.Get("/{userID}", h.ServeCooldown)
		pr.Put("/{userID}", h.HandleSet)
		pr.Delete("/{userID}", h.HandleClear)
	})

	return r
}
