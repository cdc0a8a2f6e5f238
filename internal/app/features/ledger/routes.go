// internal/app/features/ledger/routes.go
package ledger

import (
	"github.com/dalemusser/sevadesk/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes returns the router mounted at /api. It serves
// /customers/{id}/commits and /history.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Get("/customers/{id}/commits", h.ServeCustomerCommits)
		pr.Get("/history", h.ServeHistory)
	})

	return r
}
