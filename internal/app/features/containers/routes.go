// internal/app/features/containers/routes.go
package containers

import (
	"github.com/dalemusser/sevadesk/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes returns the router mounted at /api/containers.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)

		// BOARD
		pr.Get("/", h.ServeBoard)
		pr.Post("/", h.HandleGetOrCreate)

		// CONTAINER
		pr.Get("/{id}", h.ServeContainer)
		pr.Get("/{id}/assignments", h.ServeAssignments)
		pr.Post("/{id}/approve", h.HandleApprove)

		// ADMIN
		pr.Post("/{id}/unlock", h.HandleUnlock)
		pr.Post("/{id}/relock", h.HandleRelock)
		pr.Post("/{id}/limit", h.HandleSetLimit)

		// CARDS
		pr.Route("/{id}/assignments/{aid}", func(cr chi.Router) {
			cr.Post("/assign", h.HandleShift())
			cr.Post("/bypass", h.HandleBypass())
			cr.Post("/change-date", h.HandleChangeDate())
			cr.Post("/confirm", h.HandleConfirm())
			cr.Post("/reject", h.HandleReject())
			cr.Post("/out", h.HandleOut())
			cr.Post("/done", h.HandleDone())
		})
	})

	return r
}
