package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all pricing routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/pricing", func(r chi.Router) {
		r.Post("/update-all", h.HandleUpdateAll)
		r.Post("/bulk-update", h.HandleBulkUpdate)
		r.Post("/products/{id}/update", h.HandleUpdateProduct)
		r.Get("/products/{id}/changes", h.HandleGetChanges)
	})
}
