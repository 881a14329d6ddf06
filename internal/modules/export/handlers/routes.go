package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all export routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/export", func(r chi.Router) {
		r.Get("/pricing", h.HandleExportPricing)
	})
}
