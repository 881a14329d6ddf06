package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all training routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/training", func(r chi.Router) {
		r.Post("/run", h.HandleTrain)
		r.Get("/model", h.HandleGetModel)
	})
}
