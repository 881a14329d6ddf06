package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all catalog routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/products", func(r chi.Router) {
		r.Get("/", h.HandleListProducts)
		r.Post("/", h.HandleCreateProduct)
		r.Get("/{id}", h.HandleGetProduct)
		r.Post("/{id}/sale", h.HandleRecordSale)
	})
}
