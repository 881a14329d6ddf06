// Package handlers provides HTTP handlers for price updates and the
// price-change audit trail.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/pricewise/pricewise/internal/modules/catalog"
	"github.com/pricewise/pricewise/internal/modules/pricing"
)

const defaultChangesLimit = 50

// Handler handles pricing HTTP requests
type Handler struct {
	coordinator *pricing.Coordinator
	changes     *pricing.ChangeLogRepository
	log         zerolog.Logger
}

// NewHandler creates a new pricing handler
func NewHandler(coordinator *pricing.Coordinator, changes *pricing.ChangeLogRepository, log zerolog.Logger) *Handler {
	return &Handler{
		coordinator: coordinator,
		changes:     changes,
		log:         log.With().Str("handler", "pricing").Logger(),
	}
}

// HandleUpdateProduct recalculates one product's price immediately
func (h *Handler) HandleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	update, err := h.coordinator.UpdateOne(id)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			h.writeError(w, http.StatusNotFound, "product not found")
			return
		}
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, update)
}

// HandleUpdateAll recalculates prices for every in-stock product
func (h *Handler) HandleUpdateAll(w http.ResponseWriter, r *http.Request) {
	result, err := h.coordinator.UpdateAll()
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}

// HandleBulkUpdate recalculates prices for an explicit list of products.
// Per-product failures are reported in the result, never as an HTTP error.
func (h *Handler) HandleBulkUpdate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProductIDs []string `json:"product_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(req.ProductIDs) == 0 {
		h.writeError(w, http.StatusBadRequest, "product_ids is required")
		return
	}

	result := h.coordinator.UpdateMany(req.ProductIDs)
	h.writeJSON(w, http.StatusOK, result)
}

// HandleGetChanges returns a product's price-change history, newest first
func (h *Handler) HandleGetChanges(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	limit := defaultChangesLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			h.writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	changes, err := h.changes.ListByProduct(id, limit)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"product_id": id,
		"changes":    changes,
		"count":      len(changes),
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
