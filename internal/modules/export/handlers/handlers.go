// Package handlers provides the CSV export HTTP surface.
package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/pricewise/pricewise/internal/modules/export"
)

// Handler handles export HTTP requests
type Handler struct {
	service *export.Service
	log     zerolog.Logger
}

// NewHandler creates a new export handler
func NewHandler(service *export.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "export").Logger(),
	}
}

// HandleExportPricing streams the pricing snapshot as a CSV attachment.
// The CSV is built in memory first so a mid-export failure produces a clean
// JSON error instead of a truncated file.
func (h *Handler) HandleExportPricing(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.service.WriteCSV(&buf); err != nil {
		h.log.Error().Err(err).Msg("CSV export failed")
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	filename := fmt.Sprintf("pricing_data_%s.csv", time.Now().UTC().Format("2006-01-02"))

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)

	if _, err := buf.WriteTo(w); err != nil {
		h.log.Error().Err(err).Msg("Failed to write CSV response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": message}); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
