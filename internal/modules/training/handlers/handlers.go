// Package handlers provides HTTP handlers for model training.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"

	"github.com/rs/zerolog"

	"github.com/pricewise/pricewise/internal/modules/pricing"
	"github.com/pricewise/pricewise/internal/modules/training"
)

// Handler handles training HTTP requests
type Handler struct {
	trainer *training.Trainer
	store   *training.Store
	learned *pricing.LearnedStrategy
	log     zerolog.Logger
}

// NewHandler creates a new training handler
func NewHandler(trainer *training.Trainer, store *training.Store, learned *pricing.LearnedStrategy, log zerolog.Logger) *Handler {
	return &Handler{
		trainer: trainer,
		store:   store,
		learned: learned,
		log:     log.With().Str("handler", "training").Logger(),
	}
}

// HandleTrain retrains the model synchronously and activates the new
// artifact. Failures are loud: a 500 with the training error, never a
// silent fallback.
func (h *Handler) HandleTrain(w http.ResponseWriter, r *http.Request) {
	artifact, err := h.trainer.Train()
	if err != nil {
		h.log.Error().Err(err).Msg("Training run failed")
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.learned.Invalidate()

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"model_version": artifact.ModelVersion,
		"trained_at":    artifact.TrainedAt,
		"metrics":       artifact.Metrics,
	})
}

// HandleGetModel returns metadata of the currently published model
func (h *Handler) HandleGetModel(w http.ResponseWriter, r *http.Request) {
	artifact, err := h.store.CurrentArtifact()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			h.writeError(w, http.StatusNotFound, "no model published")
			return
		}
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, artifact)
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
