// Package handlers exposes what is currently staged for a strategy.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/augur/internal/domain"
	"github.com/aristath/augur/internal/modules/staging"
)

// Workbench is the read side of staging.Workbench.
type Workbench interface {
	Status(ctx context.Context, name string) (*staging.Status, error)
}

// Handler handles staging HTTP requests
type Handler struct {
	workbench Workbench
	log       zerolog.Logger
}

// NewHandler creates a new staging handler
func NewHandler(workbench Workbench, log zerolog.Logger) *Handler {
	return &Handler{
		workbench: workbench,
		log:       log.With().Str("handler", "staging").Logger(),
	}
}

// RegisterRoutes registers staging routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/api/staging/{name}", h.HandleStatus)
}

// HandleStatus handles GET /api/staging/{name}
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	status, err := h.workbench.Status(r.Context(), name)
	if errors.Is(err, domain.ErrNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		h.log.Warn().Err(err).Str("strategy", name).Msg("Failed to load staging status")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(map[string]interface{}{
		"data": status,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
