// Package handlers provides HTTP handlers for cached predictions.
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
)

// Cache is the read side of predictions.Service.
type Cache interface {
	Get(ctx context.Context, name string) (*domain.CachedPrediction, error)
	List(ctx context.Context) ([]domain.CachedPrediction, error)
}

// Handler handles prediction cache HTTP requests
type Handler struct {
	cache Cache
	log   zerolog.Logger
}

// NewHandler creates a new predictions handler
func NewHandler(cache Cache, log zerolog.Logger) *Handler {
	return &Handler{
		cache: cache,
		log:   log.With().Str("handler", "predictions").Logger(),
	}
}

// RegisterRoutes registers prediction routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/predictions", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Get("/{name}", h.HandleGet)
	})
}

// HandleList handles GET /api/predictions
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	all, err := h.cache.List(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list cached predictions")
		http.Error(w, "Failed to list cached predictions", http.StatusInternalServerError)
		return
	}
	if all == nil {
		all = []domain.CachedPrediction{}
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": all,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
			"count":     len(all),
		},
	})
}

// HandleGet handles GET /api/predictions/{name}. A registered strategy
// without a cached entry returns data null.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	p, err := h.cache.Get(r.Context(), name)
	if errors.Is(err, domain.ErrNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("strategy", name).Msg("Failed to load cached prediction")
		http.Error(w, "Failed to load cached prediction", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": p,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
			"cached":    p != nil,
		},
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
