// Package handlers provides HTTP handlers for the strategy ranking.
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

// Ranking is the read side of ranking.Service.
type Ranking interface {
	Get(ctx context.Context) ([]domain.RankingEntry, error)
	Entry(ctx context.Context, name string) (*domain.RankingEntry, error)
}

// Handler handles ranking HTTP requests
type Handler struct {
	ranking Ranking
	log     zerolog.Logger
}

// NewHandler creates a new ranking handler
func NewHandler(ranking Ranking, log zerolog.Logger) *Handler {
	return &Handler{
		ranking: ranking,
		log:     log.With().Str("handler", "ranking").Logger(),
	}
}

// RegisterRoutes registers ranking routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/ranking", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Get("/{name}", h.HandleGet)
	})
}

// HandleList handles GET /api/ranking
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	entries, err := h.ranking.Get(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to load ranking")
		http.Error(w, "Failed to load ranking", http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []domain.RankingEntry{}
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": entries,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
			"count":     len(entries),
		},
	})
}

// HandleGet handles GET /api/ranking/{name}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	entry, err := h.ranking.Entry(r.Context(), name)
	if errors.Is(err, domain.ErrNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("strategy", name).Msg("Failed to load ranking entry")
		http.Error(w, "Failed to load ranking entry", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": entry,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
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
