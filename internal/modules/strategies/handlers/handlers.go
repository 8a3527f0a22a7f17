// Package handlers provides HTTP handlers for the strategy catalog.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/augur/internal/domain"
)

// Catalog lists registered strategies.
type Catalog interface {
	List() []domain.Descriptor
}

// Activity reports which strategies are active.
type Activity interface {
	ActiveNames(ctx context.Context) ([]string, error)
}

// StrategyView is a descriptor with its activation state.
type StrategyView struct {
	domain.Descriptor
	Active bool `json:"active"`
}

// Handler handles strategy catalog HTTP requests
type Handler struct {
	catalog  Catalog
	activity Activity
	log      zerolog.Logger
}

// NewHandler creates a new strategies handler
func NewHandler(catalog Catalog, activity Activity, log zerolog.Logger) *Handler {
	return &Handler{
		catalog:  catalog,
		activity: activity,
		log:      log.With().Str("handler", "strategies").Logger(),
	}
}

// RegisterRoutes registers strategy routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/api/strategies", h.HandleList)
}

// HandleList handles GET /api/strategies
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	names, err := h.activity.ActiveNames(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to load strategy status")
		http.Error(w, "Failed to load strategy status", http.StatusInternalServerError)
		return
	}
	active := make(map[string]bool, len(names))
	for _, n := range names {
		active[n] = true
	}

	descriptors := h.catalog.List()
	views := make([]StrategyView, len(descriptors))
	activeCount := 0
	for i, d := range descriptors {
		views[i] = StrategyView{Descriptor: d, Active: active[d.Name]}
		if views[i].Active {
			activeCount++
		}
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": views,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
			"count":     len(views),
			"active":    activeCount,
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
