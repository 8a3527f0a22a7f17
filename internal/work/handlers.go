package work

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Handlers provides HTTP handlers for the work processor
type Handlers struct {
	processor *Processor
	registry  *Registry
}

// NewHandlers creates new HTTP handlers for the work processor
func NewHandlers(processor *Processor, registry *Registry) *Handlers {
	return &Handlers{
		processor: processor,
		registry:  registry,
	}
}

// RegisterRoutes registers HTTP routes for work management
func (h *Handlers) RegisterRoutes(r chi.Router) {
	r.Route("/api/work", func(r chi.Router) {
		r.Get("/types", h.ListWorkTypes)
		r.Get("/status", h.GetStatus)
		r.Post("/trigger", h.TriggerProcessor)
		r.Post("/{workType}/enqueue", h.EnqueueWorkType)
		r.Post("/{workType}/execute", h.ExecuteWorkType)
		r.Post("/{workType}/{subject}/enqueue", h.EnqueueWorkType)
	})
}

// ListWorkTypes returns all registered work types
func (h *Handlers) ListWorkTypes(w http.ResponseWriter, r *http.Request) {
	types := h.registry.ByPriority()

	response := make([]map[string]any, 0, len(types))
	for _, wt := range types {
		response = append(response, map[string]any{
			"id":          wt.ID,
			"description": wt.Description,
			"priority":    wt.Priority.String(),
			"depends_on":  wt.DependsOn,
			"interval":    wt.Interval.String(),
		})
	}

	writeJSON(w, http.StatusOK, response)
}

// GetStatus returns the processor queues
func (h *Handlers) GetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.processor.Status())
}

// EnqueueWorkType queues a work type, optionally for a subject
func (h *Handlers) EnqueueWorkType(w http.ResponseWriter, r *http.Request) {
	workType := chi.URLParam(r, "workType")
	subject := chi.URLParam(r, "subject")

	if err := h.processor.Enqueue(workType, subject); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{
		"status":    "queued",
		"work_type": workType,
		"subject":   subject,
	})
}

// ExecuteWorkType runs a global work type synchronously
func (h *Handlers) ExecuteWorkType(w http.ResponseWriter, r *http.Request) {
	workType := chi.URLParam(r, "workType")

	if h.registry.Get(workType) == nil {
		http.Error(w, "unknown work type: "+workType, http.StatusBadRequest)
		return
	}
	if err := h.processor.ExecuteNow(r.Context(), workType, ""); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "executed",
		"work_type": workType,
	})
}

// TriggerProcessor triggers the processor to check for work
func (h *Handlers) TriggerProcessor(w http.ResponseWriter, r *http.Request) {
	h.processor.Trigger()
	writeJSON(w, http.StatusOK, map[string]string{"status": "triggered"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
