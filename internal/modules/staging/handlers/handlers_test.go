package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/augur/internal/domain"
	"github.com/aristath/augur/internal/modules/staging"
)

type fakeWorkbench struct{}

func (fakeWorkbench) Status(ctx context.Context, name string) (*staging.Status, error) {
	switch name {
	case "hot_window":
		return &staging.Status{
			Strategy: "hot_window",
			Records:  map[string]int{"hot_window": 12, "anti_hot_window": 12},
			Active:   map[string]bool{"hot_window": false, "anti_hot_window": false},
		}, nil
	case "medal_gold":
		return nil, errors.New("ensemble medal_gold is derived from the ranking and cannot be staged")
	}
	return nil, fmt.Errorf("strategy %s: %w", name, domain.ErrNotFound)
}

func TestHandleStatus(t *testing.T) {
	mux := chi.NewRouter()
	NewHandler(fakeWorkbench{}, zerolog.Nop()).RegisterRoutes(mux)

	tests := []struct {
		name string
		path string
		code int
		body string
	}{
		{"staged", "/api/staging/hot_window", http.StatusOK, `"anti_hot_window":12`},
		{"ensemble", "/api/staging/medal_gold", http.StatusBadRequest, "cannot be staged"},
		{"unknown", "/api/staging/nope", http.StatusNotFound, "not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))
			require.Equal(t, tt.code, w.Code)
			assert.Contains(t, w.Body.String(), tt.body)
		})
	}
}
