package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/augur/internal/domain"
)

type fakeRanking struct {
	entries []domain.RankingEntry
}

func (f *fakeRanking) Get(ctx context.Context) ([]domain.RankingEntry, error) {
	return f.entries, nil
}

func (f *fakeRanking) Entry(ctx context.Context, name string) (*domain.RankingEntry, error) {
	for _, e := range f.entries {
		if e.Strategy == name {
			return &e, nil
		}
	}
	return nil, fmt.Errorf("strategy %s: %w", name, domain.ErrNotFound)
}

func router(r Ranking) *chi.Mux {
	mux := chi.NewRouter()
	NewHandler(r, zerolog.Nop()).RegisterRoutes(mux)
	return mux
}

func TestHandleList(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	mux := router(&fakeRanking{entries: []domain.RankingEntry{
		{Strategy: "hot_window", AvgAccuracy: 62.5, SampleCount: 100, LastUpdated: now},
		{Strategy: "cold_window", AvgAccuracy: 41, SampleCount: 100, LastUpdated: now},
	}})

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/ranking/", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data     []domain.RankingEntry  `json:"data"`
		Metadata map[string]interface{} `json:"metadata"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Data, 2)
	assert.Equal(t, "hot_window", body.Data[0].Strategy)
	assert.Equal(t, float64(2), body.Metadata["count"])
}

func TestHandleList_Empty(t *testing.T) {
	w := httptest.NewRecorder()
	router(&fakeRanking{}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/ranking/", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"data":[]`)
}

func TestHandleGet(t *testing.T) {
	mux := router(&fakeRanking{entries: []domain.RankingEntry{{Strategy: "hot_window", AvgAccuracy: 62.5}}})

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/ranking/hot_window", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"avg_accuracy":62.5`)

	w = httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/ranking/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
