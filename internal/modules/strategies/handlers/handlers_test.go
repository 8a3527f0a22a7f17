package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/augur/internal/domain"
)

type fakeCatalog []domain.Descriptor

func (f fakeCatalog) List() []domain.Descriptor { return f }

type fakeActivity struct {
	names []string
	err   error
}

func (f fakeActivity) ActiveNames(ctx context.Context) ([]string, error) { return f.names, f.err }

func serve(h *Handler) *httptest.ResponseRecorder {
	mux := chi.NewRouter()
	h.RegisterRoutes(mux)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/strategies", nil))
	return w
}

func TestHandleList(t *testing.T) {
	catalog := fakeCatalog{
		{Name: "hot_window", Kind: domain.KindBase},
		{Name: "anti_hot_window", Kind: domain.KindComplement},
		{Name: "experimental", Kind: domain.KindBase},
	}
	w := serve(NewHandler(catalog, fakeActivity{names: []string{"hot_window", "anti_hot_window"}}, zerolog.Nop()))
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data     []StrategyView         `json:"data"`
		Metadata map[string]interface{} `json:"metadata"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Data, 3)
	assert.Equal(t, "hot_window", body.Data[0].Name)
	assert.True(t, body.Data[0].Active)
	assert.Equal(t, domain.KindComplement, body.Data[1].Kind)
	assert.False(t, body.Data[2].Active)
	assert.Equal(t, float64(2), body.Metadata["active"])
}

func TestHandleList_StatusError(t *testing.T) {
	w := serve(NewHandler(fakeCatalog{}, fakeActivity{err: errors.New("locked")}, zerolog.Nop()))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
