package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"

	"github.com/aristath/augur/internal/database"
	"github.com/aristath/augur/internal/events"
	"github.com/aristath/augur/internal/metrics"
	testingpkg "github.com/aristath/augur/internal/testing"
)

type pingRoutes struct{}

func (pingRoutes) RegisterRoutes(r chi.Router) {
	r.Get("/api/ping", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("pong"))
	})
}

func newTestServer(t *testing.T) (*Server, *events.Bus, func()) {
	t.Helper()
	db, closeDB := testingpkg.NewTestDB(t, database.NameHistory)
	bus := events.NewBus(zerolog.Nop())

	s := New(Config{
		Log:       zerolog.Nop(),
		Port:      0,
		DevMode:   true,
		Databases: []*database.DB{db},
		Bus:       bus,
		Metrics:   metrics.New(),
		Routes:    []RouteRegistrar{pingRoutes{}},
	})
	return s, bus, closeDB
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestHealth(t *testing.T) {
	s, _, closeDB := newTestServer(t)

	w := get(t, s.Handler(), "/health")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"healthy"`)
	assert.Contains(t, w.Body.String(), `"history":"ok"`)

	closeDB()
	w = get(t, s.Handler(), "/health")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"unhealthy"`)
}

func TestRoutes(t *testing.T) {
	s, _, _ := newTestServer(t)

	w := get(t, s.Handler(), "/api/ping")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", w.Body.String())

	w = get(t, s.Handler(), "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")

	w = get(t, s.Handler(), "/api/system/stats")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data SystemStatsResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Data.Databases, 1)
	assert.Equal(t, database.NameHistory, body.Data.Databases[0].Name)
	assert.Positive(t, body.Data.Goroutines)

	w = get(t, s.Handler(), "/api/nope")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCORS(t *testing.T) {
	s, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	assert.NotEmpty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestEventsStream(t *testing.T) {
	s, bus, _ := newTestServer(t)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/events/ws?types=RANKING_REFRESHED"
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	require.Eventually(t, func() bool {
		return bus.SubscriberCount(events.RankingRefreshed) > 0
	}, 2*time.Second, 10*time.Millisecond)

	bus.Emit(events.CacheRefreshed, "test", map[string]interface{}{"refreshed": 1})
	bus.Emit(events.RankingRefreshed, "test", map[string]interface{}{"ranked": 3})

	typ, data, err := conn.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, websocket.MessageText, typ)

	var event events.Event
	require.NoError(t, json.Unmarshal(data, &event))
	assert.Equal(t, events.RankingRefreshed, event.Type, "filtered types are not delivered")
	assert.Equal(t, float64(3), event.Data["ranked"])
}

func TestEventsStream_UnsubscribesOnClose(t *testing.T) {
	s, bus, _ := newTestServer(t)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(ts.URL, "http")+"/api/events/ws", nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return bus.SubscriberCount(events.JobCompleted) == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close(websocket.StatusNormalClosure, ""))

	assert.Eventually(t, func() bool {
		return bus.SubscriberCount(events.JobCompleted) == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestParseTypes(t *testing.T) {
	assert.Nil(t, parseTypes(""))
	assert.Equal(t, map[events.EventType]bool{
		events.JobFailed:      true,
		events.ReplayProgress: true,
	}, parseTypes("JOB_FAILED, REPLAY_PROGRESS,"))
}
