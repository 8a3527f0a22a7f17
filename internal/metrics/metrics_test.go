package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_RecordsReplay(t *testing.T) {
	m := New()

	m.RecordReplay("production", "hot_window", ResultInserted)
	m.RecordReplay("production", "hot_window", ResultInserted)
	m.RecordReplay("staging", "hot_window", ResultSkipped)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ReplayRecords.WithLabelValues("production", "hot_window", ResultInserted)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ReplayRecords.WithLabelValues("staging", "hot_window", ResultSkipped)))

	done := m.StartReplay("incremental")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ActiveReplays))
	done()
	assert.Equal(t, 0.0, testutil.ToFloat64(m.ActiveReplays))
}

func TestRegistry_SetRankingResetsStaleStrategies(t *testing.T) {
	m := New()

	m.SetRanking(map[string]float64{"a": 40, "b": 60}, time.Millisecond)
	m.SetRanking(map[string]float64{"b": 55}, time.Millisecond)

	assert.Equal(t, 1, testutil.CollectAndCount(m.RankingAccuracy))
	assert.Equal(t, 55.0, testutil.ToFloat64(m.RankingAccuracy.WithLabelValues("b")))
}

func TestRegistry_NilIsSafe(t *testing.T) {
	var m *Registry

	assert.NotPanics(t, func() {
		m.RecordReplay("production", "x", ResultFailed)
		m.StartReplay("windowed")()
		m.SetRanking(map[string]float64{"x": 1}, 0)
		m.RecordCacheRefresh("ok")
	})
}

func TestRegistry_Handler(t *testing.T) {
	m := New()
	m.RecordCacheRefresh("ok")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `augur_cache_refresh_total{result="ok"} 1`)
}
