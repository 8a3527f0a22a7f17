// Package metrics exposes Prometheus instrumentation for replays, ranking and cache refreshes.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Replay record results.
const (
	ResultInserted = "inserted"
	ResultSkipped  = "skipped"
	ResultFailed   = "failed"
)

// Registry holds all Prometheus metrics for augur.
// A nil *Registry is valid and records nothing, so components can run without instrumentation.
type Registry struct {
	registry *prometheus.Registry

	ReplayRecords   *prometheus.CounterVec
	ReplayDuration  *prometheus.HistogramVec
	RankingAccuracy *prometheus.GaugeVec
	RankingRefresh  prometheus.Histogram
	CacheRefresh    *prometheus.CounterVec
	ActiveReplays   prometheus.Gauge
}

// New creates a metrics registry with process and Go collectors attached.
func New() *Registry {
	m := &Registry{
		registry: prometheus.NewRegistry(),

		ReplayRecords: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "augur_replay_records_total",
				Help: "Performance records handled by replays, by namespace, strategy and result",
			},
			[]string{"namespace", "strategy", "result"},
		),

		ReplayDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "augur_replay_duration_seconds",
				Help:    "Duration of complete replays in seconds",
				Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 180, 600, 1800},
			},
			[]string{"mode"},
		),

		RankingAccuracy: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "augur_ranking_avg_accuracy",
				Help: "Rolling average accuracy per strategy after the last ranking refresh",
			},
			[]string{"strategy"},
		),

		RankingRefresh: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "augur_ranking_refresh_duration_seconds",
				Help:    "Duration of ranking refreshes in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),

		CacheRefresh: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "augur_cache_refresh_total",
				Help: "Cached prediction refreshes by result",
			},
			[]string{"result"},
		),

		ActiveReplays: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "augur_active_replays",
				Help: "Number of replays currently running",
			},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.ReplayRecords,
		m.ReplayDuration,
		m.RankingAccuracy,
		m.RankingRefresh,
		m.CacheRefresh,
		m.ActiveReplays,
	)

	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Registry) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordReplay counts one replay record outcome.
func (m *Registry) RecordReplay(namespace, strategy, result string) {
	if m == nil {
		return
	}
	m.ReplayRecords.WithLabelValues(namespace, strategy, result).Inc()
}

// StartReplay marks a replay as running and returns the function that finishes it.
func (m *Registry) StartReplay(mode string) func() {
	if m == nil {
		return func() {}
	}
	start := time.Now()
	m.ActiveReplays.Inc()
	return func() {
		m.ActiveReplays.Dec()
		m.ReplayDuration.WithLabelValues(mode).Observe(time.Since(start).Seconds())
	}
}

// SetRanking replaces the per-strategy accuracy gauges with a fresh ranking.
func (m *Registry) SetRanking(accuracies map[string]float64, took time.Duration) {
	if m == nil {
		return
	}
	m.RankingAccuracy.Reset()
	for strategy, acc := range accuracies {
		m.RankingAccuracy.WithLabelValues(strategy).Set(acc)
	}
	m.RankingRefresh.Observe(took.Seconds())
}

// RecordCacheRefresh counts one strategy's cache refresh outcome.
func (m *Registry) RecordCacheRefresh(result string) {
	if m == nil {
		return
	}
	m.CacheRefresh.WithLabelValues(result).Inc()
}
