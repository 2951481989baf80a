package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SearchRequestsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "clinicsearch_requests_total",
		Help: "Total number of search requests",
	})
	SearchDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "clinicsearch_request_duration_ms",
		Help:    "Search request duration in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000},
	})
	EmptyResultsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "clinicsearch_empty_results_total",
		Help: "Total number of searches returning zero clinics",
	})
	StrategyRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "clinicsearch_strategy_runs_total",
		Help: "Total strategy executions",
	}, []string{"strategy"})
	StrategyFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "clinicsearch_strategy_failures_total",
		Help: "Total strategy executions recovered as zero candidates",
	}, []string{"strategy"})
	StrategyDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "clinicsearch_strategy_duration_ms",
		Help:    "Strategy execution duration in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000},
	}, []string{"strategy"})
	CacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "clinicsearch_cache_hits_total",
		Help: "Total search cache hits",
	})
	CacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "clinicsearch_cache_misses_total",
		Help: "Total search cache misses",
	})
	CacheFallbacksTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "clinicsearch_cache_fallbacks_total",
		Help: "Total shared-cache faults degraded to the local store",
	})
	RateLimitAllowedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "clinicsearch_ratelimit_allowed_total",
		Help: "Total requests admitted by the rate limiter",
	}, []string{"class"})
	RateLimitDeniedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "clinicsearch_ratelimit_denied_total",
		Help: "Total requests rejected by the rate limiter",
	}, []string{"class"})
	RateLimitFallbacksTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "clinicsearch_ratelimit_fallbacks_total",
		Help: "Total rate-limit store faults handled fail-open",
	})
	SnapshotRefreshTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "clinicsearch_snapshot_refresh_total",
		Help: "Catalog snapshot refresh outcomes",
	}, []string{"status"})
	SnapshotClinics = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "clinicsearch_snapshot_clinics",
		Help: "Clinic count in the current catalog snapshot",
	})
)

func init() {
	prometheus.MustRegister(SearchRequestsTotal)
	prometheus.MustRegister(SearchDurationMs)
	prometheus.MustRegister(EmptyResultsTotal)
	prometheus.MustRegister(StrategyRunsTotal)
	prometheus.MustRegister(StrategyFailuresTotal)
	prometheus.MustRegister(StrategyDurationMs)
	prometheus.MustRegister(CacheHitsTotal)
	prometheus.MustRegister(CacheMissesTotal)
	prometheus.MustRegister(CacheFallbacksTotal)
	prometheus.MustRegister(RateLimitAllowedTotal)
	prometheus.MustRegister(RateLimitDeniedTotal)
	prometheus.MustRegister(RateLimitFallbacksTotal)
	prometheus.MustRegister(SnapshotRefreshTotal)
	prometheus.MustRegister(SnapshotClinics)
}

// Handler exposes the registered metrics for Prometheus scraping; mounted on
// /metrics by the main entry point.
func Handler() http.Handler { return promhttp.Handler() }
