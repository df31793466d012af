package metrics

import "github.com/prometheus/client_golang/prometheus"

// Search Prometheus metrics.
var (
	SearchCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "staffdex",
			Name:      "search_cache_total",
			Help:      "Search response cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)

	SearchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "staffdex",
			Name:      "search_duration_seconds",
			Help:      "End-to-end search duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
	)

	SearchResults = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "staffdex",
			Name:      "search_results",
			Help:      "Result counts per search",
			Buckets:   []float64{0, 1, 2, 5, 10, 20, 50, 100, 250},
		},
	)

	RateLimitedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "staffdex",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the per-tenant rate limit",
		},
		[]string{"tenant"},
	)
)

var searchMetricsRegistered bool

// RegisterSearchMetrics registers Prometheus search metrics. Must be called once from main.
func RegisterSearchMetrics() {
	if searchMetricsRegistered {
		return
	}
	prometheus.MustRegister(SearchCacheTotal)
	prometheus.MustRegister(SearchDuration)
	prometheus.MustRegister(SearchResults)
	prometheus.MustRegister(RateLimitedTotal)
	searchMetricsRegistered = true
}
