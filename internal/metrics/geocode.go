package metrics

import "github.com/prometheus/client_golang/prometheus"

// Geocoding and search Prometheus metrics.
var (
	GeocodeRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "refrank",
			Name:      "geocode_requests_total",
			Help:      "Total number of upstream geocoding requests",
		},
		[]string{"status"}, // "success" / "not_found" / "error"
	)

	GeocodeRequestDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "refrank",
			Name:      "geocode_request_duration_seconds",
			Help:      "Upstream geocoding request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)

	GeocodeCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "refrank",
			Name:      "geocode_cache_total",
			Help:      "Geocode cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)

	GeocodeBudgetRejectedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "refrank",
			Name:      "geocode_budget_rejected_total",
			Help:      "Geocoding requests rejected by the call budget",
		},
	)

	SearchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "refrank",
			Name:      "searches_total",
			Help:      "Completed ranking searches by outcome",
		},
		[]string{"outcome"}, // "complete" / "location_not_found" / "no_matches" / "error"
	)
)

var geocodeMetricsRegistered bool

// RegisterGeocodeMetrics registers Prometheus geocoding metrics. Must be called once from main.
func RegisterGeocodeMetrics() {
	if geocodeMetricsRegistered {
		return
	}
	prometheus.MustRegister(GeocodeRequestsTotal)
	prometheus.MustRegister(GeocodeRequestDuration)
	prometheus.MustRegister(GeocodeCacheTotal)
	prometheus.MustRegister(GeocodeBudgetRejectedTotal)
	prometheus.MustRegister(SearchesTotal)
	geocodeMetricsRegistered = true
}
