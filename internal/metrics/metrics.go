package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Collection cycle metrics
	CollectionCycles = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pmtracker_collection_cycles_total",
			Help: "Total number of collection cycles run",
		},
	)

	CollectionCycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pmtracker_collection_cycle_duration_seconds",
			Help:    "Duration of a full collection cycle",
			Buckets: []float64{.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
	)

	// Per-source metrics
	MarketsCollected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pmtracker_markets_collected_total",
			Help: "Total number of markets fetched and normalized per source",
		},
		[]string{"source"},
	)

	MarketsRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pmtracker_markets_recorded_total",
			Help: "Total number of markets successfully upserted per source",
		},
		[]string{"source"},
	)

	FetchErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pmtracker_fetch_errors_total",
			Help: "Total number of failed source fetches",
		},
		[]string{"source"},
	)

	// Recorder metrics
	RecordErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pmtracker_record_errors_total",
			Help: "Total number of per-record persistence failures",
		},
	)

	SnapshotErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pmtracker_snapshot_errors_total",
			Help: "Total number of failed price snapshot inserts",
		},
	)

	// Query API metrics
	APIRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pmtracker_api_requests_total",
			Help: "Total number of query API requests",
		},
		[]string{"endpoint", "status"}, // markets/search/history, ok/not_found/error
	)

	// System health
	HealthChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pmtracker_health_checks_total",
			Help: "Total number of health check requests",
		},
		[]string{"status"}, // healthy/unhealthy
	)
)

// RecordCycle records the completion of one collection cycle
func RecordCycle(duration time.Duration) {
	CollectionCycles.Inc()
	CollectionCycleDuration.Observe(duration.Seconds())
}

// RecordSourceOutcome records one source's results within a cycle
func RecordSourceOutcome(source string, collected, recorded int, err error) {
	if err != nil {
		FetchErrors.WithLabelValues(source).Inc()
		return
	}
	MarketsCollected.WithLabelValues(source).Add(float64(collected))
	MarketsRecorded.WithLabelValues(source).Add(float64(recorded))
}

// RecordAPIRequest records a query API request outcome
func RecordAPIRequest(endpoint, status string) {
	APIRequests.WithLabelValues(endpoint, status).Inc()
}

// RecordHealthCheck records health check status
func RecordHealthCheck(healthy bool) {
	status := "healthy"
	if !healthy {
		status = "unhealthy"
	}
	HealthChecks.WithLabelValues(status).Inc()
}
