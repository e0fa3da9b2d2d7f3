package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges shared by
// the ingestion pipeline and the score engine.
type Metrics struct {
	// Ingestion metrics.
	IngestRuns     *prometheus.CounterVec // labels: status={SUCCESS,PARTIAL_SUCCESS,FAILED}
	IngestRecords  *prometheus.CounterVec // labels: outcome={found,new,duplicate,skipped,failed}
	IngestDuration prometheus.Histogram

	// Geocoding metrics.
	GeocodeRequests *prometheus.CounterVec // labels: outcome={success,error,empty}
	GeocodeCache    *prometheus.CounterVec // labels: result={hit,miss}

	// Score engine metrics.
	ScoreRequests    *prometheus.CounterVec // labels: outcome={success,error}
	ScoreDuration    prometheus.Histogram
	AggregateQueries prometheus.Histogram

	// Event publishing metrics.
	IncidentsPublished prometheus.Counter
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.IngestRuns,
		m.IngestRecords,
		m.IngestDuration,
		m.GeocodeRequests,
		m.GeocodeCache,
		m.ScoreRequests,
		m.ScoreDuration,
		m.AggregateQueries,
		m.IncidentsPublished,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, so parallel
// tests don't trip "already registered" panics.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		IngestRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vigia",
			Name:      "ingest_runs_total",
			Help:      "Completed ingestion runs by terminal status.",
		}, []string{"status"}),
		IngestRecords: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vigia",
			Name:      "ingest_records_total",
			Help:      "Per-record ingestion outcomes.",
		}, []string{"outcome"}),
		IngestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "vigia",
			Name:      "ingest_run_duration_seconds",
			Help:      "Duration of a complete ingestion run.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vigia",
			Name:      "geocode_requests_total",
			Help:      "Geocoding provider requests by outcome.",
		}, []string{"outcome"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vigia",
			Name:      "geocode_cache_total",
			Help:      "Geocoding cache lookups by result.",
		}, []string{"result"}),
		ScoreRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vigia",
			Name:      "score_requests_total",
			Help:      "Safety score calculations by outcome.",
		}, []string{"outcome"}),
		ScoreDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "vigia",
			Name:      "score_duration_seconds",
			Help:      "End-to-end duration of a score calculation.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		AggregateQueries: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "vigia",
			Name:      "aggregate_query_duration_seconds",
			Help:      "Duration of a single radius/timeframe store query.",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
		IncidentsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "vigia",
			Name:      "incidents_published_total",
			Help:      "Newly inserted incidents published to the event topic.",
		}),
	}
}
