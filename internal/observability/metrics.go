// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "community_token_tracker"

// Metrics holds all Prometheus metrics for the tracker.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Feed metrics
	FramesReceived  prometheus.Counter
	DecodeFailures  *prometheus.CounterVec
	EventsRejected  *prometheus.CounterVec
	EventsAccepted  prometheus.Counter
	EventsOverrides prometheus.Counter

	// Token state metrics
	NewTokens     prometheus.Counter
	AdminLookups  *prometheus.CounterVec
	Migrations    prometheus.Counter
	NewATHs       prometheus.Counter
	ScoresWritten *prometheus.CounterVec

	// Store metrics
	StoreErrors *prometheus.CounterVec

	// Latency metrics
	EventProcessingLatency prometheus.Histogram

	// Health metrics
	LastEventProcessed prometheus.Gauge
}

// NewMetrics creates a Metrics instance registered on reg.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	factory := promauto.With(reg)

	return &Metrics{
		// Feed metrics
		FramesReceived: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "frames_received_total",
			Help:      "Total number of websocket frames received",
		}),
		DecodeFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "decode_failures_total",
			Help:      "Total number of frames dropped by the decoder by kind",
		}, []string{"kind"}),
		EventsRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "classifier",
			Name:      "events_rejected_total",
			Help:      "Total number of pool updates rejected by reason",
		}, []string{"reason"}),
		EventsAccepted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "classifier",
			Name:      "events_accepted_total",
			Help:      "Total number of pool updates accepted",
		}),
		EventsOverrides: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "classifier",
			Name:      "tracked_overrides_total",
			Help:      "Total number of rejected updates accepted because the pool is tracked with an admin",
		}),

		// Token state metrics
		NewTokens: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tokens",
			Name:      "new_total",
			Help:      "Total number of newly tracked tokens",
		}),
		AdminLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tokens",
			Name:      "admin_lookups_total",
			Help:      "Total number of admin resolutions by source",
		}, []string{"source"}),
		Migrations: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tokens",
			Name:      "migrations_total",
			Help:      "Total number of detected migrations",
		}),
		NewATHs: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tokens",
			Name:      "new_ath_total",
			Help:      "Total number of all-time-high updates",
		}),
		ScoresWritten: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tokens",
			Name:      "scores_total",
			Help:      "Total number of score computations by score",
		}, []string{"score"}),

		// Store metrics
		StoreErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "errors_total",
			Help:      "Total number of store errors by operation",
		}, []string{"operation"}),

		// Latency metrics
		EventProcessingLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "event_processing_latency_seconds",
			Help:      "Accepted event processing latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}),

		// Health metrics
		LastEventProcessed: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_event_processed_timestamp",
			Help:      "Unix timestamp of last processed pool update",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// RecordFrame increments the frames received counter.
func (m *Metrics) RecordFrame() {
	if m == nil {
		return
	}
	m.FramesReceived.Inc()
}

// RecordDecodeFailure records a dropped frame.
func (m *Metrics) RecordDecodeFailure(kind string) {
	if m == nil {
		return
	}
	m.DecodeFailures.WithLabelValues(kind).Inc()
}

// RecordRejected records a classifier rejection.
func (m *Metrics) RecordRejected(reason string) {
	if m == nil {
		return
	}
	m.EventsRejected.WithLabelValues(reason).Inc()
}

// RecordAccepted records an accepted event. override marks tracked-pool continuity.
func (m *Metrics) RecordAccepted(override bool) {
	if m == nil {
		return
	}
	m.EventsAccepted.Inc()
	if override {
		m.EventsOverrides.Inc()
	}
}

// RecordNewToken increments the new tokens counter.
func (m *Metrics) RecordNewToken() {
	if m == nil {
		return
	}
	m.NewTokens.Inc()
}

// RecordAdminLookup records an admin resolution by source.
func (m *Metrics) RecordAdminLookup(source string) {
	if m == nil {
		return
	}
	m.AdminLookups.WithLabelValues(source).Inc()
}

// RecordMigration increments the migrations counter.
func (m *Metrics) RecordMigration() {
	if m == nil {
		return
	}
	m.Migrations.Inc()
}

// RecordNewATH increments the ATH updates counter.
func (m *Metrics) RecordNewATH() {
	if m == nil {
		return
	}
	m.NewATHs.Inc()
}

// RecordScore records a computed score.
func (m *Metrics) RecordScore(score string) {
	if m == nil {
		return
	}
	m.ScoresWritten.WithLabelValues(score).Inc()
}

// RecordStoreError records a failed store operation.
func (m *Metrics) RecordStoreError(operation string) {
	if m == nil {
		return
	}
	m.StoreErrors.WithLabelValues(operation).Inc()
}

// ObserveEvent records processing latency and the last-processed timestamp.
func (m *Metrics) ObserveEvent(started time.Time) {
	if m == nil {
		return
	}
	m.EventProcessingLatency.Observe(time.Since(started).Seconds())
	m.LastEventProcessed.SetToCurrentTime()
}
