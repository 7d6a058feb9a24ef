// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Resolution metrics
	ResolutionTier  *prometheus.CounterVec
	ResolutionMiss  *prometheus.CounterVec
	ResolutionStale *prometheus.CounterVec
	UpstreamLatency *prometheus.HistogramVec

	// Ingestion metrics
	IngestedMatches      *prometheus.CounterVec
	IngestedParticipants *prometheus.CounterVec
	IngestionDuration    prometheus.Histogram

	// Side-task metrics
	BackfillTasks      *prometheus.CounterVec
	BackfillQueueDepth prometheus.Gauge

	// Aggregation metrics
	AggregationRuns     *prometheus.CounterVec
	AggregationDuration prometheus.Histogram

	// Player view metrics
	PlayerStateTransitions *prometheus.CounterVec

	// HTTP metrics
	HTTPRequestDuration *prometheus.HistogramVec

	// Health metrics
	LastSuccessfulIngestion prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "rift_stats_lab"
	}

	return &Metrics{
		ResolutionTier: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "resolution",
			Name:      "tier_hits_total",
			Help:      "Resolved payloads by the tier that served them",
		}, []string{"kind", "tier"}),
		ResolutionMiss: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "resolution",
			Name:      "tier_misses_total",
			Help:      "Tier lookups that missed, by reason",
		}, []string{"tier", "reason"}),
		ResolutionStale: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "resolution",
			Name:      "stale_hits_total",
			Help:      "Primary tier hits served past their freshness marker",
		}, []string{"kind"}),
		UpstreamLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "riot",
			Name:      "call_latency_seconds",
			Help:      "Riot API call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint", "status"}),

		IngestedMatches: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "matches_total",
			Help:      "Matches handled by ingestion, by result",
		}, []string{"result"}),
		IngestedParticipants: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "participants_total",
			Help:      "Participant entries handled by ingestion, by result",
		}, []string{"result"}),
		IngestionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "duration_seconds",
			Help:      "Per-player ingestion duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}),

		BackfillTasks: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backfill",
			Name:      "tasks_total",
			Help:      "Background side tasks by status",
		}, []string{"status"}),
		BackfillQueueDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "backfill",
			Name:      "queue_depth",
			Help:      "Side tasks waiting for a worker",
		}),

		AggregationRuns: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "aggregation",
			Name:      "runs_total",
			Help:      "Aggregate recomputes by status",
		}, []string{"status"}),
		AggregationDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "aggregation",
			Name:      "duration_seconds",
			Help:      "Aggregate recompute duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),

		PlayerStateTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "player",
			Name:      "state_transitions_total",
			Help:      "Player view state transitions",
		}, []string{"from", "to"}),

		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),

		LastSuccessfulIngestion: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_ingestion_timestamp",
			Help:      "Unix timestamp of last successful ingestion",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordResolution records which tier served a match or timeline.
func RecordResolution(kind, tier string) {
	DefaultMetrics.ResolutionTier.WithLabelValues(kind, tier).Inc()
}

// RecordResolutionMiss records a tier miss.
func RecordResolutionMiss(tier, reason string) {
	DefaultMetrics.ResolutionMiss.WithLabelValues(tier, reason).Inc()
}

// RecordStaleHit records a primary hit whose freshness marker had passed.
func RecordStaleHit(kind string) {
	DefaultMetrics.ResolutionStale.WithLabelValues(kind).Inc()
}

// RecordUpstreamCall records Riot API call latency.
func RecordUpstreamCall(endpoint, status string, d time.Duration) {
	DefaultMetrics.UpstreamLatency.WithLabelValues(endpoint, status).Observe(d.Seconds())
}

// RecordIngestedMatch records one match outcome ("processed", "failed").
func RecordIngestedMatch(result string) {
	DefaultMetrics.IngestedMatches.WithLabelValues(result).Inc()
}

// RecordIngestedParticipants records participant outcomes ("processed", "skipped", "missing_id").
func RecordIngestedParticipants(result string, n int) {
	if n <= 0 {
		return
	}
	DefaultMetrics.IngestedParticipants.WithLabelValues(result).Add(float64(n))
}

// RecordIngestion records a completed player ingestion.
func RecordIngestion(d time.Duration) {
	DefaultMetrics.IngestionDuration.Observe(d.Seconds())
	DefaultMetrics.LastSuccessfulIngestion.SetToCurrentTime()
}

// RecordBackfill records a side-task outcome ("ok", "failed", "dropped").
func RecordBackfill(status string) {
	DefaultMetrics.BackfillTasks.WithLabelValues(status).Inc()
}

// SetBackfillQueueDepth updates the side-task queue gauge.
func SetBackfillQueueDepth(n int) {
	DefaultMetrics.BackfillQueueDepth.Set(float64(n))
}

// RecordAggregation records an aggregate recompute.
func RecordAggregation(status string, d time.Duration) {
	DefaultMetrics.AggregationRuns.WithLabelValues(status).Inc()
	DefaultMetrics.AggregationDuration.Observe(d.Seconds())
}

// RecordPlayerTransition records a player view state change.
func RecordPlayerTransition(from, to string) {
	DefaultMetrics.PlayerStateTransitions.WithLabelValues(from, to).Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(method, route, status string, d time.Duration) {
	DefaultMetrics.HTTPRequestDuration.WithLabelValues(method, route, status).Observe(d.Seconds())
}
