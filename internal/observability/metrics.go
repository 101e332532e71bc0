// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the agent.
type Metrics struct {
	// Stream metrics
	EventsReceived  prometheus.Counter
	EventsMalformed prometheus.Counter
	Reconnects      prometheus.Counter

	// Screening metrics
	ScreeningsStarted prometheus.Counter
	VerdictsRecorded  *prometheus.CounterVec
	RejectionsByStage *prometheus.CounterVec
	DuplicatesSkipped prometheus.Counter

	// Holder resolution metrics
	ResolveAttempts prometheus.Counter
	ResolveFailures prometheus.Counter
	ResolveLatency  prometheus.Histogram
	RPCCallLatency  *prometheus.HistogramVec

	// Trading metrics
	TradesSubmitted *prometheus.CounterVec
	TradesFailed    *prometheus.CounterVec
	PeakSells       prometheus.Counter

	// Watch metrics
	ActiveWatchers prometheus.Gauge
	PeakPolls      prometheus.Counter

	// Database metrics
	DBQueryErrors *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "pump_agent"
	}

	return &Metrics{
		// Stream metrics
		EventsReceived: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "events_received_total",
			Help:      "Total number of token creation events received",
		}),
		EventsMalformed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "events_malformed_total",
			Help:      "Total number of events dropped as malformed",
		}),
		Reconnects: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "reconnects_total",
			Help:      "Total number of WebSocket reconnects",
		}),

		// Screening metrics
		ScreeningsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "screening",
			Name:      "started_total",
			Help:      "Total number of screening pipelines started",
		}),
		VerdictsRecorded: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "screening",
			Name:      "verdicts_total",
			Help:      "Total number of verdicts by outcome",
		}, []string{"outcome"}),
		RejectionsByStage: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "screening",
			Name:      "rejections_total",
			Help:      "Total number of rejections by stage",
		}, []string{"stage"}),
		DuplicatesSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "screening",
			Name:      "duplicates_skipped_total",
			Help:      "Total number of re-announced mints skipped",
		}),

		// Holder resolution metrics
		ResolveAttempts: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "holders",
			Name:      "resolve_attempts_total",
			Help:      "Total number of holder resolution attempts",
		}),
		ResolveFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "holders",
			Name:      "resolve_failures_total",
			Help:      "Total number of exhausted holder resolutions",
		}),
		ResolveLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "holders",
			Name:      "resolve_latency_seconds",
			Help:      "Holder resolution latency in seconds",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		RPCCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_latency_seconds",
			Help:      "Solana RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),

		// Trading metrics
		TradesSubmitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trading",
			Name:      "trades_submitted_total",
			Help:      "Total number of trades submitted by side",
		}, []string{"side"}),
		TradesFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trading",
			Name:      "trades_failed_total",
			Help:      "Total number of failed trade submissions by side",
		}, []string{"side"}),
		PeakSells: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trading",
			Name:      "peak_sells_total",
			Help:      "Total number of partial liquidations on peak status",
		}),

		// Watch metrics
		ActiveWatchers: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "watch",
			Name:      "active_watchers",
			Help:      "Number of positions currently under peak watch",
		}),
		PeakPolls: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "watch",
			Name:      "peak_polls_total",
			Help:      "Total number of peak status polls",
		}),

		// Database metrics
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"operation"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordEventReceived increments the events received counter.
func RecordEventReceived() {
	DefaultMetrics.EventsReceived.Inc()
}

// RecordEventMalformed increments the malformed events counter.
func RecordEventMalformed() {
	DefaultMetrics.EventsMalformed.Inc()
}

// RecordVerdict records a screening verdict and, for rejections, the
// stage that produced it.
func RecordVerdict(eligible bool, stage string) {
	if eligible {
		DefaultMetrics.VerdictsRecorded.WithLabelValues("eligible").Inc()
		return
	}
	DefaultMetrics.VerdictsRecorded.WithLabelValues("rejected").Inc()
	DefaultMetrics.RejectionsByStage.WithLabelValues(stage).Inc()
}

// RecordTrade records a trade submission outcome.
func RecordTrade(side string, err error) {
	DefaultMetrics.TradesSubmitted.WithLabelValues(side).Inc()
	if err != nil {
		DefaultMetrics.TradesFailed.WithLabelValues(side).Inc()
	}
}

// RecordRPCLatency records RPC call latency.
func RecordRPCLatency(method string, seconds float64) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
}

// RecordDBError records a database query error.
func RecordDBError(operation string) {
	DefaultMetrics.DBQueryErrors.WithLabelValues(operation).Inc()
}
