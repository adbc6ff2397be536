package admission

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains Prometheus metrics for the admission pipeline.
type Metrics struct {
	// Admission decisions
	decisions     *prometheus.CounterVec
	rateLimitHits *prometheus.CounterVec

	// Guarded executions
	executions *prometheus.CounterVec
	inFlight   *prometheus.GaugeVec

	// Ledger activity driven by admissions
	reservations *prometheus.CounterVec

	// End-to-end admission latency (excluding the guarded operation)
	admitDuration *prometheus.HistogramVec
}

// NewMetrics creates a Metrics instance registered on reg. A nil reg uses
// the default registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		decisions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tollgate_admission_decisions_total",
				Help: "Total admission decisions by outcome",
			},
			[]string{"tier", "outcome"},
		),

		rateLimitHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tollgate_rate_limit_hits_total",
				Help: "Total rate limit denials by limit kind",
			},
			[]string{"tier", "limit_kind"},
		),

		executions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tollgate_executions_total",
				Help: "Total guarded executions by result",
			},
			[]string{"tier", "result"},
		),

		inFlight: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "tollgate_executions_in_flight",
				Help: "Currently executing guarded operations",
			},
			[]string{"tier"},
		),

		reservations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tollgate_reservations_total",
				Help: "Total ledger reservation phases by action",
			},
			[]string{"action"},
		),

		admitDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tollgate_admission_duration_seconds",
				Help:    "Duration of admission checks in seconds",
				Buckets: prometheus.ExponentialBuckets(0.000001, 2, 15), // 1µs to 16ms
			},
			[]string{"stage"},
		),
	}
}

// RecordDecision records an admission decision outcome.
func (m *Metrics) RecordDecision(tier, outcome string) {
	m.decisions.WithLabelValues(tier, outcome).Inc()
}

// RecordRateLimitHit records a sliding-window denial.
func (m *Metrics) RecordRateLimitHit(tier, limitKind string) {
	m.rateLimitHits.WithLabelValues(tier, limitKind).Inc()
}

// RecordExecution records a guarded execution result.
func (m *Metrics) RecordExecution(tier, result string) {
	m.executions.WithLabelValues(tier, result).Inc()
}

// ExecutionStarted increments the in-flight gauge.
func (m *Metrics) ExecutionStarted(tier string) {
	m.inFlight.WithLabelValues(tier).Inc()
}

// ExecutionFinished decrements the in-flight gauge.
func (m *Metrics) ExecutionFinished(tier string) {
	m.inFlight.WithLabelValues(tier).Dec()
}

// RecordReservation records a ledger reservation phase.
func (m *Metrics) RecordReservation(action string) {
	m.reservations.WithLabelValues(action).Inc()
}

// RecordAdmitDuration records the duration of one admission stage.
func (m *Metrics) RecordAdmitDuration(stage string, seconds float64) {
	m.admitDuration.WithLabelValues(stage).Observe(seconds)
}
