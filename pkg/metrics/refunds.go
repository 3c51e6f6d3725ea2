package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// RefundMetrics records refund attempts and outcomes against the gateway.
type RefundMetrics struct {
	duration *prometheus.HistogramVec
	attempts *prometheus.CounterVec
	outcomes *prometheus.CounterVec
}

// NewRefundMetrics registers the refund metrics on the provided registerer.
func NewRefundMetrics(reg prometheus.Registerer) *RefundMetrics {
	if reg == nil {
		return &RefundMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "refund_duration_seconds",
		Help:    "Duration of gateway refund calls in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	attempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "refund_attempts_total",
		Help: "Refund attempts submitted to the gateway.",
	}, []string{"operation"})
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "refund_outcomes_total",
		Help: "Refund outcomes by terminal status.",
	}, []string{"outcome"})
	reg.MustRegister(duration, attempts, outcomes)
	return &RefundMetrics{
		duration: duration,
		attempts: attempts,
		outcomes: outcomes,
	}
}

// ObserveDuration records the duration of a gateway call.
func (r *RefundMetrics) ObserveDuration(operation string, elapsed time.Duration) {
	if r == nil || r.duration == nil {
		return
	}
	r.duration.WithLabelValues(normalizeLabel(operation)).Observe(elapsed.Seconds())
}

// IncAttempt counts a submitted gateway call.
func (r *RefundMetrics) IncAttempt(operation string) {
	if r == nil || r.attempts == nil {
		return
	}
	r.attempts.WithLabelValues(normalizeLabel(operation)).Inc()
}

// IncOutcome counts a terminal refund outcome (completed/failed).
func (r *RefundMetrics) IncOutcome(outcome string) {
	if r == nil || r.outcomes == nil {
		return
	}
	r.outcomes.WithLabelValues(normalizeLabel(outcome)).Inc()
}
