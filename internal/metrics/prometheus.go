package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Allocation outcomes.
const (
	OutcomeCommitted  = "committed"
	OutcomeWaitlisted = "waitlisted"
	OutcomeSeatTaken  = "seat_taken"
	OutcomeRejected   = "rejected"
	OutcomeTimeout    = "timeout"
	OutcomeError      = "error"
)

// Side effects counted on failure.
const (
	EffectLoyalty      = "loyalty_accrual"
	EffectNotification = "notification"
)

// Worker results for consumed notification messages.
const (
	ResultStored    = "stored"
	ResultMalformed = "malformed"
	ResultRetry     = "retry"
)

// Metrics holds all prometheus metrics.  A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	Allocations        *prometheus.CounterVec
	Cancellations      prometheus.Counter
	StatusOverrides    *prometheus.CounterVec
	SideEffectFailures *prometheus.CounterVec
	AllocationTime     prometheus.Histogram
	Notifications      *prometheus.CounterVec
}

// NewMetrics registers the service metrics on reg.
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Allocations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "allocations_total",
			Help:      "Seat allocation attempts by outcome",
		}, []string{"outcome"}),
		Cancellations: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cancellations_total",
			Help:      "The total number of cancelled bookings",
		}),
		StatusOverrides: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "status_overrides_total",
			Help:      "Employee booking status changes by target status",
		}, []string{"status"}),
		SideEffectFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "side_effect_failures_total",
			Help:      "Post-commit side effects that failed",
		}, []string{"effect"}),
		AllocationTime: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "allocation_duration_seconds",
			Help:      "Time taken to allocate a seat",
			Buckets:   prometheus.DefBuckets,
		}),
		Notifications: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_consumed_total",
			Help:      "Notification messages handled by the worker by result",
		}, []string{"result"}),
	}
}

func (m *Metrics) Allocation(outcome string, started time.Time) {
	if m == nil {
		return
	}
	m.Allocations.WithLabelValues(outcome).Inc()
	m.AllocationTime.Observe(time.Since(started).Seconds())
}

func (m *Metrics) Cancelled() {
	if m == nil {
		return
	}
	m.Cancellations.Inc()
}

func (m *Metrics) StatusOverride(status string) {
	if m == nil {
		return
	}
	m.StatusOverrides.WithLabelValues(status).Inc()
}

func (m *Metrics) SideEffectFailed(effect string) {
	if m == nil {
		return
	}
	m.SideEffectFailures.WithLabelValues(effect).Inc()
}

func (m *Metrics) NotificationConsumed(result string) {
	if m == nil {
		return
	}
	m.Notifications.WithLabelValues(result).Inc()
}
