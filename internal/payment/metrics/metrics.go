package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments for the payment core. All methods
// are nil-safe so tests can pass a nil *Metrics.
type Metrics struct {
	InitiationsTotal   *prometheus.CounterVec
	CallbacksTotal     *prometheus.CounterVec
	VerificationsTotal *prometheus.CounterVec
	CallbackDuration   prometheus.Histogram
}

// New creates and registers all payment metrics on the default registry.
func New() *Metrics {
	return &Metrics{
		InitiationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "himstay_payment_initiations_total",
			Help: "Payment initiations by outcome.",
		}, []string{"outcome"}),
		CallbacksTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "himstay_payment_callbacks_total",
			Help: "Gateway callbacks by outcome.",
		}, []string{"outcome"}),
		VerificationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "himstay_payment_verifications_total",
			Help: "Double verifications by outcome.",
		}, []string{"outcome"}),
		CallbackDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "himstay_payment_callback_duration_seconds",
			Help:    "Time spent handling gateway callbacks.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) RecordInitiation(outcome string) {
	if m == nil {
		return
	}
	m.InitiationsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordCallback(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.CallbacksTotal.WithLabelValues(outcome).Inc()
	m.CallbackDuration.Observe(seconds)
}

func (m *Metrics) RecordVerification(outcome string) {
	if m == nil {
		return
	}
	m.VerificationsTotal.WithLabelValues(outcome).Inc()
}
