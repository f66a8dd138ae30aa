package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Rejection reasons used as the "reason" label.
const (
	ReasonAlreadyRegistered = "already_registered"
	ReasonTooLong           = "too_long"
	ReasonUnauthorized      = "unauthorized"
)

// Metrics provides observability for the hospital registry.
// Tracks registrations, rejections by reason, and the register critical path.
type Metrics struct {
	Registrations       prometheus.Counter
	Rejections          *prometheus.CounterVec
	RegisterDuration    prometheus.Histogram
	NotificationsFailed prometheus.Counter
}

// New registers the hospital metrics with reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		Registrations: factory.NewCounter(prometheus.CounterOpts{
			Name: "hospital_registrations_total",
			Help: "Total number of hospitals registered",
		}),
		Rejections: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "hospital_registration_rejections_total",
			Help: "Registration attempts rejected, by reason",
		}, []string{"reason"}),
		RegisterDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "hospital_register_duration_seconds",
			Help:    "Duration of Register operations including the notification",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		NotificationsFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "hospital_notifications_failed_total",
			Help: "HospitalRegistered notifications that failed and rolled back the registration",
		}),
	}
}

func (m *Metrics) IncrementRegistered() {
	if m == nil {
		return
	}
	m.Registrations.Inc()
}

func (m *Metrics) IncrementRejected(reason string) {
	if m == nil {
		return
	}
	m.Rejections.WithLabelValues(reason).Inc()
}

func (m *Metrics) IncrementNotificationFailed() {
	if m == nil {
		return
	}
	m.NotificationsFailed.Inc()
}

// ObserveRegister records the duration of a Register call.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveRegister(start time.Time) {
	if m == nil {
		return
	}
	m.RegisterDuration.Observe(time.Since(start).Seconds())
}
