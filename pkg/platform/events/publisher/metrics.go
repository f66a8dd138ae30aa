package publisher

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"scanbo/pkg/platform/events"
)

// Metrics tracks event delivery. A nil *Metrics is valid and records nothing.
type Metrics struct {
	Emitted        *prometheus.CounterVec
	Failed         prometheus.Counter
	Dropped        prometheus.Counter
	DeliverLatency prometheus.Histogram
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Emitted: f.NewCounterVec(prometheus.CounterOpts{
			Name: "scanbo_events_emitted_total",
			Help: "Events accepted by the sink, by kind",
		}, []string{"kind"}),
		Failed: f.NewCounter(prometheus.CounterOpts{
			Name: "scanbo_events_failed_total",
			Help: "Events the sink rejected",
		}),
		Dropped: f.NewCounter(prometheus.CounterOpts{
			Name: "scanbo_events_dropped_total",
			Help: "Events dropped because the async buffer was full",
		}),
		DeliverLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "scanbo_events_deliver_duration_seconds",
			Help:    "Time spent handing an event to the sink",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

func (m *Metrics) observeEmitted(kind events.Kind, d time.Duration) {
	if m == nil {
		return
	}
	m.Emitted.WithLabelValues(string(kind)).Inc()
	m.DeliverLatency.Observe(d.Seconds())
}

func (m *Metrics) incFailed() {
	if m == nil {
		return
	}
	m.Failed.Inc()
}

func (m *Metrics) incDropped() {
	if m == nil {
		return
	}
	m.Dropped.Inc()
}
