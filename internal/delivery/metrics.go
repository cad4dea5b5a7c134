package delivery

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds delivery counters. A nil *Metrics records nothing.
type Metrics struct {
	deliveries *prometheus.CounterVec
	duration   prometheus.Histogram
}

func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		deliveries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webhook_deliveries_total",
				Help: "Webhook delivery attempts by outcome.",
			},
			[]string{"outcome"},
		),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "webhook_delivery_duration_seconds",
			Help:    "Time spent waiting for the webhook to answer.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
	}
	for _, c := range []prometheus.Collector{m.deliveries, m.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) observe(o Outcome, took time.Duration) {
	if m == nil {
		return
	}
	label := "delivered"
	if o.Failure != nil {
		label = string(o.Failure.Kind)
	}
	m.deliveries.WithLabelValues(label).Inc()
	m.duration.Observe(took.Seconds())
}
