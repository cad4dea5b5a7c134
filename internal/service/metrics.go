package service

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts finalized recordings by what happened next. A nil *Metrics
// records nothing.
type Metrics struct {
	recordings *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		recordings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "recordings_finalized_total",
			Help: "Recordings stopped, by auto-send result.",
		}, []string{"result"}),
	}
	if err := reg.Register(m.recordings); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Metrics) recordingFinalized(r *StopResult) {
	if m == nil {
		return
	}
	result := "pending"
	switch {
	case r.Sent:
		result = "auto_sent"
	case r.Outcome != nil || r.DeliveryError != "":
		result = "auto_send_failed"
	}
	m.recordings.WithLabelValues(result).Inc()
}
