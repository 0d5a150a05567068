package retry

import "github.com/prometheus/client_golang/prometheus"

const (
	outcomeSuccess   = "success"
	outcomeRetryable = "retryable"
	outcomeFatal     = "fatal"
	outcomeTimeout   = "timeout"
)

// Metrics counts attempt outcomes. A nil *Metrics is a no-op.
type Metrics struct {
	attempts *prometheus.CounterVec
}

// NewMetrics registers the attempt counter on reg.
func NewMetrics(reg prometheus.Registerer, name string) *Metrics {
	m := &Metrics{
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: name,
			Help: "Attempts made by the retry executor, by outcome.",
		}, []string{"outcome"}),
	}
	if reg != nil {
		reg.MustRegister(m.attempts)
	}
	return m
}

func (m *Metrics) observe(outcome string) {
	if m == nil {
		return
	}
	m.attempts.WithLabelValues(outcome).Inc()
}
