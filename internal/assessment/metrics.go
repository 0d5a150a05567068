package assessment

import "github.com/prometheus/client_golang/prometheus"

// Metrics instruments context assembly and generation outcomes. A nil *Metrics is a no-op.
type Metrics struct {
	tiers    *prometheus.CounterVec
	outcomes *prometheus.CounterVec
	parsed   prometheus.Histogram
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		tiers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "assessment_context_tier_total",
			Help: "Generation contexts served, by fallback tier.",
		}, []string{"tier"}),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "assessment_generation_total",
			Help: "Generation requests, by outcome.",
		}, []string{"outcome"}),
		parsed: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "assessment_parsed_questions",
			Help:    "Questions accepted from one generated response.",
			Buckets: []float64{0, 1, 5, 10, 20, 50},
		}),
	}
	if reg != nil {
		reg.MustRegister(m.tiers, m.outcomes, m.parsed)
	}
	return m
}

func (m *Metrics) observeTier(t Tier) {
	if m == nil {
		return
	}
	m.tiers.WithLabelValues(string(t)).Inc()
}

func (m *Metrics) observeOutcome(outcome string) {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) observeParsed(n int) {
	if m == nil {
		return
	}
	m.parsed.Observe(float64(n))
}
