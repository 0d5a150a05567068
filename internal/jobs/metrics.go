package jobs

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics instruments the job pipeline. A nil *Metrics is a no-op.
type Metrics struct {
	submitted prometheus.Counter
	finished  *prometheus.CounterVec
	inFlight  prometheus.Gauge
	duration  prometheus.Histogram
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		submitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "assessment_jobs_submitted_total",
			Help: "Generation jobs accepted by the dispatcher.",
		}),
		finished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "assessment_jobs_finished_total",
			Help: "Generation jobs finished, by status and error code.",
		}, []string{"status", "code"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "assessment_jobs_in_flight",
			Help: "Generation jobs currently running.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "assessment_job_duration_seconds",
			Help:    "Time spent running a generation job.",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
		}),
	}
	if reg != nil {
		reg.MustRegister(m.submitted, m.finished, m.inFlight, m.duration)
	}
	return m
}

func (m *Metrics) observeSubmitted() {
	if m == nil {
		return
	}
	m.submitted.Inc()
}

func (m *Metrics) started() func(status Status, code string) {
	if m == nil {
		return func(Status, string) {}
	}
	start := time.Now()
	m.inFlight.Inc()
	return func(status Status, code string) {
		m.inFlight.Dec()
		m.duration.Observe(time.Since(start).Seconds())
		m.finished.WithLabelValues(string(status), code).Inc()
	}
}
