package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcomes recorded for a scheduled job fire.
const (
	JobSucceeded = "success"
	JobFailed    = "failure"
	JobSkipped   = "skipped"
)

// JobMetrics counts scheduled job fires by outcome and times the ones that ran.
type JobMetrics struct {
	runs     *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewJobMetrics registers the cron job metrics on reg. A nil registerer yields
// a no-op recorder.
func NewJobMetrics(reg prometheus.Registerer) *JobMetrics {
	if reg == nil {
		return &JobMetrics{}
	}
	m := &JobMetrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cron_job_runs_total",
			Help: "Scheduled job fires by outcome.",
		}, []string{"job", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cron_job_duration_seconds",
			Help:    "Wall time of scheduled jobs that ran.",
			Buckets: []float64{.05, .1, .5, 1, 5, 15, 60, 300},
		}, []string{"job"}),
	}
	reg.MustRegister(m.runs, m.duration)
	return m
}

// Observe records one fire of job. Skipped fires carry no duration.
func (m *JobMetrics) Observe(job, outcome string, took time.Duration) {
	if m == nil || m.runs == nil {
		return
	}
	job = normalizeLabel(job)
	m.runs.WithLabelValues(job, outcome).Inc()
	if outcome != JobSkipped && took > 0 {
		m.duration.WithLabelValues(job).Observe(took.Seconds())
	}
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
