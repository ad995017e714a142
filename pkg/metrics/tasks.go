package metrics

import "github.com/prometheus/client_golang/prometheus"

// TaskMetrics counts background task outcomes by kind.
type TaskMetrics struct {
	submitted *prometheus.CounterVec
	dropped   *prometheus.CounterVec
	failed    *prometheus.CounterVec
	completed *prometheus.CounterVec
}

// NewTaskMetrics registers the task metrics on the provided registerer.
func NewTaskMetrics(reg prometheus.Registerer) *TaskMetrics {
	if reg == nil {
		return &TaskMetrics{}
	}
	vec := func(name, help string) *prometheus.CounterVec {
		return prometheus.NewCounterVec(prometheus.CounterOpts{Name: name, Help: help}, []string{"kind"})
	}
	m := &TaskMetrics{
		submitted: vec("task_submitted_total", "Background tasks accepted by the dispatcher."),
		dropped:   vec("task_dropped_total", "Background tasks dropped because the queue was full or closed."),
		failed:    vec("task_failed_total", "Background tasks that returned an error or panicked."),
		completed: vec("task_completed_total", "Background tasks that finished without error."),
	}
	reg.MustRegister(m.submitted, m.dropped, m.failed, m.completed)
	return m
}

func (m *TaskMetrics) IncSubmitted(kind string) { m.inc(m.submitted, kind) }
func (m *TaskMetrics) IncDropped(kind string)   { m.inc(m.dropped, kind) }
func (m *TaskMetrics) IncFailed(kind string)    { m.inc(m.failed, kind) }
func (m *TaskMetrics) IncCompleted(kind string) { m.inc(m.completed, kind) }

func (m *TaskMetrics) inc(vec *prometheus.CounterVec, kind string) {
	if m == nil || vec == nil {
		return
	}
	vec.WithLabelValues(normalizeLabel(kind)).Inc()
}
