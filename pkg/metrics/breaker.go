package metrics

import "github.com/prometheus/client_golang/prometheus"

// Breaker state gauge values.
const (
	BreakerClosed   = 0
	BreakerHalfOpen = 1
	BreakerOpen     = 2
)

// BreakerMetrics exposes circuit breaker state and fallbacks.
type BreakerMetrics struct {
	state    *prometheus.GaugeVec
	fallback *prometheus.CounterVec
}

// NewBreakerMetrics registers the breaker metrics on the provided registerer.
func NewBreakerMetrics(reg prometheus.Registerer) *BreakerMetrics {
	if reg == nil {
		return &BreakerMetrics{}
	}
	state := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "circuit_breaker_state",
		Help: "Current state of the circuit breaker (0=closed, 1=half-open, 2=open).",
	}, []string{"name"})
	fallback := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "circuit_breaker_fallback_total",
		Help: "Requests answered with a fallback because the upstream failed.",
	}, []string{"name"})
	reg.MustRegister(state, fallback)
	return &BreakerMetrics{state: state, fallback: fallback}
}

// SetState records the breaker state.
func (b *BreakerMetrics) SetState(name string, state float64) {
	if b == nil || b.state == nil {
		return
	}
	b.state.WithLabelValues(normalizeLabel(name)).Set(state)
}

// IncFallback counts a fallback response.
func (b *BreakerMetrics) IncFallback(name string) {
	if b == nil || b.fallback == nil {
		return
	}
	b.fallback.WithLabelValues(normalizeLabel(name)).Inc()
}
