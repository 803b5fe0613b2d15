package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutcomeSuccess  = "success"
	OutcomeFailure  = "failure"
	OutcomeConflict = "conflict"
	OutcomeBlocked  = "blocked"
)

// RFQMetrics records RFQ transition outcomes and quote cache effectiveness.
type RFQMetrics struct {
	transitions *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	cache       *prometheus.CounterVec
}

// NewRFQMetrics registers the RFQ metrics on the provided registerer.
func NewRFQMetrics(reg prometheus.Registerer) *RFQMetrics {
	if reg == nil {
		return &RFQMetrics{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rfq_transition_total",
		Help: "RFQ mode transitions by outcome.",
	}, []string{"transition", "outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "rfq_transition_duration_seconds",
		Help:    "Duration of RFQ transitions including remote writes.",
		Buckets: prometheus.DefBuckets,
	}, []string{"transition"})
	cache := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "quote_cache_lookups_total",
		Help: "Lowest-quote cache lookups by result.",
	}, []string{"result"})
	reg.MustRegister(transitions, duration, cache)
	return &RFQMetrics{
		transitions: transitions,
		duration:    duration,
		cache:       cache,
	}
}

// ObserveTransition records one finished transition.
func (m *RFQMetrics) ObserveTransition(transition, outcome string, elapsed time.Duration) {
	if m == nil || m.transitions == nil {
		return
	}
	transition = normalizeLabel(transition)
	m.transitions.WithLabelValues(transition, normalizeLabel(outcome)).Inc()
	m.duration.WithLabelValues(transition).Observe(elapsed.Seconds())
}

// CacheHit counts a lowest-quote cache hit.
func (m *RFQMetrics) CacheHit() {
	if m == nil || m.cache == nil {
		return
	}
	m.cache.WithLabelValues("hit").Inc()
}

// CacheMiss counts a lowest-quote cache miss.
func (m *RFQMetrics) CacheMiss() {
	if m == nil || m.cache == nil {
		return
	}
	m.cache.WithLabelValues("miss").Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
