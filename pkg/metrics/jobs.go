package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// JobMetrics records background job runs and the records they touched.
type JobMetrics struct {
	runs     *prometheus.CounterVec
	duration *prometheus.HistogramVec
	records  *prometheus.CounterVec
}

// NewJobMetrics registers the job metrics on the provided registerer.
func NewJobMetrics(reg prometheus.Registerer) *JobMetrics {
	if reg == nil {
		return &JobMetrics{}
	}
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "job_runs_total",
		Help: "Background job executions by outcome.",
	}, []string{"job", "outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "job_duration_seconds",
		Help:    "Duration of background jobs in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
	records := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "job_records_total",
		Help: "Records processed by background jobs.",
	}, []string{"job", "result"})
	reg.MustRegister(runs, duration, records)
	return &JobMetrics{runs: runs, duration: duration, records: records}
}

// ObserveRun records one finished job execution.
func (m *JobMetrics) ObserveRun(job, outcome string, elapsed time.Duration) {
	if m == nil || m.runs == nil {
		return
	}
	job = normalizeLabel(job)
	m.runs.WithLabelValues(job, normalizeLabel(outcome)).Inc()
	m.duration.WithLabelValues(job).Observe(elapsed.Seconds())
}

// AddRecords adds n to the record counter. Non-positive n is ignored.
func (m *JobMetrics) AddRecords(job, result string, n int) {
	if m == nil || m.records == nil || n <= 0 {
		return
	}
	m.records.WithLabelValues(normalizeLabel(job), normalizeLabel(result)).Add(float64(n))
}
