package observ

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Job run results recorded by JobMetrics.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultSkipped = "skipped"
)

// JobMetrics records reconciliation job runs.
type JobMetrics interface {
	// ObserveRun records one run of job with its result, the number of
	// rows it changed and how long it took.
	ObserveRun(job, result string, rows int64, took time.Duration)
}

// NopJobMetrics discards everything.
type NopJobMetrics struct{}

var _ JobMetrics = NopJobMetrics{}

func (NopJobMetrics) ObserveRun(string, string, int64, time.Duration) {}

// PrometheusJobMetrics exports job runs as Prometheus collectors. The
// collectors are registered on first use.
type PrometheusJobMetrics struct {
	reg       prometheus.Registerer
	namespace string
	once      sync.Once

	runs     *prometheus.CounterVec
	rows     *prometheus.CounterVec
	duration *prometheus.HistogramVec
	lastRun  *prometheus.GaugeVec
}

var _ JobMetrics = (*PrometheusJobMetrics)(nil)

// NewPrometheusJobMetrics uses prometheus.DefaultRegisterer when reg is
// nil and "territorydesk" when namespace is empty.
func NewPrometheusJobMetrics(reg prometheus.Registerer, namespace string) *PrometheusJobMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "territorydesk"
	}
	return &PrometheusJobMetrics{reg: reg, namespace: namespace}
}

func (p *PrometheusJobMetrics) ensureRegistered() {
	p.once.Do(func() {
		p.runs = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "jobs",
			Name:      "runs_total",
			Help:      "Reconciliation job runs by job and result (success, failure, skipped).",
		}, []string{"job", "result"})

		p.rows = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "jobs",
			Name:      "rows_changed_total",
			Help:      "Rows changed by reconciliation jobs.",
		}, []string{"job"})

		p.duration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "jobs",
			Name:      "run_duration_seconds",
			Help:      "Duration of reconciliation job runs in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms .. ~10s
		}, []string{"job"})

		p.lastRun = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: p.namespace,
			Subsystem: "jobs",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run of each job.",
		}, []string{"job"})

		p.reg.MustRegister(p.runs, p.rows, p.duration, p.lastRun)
	})
}

func (p *PrometheusJobMetrics) ObserveRun(job, result string, rows int64, took time.Duration) {
	p.ensureRegistered()

	p.runs.WithLabelValues(job, result).Inc()
	if result == ResultSkipped {
		return
	}
	p.duration.WithLabelValues(job).Observe(took.Seconds())
	if result == ResultSuccess {
		p.rows.WithLabelValues(job).Add(float64(rows))
		p.lastRun.WithLabelValues(job).SetToCurrentTime()
	}
}
