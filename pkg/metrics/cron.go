package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CronJobMetrics covers the cron worker: per-job outcome and timing, plus the
// result of the license expiry sweep. A nil value discards everything.
type CronJobMetrics struct {
	duration    *prometheus.HistogramVec
	runs        *prometheus.CounterVec
	lastSuccess *prometheus.GaugeVec
	expiring    prometheus.Gauge
}

// NewCronJobMetrics registers on reg. A nil reg yields working no-op metrics.
func NewCronJobMetrics(reg prometheus.Registerer) *CronJobMetrics {
	if reg == nil {
		return nil
	}
	m := &CronJobMetrics{
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "gymdesk",
			Name:      "job_duration_seconds",
			Help:      "Duration of cron jobs in seconds.",
			Buckets:   []float64{.05, .25, 1, 5, 30, 120, 600},
		}, []string{"job"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gymdesk",
			Name:      "job_runs_total",
			Help:      "Cron job executions by outcome.",
		}, []string{"job", "outcome"}),
		lastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "gymdesk",
			Name:      "job_last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run of each cron job.",
		}, []string{"job"}),
		expiring: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "gymdesk",
			Name:      "licenses_expiring",
			Help:      "Activated licenses expiring inside the warning window at the last sweep.",
		}),
	}
	reg.MustRegister(m.duration, m.runs, m.lastSuccess, m.expiring)
	return m
}

// ObserveRun records one execution of job that finished at end after took.
func (c *CronJobMetrics) ObserveRun(job string, end time.Time, took time.Duration, err error) {
	if c == nil {
		return
	}
	job = normalizeLabel(job)
	c.duration.WithLabelValues(job).Observe(took.Seconds())
	if err != nil {
		c.runs.WithLabelValues(job, "failure").Inc()
		return
	}
	c.runs.WithLabelValues(job, "success").Inc()
	c.lastSuccess.WithLabelValues(job).Set(float64(end.Unix()))
}

// SetExpiringLicenses publishes the size of the last expiry sweep.
func (c *CronJobMetrics) SetExpiringLicenses(n int) {
	if c == nil {
		return
	}
	c.expiring.Set(float64(n))
}
