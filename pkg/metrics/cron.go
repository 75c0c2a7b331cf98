package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Cron run outcomes, used as the "outcome" label.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeSkipped = "skipped"
)

// CronJobMetrics records scheduled job runs. A nil receiver or one built
// without a registerer is a no-op.
type CronJobMetrics struct {
	runs        *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	lastSuccess *prometheus.GaugeVec
	now         func() time.Time
}

// NewCronJobMetrics registers the cron job metrics on reg.
func NewCronJobMetrics(reg prometheus.Registerer) *CronJobMetrics {
	if reg == nil {
		return &CronJobMetrics{}
	}
	m := &CronJobMetrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tradedesk_cron_job_runs_total",
			Help: "Cron job runs by outcome; skipped means another worker held the lock.",
		}, []string{"job", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tradedesk_cron_job_duration_seconds",
			Help:    "Duration of executed cron jobs.",
			Buckets: []float64{.05, .25, 1, 5, 15, 60, 300},
		}, []string{"job"}),
		lastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "tradedesk_cron_job_last_success_timestamp_seconds",
			Help: "Unix time of the last successful run of each job.",
		}, []string{"job"}),
		now: time.Now,
	}
	reg.MustRegister(m.runs, m.duration, m.lastSuccess)
	return m
}

func (c *CronJobMetrics) enabled() bool { return c != nil && c.runs != nil }

// ObserveDuration records how long an executed job took.
func (c *CronJobMetrics) ObserveDuration(job string, d time.Duration) {
	if c.enabled() {
		c.duration.WithLabelValues(jobLabel(job)).Observe(d.Seconds())
	}
}

func (c *CronJobMetrics) IncSuccess(job string) {
	if c.enabled() {
		c.runs.WithLabelValues(jobLabel(job), OutcomeSuccess).Inc()
		c.lastSuccess.WithLabelValues(jobLabel(job)).Set(float64(c.now().Unix()))
	}
}

func (c *CronJobMetrics) IncFailure(job string) {
	if c.enabled() {
		c.runs.WithLabelValues(jobLabel(job), OutcomeFailure).Inc()
	}
}

func (c *CronJobMetrics) IncSkipped(job string) {
	if c.enabled() {
		c.runs.WithLabelValues(jobLabel(job), OutcomeSkipped).Inc()
	}
}

func jobLabel(job string) string {
	if job == "" {
		return "unknown"
	}
	return job
}
