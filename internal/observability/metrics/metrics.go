package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
)

var Module = fx.Module("observability.metrics",
	fx.Provide(NewDefault),
)

// Metrics holds the prometheus collectors for the payment and email pipelines.
type Metrics struct {
	webhookEvents    *prometheus.CounterVec
	webhookUnhandled *prometheus.CounterVec
	checkoutOrders   *prometheus.CounterVec
	emailsSent       prometheus.Counter
	emailsFailed     prometheus.Counter
	jobRuns          *prometheus.CounterVec
	jobErrors        *prometheus.CounterVec
	jobDuration      *prometheus.HistogramVec
}

func NewDefault() *Metrics {
	return New(prometheus.DefaultRegisterer)
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		webhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "funnelbase_webhook_events_total",
			Help: "Webhook notifications processed, by gateway and event type.",
		}, []string{"gateway", "event_type"}),
		webhookUnhandled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "funnelbase_webhook_unhandled_total",
			Help: "Webhook notifications with an unrecognized event type.",
		}, []string{"event_type"}),
		checkoutOrders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "funnelbase_checkout_orders_total",
			Help: "Checkout order creations, by outcome.",
		}, []string{"status"}),
		emailsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "funnelbase_emails_sent_total",
			Help: "Drip emails delivered to the provider.",
		}),
		emailsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "funnelbase_emails_failed_total",
			Help: "Drip emails that failed to send.",
		}),
		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "funnelbase_scheduler_job_runs_total",
			Help: "Scheduler job executions.",
		}, []string{"job"}),
		jobErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "funnelbase_scheduler_job_errors_total",
			Help: "Scheduler job failures.",
		}, []string{"job"}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "funnelbase_scheduler_job_duration_seconds",
			Help:    "Scheduler job wall time.",
			Buckets: prometheus.DefBuckets,
		}, []string{"job"}),
	}

	if reg != nil {
		reg.MustRegister(
			m.webhookEvents,
			m.webhookUnhandled,
			m.checkoutOrders,
			m.emailsSent,
			m.emailsFailed,
			m.jobRuns,
			m.jobErrors,
			m.jobDuration,
		)
	}
	return m
}

func (m *Metrics) RecordWebhookEvent(gateway, eventType string) {
	if m == nil {
		return
	}
	m.webhookEvents.WithLabelValues(gateway, eventType).Inc()
}

func (m *Metrics) RecordUnhandledWebhook(eventType string) {
	if m == nil {
		return
	}
	m.webhookUnhandled.WithLabelValues(eventType).Inc()
}

func (m *Metrics) RecordCheckoutOrder(status string) {
	if m == nil {
		return
	}
	m.checkoutOrders.WithLabelValues(status).Inc()
}

func (m *Metrics) RecordEmailSent() {
	if m == nil {
		return
	}
	m.emailsSent.Inc()
}

func (m *Metrics) RecordEmailFailed() {
	if m == nil {
		return
	}
	m.emailsFailed.Inc()
}

func (m *Metrics) IncJobRun(job string) {
	if m == nil {
		return
	}
	m.jobRuns.WithLabelValues(job).Inc()
}

func (m *Metrics) IncJobError(job string) {
	if m == nil {
		return
	}
	m.jobErrors.WithLabelValues(job).Inc()
}

func (m *Metrics) ObserveJobDuration(job string, d time.Duration) {
	if m == nil {
		return
	}
	m.jobDuration.WithLabelValues(job).Observe(d.Seconds())
}
