package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "gigboard"

// Metrics holds the service's Prometheus collectors on a private registry.
type Metrics struct {
	Registry *prometheus.Registry

	JobsCreated           prometheus.Counter
	JobsExpired           *prometheus.CounterVec // label: mode (sweep|admin|feed)
	InterestsRecorded     prometheus.Counter
	NotificationsSent     *prometheus.CounterVec // label: type
	FanoutFailures        prometheus.Counter
	VerificationsSent     *prometheus.CounterVec // label: channel (provider|fallback)
	HTTPRequestsTotal     *prometheus.CounterVec
	HTTPRequestLatency    *prometheus.HistogramVec
	DispatcherQueueLength prometheus.Gauge
}

func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		Registry: registry,
		JobsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_created_total",
			Help:      "Total number of jobs created.",
		}),
		JobsExpired: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_expired_total",
			Help:      "Total number of jobs deactivated because their scheduled time passed.",
		}, []string{"mode"}),
		InterestsRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_interests_total",
			Help:      "Total number of new interest registrations.",
		}),
		NotificationsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_created_total",
			Help:      "Total number of notifications written, by type.",
		}, []string{"type"}),
		FanoutFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fanout_failures_total",
			Help:      "Background notification tasks that failed or panicked.",
		}),
		VerificationsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verifications_sent_total",
			Help:      "Verification codes issued, by channel.",
		}, []string{"channel"}),
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		HTTPRequestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Latency of HTTP requests by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		DispatcherQueueLength: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dispatcher_queue_length",
			Help:      "Background tasks waiting for a worker.",
		}),
	}

	registry.MustRegister(
		m.JobsCreated,
		m.JobsExpired,
		m.InterestsRecorded,
		m.NotificationsSent,
		m.FanoutFailures,
		m.VerificationsSent,
		m.HTTPRequestsTotal,
		m.HTTPRequestLatency,
		m.DispatcherQueueLength,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
