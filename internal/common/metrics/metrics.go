// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// outcome: delivered, soft_failed, failed
	FormSubmissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "form_submissions_total",
			Help: "Total number of form submissions by outcome",
		},
		[]string{"form", "outcome"},
	)

	StepValidations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "form_step_validations_total",
			Help: "Total number of step validations by result",
		},
		[]string{"form", "step", "result"},
	)

	WebhookDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "webhook_request_duration_seconds",
			Help:    "Duration of webhook deliveries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"form", "status"},
	)

	CallsStarted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voice_calls_started_total",
			Help: "Total number of outbound voice calls requested",
		},
		[]string{"result"},
	)

	CallPolls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voice_call_polls_total",
			Help: "Total number of call status polls",
		},
		[]string{"result"},
	)

	ActivePolls = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "voice_call_polls_active",
			Help: "Number of calls currently being polled",
		},
	)

	AnalyticsEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analytics_events_total",
			Help: "Total number of analytics events forwarded per sink",
		},
		[]string{"sink", "outcome"},
	)

	ErrorReports = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "error_reports_total",
			Help: "Total number of errors reported by category",
		},
		[]string{"category", "notified"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests served by the site",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)
