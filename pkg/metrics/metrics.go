package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hhi_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "route", "status"},
	)

	// WebhookNotifications counts processed OneDrive notifications by outcome
	// (advanced, unchanged, regression_ignored, invalid, error, ...).
	WebhookNotifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hhi_webhook_notifications_total",
			Help: "OneDrive change notifications by processing outcome",
		},
		[]string{"outcome"},
	)

	StageTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hhi_stage_transitions_total",
			Help: "Project stage changes by target stage and source",
		},
		[]string{"stage", "source"},
	)

	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hhi_notifications_total",
			Help: "Customer notifications by channel and delivery result",
		},
		[]string{"channel", "status"},
	)

	ProviderCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hhi_provider_call_duration_seconds",
			Help:    "Latency of calls to external providers",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 10), // 10ms to ~10s
		},
		[]string{"provider", "operation", "result"},
	)
)

// ObserveProviderCall records the latency of an outbound provider call.
func ObserveProviderCall(provider, operation string, start time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	ProviderCallDuration.WithLabelValues(provider, operation, result).Observe(time.Since(start).Seconds())
}
