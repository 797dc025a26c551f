// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	NotificationJobsCompleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notification_jobs_completed_total",
			Help: "Total number of notification jobs completed",
		},
	)

	NotificationJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_jobs_failed_total",
			Help: "Total number of notification jobs failed",
		},
		[]string{"reason"},
	)

	NotificationJobRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notification_job_retries_total",
			Help: "Total number of notification job retries scheduled",
		},
	)

	NotificationJobDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "notification_job_duration_seconds",
			Help: "Duration of notification job processing in seconds",
		},
	)

	ChannelSendOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_channel_sends_total",
			Help: "Channel delivery attempts by channel and outcome",
		},
		[]string{"channel", "outcome"},
	)

	RateLimitRejections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notification_rate_limit_rejections_total",
			Help: "Submissions rejected by the per-user rate limiter",
		},
	)
)
