// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	BatchUsersProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matching_batch_users_processed_total",
			Help: "Users processed across matching batch runs",
		},
		[]string{"status"},
	)

	BatchMatchesWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matching_batch_matches_written_total",
			Help: "Matches created or updated across matching batch runs",
		},
		[]string{"outcome"},
	)

	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "match_notifications_sent_total",
			Help: "Match notifications delivered by channel",
		},
		[]string{"channel"},
	)
)
