package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(backgroundJobsTotal, retentionDeletedTotal)
}

var (
	backgroundJobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "background_jobs_total",
			Help: "Background jobs processed, labeled by job kind and status.",
		},
		[]string{"job", "status"}, // e.g., job="title", status="completed"
	)

	retentionDeletedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "retention_conversations_deleted_total",
			Help: "Conversations removed by the retention sweeper.",
		},
	)
)

func IncBackgroundJob(job, status string) {
	backgroundJobsTotal.WithLabelValues(norm(job), norm(status)).Inc()
}

func AddRetentionDeleted(n int64) {
	retentionDeletedTotal.Add(float64(n))
}
