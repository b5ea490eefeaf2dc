package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(workerTasksTotal) }

var workerTasksTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "nova_worker_tasks_total",
		Help: "Tasks run by the post-commit worker pool, labeled by status.",
	},
	[]string{"status"}, // 'ok', 'error', 'panic', 'rejected'
)

func IncWorkerTask(status string) {
	workerTasksTotal.WithLabelValues(norm(status)).Inc()
}
