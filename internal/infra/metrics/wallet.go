package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		moneroRPCRequestsTotal,
		moneroRPCLatency,
		monitorRunsTotal,
	)
}

var (
	moneroRPCRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nova_monero_rpc_requests_total",
			Help: "Wallet JSON-RPC calls by method and outcome.",
		},
		[]string{"method", "outcome"},
	)

	moneroRPCLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nova_monero_rpc_latency_seconds",
			Help:    "Wallet JSON-RPC latency by method and outcome.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"method", "outcome"},
	)

	// result: scanned|skipped|not_leader|error
	monitorRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nova_payment_monitor_runs_total",
			Help: "Crypto payment monitor ticks by result.",
		},
		[]string{"result"},
	)
)

func ObserveMoneroRPC(method, outcome string, took time.Duration) {
	moneroRPCRequestsTotal.WithLabelValues(norm(method), norm(outcome)).Inc()
	moneroRPCLatency.WithLabelValues(norm(method), norm(outcome)).Observe(took.Seconds())
}

func IncMonitorRun(result string) {
	monitorRunsTotal.WithLabelValues(norm(result)).Inc()
}
