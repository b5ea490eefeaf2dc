package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		subscriptionsActivatedTotal,
		subscriptionsActivationLatency,
		subscriptionsCancelledTotal,
	)
}

var (
	// kind: create|extend|replay
	subscriptionsActivatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nova_subscriptions_activated_total",
			Help: "Activation requests handled by the subscription service.",
		},
		[]string{"kind", "plan", "outcome"},
	)

	subscriptionsActivationLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nova_subscriptions_activation_latency_seconds",
			Help:    "Latency of the activation transaction.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"kind", "outcome"},
	)

	subscriptionsCancelledTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nova_subscriptions_cancelled_total",
			Help: "Cancellation requests by result.",
		},
		[]string{"result"}, // cancelled|not_found|error
	)
)

func ObserveSubscriptionActivated(kind, plan, outcome string, took time.Duration) {
	subscriptionsActivatedTotal.WithLabelValues(norm(kind), norm(plan), norm(outcome)).Inc()
	subscriptionsActivationLatency.WithLabelValues(norm(kind), norm(outcome)).Observe(took.Seconds())
}

func IncSubscriptionCancelled(result string) {
	subscriptionsCancelledTotal.WithLabelValues(norm(result)).Inc()
}
