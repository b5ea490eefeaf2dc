package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		activationAttemptsTotal,
		activationOutcomesTotal,
		notificationsTotal,
	)
}

var (
	// result: ok|transient|permanent
	activationAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nova_activation_attempts_total",
			Help: "Calls to the subscription service, by result.",
		},
		[]string{"result"},
	)

	// outcome: activated|compensated|compensation_error
	activationOutcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nova_activation_outcomes_total",
			Help: "Final outcome of the activation step per confirmed payment.",
		},
		[]string{"plan", "outcome"},
	)

	notificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nova_payment_notifications_total",
			Help: "Best-effort payment notifications by driver and status.",
		},
		[]string{"driver", "status"}, // status: sent|error|skipped
	)
)

func IncActivationAttempt(result string) {
	activationAttemptsTotal.WithLabelValues(norm(result)).Inc()
}

func IncActivationOutcome(plan, outcome string) {
	activationOutcomesTotal.WithLabelValues(norm(plan), norm(outcome)).Inc()
}

func IncNotification(driver, status string) {
	notificationsTotal.WithLabelValues(norm(driver), norm(status)).Inc()
}
