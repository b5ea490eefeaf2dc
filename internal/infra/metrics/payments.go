package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		paymentsCreatedTotal,
		paymentsCreateLatency,
		paymentsConfirmedTotal,
		paymentsConfirmLatency,
		paymentsTimeToConfirm,
		paymentsFailedTotal,
		webhookEventsTotal,
	)
}

// outcome: success|error|invalid_state (confirm only)
var (
	paymentsCreatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nova_payments_created_total",
			Help: "Checkouts opened, by rail, plan and outcome.",
		},
		[]string{"rail", "plan", "outcome"},
	)

	paymentsCreateLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nova_payments_create_latency_seconds",
			Help:    "Latency of opening a checkout, including the provider call.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"rail", "outcome"},
	)

	paymentsConfirmedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nova_payments_confirmed_total",
			Help: "Confirmation attempts, by rail, plan and outcome.",
		},
		[]string{"rail", "plan", "outcome"},
	)

	paymentsConfirmLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nova_payments_confirm_latency_seconds",
			Help:    "Latency of the confirming transaction.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"rail", "outcome"},
	)

	paymentsTimeToConfirm = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nova_payments_time_to_confirm_seconds",
			Help:    "Time between checkout and confirmation.",
			Buckets: []float64{10, 30, 60, 300, 900, 3600, 4 * 3600, 24 * 3600},
		},
		[]string{"rail", "plan"},
	)

	paymentsFailedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nova_payments_failed_total",
			Help: "Payments moved to FAILED, by rail and reason.",
		},
		[]string{"rail", "reason"}, // reason: provider|activation
	)

	webhookEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nova_payments_webhook_events_total",
			Help: "Provider webhook deliveries by event type and result.",
		},
		[]string{"type", "result"}, // result: handled|ignored|duplicate|bad_signature|error
	)
)

func ObservePaymentCreated(rail, plan, outcome string, took time.Duration) {
	paymentsCreatedTotal.WithLabelValues(norm(rail), norm(plan), norm(outcome)).Inc()
	paymentsCreateLatency.WithLabelValues(norm(rail), norm(outcome)).Observe(took.Seconds())
}

func ObservePaymentConfirmed(rail, plan, outcome string, took time.Duration) {
	paymentsConfirmedTotal.WithLabelValues(norm(rail), norm(plan), norm(outcome)).Inc()
	paymentsConfirmLatency.WithLabelValues(norm(rail), norm(outcome)).Observe(took.Seconds())
}

func ObserveTimeToConfirm(rail, plan string, d time.Duration) {
	paymentsTimeToConfirm.WithLabelValues(norm(rail), norm(plan)).Observe(d.Seconds())
}

func IncPaymentFailed(rail, reason string) {
	paymentsFailedTotal.WithLabelValues(norm(rail), norm(reason)).Inc()
}

func IncWebhookEvent(eventType, result string) {
	webhookEventsTotal.WithLabelValues(norm(eventType), norm(result)).Inc()
}
