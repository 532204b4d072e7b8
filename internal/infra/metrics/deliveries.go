package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		deliveriesGeneratedTotal,
		deliveryGenerateRuns,
		deliveryStatusTotal,
	)
}

var (
	deliveriesGeneratedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "deliveries_generated_total",
			Help: "Delivery slots inserted (or revived) by the generator.",
		},
	)

	deliveryGenerateRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "delivery_generate_runs_total",
			Help: "Generator invocations by outcome.",
		},
		[]string{"outcome"}, // inserted|noop|skipped_status|error
	)

	deliveryStatusTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "delivery_status_updates_total",
			Help: "Delivery status changes by new status.",
		},
		[]string{"status"},
	)
)

func ObserveGenerate(outcome string, inserted int) {
	deliveryGenerateRuns.WithLabelValues(norm(outcome)).Inc()
	if inserted > 0 {
		deliveriesGeneratedTotal.Add(float64(inserted))
	}
}

func IncDeliveryStatus(status string) {
	deliveryStatusTotal.WithLabelValues(norm(status)).Inc()
}
