package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		paymentVerifyRequests,
		paymentVerifyDuration,
	)
}

var (
	// result: ok|replay|fail
	// reason (fail only): a bounded domain error kind, e.g. invalid_signature
	paymentVerifyRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_verify_requests_total",
			Help: "Count of payment verify calls by result and reason.",
		},
		[]string{"result", "reason"},
	)

	paymentVerifyDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "payment_verify_duration_seconds",
			Help:    "Duration of the payment-to-subscription handoff in seconds.",
			Buckets: []float64{0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"result"},
	)
)

func ObservePaymentVerify(result, reason string, elapsed time.Duration) {
	paymentVerifyRequests.WithLabelValues(norm(result), norm(reason)).Inc()
	paymentVerifyDuration.WithLabelValues(norm(result)).Observe(elapsed.Seconds())
}
