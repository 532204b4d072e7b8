package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(couponEvaluationsTotal, couponRedemptionsTotal) }

var (
	couponEvaluationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coupon_evaluations_total",
			Help: "Coupon evaluations by result (ok or a bounded rejection kind).",
		},
		[]string{"result"},
	)

	couponRedemptionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "coupon_redemptions_total",
			Help: "Coupon usages recorded on verified payments.",
		},
	)
)

func IncCouponEvaluation(result string) {
	couponEvaluationsTotal.WithLabelValues(norm(result)).Inc()
}

func IncCouponRedemption() { couponRedemptionsTotal.Inc() }
