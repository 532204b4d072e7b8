package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(rateLimitedTotal, httpRequestsTotal) }

var (
	rateLimitedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "http_rate_limited_total",
			Help: "Requests rejected by the shared rate limiter.",
		},
	)

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by route pattern, method and status class.",
		},
		[]string{"route", "method", "code"},
	)
)

func IncRateLimited() { rateLimitedTotal.Inc() }

func IncHTTPRequest(route, method string, status int) {
	code := "5xx"
	switch {
	case status < 300:
		code = "2xx"
	case status < 400:
		code = "3xx"
	case status < 500:
		code = "4xx"
	}
	httpRequestsTotal.WithLabelValues(route, method, code).Inc()
}
