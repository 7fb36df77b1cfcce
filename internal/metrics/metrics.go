package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "garage_http_requests_total", Help: "Total HTTP requests"},
		[]string{"route", "method", "status"},
	)
	ReqDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "garage_http_request_duration_seconds",
			Help:    "Request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
	InFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "garage_http_in_flight_requests", Help: "In-flight HTTP requests"},
	)

	// LoginsTotal splits social logins by outcome: ok, rejected (bad
	// token), limited (rate limiter).
	LoginsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "garage_social_logins_total", Help: "Social login attempts by outcome"},
		[]string{"outcome"},
	)
)

func MustRegister() {
	prometheus.MustRegister(RequestsTotal, ReqDuration, InFlight, LoginsTotal)
}
