// Package metrics exposes authentication counters in Prometheus format.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	metricLoginAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "areagate",
		Name:      "login_attempts_total",
		Help:      "Authenticate actions by outcome",
	}, []string{"outcome"})

	metricLoginDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "areagate",
		Name:      "login_duration_seconds",
		Help:      "Time spent verifying credentials and starting the session",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
	})

	metricLogouts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "areagate",
		Name:      "logouts_total",
		Help:      "Logout actions",
	})

	metricThrottled = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "areagate",
		Name:      "throttled_requests_total",
		Help:      "Requests refused by the login throttle",
	})
)

// ObserveLogin counts one authenticate action
func ObserveLogin(outcome string, elapsed time.Duration) {
	metricLoginAttempts.WithLabelValues(outcome).Inc()
	metricLoginDuration.Observe(elapsed.Seconds())
}

// ObserveLogout counts one logout action
func ObserveLogout() {
	metricLogouts.Inc()
}

// ObserveThrottled counts one refused request
func ObserveThrottled() {
	metricThrottled.Inc()
}

// Handler serves the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}
