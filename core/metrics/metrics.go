// Package metrics exposes Prometheus collectors shared by the bot runtime.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace prefixes every collector registered by the bot.
const Namespace = "emilia"

var (
	Updates = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "updates_total",
		Help:      "Total number of Telegram updates handled",
	}, []string{"handler", "status"})

	HandlerDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: Namespace,
		Name:      "handler_duration_seconds",
		Help:      "Duration of update handlers",
		Buckets:   prometheus.DefBuckets,
	}, []string{"handler"})

	RateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "rate_limited_total",
		Help:      "Updates dropped by the rate limiter",
	})

	SendFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "send_failures_total",
		Help:      "Outbound Telegram calls that failed after retries",
	}, []string{"kind"})

	Received = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "updates_received_total",
		Help:      "Telegram updates received, by kind",
	}, []string{"kind"})

	InFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "updates_in_flight",
		Help:      "Updates currently being handled",
	})

	Denied = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "guard_denied_total",
		Help:      "Handlers short-circuited by a permission guard",
	}, []string{"guard"})
)

func ObserveHandler(handler string, seconds float64, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	Updates.WithLabelValues(handler, status).Inc()
	HandlerDuration.WithLabelValues(handler).Observe(seconds)
}

func IncRateLimited() {
	RateLimited.Inc()
}

func IncSendFailure(kind string) {
	if kind == "" {
		kind = "unknown"
	}
	SendFailures.WithLabelValues(kind).Inc()
}

func IncDenied(guard string) {
	Denied.WithLabelValues(guard).Inc()
}

func IncReceived(kind string) {
	Received.WithLabelValues(kind).Inc()
}
