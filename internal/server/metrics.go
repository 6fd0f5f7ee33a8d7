package server

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wiregram",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "wiregram",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
	parses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wiregram",
			Subsystem: "parse",
			Name:      "total",
			Help:      "Parses by entry point and outcome (ok or the failure kind).",
		},
		[]string{"entry", "outcome"},
	)
	parseBytes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wiregram",
			Subsystem: "parse",
			Name:      "consumed_bytes_total",
			Help:      "Bytes consumed by successful parses.",
		},
		[]string{"entry"},
	)
	parseDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "wiregram",
			Subsystem: "parse",
			Name:      "duration_seconds",
			Help:      "Parse duration in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
		},
		[]string{"entry"},
	)
)

// RegisterMetrics registers the collectors with the default registry.
func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration, parses, parseBytes, parseDuration)
	})
}

func recordHTTPRequest(method, path string, status int, duration time.Duration) {
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(method, path, statusLabel).Observe(duration.Seconds())
}

func recordParse(entry, outcome string, consumed int64, duration time.Duration) {
	parses.WithLabelValues(entry, outcome).Inc()
	parseDuration.WithLabelValues(entry).Observe(duration.Seconds())
	if consumed > 0 {
		parseBytes.WithLabelValues(entry).Add(float64(consumed))
	}
}
