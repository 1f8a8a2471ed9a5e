package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	connectionsAccepted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gemctl",
			Subsystem: "sched",
			Name:      "connections_total",
			Help:      "Total connections accepted per protocol role.",
		},
		[]string{"role"},
	)
	peakConnRate = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "gemctl",
			Subsystem: "sched",
			Name:      "peak_connections_per_second",
			Help:      "Highest observed accept rate in any one second.",
		},
	)
	cacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gemctl",
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Content cache lookups by outcome.",
		},
		[]string{"outcome"},
	)
	cacheEvictions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "gemctl",
			Subsystem: "cache",
			Name:      "evictions_total",
			Help:      "Entries evicted from the content cache.",
		},
	)
	retrievalResponses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gemctl",
			Subsystem: "retrieval",
			Name:      "responses_total",
			Help:      "Retrieval protocol responses by status code.",
		},
		[]string{"status"},
	)
	transferCommands = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gemctl",
			Subsystem: "transfer",
			Name:      "commands_total",
			Help:      "Transfer protocol commands by verb and outcome.",
		},
		[]string{"command", "outcome"},
	)
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gemctl",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total admin HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "gemctl",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Admin HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			connectionsAccepted,
			peakConnRate,
			cacheLookups,
			cacheEvictions,
			retrievalResponses,
			transferCommands,
			httpRequests,
			httpDuration,
		)
	})
}

func RecordConnectionAccepted(role string) {
	RegisterMetrics()
	connectionsAccepted.WithLabelValues(role).Inc()
}

func RecordPeakConnRate(perSecond uint64) {
	RegisterMetrics()
	peakConnRate.Set(float64(perSecond))
}

func RecordCacheLookup(hit bool) {
	RegisterMetrics()
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	cacheLookups.WithLabelValues(outcome).Inc()
}

func RecordCacheEviction() {
	RegisterMetrics()
	cacheEvictions.Inc()
}

func RecordRetrievalResponse(status int) {
	RegisterMetrics()
	retrievalResponses.WithLabelValues(strconv.Itoa(status)).Inc()
}

func RecordTransferCommand(command, outcome string) {
	RegisterMetrics()
	transferCommands.WithLabelValues(command, outcome).Inc()
}

func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(method, path, statusLabel).Observe(duration.Seconds())
}
