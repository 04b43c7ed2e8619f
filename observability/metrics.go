package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SwapMetrics records ledger operation activity for the HTTP surface.
type SwapMetrics struct {
	operations *prometheus.CounterVec
	latency    *prometheus.HistogramVec
}

var (
	swapMetricsOnce sync.Once
	swapRegistry    *SwapMetrics
)

// Metrics returns the lazily-initialised swap metrics registry.
func Metrics() *SwapMetrics {
	swapMetricsOnce.Do(func() {
		swapRegistry = &SwapMetrics{
			operations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "swapledger",
				Subsystem: "ops",
				Name:      "requests_total",
				Help:      "Total ledger operations segmented by operation and outcome.",
			}, []string{"operation", "outcome"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "swapledger",
				Subsystem: "ops",
				Name:      "request_duration_seconds",
				Help:      "Latency distribution for ledger operations.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"operation"}),
		}
		prometheus.MustRegister(swapRegistry.operations, swapRegistry.latency)
	})
	return swapRegistry
}

// Observe records one completed operation.
func (m *SwapMetrics) Observe(operation, outcome string, start time.Time) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(operation, outcome).Inc()
	m.latency.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
