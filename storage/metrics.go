package storage

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records per-operation latency and outcome for store
// implementations, labelled by (component, prefix, op), plus a gauge of
// resident cache items. A nil *Metrics is fully functional: every method
// is a no-op and Record still runs the wrapped function.
//
// Safe for concurrent use; all Prometheus metric types are goroutine-safe.
type Metrics struct {
	opSeconds  *prometheus.HistogramVec
	opErrors   *prometheus.CounterVec
	cacheItems prometheus.Gauge
}

// NewMetrics registers the storage metrics with reg
// (nil => prometheus.DefaultRegisterer) under the given namespace.
func NewMetrics(reg prometheus.Registerer, ns string) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		opSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: ns,
				Subsystem: "storage",
				Name:      "op_duration_seconds",
				Help:      "Store operation latency",
				Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 12),
			},
			[]string{"component", "prefix", "op"},
		),
		opErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Subsystem: "storage",
				Name:      "op_errors_total",
				Help:      "Store operations that returned an error",
			},
			[]string{"component", "prefix", "op"},
		),
		cacheItems: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: ns,
			Subsystem: "storage",
			Name:      "cache_items",
			Help:      "Entries resident in the cache tier",
		}),
	}
	reg.MustRegister(m.opSeconds, m.opErrors, m.cacheItems)
	return m
}

// Record times fn and observes its duration and outcome under the given
// label triple. The error from fn is returned unchanged. On a nil receiver
// fn still runs, with no recording overhead beyond the call itself.
//
// Record must be called outside any shard lock: fn acquires whatever locks
// it needs, and the recorder itself is treated as a black box that may be
// shared by many callers.
func (m *Metrics) Record(component, prefixName, op string, fn func() error) error {
	if m == nil {
		return fn()
	}
	start := time.Now()
	err := fn()
	m.opSeconds.WithLabelValues(component, prefixName, op).Observe(time.Since(start).Seconds())
	if err != nil {
		m.opErrors.WithLabelValues(component, prefixName, op).Inc()
	}
	return err
}

// SetCacheItems updates the resident item gauge.
func (m *Metrics) SetCacheItems(n uint64) {
	if m == nil {
		return
	}
	m.cacheItems.Set(float64(n))
}
