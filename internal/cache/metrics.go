package cache

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus metrics for cache operations. They are
// created unregistered so the gateway can attach them to its custom
// registry next to the request metrics.
type Metrics struct {
	hitsTotal      *prometheus.CounterVec
	missesTotal    *prometheus.CounterVec
	evictionsTotal *prometheus.CounterVec
	sizeGauge      *prometheus.GaugeVec
}

// NewMetrics creates the cache metric collectors.
func NewMetrics() *Metrics {
	return &Metrics{
		hitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gateway",
				Subsystem: "cache",
				Name:      "hits_total",
				Help:      "Total number of cache hits",
			},
			[]string{"backend"},
		),
		missesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gateway",
				Subsystem: "cache",
				Name:      "misses_total",
				Help:      "Total number of cache misses",
			},
			[]string{"backend"},
		),
		evictionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gateway",
				Subsystem: "cache",
				Name:      "evictions_total",
				Help:      "Total number of cache evictions",
			},
			[]string{"backend"},
		),
		sizeGauge: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "gateway",
				Subsystem: "cache",
				Name:      "size",
				Help:      "Current number of cached entries",
			},
			[]string{"backend"},
		),
	}
}

// Collectors returns every collector for registry registration.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.hitsTotal,
		m.missesTotal,
		m.evictionsTotal,
		m.sizeGauge,
	}
}

func (m *Metrics) recordHit(backend string) {
	m.hitsTotal.WithLabelValues(backend).Inc()
}

func (m *Metrics) recordMiss(backend string) {
	m.missesTotal.WithLabelValues(backend).Inc()
}

func (m *Metrics) recordEviction(backend string) {
	m.evictionsTotal.WithLabelValues(backend).Inc()
}

func (m *Metrics) setSize(backend string, size int) {
	m.sizeGauge.WithLabelValues(backend).Set(float64(size))
}
