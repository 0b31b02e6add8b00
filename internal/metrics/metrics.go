// Package metrics exports cache activity to Prometheus.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/lucasew/diskcache"
)

// Collector implements diskcache.Observer.
type Collector struct {
	operations *prometheus.CounterVec
	hits       prometheus.Counter
	misses     prometheus.Counter
	evictions  prometheus.Counter
	evicted    prometheus.Counter
	drift      prometheus.Counter
	size       prometheus.Gauge
	capacity   prometheus.Gauge
}

// New registers the cache metrics on reg. The cache label tells several
// caches in one process apart.
func New(reg prometheus.Registerer, cache string) *Collector {
	f := promauto.With(prometheus.WrapRegistererWith(prometheus.Labels{"cache": cache}, reg))
	return &Collector{
		operations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "diskcache_operations_total",
			Help: "The total number of cache operations",
		}, []string{"type", "status"}),
		hits: f.NewCounter(prometheus.CounterOpts{
			Name: "diskcache_hits_total",
			Help: "The total number of cache hits",
		}),
		misses: f.NewCounter(prometheus.CounterOpts{
			Name: "diskcache_misses_total",
			Help: "The total number of cache misses",
		}),
		evictions: f.NewCounter(prometheus.CounterOpts{
			Name: "diskcache_evictions_total",
			Help: "The total number of entries removed by the eviction strategy",
		}),
		evicted: f.NewCounter(prometheus.CounterOpts{
			Name: "diskcache_evicted_bytes_total",
			Help: "The total number of bytes removed by the eviction strategy",
		}),
		drift: f.NewCounter(prometheus.CounterOpts{
			Name: "diskcache_accounting_drift_total",
			Help: "How often the tracked size had to be clamped to zero",
		}),
		size: f.NewGauge(prometheus.GaugeOpts{
			Name: "diskcache_size_bytes",
			Help: "The tracked size of the cache",
		}),
		capacity: f.NewGauge(prometheus.GaugeOpts{
			Name: "diskcache_capacity_bytes",
			Help: "The configured capacity of the cache",
		}),
	}
}

func (c *Collector) ObserveOp(op diskcache.Op, err error) {
	status := "ok"
	switch {
	case err == nil:
	case errors.Is(err, diskcache.ErrNotFound):
		status = "not_found"
	default:
		status = "error"
	}
	c.operations.WithLabelValues(string(op), status).Inc()

	if op == diskcache.OpGet {
		if err == nil {
			c.hits.Inc()
		} else if errors.Is(err, diskcache.ErrNotFound) {
			c.misses.Inc()
		}
	}
}

func (c *Collector) ObserveEviction(size uint64) {
	c.evictions.Inc()
	c.evicted.Add(float64(size))
}

func (c *Collector) ObserveSize(size, capacity uint64) {
	c.size.Set(float64(size))
	c.capacity.Set(float64(capacity))
}

func (c *Collector) ObserveDrift() { c.drift.Inc() }

var _ diskcache.Observer = (*Collector)(nil)
