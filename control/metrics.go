// control/metrics.go
// Author: momentics <momentics@gmail.com>
//
// Runtime metrics registry for the manager and its reactors. Backed by
// rcrowley/go-metrics the same way slackhq/nebula wraps its per-message
// counters: named counters/gauges registered once and mutated in place,
// snapshotted on demand for Control.Stats().

package control

import (
	"sync"

	"github.com/rcrowley/go-metrics"
)

// MetricsRegistry holds named counters and gauges backed by go-metrics,
// plus a small side map for values that don't fit that shape.
type MetricsRegistry struct {
	mu       sync.RWMutex
	registry metrics.Registry
	extra    map[string]any
}

// NewMetricsRegistry creates an empty registry.
func NewMetricsRegistry() *MetricsRegistry {
	return &MetricsRegistry{registry: metrics.NewRegistry()}
}

// Gauge returns (creating on first use) a named gauge, e.g. a reactor's
// outstanding_ops. The gauge is owned by the caller thereafter and should
// only be mutated by that owner, per the manager's per-thread invariant.
func (mr *MetricsRegistry) Gauge(name string) metrics.Gauge {
	return metrics.GetOrRegisterGauge(name, mr.registry)
}

// Counter returns (creating on first use) a named monotonic counter.
func (mr *MetricsRegistry) Counter(name string) metrics.Counter {
	return metrics.GetOrRegisterCounter(name, mr.registry)
}

// Set sets or updates an arbitrary metric key. Used for values that don't
// fit the counter/gauge shape (e.g. state names, string labels).
func (mr *MetricsRegistry) Set(key string, value any) {
	mr.mu.Lock()
	defer mr.mu.Unlock()
	if mr.extra == nil {
		mr.extra = make(map[string]any)
	}
	mr.extra[key] = value
}

// GetSnapshot returns the current value of every registered metric plus
// any ad-hoc keys set via Set.
func (mr *MetricsRegistry) GetSnapshot() map[string]any {
	out := make(map[string]any)
	mr.registry.Each(func(name string, i any) {
		switch m := i.(type) {
		case metrics.Gauge:
			out[name] = m.Value()
		case metrics.Counter:
			out[name] = m.Count()
		}
	})
	mr.mu.RLock()
	defer mr.mu.RUnlock()
	for k, v := range mr.extra {
		out[k] = v
	}
	return out
}
