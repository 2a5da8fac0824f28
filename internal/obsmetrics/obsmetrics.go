// Package obsmetrics exposes magritte's runtime counters and gauges via
// Prometheus, the way the teacher's observability middleware does.
package obsmetrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns magritte's Prometheus registry and every counter/gauge
// created through it.
type Metrics struct {
	mu       sync.RWMutex
	registry *prometheus.Registry
	counters map[string]*prometheus.CounterVec
	gauges   map[string]*prometheus.GaugeVec
}

// New builds a Metrics instance backed by a fresh registry, including the
// standard Go runtime collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		counters: make(map[string]*prometheus.CounterVec),
		gauges:   make(map[string]*prometheus.GaugeVec),
	}
	m.registry.MustRegister(collectors.NewGoCollector())
	m.registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return m
}

// Counter increments the named counter, creating it (with the given
// label set) on first use.
func (m *Metrics) Counter(name string, value float64, labels map[string]string) {
	m.getOrCreateCounter(name, labels).With(labels).Add(value)
}

// Gauge sets the named gauge, creating it on first use.
func (m *Metrics) Gauge(name string, value float64, labels map[string]string) {
	m.getOrCreateGauge(name, labels).With(labels).Set(value)
}

// Handler returns the HTTP handler Prometheus should scrape.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

func (m *Metrics) getOrCreateCounter(name string, labels map[string]string) *prometheus.CounterVec {
	m.mu.RLock()
	counter, ok := m.counters[name]
	m.mu.RUnlock()
	if ok {
		return counter
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if counter, ok = m.counters[name]; ok {
		return counter
	}

	counter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: name,
		Help: "Counter for " + name,
	}, labelNames(labels))
	m.registry.MustRegister(counter)
	m.counters[name] = counter
	return counter
}

func (m *Metrics) getOrCreateGauge(name string, labels map[string]string) *prometheus.GaugeVec {
	m.mu.RLock()
	gauge, ok := m.gauges[name]
	m.mu.RUnlock()
	if ok {
		return gauge
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if gauge, ok = m.gauges[name]; ok {
		return gauge
	}

	gauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: name,
		Help: "Gauge for " + name,
	}, labelNames(labels))
	m.registry.MustRegister(gauge)
	m.gauges[name] = gauge
	return gauge
}

func labelNames(labels map[string]string) []string {
	names := make([]string, 0, len(labels))
	for k := range labels {
		names = append(names, k)
	}
	return names
}
