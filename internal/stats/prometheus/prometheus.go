// Package prometheus exports run metrics through a Prometheus registry.
package prometheus

import (
	"errors"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/maayanlab/turbogsea/internal/stats"
)

// Collector implements stats.Collector using Prometheus metrics. Metrics
// are registered lazily on first use.
type Collector struct {
	registry prometheus.Registerer

	mu         sync.Mutex
	counters   map[string]prometheus.Counter
	gauges     map[string]prometheus.Gauge
	histograms map[string]prometheus.Histogram
}

var _ stats.Collector = (*Collector)(nil)

// New creates a collector. If registry is nil, prometheus.DefaultRegisterer
// is used.
func New(registry prometheus.Registerer) *Collector {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	return &Collector{
		registry:   registry,
		counters:   make(map[string]prometheus.Counter),
		gauges:     make(map[string]prometheus.Gauge),
		histograms: make(map[string]prometheus.Histogram),
	}
}

func (c *Collector) IncCounter(name string, delta int64) {
	c.mu.Lock()
	m := getOrRegister(c.registry, c.counters, name, func() prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{Name: name, Help: help(name)})
	})
	c.mu.Unlock()
	m.Add(float64(delta))
}

func (c *Collector) SetGauge(name string, value int64) {
	c.mu.Lock()
	m := getOrRegister(c.registry, c.gauges, name, func() prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{Name: name, Help: help(name)})
	})
	c.mu.Unlock()
	m.Set(float64(value))
}

func (c *Collector) ObserveHistogram(name string, value float64) {
	c.mu.Lock()
	m := getOrRegister(c.registry, c.histograms, name, func() prometheus.Histogram {
		return prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    name,
			Help:    help(name),
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		})
	})
	c.mu.Unlock()
	m.Observe(value)
}

// getOrRegister returns the cached metric, registering a new one on first
// use. A metric already registered elsewhere under the same name is reused.
func getOrRegister[M prometheus.Collector](reg prometheus.Registerer, cache map[string]M, name string, create func() M) M {
	if m, ok := cache[name]; ok {
		return m
	}
	m := create()
	if err := reg.Register(m); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(M); ok {
				m = existing
			}
		}
	}
	cache[name] = m
	return m
}

func help(name string) string {
	if h, ok := stats.Help[name]; ok {
		return h
	}
	return name
}

// WriteFile writes every metric gathered by g to path in the text
// exposition format.
func WriteFile(path string, g prometheus.Gatherer) error {
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("write metrics %s: %w", path, err)
	}
	return nil
}
