// Package monitor exports Go runtime health metrics alongside the scan
// metrics, so a stuck pass or a goroutine leak shows up on the same
// dashboard as the trading figures.
package monitor

import (
	"runtime"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// RuntimeMonitor periodically samples runtime statistics into gauges
type RuntimeMonitor struct {
	logger *zap.Logger

	goroutines  prometheus.Gauge
	heapAlloc   prometheus.Gauge
	heapObjects prometheus.Gauge
	gcPause     prometheus.Gauge

	ticker *time.Ticker
	done   chan struct{}
	wg     sync.WaitGroup
}

// NewRuntimeMonitor registers runtime gauges and starts sampling every
// interval until Stop is called
func NewRuntimeMonitor(namespace string, reg prometheus.Registerer, interval time.Duration, logger *zap.Logger) *RuntimeMonitor {
	if interval <= 0 {
		interval = 15 * time.Second
	}

	factory := promauto.With(reg)
	m := &RuntimeMonitor{
		logger: logger,
		goroutines: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "goroutines",
			Help:      "Current number of goroutines",
		}),
		heapAlloc: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "heap_alloc_bytes",
			Help:      "Current heap allocation in bytes",
		}),
		heapObjects: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "heap_objects",
			Help:      "Current number of heap objects",
		}),
		gcPause: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "gc_pause_seconds",
			Help:      "Most recent GC pause duration in seconds",
		}),
		ticker: time.NewTicker(interval),
		done:   make(chan struct{}),
	}

	m.wg.Add(1)
	go m.run()
	return m
}

func (m *RuntimeMonitor) run() {
	defer m.wg.Done()
	m.sample()
	for {
		select {
		case <-m.done:
			return
		case <-m.ticker.C:
			m.sample()
		}
	}
}

// sample reads runtime statistics into the gauges
func (m *RuntimeMonitor) sample() {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)

	m.goroutines.Set(float64(runtime.NumGoroutine()))
	m.heapAlloc.Set(float64(stats.HeapAlloc))
	m.heapObjects.Set(float64(stats.HeapObjects))
	m.gcPause.Set(float64(stats.PauseNs[(stats.NumGC+255)%256]) / float64(time.Second))
}

// Stop ends sampling and waits for the sampler to exit
func (m *RuntimeMonitor) Stop() {
	m.ticker.Stop()
	close(m.done)
	m.wg.Wait()
}
