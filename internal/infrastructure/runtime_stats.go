package infrastructure

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// RuntimeStats holds a point-in-time snapshot of the Go runtime.
type RuntimeStats struct {
	Goroutines  int           `json:"goroutines"`
	HeapAlloc   uint64        `json:"heap_alloc_bytes"`
	HeapSys     uint64        `json:"heap_sys_bytes"`
	GCCount     uint32        `json:"gc_count"`
	LastGCPause time.Duration `json:"last_gc_pause_ns"`
	NumCPU      int           `json:"num_cpu"`
	Uptime      time.Duration `json:"uptime_ns"`
	Timestamp   time.Time     `json:"timestamp"`
}

// CollectRuntimeStats reads the current runtime state.
func CollectRuntimeStats(startTime time.Time) RuntimeStats {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	return RuntimeStats{
		Goroutines:  runtime.NumGoroutine(),
		HeapAlloc:   memStats.HeapAlloc,
		HeapSys:     memStats.HeapSys,
		GCCount:     memStats.NumGC,
		LastGCPause: time.Duration(memStats.PauseNs[(memStats.NumGC+255)%256]),
		NumCPU:      runtime.NumCPU(),
		Uptime:      time.Since(startTime),
		Timestamp:   time.Now(),
	}
}

// RuntimeCollector periodically records runtime gauges.
type RuntimeCollector struct {
	goroutines metric.Int64Gauge
	heapAlloc  metric.Int64Gauge
	heapSys    metric.Int64Gauge
	gcPause    metric.Float64Histogram
	uptime     metric.Float64Gauge

	startTime time.Time
	interval  time.Duration
	stopCh    chan struct{}
}

// NewRuntimeCollector creates a collector that samples the runtime
// every interval once started.
func NewRuntimeCollector(meter metric.Meter, interval time.Duration) (*RuntimeCollector, error) {
	goroutines, err := meter.Int64Gauge(
		"runtime_goroutines",
		metric.WithDescription("Number of active goroutines"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create runtime metrics: %w", err)
	}

	heapAlloc, err := meter.Int64Gauge(
		"runtime_heap_alloc_bytes",
		metric.WithDescription("Bytes of allocated heap objects"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create runtime metrics: %w", err)
	}

	heapSys, err := meter.Int64Gauge(
		"runtime_heap_sys_bytes",
		metric.WithDescription("Bytes of heap memory obtained from the OS"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create runtime metrics: %w", err)
	}

	gcPause, err := meter.Float64Histogram(
		"runtime_gc_pause_seconds",
		metric.WithDescription("Garbage collection pause duration"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create runtime metrics: %w", err)
	}

	uptime, err := meter.Float64Gauge(
		"runtime_uptime_seconds",
		metric.WithDescription("Process uptime in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create runtime metrics: %w", err)
	}

	return &RuntimeCollector{
		goroutines: goroutines,
		heapAlloc:  heapAlloc,
		heapSys:    heapSys,
		gcPause:    gcPause,
		uptime:     uptime,
		startTime:  time.Now(),
		interval:   interval,
		stopCh:     make(chan struct{}),
	}, nil
}

// Start begins periodic collection until Stop is called or the context
// is cancelled.
func (rc *RuntimeCollector) Start(ctx context.Context) {
	ticker := time.NewTicker(rc.interval)
	defer ticker.Stop()

	rc.record(ctx)

	for {
		select {
		case <-ticker.C:
			rc.record(ctx)
		case <-rc.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Stop stops the collector.
func (rc *RuntimeCollector) Stop() {
	close(rc.stopCh)
}

// Snapshot returns the current runtime statistics.
func (rc *RuntimeCollector) Snapshot() RuntimeStats {
	return CollectRuntimeStats(rc.startTime)
}

func (rc *RuntimeCollector) record(ctx context.Context) {
	stats := CollectRuntimeStats(rc.startTime)

	rc.goroutines.Record(ctx, int64(stats.Goroutines))
	rc.heapAlloc.Record(ctx, int64(stats.HeapAlloc))
	rc.heapSys.Record(ctx, int64(stats.HeapSys))
	rc.uptime.Record(ctx, stats.Uptime.Seconds())

	if stats.LastGCPause > 0 {
		rc.gcPause.Record(ctx, stats.LastGCPause.Seconds())
	}
}
