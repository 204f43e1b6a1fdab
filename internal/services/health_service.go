package services

import (
	"context"
	"time"

	"sitekit/internal/infrastructure"
)

// HealthService reports process health and build facts.
type HealthService struct {
	version   string
	buildTime string
	startTime time.Time

	clientCounter func() int
}

// HealthStatus is the health check response.
type HealthStatus struct {
	Status    string         `json:"status"`
	Timestamp time.Time      `json:"timestamp"`
	Version   string         `json:"version"`
	Uptime    string         `json:"uptime"`
	Runtime   map[string]any `json:"runtime,omitempty"`
}

// VersionInfo is the version endpoint response.
type VersionInfo struct {
	Version   string `json:"version"`
	BuildTime string `json:"build_time,omitempty"`
}

// NewHealthService creates a health service. clientCounter reports
// connected feed clients; nil is fine when the toolbar is disabled.
func NewHealthService(version, buildTime string, clientCounter func() int) *HealthService {
	return &HealthService{
		version:       version,
		buildTime:     buildTime,
		startTime:     time.Now(),
		clientCounter: clientCounter,
	}
}

// HealthCheck returns the current health snapshot.
func (s *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	stats := infrastructure.CollectRuntimeStats(s.startTime)

	rt := map[string]any{
		"goroutines": stats.Goroutines,
		"heap_alloc": stats.HeapAlloc,
		"gc_count":   stats.GCCount,
		"num_cpu":    stats.NumCPU,
	}
	if s.clientCounter != nil {
		rt["feed_clients"] = s.clientCounter()
	}

	return HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now(),
		Version:   s.version,
		Uptime:    time.Since(s.startTime).Round(time.Second).String(),
		Runtime:   rt,
	}
}

// Version returns build information.
func (s *HealthService) Version() VersionInfo {
	return VersionInfo{
		Version:   s.version,
		BuildTime: s.buildTime,
	}
}
