package services

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"portfolioanalytics/internal/cache"
	"portfolioanalytics/internal/infrastructure"
)

// Component states
const (
	StatusOK       = "ok"
	StatusReady    = "ready"
	StatusNotReady = "not_ready"
	StatusDegraded = "degraded"
)

// ClientCounter reports connected websocket clients
type ClientCounter interface {
	ClientCount() int
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status     string                   `json:"status"`
	Timestamp  time.Time                `json:"timestamp"`
	Version    string                   `json:"version"`
	Uptime     float64                  `json:"uptime_seconds"`
	Components map[string]ServiceHealth `json:"components,omitempty"`
	Runtime    map[string]interface{}   `json:"runtime,omitempty"`
}

// ServiceHealth represents individual component health
type ServiceHealth struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Details interface{} `json:"details,omitempty"`
}

// HealthService provides health check functionality
type HealthService struct {
	version    string
	dataSource string
	cache      cache.Cache
	snapshots  SnapshotStore
	hub        ClientCounter
	startTime  time.Time
	logger     *slog.Logger
}

// NewHealthService creates a health service. Any dependency may be nil and
// is then reported as disabled.
func NewHealthService(version, dataSource string, c cache.Cache, snapshots SnapshotStore, hub ClientCounter, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthService{
		version:    version,
		dataSource: dataSource,
		cache:      c,
		snapshots:  snapshots,
		hub:        hub,
		startTime:  time.Now(),
		logger:     logger.With(slog.String("component", "health_service")),
	}
}

// HealthCheck returns the liveness summary served at /health
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    StatusOK,
		Timestamp: time.Now().UTC(),
		Version:   hs.version,
		Uptime:    time.Since(hs.startTime).Seconds(),
	}
}

// ReadinessCheck checks every component; the overall status is degraded
// when any is not ready
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	status := hs.HealthCheck(ctx)
	status.Components = map[string]ServiceHealth{
		"cache":      hs.checkCache(ctx),
		"repository": hs.checkRepository(ctx),
		"websocket":  hs.checkWebSocket(),
		"datasource": {Status: StatusReady, Message: hs.dataSource},
	}

	for name, c := range status.Components {
		if c.Status != StatusReady {
			status.Status = StatusDegraded
			hs.logger.WarnContext(ctx, "component not ready",
				slog.String("name", name),
				slog.String("message", c.Message))
		}
	}
	return status
}

// Detailed adds runtime statistics to the readiness check
func (hs *HealthService) Detailed(ctx context.Context) HealthStatus {
	status := hs.ReadinessCheck(ctx)
	stats := infrastructure.CollectSystemStats(hs.startTime)
	status.Runtime = map[string]interface{}{
		"go_version": runtime.Version(),
		"os":         runtime.GOOS,
		"arch":       runtime.GOARCH,
		"goroutines": stats.GoRoutines,
		"cpus":       stats.CPUCount,
		"heap_bytes": stats.HeapAlloc,
	}
	return status
}

type pinger interface {
	Ping(ctx context.Context) error
}

func (hs *HealthService) checkCache(ctx context.Context) ServiceHealth {
	if hs.cache == nil {
		return ServiceHealth{Status: StatusReady, Message: "disabled"}
	}
	if p, ok := hs.cache.(pinger); ok {
		if err := p.Ping(ctx); err != nil {
			return ServiceHealth{Status: StatusNotReady, Message: fmt.Sprintf("cache unreachable: %v", err)}
		}
	}
	return ServiceHealth{Status: StatusReady, Details: hs.cache.Stats()}
}

func (hs *HealthService) checkRepository(ctx context.Context) ServiceHealth {
	if hs.snapshots == nil {
		return ServiceHealth{Status: StatusReady, Message: "disabled"}
	}
	keys, err := hs.snapshots.List(ctx, EquitySnapshotPrefix)
	if err != nil {
		return ServiceHealth{Status: StatusNotReady, Message: fmt.Sprintf("repository error: %v", err)}
	}
	return ServiceHealth{Status: StatusReady, Details: map[string]int{"snapshots": len(keys)}}
}

func (hs *HealthService) checkWebSocket() ServiceHealth {
	if hs.hub == nil {
		return ServiceHealth{Status: StatusReady, Message: "disabled"}
	}
	return ServiceHealth{Status: StatusReady, Details: map[string]int{"clients": hs.hub.ClientCount()}}
}
