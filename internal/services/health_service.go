package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"

	"segmentcli/pkg/contracts"
)

// Pinger is implemented by dependencies that can report reachability
type Pinger interface {
	Ping(ctx context.Context) error
}

// ClientCounter reports connected WebSocket clients
type ClientCounter interface {
	ClientCount() int
}

// HealthService provides health check functionality
type HealthService struct {
	version   string
	buildTime string
	dataDir   string
	runs      *RunStore
	hub       ClientCounter
	database  Pinger
	startTime time.Time
	logger    *slog.Logger
}

// Health states reported by the checks
const (
	StatusAlive    = "alive"
	StatusReady    = "ready"
	StatusNotReady = "not_ready"
)

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                   `json:"status"`
	Timestamp time.Time                `json:"timestamp"`
	Version   string                   `json:"version"`
	Runtime   map[string]any           `json:"runtime,omitempty"`
	Services  map[string]ServiceHealth `json:"services,omitempty"`
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// NewHealthService creates a health service. hub and database may be nil.
func NewHealthService(version, buildTime, dataDir string, runs *RunStore, hub ClientCounter, database Pinger, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthService{
		version:   version,
		buildTime: buildTime,
		dataDir:   dataDir,
		runs:      runs,
		hub:       hub,
		database:  database,
		startTime: time.Now(),
		logger:    logger.With(slog.String("service", "health")),
	}
}

// LivenessCheck returns liveness status
func (hs *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    StatusAlive,
		Timestamp: time.Now(),
		Version:   hs.version,
		Runtime: map[string]any{
			"uptime":     time.Since(hs.startTime).Seconds(),
			"go_version": runtime.Version(),
			"goroutines": runtime.NumGoroutine(),
		},
	}
}

// ReadinessCheck probes every dependency
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    StatusReady,
		Timestamp: time.Now(),
		Version:   hs.version,
		Services: map[string]ServiceHealth{
			"data": hs.checkDataDir(),
		},
	}

	if hs.runs != nil {
		status.Services["runs"] = ServiceHealth{Status: StatusReady, Message: fmt.Sprintf("%d runs in memory", hs.runs.Len())}
	}
	if hs.hub != nil {
		status.Services["websocket"] = ServiceHealth{Status: StatusReady, Message: fmt.Sprintf("%d clients", hs.hub.ClientCount())}
	}
	if hs.database != nil {
		status.Services["database"] = hs.checkDatabase(ctx)
	}

	for name, svc := range status.Services {
		if svc.Status != StatusReady {
			status.Status = StatusNotReady
			hs.logger.WarnContext(ctx, "dependency not ready",
				slog.String("dependency", name),
				slog.String("message", svc.Message))
		}
	}
	return status
}

// Version returns version information
func (hs *HealthService) Version() contracts.VersionInfo {
	info := contracts.GetVersionInfo(hs.version, hs.buildTime)
	info.StartTime = hs.startTime.Format(time.RFC3339)
	return info
}

func (hs *HealthService) checkDataDir() ServiceHealth {
	if hs.dataDir == "" {
		return ServiceHealth{Status: StatusReady, Message: "no data directory configured"}
	}
	info, err := os.Stat(hs.dataDir)
	if err != nil {
		return ServiceHealth{Status: StatusNotReady, Message: fmt.Sprintf("data directory unavailable: %v", err)}
	}
	if !info.IsDir() {
		return ServiceHealth{Status: StatusNotReady, Message: fmt.Sprintf("%s is not a directory", hs.dataDir)}
	}
	return ServiceHealth{Status: StatusReady}
}

func (hs *HealthService) checkDatabase(ctx context.Context) ServiceHealth {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := hs.database.Ping(ctx); err != nil {
		return ServiceHealth{Status: StatusNotReady, Message: err.Error()}
	}
	return ServiceHealth{Status: StatusReady}
}
