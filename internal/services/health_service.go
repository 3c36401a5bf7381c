package services

import (
	"context"
	"log/slog"
	"runtime"
	"time"
)

// HealthMessage is the body of GET /health.
const HealthMessage = "Application is running."

// TableStatsProvider reports store statistics.
type TableStatsProvider interface {
	Stats() Stats
}

// ClientCounter reports connected websocket clients.
type ClientCounter interface {
	ClientCount() int
}

// HealthService provides health check functionality
type HealthService struct {
	version   string
	store     TableStatsProvider
	clients   ClientCounter
	startTime time.Time
	logger    *slog.Logger
}

// HealthStatus represents the readiness response
type HealthStatus struct {
	Status    string                   `json:"status"`
	Timestamp time.Time                `json:"timestamp"`
	Version   string                   `json:"version"`
	Services  map[string]ServiceHealth `json:"services,omitempty"`
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Details interface{} `json:"details,omitempty"`
}

// NewHealthService creates a new health service. clients may be nil when
// the change feed is disabled.
func NewHealthService(version string, store TableStatsProvider, clients ClientCounter, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}

	return &HealthService{
		version:   version,
		store:     store,
		clients:   clients,
		startTime: time.Now(),
		logger:    logger.With(slog.String("component", "health_service")),
	}
}

// HealthCheck returns the liveness message.
func (hs *HealthService) HealthCheck(ctx context.Context) map[string]string {
	return map[string]string{"message": HealthMessage}
}

// ReadinessCheck reports ready once the table has been loaded from the seed.
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "ready",
		Timestamp: time.Now(),
		Version:   hs.version,
		Services:  make(map[string]ServiceHealth, 2),
	}

	stats := hs.store.Stats()
	table := ServiceHealth{Status: "ready", Message: "Table loaded", Details: stats}
	if !stats.Loaded {
		table.Status = "not_ready"
		table.Message = "Seed file not loaded"
		status.Status = "not_ready"
	}
	status.Services["table"] = table

	if hs.clients != nil {
		status.Services["websocket"] = ServiceHealth{
			Status:  "ready",
			Details: map[string]int{"clients": hs.clients.ClientCount()},
		}
	}

	if status.Status != "ready" {
		hs.logger.WarnContext(ctx, "readiness check failed", slog.String("seed", stats.Seed))
	}
	return status
}

// Version returns version information
func (hs *HealthService) Version() map[string]interface{} {
	return map[string]interface{}{
		"version":    hs.version,
		"go_version": runtime.Version(),
		"os":         runtime.GOOS,
		"arch":       runtime.GOARCH,
		"uptime":     time.Since(hs.startTime).Seconds(),
		"start_time": hs.startTime.Format(time.RFC3339),
	}
}
