package grpcserver

import (
	"context"
	"time"

	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/patric-chuzhbe/twitoff/internal/logger"
)

// ServiceName is reported next to the overall ("") status.
const ServiceName = "twitoff.TwitOff"

// HealthChecker keeps the health server in sync with the storage.
type HealthChecker struct {
	db     pinger
	server *health.Server
}

func NewHealthChecker(db pinger) *HealthChecker {
	return &HealthChecker{
		db:     db,
		server: health.NewServer(),
	}
}

// Server returns the grpc.health.v1 implementation to register.
func (h *HealthChecker) Server() *health.Server {
	return h.server
}

// Check pings the storage once and publishes the result.
func (h *HealthChecker) Check(ctx context.Context) grpc_health_v1.HealthCheckResponse_ServingStatus {
	status := grpc_health_v1.HealthCheckResponse_SERVING
	if err := h.db.Ping(ctx); err != nil {
		logger.Log.Warnw("storage ping failed", "error", err)
		status = grpc_health_v1.HealthCheckResponse_NOT_SERVING
	}

	h.server.SetServingStatus("", status)
	h.server.SetServingStatus(ServiceName, status)

	return status
}

// Run checks the storage every interval until ctx is done, then marks the
// server as shutting down.
func (h *HealthChecker) Run(ctx context.Context, interval time.Duration) {
	h.Check(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.server.Shutdown()
			return
		case <-ticker.C:
			h.Check(ctx)
		}
	}
}
