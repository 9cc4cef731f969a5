// Package grpc exposes the storefront health over the standard gRPC health protocol.
package grpc

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the health service name of the storefront state API.
const ServiceName = "storefront.v1.State"

// Pinger reports whether the storage backend is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthReporter keeps the gRPC health status in line with the storage backend.
type HealthReporter struct {
	server   *health.Server
	pinger   Pinger
	interval time.Duration
	timeout  time.Duration
	logger   *slog.Logger
}

// NewHealthReporter creates a reporter that probes pinger every interval.
// A nil pinger is always healthy.
func NewHealthReporter(pinger Pinger, interval time.Duration, logger *slog.Logger) *HealthReporter {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &HealthReporter{
		server:   health.NewServer(),
		pinger:   pinger,
		interval: interval,
		timeout:  min(interval, 5*time.Second),
		logger:   logger.With("component", "grpc_health"),
	}
}

// Register adds the health service to s.
func (h *HealthReporter) Register(s *grpc.Server) {
	healthpb.RegisterHealthServer(s, h.server)
}

// Check probes the backend once and publishes the result.
func (h *HealthReporter) Check(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	status := healthpb.HealthCheckResponse_SERVING
	if h.pinger != nil {
		pingCtx, cancel := context.WithTimeout(ctx, h.timeout)
		defer cancel()
		if err := h.pinger.Ping(pingCtx); err != nil {
			h.logger.WarnContext(ctx, "Storage backend unreachable", "error", err)
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}
	h.server.SetServingStatus("", status)
	h.server.SetServingStatus(ServiceName, status)
	return status
}

// Run probes the backend until ctx is done, then marks every service as not serving.
func (h *HealthReporter) Run(ctx context.Context) error {
	h.Check(ctx)
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			h.server.Shutdown()
			return nil
		case <-ticker.C:
			h.Check(ctx)
		}
	}
}
