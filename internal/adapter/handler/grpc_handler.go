package handler

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the name reported through the gRPC health service.
const ServiceName = "restaurant.v1.OrderingService"

// Pinger is a backing store whose reachability decides serving status.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthReporter publishes SERVING only while every dependency answers a ping.
type HealthReporter struct {
	server   *health.Server
	deps     map[string]Pinger
	interval time.Duration
	logger   *zap.Logger
}

func NewHealthReporter(deps map[string]Pinger, interval time.Duration, logger *zap.Logger) *HealthReporter {
	return &HealthReporter{
		server:   health.NewServer(),
		deps:     deps,
		interval: interval,
		logger:   logger,
	}
}

func (h *HealthReporter) Register(s *grpc.Server) {
	grpc_health_v1.RegisterHealthServer(s, h.server)
}

// Check pings every dependency once and updates the serving status.
func (h *HealthReporter) Check(ctx context.Context) bool {
	healthy := true
	for name, dep := range h.deps {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := dep.Ping(pingCtx)
		cancel()
		if err != nil {
			healthy = false
			h.logger.Warn("dependency unhealthy", zap.String("dependency", name), zap.Error(err))
		}
	}

	status := grpc_health_v1.HealthCheckResponse_SERVING
	if !healthy {
		status = grpc_health_v1.HealthCheckResponse_NOT_SERVING
	}
	h.server.SetServingStatus("", status)
	h.server.SetServingStatus(ServiceName, status)
	return healthy
}

// Run checks on every tick until ctx is done.
func (h *HealthReporter) Run(ctx context.Context) {
	h.Check(ctx)

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.Check(ctx)
		}
	}
}

func (h *HealthReporter) Shutdown() {
	h.server.Shutdown()
}
