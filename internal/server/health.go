package server

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Pinger is a dependency whose reachability decides the health status.
type Pinger func(ctx context.Context) error

// HealthRegistrar exposes grpc.health.v1.Health. The overall status is
// SERVING only while every dependency answers its ping.
type HealthRegistrar struct {
	srv     *health.Server
	pingers map[string]Pinger
	log     *slog.Logger
}

// NewHealthRegistrar creates a health service over named dependencies.
// It starts NOT_SERVING until the first Check.
func NewHealthRegistrar(log *slog.Logger, pingers map[string]Pinger) *HealthRegistrar {
	h := &HealthRegistrar{srv: health.NewServer(), pingers: pingers, log: log}
	h.srv.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	return h
}

func (h *HealthRegistrar) Register(s *grpc.Server) {
	healthpb.RegisterHealthServer(s, h.srv)
}

// Check pings every dependency and updates the status. It reports whether all succeeded.
func (h *HealthRegistrar) Check(ctx context.Context) bool {
	ok := true
	for name, ping := range h.pingers {
		if err := ping(ctx); err != nil {
			h.log.Warn("health check failed", "dependency", name, "err", err)
			ok = false
		}
	}
	status := healthpb.HealthCheckResponse_SERVING
	if !ok {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	h.srv.SetServingStatus("", status)
	return ok
}

// Watch runs Check every interval until ctx is cancelled, then marks the
// server as shutting down.
func (h *HealthRegistrar) Watch(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	h.Check(ctx)
	for {
		select {
		case <-ctx.Done():
			h.srv.Shutdown()
			return
		case <-ticker.C:
			checkCtx, cancel := context.WithTimeout(ctx, interval)
			h.Check(checkCtx)
			cancel()
		}
	}
}
