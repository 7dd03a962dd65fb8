// Package health exposes the standard gRPC health service backed by a
// journal connectivity check.
package health

import (
	"context"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
)

// JournalService is the service name reported for the activity journal.
const JournalService = "devenglish.Journal"

// Pinger checks a dependency.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server serves grpc.health.v1.Health.
type Server struct {
	grpc     *grpc.Server
	health   *health.Server
	pinger   Pinger
	interval time.Duration
}

// NewServer creates a health server. Overall status starts as SERVING and the
// journal status follows pinger.
func NewServer(pinger Pinger, interval time.Duration) *Server {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	hs := health.NewServer()
	gs := grpc.NewServer(grpc.KeepaliveParams(keepalive.ServerParameters{
		Time:    30 * time.Second,
		Timeout: 10 * time.Second,
	}))
	healthpb.RegisterHealthServer(gs, hs)

	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(JournalService, healthpb.HealthCheckResponse_UNKNOWN)

	return &Server{grpc: gs, health: hs, pinger: pinger, interval: interval}
}

// Serve accepts connections on lis until Stop is called.
func (s *Server) Serve(lis net.Listener) error {
	slog.Info("gRPC health server listening", "addr", lis.Addr().String())
	return s.grpc.Serve(lis)
}

// Check pings the journal once and updates its status.
func (s *Server) Check(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	status := healthpb.HealthCheckResponse_SERVING
	if s.pinger != nil {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := s.pinger.Ping(pingCtx)
		cancel()
		if err != nil {
			slog.Warn("Journal health check failed", "error", err)
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}
	s.health.SetServingStatus(JournalService, status)
	return status
}

// Watch re-checks the journal every interval until ctx is done.
func (s *Server) Watch(ctx context.Context) {
	s.Check(ctx)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.Check(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// Stop marks every service NOT_SERVING and stops the server gracefully.
func (s *Server) Stop() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
}
