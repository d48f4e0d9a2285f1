// Package grpcserver serves the standard gRPC health protocol for the
// planner so orchestrators can probe it.
package grpcserver

import (
	"context"
	"fmt"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/soltixdb/clusterplan/internal/logging"
)

// ServiceName is the health service name reported for the planner
const ServiceName = "clusterplan.Planner"

// CheckFunc reports whether the planner can serve requests
type CheckFunc func(ctx context.Context) error

// Server is the planner's gRPC server
type Server struct {
	address    string
	grpcServer *grpc.Server
	health     *health.Server
	check      CheckFunc
	interval   time.Duration
	logger     *logging.Logger
}

// New creates a server. check is polled every interval; a nil check
// always reports SERVING.
func New(address string, check CheckFunc, interval time.Duration, logger *logging.Logger) *Server {
	if interval <= 0 {
		interval = 10 * time.Second
	}

	hs := health.NewServer()
	gs := grpc.NewServer(
		grpc.MaxRecvMsgSize(1024*1024),
		grpc.MaxSendMsgSize(1024*1024),
	)
	healthpb.RegisterHealthServer(gs, hs)
	reflection.Register(gs)

	s := &Server{
		address:    address,
		grpcServer: gs,
		health:     hs,
		check:      check,
		interval:   interval,
		logger:     logger,
	}
	s.setStatus(healthpb.HealthCheckResponse_NOT_SERVING)
	return s
}

func (s *Server) setStatus(status healthpb.HealthCheckResponse_ServingStatus) {
	s.health.SetServingStatus(ServiceName, status)
	s.health.SetServingStatus("", status)
}

// Probe runs the check once and publishes the resulting status
func (s *Server) Probe(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	status := healthpb.HealthCheckResponse_SERVING
	if s.check != nil {
		if err := s.check(ctx); err != nil {
			s.logger.Warn("Health check failed", "error", err)
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}
	s.setStatus(status)
	return status
}

// Serve serves on lis until Stop is called
func (s *Server) Serve(lis net.Listener) error {
	s.logger.Info("gRPC server starting", "address", lis.Addr().String())
	return s.grpcServer.Serve(lis)
}

// Start listens on the configured address and probes health until ctx is
// cancelled, then stops the server.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.address, err)
	}

	go func() {
		if err := s.Serve(listener); err != nil {
			s.logger.Error("gRPC server error", "error", err)
		}
	}()

	s.watch(ctx)
	s.logger.Info("Shutting down gRPC server")
	s.Stop()
	return nil
}

func (s *Server) watch(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.Probe(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Probe(ctx)
		}
	}
}

// Stop marks the service as shutting down and stops gracefully
func (s *Server) Stop() {
	s.health.Shutdown()
	s.grpcServer.GracefulStop()
}
