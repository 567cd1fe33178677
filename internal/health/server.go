// Package health exposes the standard gRPC health service so a supervisor
// can probe the broker without speaking WebSocket.
package health

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
)

// Service is the name probes use for the broker itself. The empty name
// reports the process as a whole.
const Service = "print_relay.Broker"

type Server struct {
	grpcServer *grpc.Server
	health     *health.Server
	port       int

	mu       sync.Mutex
	listener net.Listener
}

func NewServer(port int) *Server {
	hs := health.NewServer()
	hs.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	hs.SetServingStatus(Service, grpc_health_v1.HealthCheckResponse_NOT_SERVING)

	grpcServer := grpc.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, hs)

	return &Server{
		grpcServer: grpcServer,
		health:     hs,
		port:       port,
	}
}

// Listen binds the port. Port 0 picks a free port.
func (s *Server) Listen() error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", s.port))
	if err != nil {
		return fmt.Errorf("failed to listen on port %d: %w", s.port, err)
	}

	s.mu.Lock()
	s.listener = lis
	s.mu.Unlock()
	return nil
}

// Addr is only valid after Listen.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Start serves until Stop. It calls Listen if that has not happened yet.
func (s *Server) Start() error {
	if s.Addr() == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}

	slog.Info("Starting gRPC health server", "address", s.Addr().String())

	if err := s.grpcServer.Serve(s.listener); err != nil {
		return fmt.Errorf("failed to serve gRPC health: %w", err)
	}
	return nil
}

func (s *Server) SetServing(serving bool) {
	status := grpc_health_v1.HealthCheckResponse_NOT_SERVING
	if serving {
		status = grpc_health_v1.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(Service, status)
}

func (s *Server) Stop(ctx context.Context) error {
	slog.Info("Stopping gRPC health server")
	s.health.Shutdown()

	stopped := make(chan struct{})
	go func() {
		s.grpcServer.GracefulStop()
		close(stopped)
	}()

	select {
	case <-stopped:
		slog.Info("gRPC health server stopped gracefully")
	case <-ctx.Done():
		slog.Warn("gRPC health server stop timeout, forcing shutdown")
		s.grpcServer.Stop()
	}

	return nil
}

func (s *Server) StopWithTimeout(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.Stop(ctx)
}
