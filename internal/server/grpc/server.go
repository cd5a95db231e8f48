// Package grpc runs the server's gRPC endpoint. It serves the standard
// health service, fed by periodic pings of the user store and session cache,
// and server reflection.
package grpc

import (
	"context"
	"net"
	"sort"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/logging"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// Pinger is a dependency whose reachability decides the health status.
type Pinger interface {
	Ping(ctx context.Context) error
}

type GRPCServer struct {
	address  string
	logger   logging.Logger
	health   *health.Server
	probes   map[string]Pinger
	interval time.Duration
}

// NewGRPCServer creates a server listening on address. Each probe is
// reported as its own health service name; the overall status ("") is
// SERVING only while every probe answers.
func NewGRPCServer(address string, l logging.Logger, interval time.Duration, probes map[string]Pinger) *GRPCServer {
	return &GRPCServer{
		address:  address,
		logger:   logging.OrNop(l).With("module", "grpc_server"),
		health:   health.NewServer(),
		probes:   probes,
		interval: interval,
	}
}

// Health exposes the health service implementation.
func (s *GRPCServer) Health() healthpb.HealthServer {
	return s.health
}

func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := s.newServer()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		s.watchHealth(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		s.health.Shutdown()
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", listen.Addr().String())

	err = srv.Serve(listen)
	cancel()
	wg.Wait()
	return err
}

// newServer registers the health and reflection services only. The auth use
// cases have no network API.
func (s *GRPCServer) newServer() *grpc.Server {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.loggingInterceptor))
	healthpb.RegisterHealthServer(srv, s.health)
	reflection.Register(srv)
	return srv
}

func (s *GRPCServer) watchHealth(ctx context.Context) {
	s.checkHealth(ctx)
	if s.interval <= 0 {
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.checkHealth(ctx)
		}
	}
}

// checkHealth pings every probe once and publishes the results.
func (s *GRPCServer) checkHealth(ctx context.Context) {
	names := make([]string, 0, len(s.probes))
	for name := range s.probes {
		names = append(names, name)
	}
	sort.Strings(names)

	overall := healthpb.HealthCheckResponse_SERVING
	for _, name := range names {
		status := healthpb.HealthCheckResponse_SERVING
		if err := s.ping(ctx, s.probes[name]); err != nil {
			s.logger.Warn(ctx, "health probe failed", "probe", name, "error", err)
			status = healthpb.HealthCheckResponse_NOT_SERVING
			overall = status
		}
		s.health.SetServingStatus(name, status)
	}
	s.health.SetServingStatus("", overall)
}

func (s *GRPCServer) ping(ctx context.Context, p Pinger) error {
	timeout := s.interval
	if timeout <= 0 {
		timeout = time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return p.Ping(ctx)
}
