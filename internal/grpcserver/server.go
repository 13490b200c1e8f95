// Package grpcserver exposes the internal gRPC endpoint: standard health
// checking that follows database readiness, plus reflection for operators.
package grpcserver

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is the health service name reported alongside the overall status.
const ServiceName = "volunteerhub"

type Pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	GRPC   *grpc.Server
	Health *health.Server
}

// New builds the gRPC server. Every method except health checks requires the
// service token.
func New(serviceToken string) (*Server, error) {
	unary, err := NewServiceAuthUnaryInterceptor(serviceToken)
	if err != nil {
		return nil, err
	}
	stream, err := NewServiceAuthStreamInterceptor(serviceToken)
	if err != nil {
		return nil, err
	}

	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(unary),
		grpc.ChainStreamInterceptor(stream),
	)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	reflection.Register(srv)

	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	return &Server{GRPC: srv, Health: hs}, nil
}

// WatchReadiness pings the database every interval and mirrors the result in
// the health status until ctx is cancelled.
func (s *Server) WatchReadiness(ctx context.Context, db Pinger, interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	s.probe(ctx, db)
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				s.Health.Shutdown()
				return
			case <-ticker.C:
				s.probe(ctx, db)
			}
		}
	}()
}

func (s *Server) probe(ctx context.Context, db Pinger) {
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	next := healthpb.HealthCheckResponse_SERVING
	if err := db.Ping(pingCtx); err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("grpc readiness probe failed")
		next = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.Health.SetServingStatus("", next)
	s.Health.SetServingStatus(ServiceName, next)
}
