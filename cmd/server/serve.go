package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"volunteerhub/internal/account"
	"volunteerhub/internal/activity"
	"volunteerhub/internal/events"
	"volunteerhub/internal/grpcserver"
	internalhttp "volunteerhub/internal/http"
	"volunteerhub/internal/jobs"
	"volunteerhub/internal/otel"
	"volunteerhub/internal/session"
)

func (a *app) newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the cleanup job and the optional gRPC endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context())
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	cfg := a.cfg

	shutdownTracing, err := otel.Init(ctx, serviceName, version, cfg.OTLPEndpoint)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(shutdownCtx)
	}()

	pool, store, err := a.openStore(ctx, cfg.MigrateOnStart)
	if err != nil {
		return err
	}
	defer pool.Close()

	var cacheClient *redis.Client
	if cfg.RedisAddr != "" {
		cacheClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer cacheClient.Close()
		if err := cacheClient.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unavailable, session cache misses will fall through to postgres")
		}
	}

	var publisher *events.Publisher
	if cfg.NATSURL != "" {
		publisher, err = events.Connect(cfg.NATSURL, nats.Name(serviceName))
		if err != nil {
			log.Warn().Err(err).Str("url", cfg.NATSURL).Msg("nats unavailable, domain events disabled")
			publisher = nil
		}
		defer publisher.Close()
	}

	sessions := session.NewManager(store, session.Options{
		Secret:   cfg.JWTSecret,
		Issuer:   cfg.JWTIssuer,
		TTL:      cfg.TokenTTL,
		Redis:    cacheClient,
		CacheTTL: cfg.SessionCacheTTL,
	})
	accounts := account.NewManager(store, sessions)
	activities := activity.NewManager(store, publisher)

	jobs.StartCleanupJob(ctx, cfg, sessions, accounts)

	server := internalhttp.NewServer(cfg, store, sessions, accounts, activities)
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Str("version", version).Msg("volunteerhub listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var rpc *grpcserver.Server
	if cfg.GRPCAddr != "" {
		rpc, err = grpcserver.New(cfg.ServiceAuthToken)
		if err != nil {
			return err
		}
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			return err
		}
		rpc.WatchReadiness(ctx, store, 10*time.Second)
		go func() {
			log.Info().Str("addr", cfg.GRPCAddr).Msg("grpc listening")
			if err := rpc.GRPC.Serve(lis); err != nil {
				errCh <- err
			}
		}()
	}

	select {
	case <-ctx.Done():
	case err := <-errCh:
		log.Error().Err(err).Msg("server stopped unexpectedly")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if rpc != nil {
		rpc.GRPC.GracefulStop()
	}
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}
	log.Info().Msg("volunteerhub stopped")
	return nil
}
