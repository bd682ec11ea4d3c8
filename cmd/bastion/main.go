package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/platinummonkey/bastion/pkg/api"
	"github.com/platinummonkey/bastion/pkg/audit"
	"github.com/platinummonkey/bastion/pkg/auth"
	"github.com/platinummonkey/bastion/pkg/config"
	"github.com/platinummonkey/bastion/pkg/middleware"
	"github.com/platinummonkey/bastion/pkg/observability"
	"github.com/platinummonkey/bastion/pkg/rbac"
	"github.com/platinummonkey/bastion/pkg/resource"
	"github.com/platinummonkey/bastion/pkg/revocation"
	"github.com/platinummonkey/bastion/pkg/storage/postgres"
)

var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	logger.WithFields(map[string]interface{}{
		"version": version,
		"port":    cfg.Server.Port,
	}).Info("starting bastion")

	ctx, stop := observability.SignalContext(context.Background())
	defer stop()

	shutdown := observability.NewShutdownManager(logger, cfg.Server.ShutdownTimeout)

	otel, err := observability.InitOTel(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
		SampleRatio:    cfg.Observability.OTelSampleRatio,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		return observability.ShutdownOTel(ctx, otel, logger)
	})

	cm, err := postgres.NewConnectionManager(ctx, postgres.ConnectionConfig{
		URL:         cfg.Database.URL,
		MaxConns:    cfg.Database.MaxOpenConns,
		MinConns:    cfg.Database.MaxIdleConns,
		Timeout:     cfg.Database.ConnectTimeout,
		MaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		return err
	}
	shutdown.RegisterShutdownFunc(func(context.Context) error { return cm.Close() })
	db := cm.DB()

	redisClient, err := postgres.NewRedisClient(ctx, postgres.RedisConfig{
		URL:        cfg.Redis.URL,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		MaxRetries: cfg.Redis.MaxRetries,
		PoolSize:   cfg.Redis.PoolSize,
	})
	if err != nil {
		return err
	}
	shutdown.RegisterShutdownFunc(func(context.Context) error { return redisClient.Close() })

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(registry)
		cm.StartStatsRoutine(ctx, 15*time.Second, metrics)
	}

	auditSink := logrus.New()
	auditSink.SetOutput(os.Stdout)
	auditSink.SetFormatter(&logrus.JSONFormatter{})
	auditLogger := audit.NewLogrusLogger(auditSink)

	issuer, err := auth.NewIssuer([]byte(cfg.Auth.JWTSecret),
		auth.WithIssuerName(cfg.Auth.Issuer),
		auth.WithTTL(cfg.Auth.AccessTTL),
	)
	if err != nil {
		return err
	}

	resources := resource.NewStore(db, cfg.RBAC.MaxDepth)
	roles := rbac.NewStore(db)

	var (
		resolver rbac.PermissionResolver = rbac.NewResolver(roles, resources)
		cache    api.PermissionCache
	)
	if cfg.RBAC.CacheSize > 0 {
		cached := rbac.NewCachedResolver(resolver, cfg.RBAC.CacheSize, cfg.RBAC.CacheTTL)
		resolver, cache = cached, cached
	}

	svc := auth.NewService(
		auth.NewSQLUserStore(db),
		resolver,
		issuer,
		auth.NewRefreshTokens(auth.NewSQLRefreshStore(db), cfg.Auth.RefreshTTL, nil),
		revocation.NewRegistry(redisClient, cfg.Auth.AccessTTL, revocation.WithKeyPrefix(cfg.Redis.KeyPrefix)),
		auth.WithLogger(logger),
		auth.WithAuditLogger(auditLogger),
		auth.WithMetrics(metrics),
		auth.WithRefreshRotation(cfg.Auth.RotateRefreshTokens),
	)

	server := api.NewServer(api.Dependencies{
		Session:     svc,
		Resources:   resources,
		Roles:       roles,
		Cache:       cache,
		Permissions: resolver,
		Audit:       auditLogger,
		Logger:      logger,
		Metrics:     metrics,
		LoginLimiter: middleware.NewLoginRateLimitMiddleware(redisClient, &middleware.RateLimitConfig{
			RequestsPerWindow: cfg.Auth.LoginRateLimit,
			WindowDuration:    cfg.Auth.LoginRateWindow,
		}, logger, metrics),
		AllowedOrigins: cfg.Server.AllowedOrigins,
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
		Tracing:        cfg.Observability.OTelEnabled,
	})

	scheduler := cron.New(cron.WithChain(cron.Recover(cron.PrintfLogger(logger.Logrus()))))
	if _, err := scheduler.AddFunc(cfg.Auth.SweepSchedule, func() {
		n, err := svc.SweepExpired(ctx)
		if err != nil {
			logger.WithError(err).Error("refresh token sweep failed")
			return
		}
		logger.WithField("deleted", n).Info("refresh token sweep completed")
	}); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", cfg.Auth.SweepSchedule, err)
	}
	scheduler.Start()
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		select {
		case <-scheduler.Stop().Done():
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})

	apiServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      server,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	opsMux := http.NewServeMux()
	observability.RegisterHealthRoutes(opsMux, observability.NewHealthChecker(db, redisClient, version, metrics))
	if cfg.Observability.MetricsEnabled {
		opsMux.Handle("/metrics", observability.MetricsHandler(registry))
	}
	opsServer := &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, cfg.Server.HealthPort),
		Handler:           opsMux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	shutdown.RegisterServer(apiServer)
	shutdown.RegisterServer(opsServer)

	g, gctx := errgroup.WithContext(ctx)
	for _, srv := range []*http.Server{apiServer, opsServer} {
		srv := srv
		g.Go(func() error {
			logger.WithField("addr", srv.Addr).Info("listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server %s: %w", srv.Addr, err)
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		return shutdown.Shutdown()
	})

	return g.Wait()
}
