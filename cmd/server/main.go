package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/kevin07696/collections-service/internal/adapters/postgres"
	"github.com/kevin07696/collections-service/internal/bootstrap"
	"github.com/kevin07696/collections-service/internal/config"
	cronHandler "github.com/kevin07696/collections-service/internal/handlers/cron"
	paymentHandler "github.com/kevin07696/collections-service/internal/handlers/payment"
	webhookHandler "github.com/kevin07696/collections-service/internal/handlers/webhook"
	internalmw "github.com/kevin07696/collections-service/internal/middleware"
	"github.com/kevin07696/collections-service/pkg/middleware"
	"github.com/kevin07696/collections-service/pkg/observability"
	"github.com/kevin07696/collections-service/pkg/resilience"
	"github.com/kevin07696/collections-service/pkg/shutdown"
)

const (
	serviceName       = "collections-service"
	webhookPath       = "/webhooks/c6bank/pix"
	shutdownTimeout   = 30 * time.Second
	poolMonitorPeriod = 30 * time.Second
	healthProbePeriod = 10 * time.Second
)

func main() {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := bootstrap.NewLogger(cfg, serviceName)
	defer logger.Sync()

	logger.Info("Starting collections service",
		zap.String("environment", cfg.Environment),
		zap.String("gateway_environment", cfg.Gateway.Environment),
	)

	if err := run(cfg, logger); err != nil {
		logger.Fatal("Service stopped with error", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	loc, err := cfg.Billing.Location()
	if err != nil {
		return err
	}

	shutdowns := shutdown.NewManager(logger, shutdownTimeout)

	pool, err := bootstrap.NewPool(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	shutdowns.RegisterNoErr("database", pool.Close)
	postgres.StartPoolMonitoring(ctx, pool, poolMonitorPeriod, logger)

	gateway, err := bootstrap.NewGatewayClient(ctx, cfg, logger)
	if err != nil {
		pool.Close()
		return fmt.Errorf("initialize gateway client: %w", err)
	}

	deps, err := initDependencies(bootstrap.NewServices(pool, gateway, cfg, loc, logger), cfg, loc, logger)
	if err != nil {
		pool.Close()
		return err
	}

	// Health
	healthChecker := observability.NewHealthChecker(pool)
	healthChecker.AddCheck("gateway", func(ctx context.Context) error {
		_, err := gateway.AccessToken(ctx)
		return err
	})
	metricsServer := observability.StartMetricsServer(strconv.Itoa(cfg.Server.MetricsPort), healthChecker, logger)
	shutdowns.Register("metrics", func(ctx context.Context) error {
		return observability.ShutdownMetricsServer(ctx, metricsServer)
	})

	// gRPC carries health and reflection for infrastructure health checks
	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			observability.UnaryServerInterceptor(),
			loggingInterceptor(logger),
			recoveryInterceptor(logger),
		),
	)
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	reflection.Register(grpcServer)
	go watchHealth(ctx, healthChecker, healthServer)

	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Server.GRPCPort))
	if err != nil {
		pool.Close()
		return fmt.Errorf("listen grpc: %w", err)
	}
	go func() {
		logger.Info("gRPC server listening", zap.String("address", listener.Addr().String()))
		if err := grpcServer.Serve(listener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			logger.Error("gRPC server failed", zap.Error(err))
			cancel()
		}
	}()
	shutdowns.Register("grpc", func(ctx context.Context) error {
		healthServer.Shutdown()
		stopped := make(chan struct{})
		go func() {
			grpcServer.GracefulStop()
			close(stopped)
		}()
		select {
		case <-stopped:
			return nil
		case <-ctx.Done():
			grpcServer.Stop()
			return ctx.Err()
		}
	})

	// REST API, webhook and cron
	gwMux := runtime.NewServeMux()
	if err := deps.paymentHandler.RegisterRoutes(gwMux); err != nil {
		pool.Close()
		return fmt.Errorf("register payment routes: %w", err)
	}

	rateLimiter := middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst, logger)
	shutdowns.RegisterNoErr("rate_limiter", rateLimiter.Shutdown)

	httpMux := http.NewServeMux()
	httpMux.Handle("/api/", deps.serviceAuth.Middleware(gwMux))
	httpMux.HandleFunc(webhookPath, observability.InstrumentHandler("gateway_notification",
		rateLimiter.HTTPHandlerFunc(deps.callbackAuth.Middleware(deps.notificationHandler.HandleNotification))))
	httpMux.HandleFunc("/cron/reconcile-pending", observability.InstrumentHandler("cron_reconcile_pending",
		deps.reconcileCronHandler.ReconcilePending))
	httpMux.HandleFunc("/cron/health", deps.reconcileCronHandler.HealthCheck)

	securityHeaders := internalmw.NewSecurityHeaders(!cfg.IsProduction())
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:           securityHeaders.Middleware(httpMux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("HTTP server listening",
			zap.Int("port", cfg.Server.HTTPPort),
			zap.String("webhook_path", webhookPath),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server failed", zap.Error(err))
			cancel()
		}
	}()
	shutdowns.RegisterHTTPServer("http", httpServer)

	return shutdowns.WaitForShutdown(ctx)
}

// Dependencies holds the wired handlers
type Dependencies struct {
	paymentHandler       *paymentHandler.Handler
	notificationHandler  *webhookHandler.NotificationHandler
	reconcileCronHandler *cronHandler.ReconcileHandler
	callbackAuth         *internalmw.GatewayCallbackAuth
	serviceAuth          *internalmw.ServiceAuth
}

// initDependencies builds the HTTP handlers over the services
func initDependencies(services *bootstrap.Services, cfg *config.Config, loc *time.Location, logger *zap.Logger) (*Dependencies, error) {
	timeouts := resilience.DefaultTimeoutConfig()
	if cfg.Gateway.Timeout > 0 {
		timeouts.ExternalAPI = cfg.Gateway.Timeout
	}

	callbackAuth, err := internalmw.NewGatewayCallbackAuth(internalmw.CallbackAuthConfig{
		AllowedIPs:        cfg.Webhook.AllowedIPs,
		HMACSecret:        cfg.Webhook.HMACSecret,
		AllowPrivate:      !cfg.IsProduction(),
		TrustForwardedFor: cfg.Webhook.TrustForwardedFor,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("webhook callback auth: %w", err)
	}

	serviceAuth, err := internalmw.NewServiceAuth(internalmw.ServiceAuthConfig{
		KeysDir:  cfg.APIAuth.KeysDir,
		Audience: cfg.APIAuth.Audience,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("api service auth: %w", err)
	}

	logger.Info("Dependencies initialized",
		zap.String("timezone", loc.String()),
		zap.Int("allowed_callback_sources", len(cfg.Webhook.AllowedIPs)),
	)

	return &Dependencies{
		paymentHandler:       paymentHandler.NewHandler(services.Charges, services.Reconciliation, timeouts, loc, logger),
		notificationHandler:  webhookHandler.NewNotificationHandler(services.Reconciliation, timeouts, logger),
		reconcileCronHandler: cronHandler.NewReconcileHandler(services.Reconciliation, timeouts, logger, cfg.Cron.Secret),
		callbackAuth:         callbackAuth,
		serviceAuth:          serviceAuth,
	}, nil
}

// watchHealth mirrors the dependency checks into the gRPC health service
func watchHealth(ctx context.Context, checker *observability.HealthChecker, server *health.Server) {
	ticker := time.NewTicker(healthProbePeriod)
	defer ticker.Stop()

	for {
		status := healthpb.HealthCheckResponse_SERVING
		if checker.Check(ctx).Status != "healthy" {
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
		server.SetServingStatus("", status)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Interceptors

func loggingInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		start := time.Now()

		resp, err := handler(ctx, req)

		if err != nil {
			logger.Error("gRPC request failed",
				zap.String("method", info.FullMethod),
				zap.Duration("duration", time.Since(start)),
				zap.Error(err),
			)
		} else {
			logger.Debug("gRPC request",
				zap.String("method", info.FullMethod),
				zap.Duration("duration", time.Since(start)),
			)
		}

		return resp, err
	}
}

func recoveryInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (resp interface{}, err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("Panic recovered in gRPC handler",
					zap.String("method", info.FullMethod),
					zap.Any("panic", r),
					zap.Stack("stack"),
				)
				err = fmt.Errorf("internal server error")
			}
		}()

		return handler(ctx, req)
	}
}
