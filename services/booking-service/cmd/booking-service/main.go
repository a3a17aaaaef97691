package main

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/md-rashed-zaman/massagebook/libs/auth"
	"github.com/md-rashed-zaman/massagebook/libs/config"
	"github.com/md-rashed-zaman/massagebook/libs/grpcx"
	"github.com/md-rashed-zaman/massagebook/libs/httpx"
	"github.com/md-rashed-zaman/massagebook/libs/metrics"
	otelx "github.com/md-rashed-zaman/massagebook/libs/otel"
	"github.com/md-rashed-zaman/massagebook/libs/runtime"
	"github.com/md-rashed-zaman/massagebook/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/massagebook/services/booking-service/internal/directory"
	"github.com/md-rashed-zaman/massagebook/services/booking-service/internal/handlers"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		panic(err)
	}
	service := config.String("SERVICE_NAME", "booking-service")
	port, err := config.Port("PORT", "8083")
	if err != nil {
		panic(err)
	}
	grpcPort := config.String("GRPC_PORT", "")
	if grpcPort != "" {
		if grpcPort, err = config.Port("GRPC_PORT", ""); err != nil {
			panic(err)
		}
	}
	logger := runtime.NewLoggerWithLevel(service, config.String("LOG_LEVEL", "info"), os.Stdout)

	ctx, stop := runtime.SignalContext(context.Background(), logger)
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	deps, err := openBackends(ctx, logger)
	if err != nil {
		logger.Error("backend setup failed", "err", err)
		os.Exit(1)
	}
	defer deps.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	bookingMetrics := metrics.NewBookingMetrics(reg)

	secret := config.String("JWT_SECRET", "")
	if secret == "" {
		logger.Warn("JWT_SECRET is not set; login and bearer tokens are disabled")
	}
	accounts := directory.NewAccounts(deps.directory, secret, config.Duration("JWT_TTL", directory.DefaultTokenTTL))

	mgr := booking.NewManager(deps.store, deps.directory, booking.Options{
		Emitter:     deps.emitter,
		Logger:      logger,
		Metrics:     bookingMetrics,
		HorizonDays: config.Int("AVAILABILITY_HORIZON_DAYS", 0),
	})

	verifier := auth.Verifier{
		Secret:       secret,
		TrustHeaders: config.Bool("AUTH_TRUST_HEADERS", false),
	}
	if jwksURL := config.String("JWKS_URL", ""); jwksURL != "" {
		verifier.JWKS = auth.NewJWKSClient(jwksURL, config.Duration("JWKS_CACHE_SECONDS", 5*time.Minute))
	}

	mux := runtime.NewBaseMuxWithReady(deps.readyChecks...)
	mux.Handle("GET /metrics", metrics.Handler(reg))
	handlers.Register(mux,
		auth.RequireIdentity(verifier),
		handlers.NewAppointmentHandler(mgr, logger),
		handlers.NewProviderHandler(mgr, deps.directory, accounts, logger),
		handlers.NewAuthHandler(accounts, logger),
	)

	httpHandler := httpx.Chain(mux,
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins:   config.List("CORS_ALLOWED_ORIGINS", ""),
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
			AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-Id"},
			AllowCredentials: config.Bool("CORS_ALLOW_CREDENTIALS", false),
			MaxAge:           config.Duration("CORS_MAX_AGE_SECONDS", 10*time.Minute),
		}),
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithRecover(logger),
		rateLimit(deps, logger),
		httpx.WithBodyLimit(int64(config.Int("REQUEST_BODY_LIMIT_BYTES", 1<<20))),
		httpx.WithTimeout(config.Duration("REQUEST_TIMEOUT_SECONDS", 15*time.Second)),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "booking")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	var grpcServer *grpc.Server
	var healthServer *health.Server
	if grpcPort != "" {
		lis, err := net.Listen("tcp", ":"+grpcPort)
		if err != nil {
			logger.Error("grpc listen failed", "err", err)
			os.Exit(1)
		}
		grpcServer = grpcx.NewServer(logger)
		healthServer = grpcx.RegisterHealth(grpcServer, "massagebook.booking")
		go func() {
			logger.Info("grpc health server starting", "addr", lis.Addr().String())
			if err := grpcServer.Serve(lis); err != nil {
				logger.Error("grpc server error", "err", err)
			}
		}()
	}
	go func() {
		logger.Info("http server starting", "addr", srv.Addr, "store", deps.storeDriver)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	if healthServer != nil {
		healthServer.Shutdown()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	if grpcServer != nil {
		grpcServer.GracefulStop()
	}
	logger.Info("http server stopped")
}

func rateLimit(deps *backends, logger *slog.Logger) httpx.Middleware {
	limit := config.Int("RATE_LIMIT_PER_MINUTE", 120)
	window := time.Minute
	if limit <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	if deps.redis != nil {
		return httpx.NewRedisRateLimiter(deps.redis, limit, window, "massagebook:ratelimit:").
			Middleware(logger, config.Bool("RATE_LIMIT_FAIL_OPEN", true))
	}
	logger.Warn("rate limiting is per-process; set REDIS_ADDR to share limits across replicas")
	return httpx.NewRateLimiter(limit, window).Middleware()
}
