package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/staffdex/internal/config"
	dbRedis "github.com/kailas-cloud/staffdex/internal/db/redis"
	"github.com/kailas-cloud/staffdex/internal/domain/match"
	logpkg "github.com/kailas-cloud/staffdex/internal/logger"
	"github.com/kailas-cloud/staffdex/internal/metrics"
	analyticsrepo "github.com/kailas-cloud/staffdex/internal/repository/analytics"
	cacherepo "github.com/kailas-cloud/staffdex/internal/repository/cache"
	ratelimitrepo "github.com/kailas-cloud/staffdex/internal/repository/ratelimit"
	recordsrepo "github.com/kailas-cloud/staffdex/internal/repository/records"
	chiTransport "github.com/kailas-cloud/staffdex/internal/transport/chi"
	analyticsuc "github.com/kailas-cloud/staffdex/internal/usecase/analytics"
	healthuc "github.com/kailas-cloud/staffdex/internal/usecase/health"
	searchuc "github.com/kailas-cloud/staffdex/internal/usecase/search"
	"github.com/kailas-cloud/staffdex/internal/version"
)

// analyticsRetention bounds how long daily counters are kept.
const analyticsRetention = 90 * 24 * time.Hour

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting staffdex API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("cache_addrs", cfg.Cache.Addrs),
	)

	// Cache store (Redis/Valkey over RESP)
	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Cache.Addrs,
		Password: cfg.Cache.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create cache store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Cache.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Cache store not ready", zap.Error(err))
	}
	logger.Info("Connected to cache store")

	// Employee record source (Postgres)
	pool, err := recordsrepo.NewPool(ctx, cfg.Records.DSN)
	if err != nil {
		logger.Fatal("Failed to connect to record source", zap.Error(err))
	}
	defer pool.Close()
	logger.Info("Connected to record source")

	// Register search metrics explicitly (no init())
	metrics.RegisterSearchMetrics()

	// Repositories
	recordsRepo := recordsrepo.New(pool)
	cacheRepo := cacherepo.New(store, cfg.Cache.KeyPrefix, cfg.CacheTTL(), logger)
	countersRepo := analyticsrepo.New(store, cfg.Cache.KeyPrefix, analyticsRetention)
	limiter := ratelimitrepo.New(store, cfg.Cache.KeyPrefix,
		int64(cfg.RateLimit.RequestsPerWindow), cfg.RateWindow(), logger)

	// Use case services
	analyticsSvc := analyticsuc.New(countersRepo, logger)
	searchSvc := searchuc.New(recordsRepo, cacheRepo, analyticsSvc, logger).
		WithLimits(cfg.Search.LowResultsThreshold, cfg.Search.SuggestionFloor).
		WithFetchPolicy(cfg.FetchTimeout(), cfg.RetryBackoff()).
		WithMetrics(metrics.SearchCacheTotal, metrics.SearchDuration)
	healthSvc := healthuc.New(store, recordsRepo)

	// HTTP server
	server := chiTransport.NewServer(searchSvc, analyticsSvc, healthSvc, logger).
		WithSearchDefaults(chiTransport.SearchDefaults{
			MaxQueryLength:  cfg.Search.MaxQueryLength,
			DefaultPageSize: cfg.Search.DefaultPageSize,
			MaxPageSize:     cfg.Search.MaxPageSize,
			FuzzyThreshold:  cfg.Search.FuzzyThreshold,
			Weights: match.Weights{
				Exact:   cfg.Search.ExactWeight,
				Fuzzy:   cfg.Search.FuzzyWeight,
				Partial: cfg.Search.PartialWeight,
			},
		})

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.TenantAuthMiddleware(cfg.Auth.Keys))
	r.Use(chiTransport.RateLimitMiddleware(limiter))
	r.Use(metrics.Middleware())
	server.RegisterRoutes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
