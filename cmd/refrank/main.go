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

	"github.com/refdesk/refrank/internal/config"
	"github.com/refdesk/refrank/internal/db"
	dbMemory "github.com/refdesk/refrank/internal/db/memory"
	dbRedis "github.com/refdesk/refrank/internal/db/redis"
	logpkg "github.com/refdesk/refrank/internal/logger"
	"github.com/refdesk/refrank/internal/metrics"
	"github.com/refdesk/refrank/internal/repository/geocache"
	providerrepo "github.com/refdesk/refrank/internal/repository/provider"
	usagerepo "github.com/refdesk/refrank/internal/repository/usage"
	chiTransport "github.com/refdesk/refrank/internal/transport/chi"
	"github.com/refdesk/refrank/internal/transport/nominatim"
	healthuc "github.com/refdesk/refrank/internal/usecase/health"
	rankuc "github.com/refdesk/refrank/internal/usecase/rank"
	resolveuc "github.com/refdesk/refrank/internal/usecase/resolve"
	sessionuc "github.com/refdesk/refrank/internal/usecase/session"
	usageuc "github.com/refdesk/refrank/internal/usecase/usage"
	"github.com/refdesk/refrank/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting refrank API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.String("dataset", cfg.Dataset.Path),
	)

	// Create key-value store based on driver
	var store db.Store
	switch cfg.Database.Driver {
	case "redis":
		store, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Database.Addrs,
			Password: cfg.Database.Password,
		})
	case "memory":
		store = dbMemory.NewStore()
	default:
		logger.Fatal("Unknown database driver", zap.String("driver", cfg.Database.Driver))
	}
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	// Wait for database to be ready
	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register geocoding metrics explicitly (no init())
	metrics.RegisterGeocodeMetrics()

	// Provider dataset snapshot
	dataset, err := providerrepo.New(cfg.Dataset.Path, cfg.Dataset.Format, logger)
	if err != nil {
		logger.Fatal("Invalid dataset configuration", zap.Error(err))
	}
	if err := dataset.Load(ctx); err != nil {
		logger.Fatal("Failed to load provider dataset", zap.Error(err))
	}
	info, _ := dataset.Info()
	logger.Info("Provider dataset loaded",
		zap.String("path", info.Path),
		zap.String("format", info.Format),
		zap.Int("rows", info.Rows),
		zap.Int("skipped", info.Skipped),
	)

	// Single CallBudget shared across the geocoder chain and usage service.
	var budget *resolveuc.CallBudget
	budgetCfg := cfg.Geocoder.Budget
	if budgetCfg.DailyCallLimit > 0 || budgetCfg.MonthlyCallLimit > 0 {
		action := resolveuc.BudgetActionWarn
		if budgetCfg.Action == "reject" {
			action = resolveuc.BudgetActionReject
		}
		budget = resolveuc.NewCallBudget(
			budgetCfg.DailyCallLimit, budgetCfg.MonthlyCallLimit, action, logger,
		)
		// Connect persistence store — loads current counters from DB.
		usageStore := usagerepo.New(store, 48*time.Hour, 62*24*time.Hour)
		budget.WithStore(ctx, usageStore)
	}

	// Pass nil interface (not typed nil pointer!) if budget is not configured.
	// Go gotcha: (*CallBudget)(nil) wrapped in BudgetChecker != nil.
	var budgetChecker resolveuc.BudgetChecker
	if budget != nil {
		budgetChecker = budget
	}

	// Geocoder chain — composition root:
	// Nominatim -> Throttled (pacing, retries, budget) -> Cached
	geocoder := nominatim.NewClient(&nominatim.Config{
		BaseURL:   cfg.Geocoder.BaseURL,
		UserAgent: cfg.Geocoder.UserAgent,
		Timeout:   time.Duration(cfg.Geocoder.TimeoutSec) * time.Second,
		Logger:    logger,
	})
	throttled := resolveuc.NewThrottled(
		geocoder,
		time.Duration(cfg.Geocoder.MinIntervalMS)*time.Millisecond,
		cfg.Geocoder.MaxAttempts,
		budgetChecker,
		logger,
	)
	cached := geocache.New(throttled, store, metrics.GeocodeCacheTotal, logger)
	logger.Info("Geocoder created",
		zap.String("base_url", cfg.Geocoder.BaseURL),
		zap.Int("min_interval_ms", cfg.Geocoder.MinIntervalMS),
		zap.Int("max_attempts", cfg.Geocoder.MaxAttempts),
	)

	// Create use case services
	resolveSvc := resolveuc.New(cached, time.Duration(cfg.Geocoder.TimeoutSec)*time.Second, logger)
	rankSvc := rankuc.New(dataset, logger)
	sessions := sessionuc.NewManager(
		resolveSvc, rankSvc,
		time.Duration(cfg.Session.TTLSec)*time.Second,
		cfg.Session.MaxSessions,
		logger,
	)

	// Usage service — reads from shared CallBudget
	var budgetReader usageuc.BudgetReader
	if budget != nil {
		budgetReader = budget
	}
	usageSvc := usageuc.New(budgetReader)

	// Health service
	healthSvc := healthuc.New(store, dataset, geocoder)

	// Create chi server
	server := chiTransport.NewServer(
		sessions, resolveSvc, dataset, cached, usageSvc, healthSvc,
		chiTransport.SearchDefaults{
			MaxRadiusMiles:    cfg.Search.MaxRadiusMiles,
			MinReferrals:      cfg.Search.MinReferrals,
			RecencyWindowDays: cfg.Search.RecencyWindowDays,
			Limit:             cfg.Search.DefaultLimit,
		},
		logger,
	)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Routes(r)

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

			// Set X-Request-ID in response header
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
