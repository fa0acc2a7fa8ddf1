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

	"github.com/driftline/contentdex/internal/config"
	"github.com/driftline/contentdex/internal/formatter"
	"github.com/driftline/contentdex/internal/hooks"
	"github.com/driftline/contentdex/internal/intercept"
	logpkg "github.com/driftline/contentdex/internal/logger"
	"github.com/driftline/contentdex/internal/metrics"
	"github.com/driftline/contentdex/internal/prepare"
	"github.com/driftline/contentdex/internal/reindex"
	"github.com/driftline/contentdex/internal/repository/indexmeta"
	"github.com/driftline/contentdex/internal/source"
	"github.com/driftline/contentdex/internal/syncer"
	"github.com/driftline/contentdex/internal/tenant"
	chiTransport "github.com/driftline/contentdex/internal/transport/chi"
	"github.com/driftline/contentdex/internal/transport/elastic"
	"github.com/driftline/contentdex/internal/version"
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

	logger.Info("Starting contentdex API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("engine_addrs", cfg.Engine.Addresses),
		zap.String("index_prefix", cfg.Index.Prefix),
	)

	engine, err := elastic.New(elastic.Config{
		Addresses: cfg.Engine.Addresses,
		Username:  cfg.Engine.Username,
		Password:  cfg.Engine.Password,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to create search engine client", zap.Error(err))
	}

	// The read path degrades to fallback when the engine is down, so a
	// failed startup ping is a warning, not a fatal.
	ctx := context.Background()
	if err := engine.Ping(ctx); err != nil {
		logger.Warn("Search engine not reachable at startup", zap.Error(err))
	} else {
		logger.Info("Connected to search engine")
	}

	kv, err := indexmeta.NewRedisKV(indexmeta.RedisConfig{
		Addrs:    cfg.Redis.Addrs,
		Username: cfg.Redis.Username,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		logger.Fatal("Failed to create checkpoint store", zap.Error(err))
	}
	defer kv.Close()

	if err := kv.Ping(ctx); err != nil {
		logger.Fatal("Checkpoint store not ready", zap.Error(err))
	}
	logger.Info("Connected to checkpoint store")

	src, err := source.New(source.Config{
		BaseURL:    cfg.Source.BaseURL,
		APIKey:     cfg.Source.APIKey,
		TimeoutSec: cfg.Source.TimeoutSec,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to create host source client", zap.Error(err))
	}

	// Register core metrics explicitly (no init())
	metrics.RegisterCoreMetrics()

	registry := hooks.NewRegistry()
	if len(cfg.Search.Weighting) > 0 {
		registry.Register(hooks.PointWeighting, weightingFilter(cfg.Search.Weighting))
	}

	router, err := tenant.NewRouter(cfg.Index.Prefix)
	if err != nil {
		logger.Fatal("Failed to create tenant router", zap.Error(err))
	}

	fmtSvc := formatter.New(formatter.Config{
		DefaultPerPage:    cfg.Search.DefaultPageSize,
		MaxResultWindow:   cfg.Search.MaxResultWindow,
		PrimaryType:       cfg.Search.PrimaryType,
		ProtectedStatuses: cfg.Search.ProtectedStatuses,
		SearchFields:      cfg.Search.SearchFields,
	}, registry, logger)

	// The sync manager guards the preparer against change-event feedback,
	// but the preparer is also the manager's document builder. The
	// indirection breaks the construction cycle.
	guard := &managerSuspender{}
	prep := prepare.New(src, registry, guard, cfg.Sync.TermHierarchy, logger)

	mgr := syncer.New(engine, prep, registry, router, syncer.Config{
		IndexableTypes:    cfg.Index.IndexableTypes,
		IndexableStatuses: cfg.Index.IndexableStatuses,
		BulkSize:          cfg.Sync.BulkSize,
	}, logger)
	guard.m = mgr

	interceptor := intercept.New(fmtSvc, engine, registry, router, tenant.NopSwitcher{}, intercept.Config{
		Enabled:        cfg.Search.Enabled,
		IndexableTypes: cfg.Index.IndexableTypes,
	}, logger)

	checkpoints := indexmeta.NewStore(kv)
	orchestrator := reindex.New(mgr, src, checkpoints, reindex.Config{
		PageSize: cfg.Sync.ReindexPage,
	}, logger)

	server := chiTransport.NewServer(interceptor, mgr, orchestrator, checkpoints, engine, kv, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Register(r)

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

	// Drain whatever the event endpoints queued before the signal landed.
	if report, err := mgr.Flush(context.Background()); err != nil {
		logger.Error("Final flush failed", zap.Error(err), zap.Int("indexed", report.Indexed))
	} else if report.Indexed > 0 {
		logger.Info("Final flush complete", zap.Int("indexed", report.Indexed))
	}

	logger.Info("Server stopped gracefully")
}

// managerSuspender defers the Suspender binding until the sync manager
// exists.
type managerSuspender struct {
	m *syncer.Manager
}

func (s *managerSuspender) Suspend() func() {
	if s.m == nil {
		return func() {}
	}
	return s.m.Suspend()
}

// weightingFilter folds configured per-field boosts into the free-text
// weighting decision. Type-specific hooks registered later still win.
func weightingFilter(boosts map[string]float64) hooks.Filter {
	return func(_ context.Context, v any) any {
		decision, ok := v.(hooks.WeightingDecision)
		if !ok {
			return v
		}
		if decision.Boosts == nil {
			decision.Boosts = make(map[string]float64, len(boosts))
		}
		for field, boost := range boosts {
			decision.Boosts[field] = boost
		}
		return decision
	}
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
