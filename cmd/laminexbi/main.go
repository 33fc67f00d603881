// Command laminexbi serves the KPI dashboard API over the replicated
// ERP tables.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/laminex-bi/laminex-bi/internal/app"
	"github.com/laminex-bi/laminex-bi/internal/kpi"
	"github.com/laminex-bi/laminex-bi/internal/observability"
	"github.com/laminex-bi/laminex-bi/internal/platform/cache"
	"github.com/laminex-bi/laminex-bi/internal/platform/db"
	"github.com/laminex-bi/laminex-bi/internal/source"
	"github.com/laminex-bi/laminex-bi/jobs"

	kpihttp "github.com/laminex-bi/laminex-bi/internal/kpi/http"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, db.Config{
		DSN:              cfg.PGDSN,
		MaxConns:         cfg.PGMaxConns,
		StatementTimeout: cfg.PGStatementTimeout,
	})
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cache.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		// The dashboard still works without Redis; every request just
		// computes from the snapshot.
		logger.Warn("redis unavailable, caching disabled", slog.Any("error", err))
		redisClient = nil
	} else {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	store := source.NewStore(source.NewPostgresProvider(pool))
	metrics := observability.NewMetrics()

	if snap, err := store.Refresh(ctx); err != nil {
		logger.Warn("initial snapshot load failed, serving 503 until refreshed", slog.Any("error", err))
		metrics.SnapshotRefresh("error")
	} else {
		logger.Info("initial snapshot loaded", slog.String("snapshot", snap.ID))
		metrics.SnapshotRefresh("ok")
	}

	resultCache := kpi.NewCache(redisClient, cfg.CacheTTL)
	go watchSnapshotBumps(ctx, redisClient, store, metrics, logger)

	kpiHandler := kpihttp.NewHandler(logger, store, resultCache, kpihttp.EngineConfig{
		AdvanceProductCode: cfg.AdvanceProductCode,
		AgentDenyList:      cfg.AgentDenyList,
	})

	var jobHandler *jobs.Handler
	if redisClient != nil {
		inspector := asynq.NewInspector(asynq.RedisClientOpt{
			Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB,
		})
		defer func() {
			if err := inspector.Close(); err != nil {
				logger.Warn("inspector close", slog.Any("error", err))
			}
		}()
		jobHandler = jobs.NewHandler(inspector, logger)
	}

	router := app.NewRouter(app.RouterParams{
		Logger:     logger,
		Config:     cfg,
		KPIHandler: kpiHandler,
		JobHandler: jobHandler,
		Store:      store,
		Metrics:    metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}

// watchSnapshotBumps reloads this process's snapshot whenever the worker
// publishes a refresh. Without Redis a timer stands in so the dashboard
// still follows the hourly legacy sync.
func watchSnapshotBumps(ctx context.Context, client *redis.Client, store *source.Store, metrics *observability.Metrics, logger *slog.Logger) {
	refresh := func() {
		refreshCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
		defer cancel()
		snap, err := store.Refresh(refreshCtx)
		if err != nil {
			metrics.SnapshotRefresh("error")
			logger.Error("snapshot reload failed", slog.Any("error", err))
			return
		}
		metrics.SnapshotRefresh("ok")
		metrics.SetSnapshotAge(time.Since(snap.TakenAt))
		logger.Info("snapshot reloaded", slog.String("snapshot", snap.ID))
	}

	if client == nil {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				refresh()
			}
		}
	}

	pubsub := client.Subscribe(ctx, "snapshot.bump")
	defer func() { _ = pubsub.Close() }()
	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-ch:
			if !ok {
				return
			}
			refresh()
		}
	}
}
