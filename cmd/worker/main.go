// Command worker runs the background jobs: the scheduled snapshot
// refresh and the cache warmup that follows it.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/laminex-bi/laminex-bi/internal/app"
	jobmetrics "github.com/laminex-bi/laminex-bi/internal/jobs"
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
		slog.Default().Info("test mode detected, skipping worker startup")
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
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	redisOpts := asynq.RedisClientOpt{
		Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB,
	}

	enqueuer, err := jobs.NewClient(redisOpts)
	if err != nil {
		logger.Error("init asynq client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := enqueuer.Close(); err != nil {
			logger.Warn("asynq client close", slog.Any("error", err))
		}
	}()

	store := source.NewStore(source.NewPostgresProvider(pool))
	resultCache := kpi.NewCache(redisClient, cfg.CacheTTL)
	serviceMetrics := observability.NewMetrics()
	taskMetrics := jobmetrics.NewMetrics(serviceMetrics.Registerer())

	// The warmer is the same handler stack the API serves from, so the
	// warmed keys are the ones requests will hit.
	warmer := kpihttp.NewHandler(logger, store, resultCache, kpihttp.EngineConfig{
		AdvanceProductCode: cfg.AdvanceProductCode,
		AgentDenyList:      cfg.AgentDenyList,
	})

	refreshJob := jobs.NewSnapshotRefreshJob(store, resultCache, enqueuer, logger, taskMetrics, serviceMetrics)
	warmupJob := jobs.NewCacheWarmupJob(warmer, logger, taskMetrics)

	refreshTask, err := jobs.NewSnapshotRefreshTask(jobs.SnapshotRefreshPayload{
		WarmupAfter:      true,
		WarmupMonthsBack: cfg.WarmupMonthsBack,
	})
	if err != nil {
		logger.Error("build refresh task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   redisOpts,
		Logger:      logger,
		Concurrency: cfg.WorkerConcurrency,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskSnapshotRefresh, Handler: refreshJob.Handle},
			{Type: jobs.TaskCacheWarmup, Handler: warmupJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.RefreshCron, Task: refreshTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
