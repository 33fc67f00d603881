package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/laminex-bi/laminex-bi/internal/jobs"
	"github.com/laminex-bi/laminex-bi/internal/kpi"
	"github.com/laminex-bi/laminex-bi/internal/observability"
	"github.com/laminex-bi/laminex-bi/internal/source"
)

// SnapshotRefreshJob reloads every source table into a fresh snapshot,
// bumps the result-cache version and optionally chains a cache warmup.
type SnapshotRefreshJob struct {
	Store    *source.Store
	Cache    *kpi.Cache
	Enqueuer *Client
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
	Service  *observability.Metrics
	clock    func() time.Time
}

// NewSnapshotRefreshJob wires dependencies for the refresh handler.
func NewSnapshotRefreshJob(store *source.Store, cache *kpi.Cache, enqueuer *Client, logger *slog.Logger, metrics *jobmetrics.Metrics, service *observability.Metrics) *SnapshotRefreshJob {
	return &SnapshotRefreshJob{
		Store:    store,
		Cache:    cache,
		Enqueuer: enqueuer,
		Logger:   logger,
		Metrics:  metrics,
		Service:  service,
		clock:    func() time.Time { return time.Now().UTC() },
	}
}

// Handle processes snapshot:refresh tasks.
func (j *SnapshotRefreshJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Store == nil {
		return errors.New("snapshot refresh: handler not configured")
	}
	var payload SnapshotRefreshPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	tracker := j.Metrics.Track(TaskSnapshotRefresh)
	var resultErr error
	defer func() { resultErr = tracker.End(resultErr) }()

	logger := j.logger()
	start := j.clock()

	snap, err := j.Store.Refresh(ctx)
	if err != nil {
		j.Service.SnapshotRefresh("error")
		logger.Error("snapshot refresh failed", slog.Any("error", err))
		resultErr = err
		return resultErr
	}
	j.Service.SnapshotRefresh("ok")
	j.Service.SetSnapshotAge(j.clock().Sub(snap.TakenAt))

	if err := j.Cache.Bump(ctx); err != nil {
		// Stale cached payloads expire on their TTL; the fresh snapshot
		// is already serving, so a failed bump is not fatal.
		logger.Warn("cache bump failed", slog.Any("error", err))
	}

	logger.Info("snapshot refreshed",
		slog.String("snapshot", snap.ID),
		slog.Int("invoices", len(snap.Invoices)),
		slog.Int("sales_orders", len(snap.SalesOrders)),
		slog.Duration("took", j.clock().Sub(start)))

	if payload.WarmupAfter && j.Enqueuer != nil {
		if _, err := j.Enqueuer.EnqueueCacheWarmup(ctx, CacheWarmupPayload{MonthsBack: payload.WarmupMonthsBack}); err != nil {
			logger.Warn("enqueue warmup failed", slog.Any("error", err))
		}
	}
	return nil
}

func (j *SnapshotRefreshJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
