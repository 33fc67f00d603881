package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/laminex-bi/laminex-bi/internal/jobs"
)

// Warmer precomputes cached payloads; implemented by the KPI HTTP layer
// so warmed entries land under the exact keys requests will hit.
type Warmer interface {
	Warmup(ctx context.Context, monthsBack int) error
}

// CacheWarmupJob fills the result cache after a refresh bump.
type CacheWarmupJob struct {
	Warmer  Warmer
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewCacheWarmupJob wires dependencies for the warmup handler.
func NewCacheWarmupJob(warmer Warmer, logger *slog.Logger, metrics *jobmetrics.Metrics) *CacheWarmupJob {
	return &CacheWarmupJob{Warmer: warmer, Logger: logger, Metrics: metrics}
}

// Handle processes cache:warmup tasks.
func (j *CacheWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Warmer == nil {
		return errors.New("cache warmup: handler not configured")
	}
	var payload CacheWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	tracker := j.Metrics.Track(TaskCacheWarmup)
	var resultErr error
	defer func() { resultErr = tracker.End(resultErr) }()

	if err := j.Warmer.Warmup(ctx, payload.MonthsBack); err != nil {
		j.logger().Error("cache warmup failed", slog.Any("error", err))
		resultErr = err
		return resultErr
	}
	j.logger().Info("cache warmed", slog.Int("months_back", payload.MonthsBack))
	return nil
}

func (j *CacheWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
