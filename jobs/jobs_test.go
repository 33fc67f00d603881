package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/laminex-bi/laminex-bi/internal/kpi"
	"github.com/laminex-bi/laminex-bi/internal/observability"
	"github.com/laminex-bi/laminex-bi/internal/source"
)

func refreshTask(t *testing.T, payload SnapshotRefreshPayload) *asynq.Task {
	t.Helper()
	task, err := NewSnapshotRefreshTask(payload)
	require.NoError(t, err)
	return task
}

func TestSnapshotRefreshSwapsSnapshotAndBumpsCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := kpi.NewCache(client, time.Minute)

	provider := &source.MemoryProvider{
		InvoiceRows: []source.Invoice{{ID: "F1", Total: 100}},
	}
	store := source.NewStore(provider)

	job := NewSnapshotRefreshJob(store, cache, nil, nil, nil, observability.NewMetrics())

	ctx := context.Background()
	before, err := cache.Version(ctx)
	require.NoError(t, err)

	require.NoError(t, job.Handle(ctx, refreshTask(t, SnapshotRefreshPayload{})))

	snap, err := store.Current(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Invoices, 1)

	after, err := cache.Version(ctx)
	require.NoError(t, err)
	require.Greater(t, after, before)
}

func TestSnapshotRefreshKeepsPreviousSnapshotOnFailure(t *testing.T) {
	provider := &source.MemoryProvider{
		InvoiceRows: []source.Invoice{{ID: "F1"}},
	}
	store := source.NewStore(provider)
	job := NewSnapshotRefreshJob(store, nil, nil, nil, nil, observability.NewMetrics())

	ctx := context.Background()
	require.NoError(t, job.Handle(ctx, refreshTask(t, SnapshotRefreshPayload{})))
	first, err := store.Current(ctx)
	require.NoError(t, err)

	provider.Errs = map[string]error{"invoices": context.DeadlineExceeded}
	require.Error(t, job.Handle(ctx, refreshTask(t, SnapshotRefreshPayload{})))

	current, err := store.Current(ctx)
	require.NoError(t, err)
	require.Equal(t, first.ID, current.ID)
}

func TestSnapshotRefreshRejectsMalformedPayload(t *testing.T) {
	store := source.NewStore(&source.MemoryProvider{})
	job := NewSnapshotRefreshJob(store, nil, nil, nil, nil, observability.NewMetrics())

	task := asynq.NewTask(TaskSnapshotRefresh, []byte("not-json"))
	err := job.Handle(context.Background(), task)
	require.ErrorIs(t, err, asynq.SkipRetry)
}

type countingWarmer struct {
	calls  int
	months int
}

func (w *countingWarmer) Warmup(_ context.Context, monthsBack int) error {
	w.calls++
	w.months = monthsBack
	return nil
}

func TestCacheWarmupInvokesWarmer(t *testing.T) {
	warmer := &countingWarmer{}
	job := NewCacheWarmupJob(warmer, nil, nil)

	task, err := NewCacheWarmupTask(CacheWarmupPayload{MonthsBack: 2})
	require.NoError(t, err)

	require.NoError(t, job.Handle(context.Background(), task))
	require.Equal(t, 1, warmer.calls)
	require.Equal(t, 2, warmer.months)
}
