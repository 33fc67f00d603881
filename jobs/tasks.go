// Package jobs holds the background tasks: the periodic ERP snapshot
// refresh and the cache warmup that follows it.
package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskSnapshotRefresh reloads all source tables into a new snapshot.
	TaskSnapshotRefresh = "snapshot:refresh"
	// TaskCacheWarmup precomputes the headline KPI payloads.
	TaskCacheWarmup = "cache:warmup"
)

// SnapshotRefreshPayload tunes a refresh run.
type SnapshotRefreshPayload struct {
	// WarmupAfter enqueues a cache warmup once the refresh lands.
	WarmupAfter bool `json:"warmupAfter"`
	// WarmupMonthsBack is forwarded to the chained warmup task.
	WarmupMonthsBack int `json:"warmupMonthsBack"`
}

// NewSnapshotRefreshTask constructs a refresh task.
func NewSnapshotRefreshTask(payload SnapshotRefreshPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSnapshotRefresh, data), nil
}

// CacheWarmupPayload selects the window to precompute. Zero months
// warms the current month only.
type CacheWarmupPayload struct {
	MonthsBack int `json:"monthsBack"`
}

// NewCacheWarmupTask constructs a warmup task.
func NewCacheWarmupTask(payload CacheWarmupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCacheWarmup, data), nil
}
