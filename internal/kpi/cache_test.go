package kpi

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func testCache(t *testing.T) *Cache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, time.Minute)
}

func TestFetchJSONCallsLoaderOnce(t *testing.T) {
	ctx := context.Background()
	cache := testCache(t)

	key, err := cache.BuildKey(ctx, "billing", "net", "2026-03")
	require.NoError(t, err)

	calls := 0
	loader := func(context.Context) (interface{}, error) {
		calls++
		return map[string]float64{"net": 900}, nil
	}

	var first map[string]float64
	require.NoError(t, cache.FetchJSON(ctx, key, &first, loader))
	require.Equal(t, 1, calls)
	require.InDelta(t, 900.0, first["net"], 1e-9)

	var second map[string]float64
	require.NoError(t, cache.FetchJSON(ctx, key, &second, loader))
	require.Equal(t, 1, calls)
	require.Equal(t, first, second)
}

func TestBumpChangesKey(t *testing.T) {
	ctx := context.Background()
	cache := testCache(t)

	before, err := cache.BuildKey(ctx, "billing", "net")
	require.NoError(t, err)

	require.NoError(t, cache.Bump(ctx))

	after, err := cache.BuildKey(ctx, "billing", "net")
	require.NoError(t, err)
	require.NotEqual(t, before, after)
}

func TestNilClientComputesDirectly(t *testing.T) {
	ctx := context.Background()
	var cache *Cache

	key, err := cache.BuildKey(ctx, "billing", "net")
	require.NoError(t, err)
	require.Equal(t, "billing:net", key)

	calls := 0
	loader := func(context.Context) (interface{}, error) {
		calls++
		return 42.0, nil
	}
	var got float64
	require.NoError(t, cache.FetchJSON(ctx, key, &got, loader))
	require.NoError(t, cache.FetchJSON(ctx, key, &got, loader))
	require.Equal(t, 2, calls)
	require.InDelta(t, 42.0, got, 1e-9)

	require.NoError(t, cache.Bump(ctx))
}

func TestFetchJSONRequiresLoader(t *testing.T) {
	cache := testCache(t)
	var dest int
	require.Error(t, cache.FetchJSON(context.Background(), "k", &dest, nil))
}
