package metrics

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*goredis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func TestRedisCollector_GetEventStatusCounts(t *testing.T) {
	ctx := context.Background()
	client, mr := newTestClient(t)
	collector := NewRedisCollector(client)

	t.Run("empty keyspace", func(t *testing.T) {
		counts, err := collector.GetEventStatusCounts(ctx)
		require.NoError(t, err)
		assert.Equal(t, map[string]int64{"pending": 0, "processed": 0, "failed": 0}, counts)
	})

	t.Run("groups events by state", func(t *testing.T) {
		mr.HSet("billing:event:evt_1", "processed", "1", "last_error", "")
		mr.HSet("billing:event:evt_2", "processed", "0", "last_error", "")
		mr.HSet("billing:event:evt_3", "processed", "0", "last_error", "account not found")

		counts, err := collector.GetEventStatusCounts(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), counts["processed"])
		assert.Equal(t, int64(1), counts["pending"])
		assert.Equal(t, int64(1), counts["failed"])
	})
}

func TestRedisCollector_GetThrottledClients(t *testing.T) {
	ctx := context.Background()
	client, mr := newTestClient(t)
	collector := NewRedisCollector(client)

	throttled, err := collector.GetThrottledClients(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), throttled)

	mr.Set("ratelimit-denials:ratelimit:convert:user:user-1", "3")
	mr.Set("ratelimit-denials:ratelimit:convert:addr:10.0.0.1", "1")

	throttled, err = collector.GetThrottledClients(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), throttled)
}

func TestRedisCollector_Collect(t *testing.T) {
	ctx := context.Background()
	client, mr := newTestClient(t)
	collector := NewRedisCollector(client)

	mr.HSet("billing:event:evt_1", "processed", "1", "last_error", "")

	snapshot, err := collector.Collect(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), snapshot.EventStatusCounts["processed"])
	assert.False(t, snapshot.Timestamp.IsZero())
}

func TestCollector_Interface(t *testing.T) {
	var _ Collector = (*RedisCollector)(nil)
}
