package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCollector implements the Collector interface over the gateway's
// Redis keyspace.
type RedisCollector struct {
	client *redis.Client
}

// NewRedisCollector creates a new Redis metrics collector
func NewRedisCollector(client *redis.Client) *RedisCollector {
	return &RedisCollector{
		client: client,
	}
}

// Collect gathers a full snapshot from Redis
func (c *RedisCollector) Collect(ctx context.Context) (Snapshot, error) {
	eventCounts, err := c.GetEventStatusCounts(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("getting event status counts: %w", err)
	}

	throttled, err := c.GetThrottledClients(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("getting throttled clients: %w", err)
	}

	return Snapshot{
		EventStatusCounts: eventCounts,
		ThrottledClients:  throttled,
		Timestamp:         time.Now(),
	}, nil
}

// GetEventStatusCounts returns counts of billing events grouped by state
func (c *RedisCollector) GetEventStatusCounts(ctx context.Context) (map[string]int64, error) {
	statusCounts := map[string]int64{
		"pending":   0,
		"processed": 0,
		"failed":    0,
	}

	keys, err := c.scan(ctx, "billing:event:*")
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return statusCounts, nil
	}

	// Use pipeline for efficient batch operations
	pipe := c.client.Pipeline()
	cmds := make([]*redis.SliceCmd, len(keys))
	for i, key := range keys {
		cmds[i] = pipe.HMGet(ctx, key, "processed", "last_error")
	}

	_, err = pipe.Exec(ctx)
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("executing pipeline: %w", err)
	}

	for _, cmd := range cmds {
		data, err := cmd.Result()
		if err != nil || len(data) < 2 {
			continue
		}

		processed, _ := data[0].(string)
		lastError, _ := data[1].(string)
		switch {
		case processed == "1":
			statusCounts["processed"]++
		case lastError != "":
			statusCounts["failed"]++
		default:
			statusCounts["pending"]++
		}
	}

	return statusCounts, nil
}

// GetThrottledClients counts identities with an active denial streak
func (c *RedisCollector) GetThrottledClients(ctx context.Context) (int64, error) {
	keys, err := c.scan(ctx, "ratelimit-denials:*")
	if err != nil {
		return 0, err
	}
	return int64(len(keys)), nil
}

func (c *RedisCollector) scan(ctx context.Context, pattern string) ([]string, error) {
	var cursor uint64
	var keys []string

	for {
		scanKeys, nextCursor, err := c.client.Scan(ctx, cursor, pattern, 1000).Result()
		if err != nil {
			return nil, fmt.Errorf("scanning %s keys: %w", pattern, err)
		}

		keys = append(keys, scanKeys...)

		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}

	return keys, nil
}
