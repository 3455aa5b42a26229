package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pixshift/gateway/usage"
)

/* Redis implementation of the usage package.
 * Quota counters live in usage:counter:{user}:{YYYY-MM}; per-user
 * limits in usage:limit:{user} with a configured default. The
 * activity log is a capped Redis Stream at usage:events.
 */

const (
	counterPrefix = "usage:counter"
	limitPrefix   = "usage:limit"
	eventsStream  = "usage:events"

	// counters outlive their month slightly so late events still land
	counterTTL = 40 * 24 * time.Hour

	eventsMaxLen = 100_000
)

/* checkScript is the atomic check-then-consume. Refuses to increment
 * past the limit, so the counter never overshoots and a denied call
 * costs nothing.
 *
 * Returns remaining after the increment, or -1 when the budget is
 * already spent.
 */
var checkScript = redis.NewScript(`
local used = tonumber(redis.call('GET', KEYS[1]) or '0')
local limit = tonumber(ARGV[1])
if used >= limit then
  return -1
end
used = redis.call('INCR', KEYS[1])
redis.call('EXPIRE', KEYS[1], ARGV[2])
return limit - used
`)

// Quota is the Redis-backed usage.Quota.
type Quota struct {
	client       *redis.Client
	defaultLimit int
	now          func() time.Time
}

// NewQuota creates a quota tracker. defaultLimit applies to users
// without a usage:limit entry.
func NewQuota(client *redis.Client, defaultLimit int) *Quota {
	return &Quota{
		client:       client,
		defaultLimit: defaultLimit,
		now:          time.Now,
	}
}

// CheckAndIncrement implements usage.Quota.
func (q *Quota) CheckAndIncrement(ctx context.Context, userID string) (int, error) {
	limit, err := q.limit(ctx, userID)
	if err != nil {
		return 0, err
	}

	key := counterKey(userID, q.now())
	remaining, err := checkScript.Run(ctx, q.client, []string{key},
		limit, int(counterTTL.Seconds()),
	).Int()
	if err != nil {
		return 0, fmt.Errorf("consuming quota for %s: %w", userID, err)
	}
	if remaining < 0 {
		return 0, usage.ErrQuotaExceeded
	}
	return remaining, nil
}

// SetLimit overrides one user's monthly budget, written when billing
// opens a new usage period.
func (q *Quota) SetLimit(ctx context.Context, userID string, limit int) error {
	if err := q.client.Set(ctx, limitKey(userID), limit, 0).Err(); err != nil {
		return fmt.Errorf("setting quota limit for %s: %w", userID, err)
	}
	return nil
}

func (q *Quota) limit(ctx context.Context, userID string) (int, error) {
	limit, err := q.client.Get(ctx, limitKey(userID)).Int()
	if err == redis.Nil {
		return q.defaultLimit, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading quota limit for %s: %w", userID, err)
	}
	return limit, nil
}

// Recorder is the Redis Streams usage.Recorder.
type Recorder struct {
	client *redis.Client
}

func NewRecorder(client *redis.Client) *Recorder {
	return &Recorder{client: client}
}

// Record appends one event to the capped activity stream.
func (r *Recorder) Record(ctx context.Context, event usage.Event) error {
	at := event.At
	if at.IsZero() {
		at = time.Now()
	}

	err := r.client.XAdd(ctx, &redis.XAddArgs{
		Stream: eventsStream,
		MaxLen: eventsMaxLen,
		Approx: true,
		Values: map[string]interface{}{
			"user_id":       event.UserID,
			"action":        event.Action,
			"conversion_id": event.ConversionID,
			"at":            at.Unix(),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("recording usage event: %w", err)
	}
	return nil
}

func counterKey(userID string, now time.Time) string {
	return fmt.Sprintf("%s:%s:%s", counterPrefix, userID, now.UTC().Format("2006-01"))
}

func limitKey(userID string) string {
	return fmt.Sprintf("%s:%s", limitPrefix, userID)
}
