package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/pixshift/gateway/security/ratelimit"
	"github.com/redis/go-redis/v9"
)

/* Redis sliding-window limiter. One sorted set per identity+bucket
 * holds a member per request scored by nanosecond timestamp; trim,
 * count and admit run as one script. A separate denial-streak counter
 * drives exponential backoff.
 */

const (
	keyPrefix    = "ratelimit"
	denialPrefix = "ratelimit-denials"

	baseBackoffSeconds = 1
	maxBackoffSeconds  = 300
	denialStreakTTL    = 10 * time.Minute
)

type Limiter struct {
	client       *redis.Client
	limits       map[string]ratelimit.Limit
	defaultLimit ratelimit.Limit
	now          func() time.Time
}

// NewLimiter creates a limiter with per-bucket budgets. Buckets not in
// limits fall back to defaultLimit.
func NewLimiter(client *redis.Client, limits map[string]ratelimit.Limit, defaultLimit ratelimit.Limit) *Limiter {
	return &Limiter{
		client:       client,
		limits:       limits,
		defaultLimit: defaultLimit,
		now:          time.Now,
	}
}

/* Check evaluates every key the identity provides (user and address
 * independently) and returns the most restrictive decision. Remaining
 * is the minimum across keys and never negative.
 */
func (l *Limiter) Check(ctx context.Context, id ratelimit.Identity, bucket string) (ratelimit.Decision, error) {
	if id.Empty() {
		return ratelimit.Decision{}, fmt.Errorf("rate limit check requires a user id or address")
	}

	limit := l.defaultLimit
	if bucketLimit, configured := l.limits[bucket]; configured {
		limit = bucketLimit
	}

	decision := ratelimit.Decision{
		Allowed:   true,
		Remaining: limit.Requests,
		ResetAt:   l.now().Add(limit.Window),
	}

	for _, key := range l.keys(id, bucket) {
		keyDecision, err := l.checkKey(ctx, key, limit)
		if err != nil {
			return ratelimit.Decision{}, err
		}
		if keyDecision.Remaining < decision.Remaining {
			decision.Remaining = keyDecision.Remaining
		}
		if keyDecision.ResetAt.After(decision.ResetAt) {
			decision.ResetAt = keyDecision.ResetAt
		}
		if !keyDecision.Allowed {
			decision.Allowed = false
			decision.Reason = keyDecision.Reason
			if keyDecision.BackoffSeconds > decision.BackoffSeconds {
				decision.BackoffSeconds = keyDecision.BackoffSeconds
			}
		}
	}
	return decision, nil
}

func (l *Limiter) keys(id ratelimit.Identity, bucket string) []string {
	var keys []string
	if id.UserID != "" {
		keys = append(keys, fmt.Sprintf("%s:%s:user:%s", keyPrefix, bucket, id.UserID))
	}
	if id.Addr != "" {
		keys = append(keys, fmt.Sprintf("%s:%s:addr:%s", keyPrefix, bucket, id.Addr))
	}
	return keys
}

/* admitScript trims the window, counts and admits in one atomic step,
 * so two requests racing at the budget boundary cannot both pass the
 * count and both be admitted.
 *
 * KEYS[1] window set; ARGV: window start, budget, score, member, TTL
 * millis. Returns {admitted, count after the call, oldest surviving
 * score}; the oldest score is absent when the set was empty.
 */
var admitScript = redis.NewScript(`
redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', ARGV[1])
local count = redis.call('ZCARD', KEYS[1])
local oldest = redis.call('ZRANGE', KEYS[1], 0, 0, 'WITHSCORES')
if count >= tonumber(ARGV[2]) then
  return {0, count, oldest[2]}
end
redis.call('ZADD', KEYS[1], ARGV[3], ARGV[4])
redis.call('PEXPIRE', KEYS[1], ARGV[5])
return {1, count + 1, oldest[2]}
`)

func (l *Limiter) checkKey(ctx context.Context, key string, limit ratelimit.Limit) (ratelimit.Decision, error) {
	now := l.now()
	windowStart := now.Add(-limit.Window)

	vals, err := admitScript.Run(ctx, l.client, []string{key},
		windowStart.UnixNano(),
		limit.Requests,
		now.UnixNano(),
		uuid.New().String(),
		limit.Window.Milliseconds(),
	).Slice()
	if err != nil {
		return ratelimit.Decision{}, fmt.Errorf("checking rate limit window: %w", err)
	}
	if len(vals) < 2 {
		return ratelimit.Decision{}, fmt.Errorf("short rate limit script reply")
	}
	admitted, _ := vals[0].(int64)
	count, _ := vals[1].(int64)

	resetAt := now.Add(limit.Window)
	if len(vals) > 2 {
		if raw, isString := vals[2].(string); isString {
			if score, err := strconv.ParseFloat(raw, 64); err == nil {
				resetAt = time.Unix(0, int64(score)).Add(limit.Window)
			}
		}
	}

	if admitted == 0 {
		backoff, err := l.recordDenial(ctx, key)
		if err != nil {
			return ratelimit.Decision{}, err
		}
		return ratelimit.Decision{
			Allowed:        false,
			Remaining:      0,
			ResetAt:        resetAt,
			BackoffSeconds: backoff,
			Reason:         fmt.Sprintf("rate limit of %d per %s exceeded", limit.Requests, limit.Window),
		}, nil
	}

	return ratelimit.Decision{
		Allowed:   true,
		Remaining: limit.Requests - int(count),
		ResetAt:   resetAt,
	}, nil
}

/* recordDenial bumps the denial streak and derives the suggested
 * backoff: doubling per consecutive denial, capped.
 */
func (l *Limiter) recordDenial(ctx context.Context, key string) (int, error) {
	denialKey := fmt.Sprintf("%s:%s", denialPrefix, key)

	streak, err := l.client.Incr(ctx, denialKey).Result()
	if err != nil {
		return 0, fmt.Errorf("incrementing denial streak: %w", err)
	}
	if err := l.client.Expire(ctx, denialKey, denialStreakTTL).Err(); err != nil {
		return 0, fmt.Errorf("expiring denial streak: %w", err)
	}

	backoff := baseBackoffSeconds
	for i := int64(1); i < streak && backoff < maxBackoffSeconds; i++ {
		backoff *= 2
	}
	if backoff > maxBackoffSeconds {
		backoff = maxBackoffSeconds
	}
	return backoff, nil
}
