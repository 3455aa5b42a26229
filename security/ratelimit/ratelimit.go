package ratelimit

import (
	"context"
	"time"
)

/* Rate limiting contract consumed by the gateway. The counting
 * algorithm behind it is replaceable; the contract is not: remaining
 * decreases monotonically within a window and never goes negative,
 * ResetAt is absolute, and denials carry a backoff suggestion that
 * grows on repeated denials.
 */

// Identity names who is being limited. User and network address are
// limited independently; either may be empty.
type Identity struct {
	UserID string
	Addr   string
}

// Empty reports whether there is nothing to key a limit on.
func (i Identity) Empty() bool {
	return i.UserID == "" && i.Addr == ""
}

// Decision is the outcome of one rate limit check.
type Decision struct {
	Allowed        bool
	Remaining      int
	ResetAt        time.Time
	BackoffSeconds int
	Reason         string
}

// Limiter checks request budgets per identity and bucket.
type Limiter interface {
	Check(ctx context.Context, id Identity, bucket string) (Decision, error)
}

// Limit is one bucket's budget.
type Limit struct {
	Requests int
	Window   time.Duration
}
