package usage

import (
	"context"
	"errors"
	"time"
)

// ErrQuotaExceeded is returned when a user's period budget is spent.
var ErrQuotaExceeded = errors.New("quota exceeded")

/* Quota meters conversions per user. CheckAndIncrement is a single
 * atomic check-then-consume: callers never read-then-write, so two
 * concurrent conversions cannot both slip under the limit.
 */
type Quota interface {
	// CheckAndIncrement consumes one unit of the user's budget for
	// the current period and returns the remaining balance. Returns
	// ErrQuotaExceeded without consuming when the budget is spent.
	CheckAndIncrement(ctx context.Context, userID string) (remaining int, err error)
}

// Event is one recorded usage action.
type Event struct {
	UserID       string
	Action       string
	ConversionID string
	At           time.Time
}

// Recorder appends usage events to the activity log.
type Recorder interface {
	Record(ctx context.Context, event Event) error
}
