package billing

import (
	"context"
	"time"
)

/* Small, focused store interfaces. Each is written for its consumer:
 * the processor needs the event store, the handlers need the account,
 * plan, subscription and usage stores.
 */

// EventStore persists webhook event records keyed by event id.
type EventStore interface {
	/* Record is the atomic upsert-or-increment that backs dedup: on
	 * an unknown id it inserts a record with attempts=1; on a known
	 * unprocessed id it increments attempts and refreshes the
	 * payload; on a processed id it changes nothing. The returned
	 * Event reflects the state after the call. Implementations must
	 * make this a single atomic operation per id: two concurrent
	 * deliveries of one id must not both observe "not found".
	 */
	Record(ctx context.Context, eventID, eventType string, payload []byte) (Event, error)

	// MarkProcessed stamps the terminal state and clears LastError.
	MarkProcessed(ctx context.Context, eventID string, at time.Time) error

	// MarkFailed persists the failure for audit and retry tracking.
	MarkFailed(ctx context.Context, eventID, lastError string) error

	Get(ctx context.Context, eventID string) (Event, error)
}

// Account links a pixshift user to the payment provider's customer id.
type Account struct {
	UserID     string
	CustomerID string
	Email      string
}

// Plan is a subscription tier, addressable by the provider's price id.
type Plan struct {
	ID           string
	PriceID      string
	Name         string
	MonthlyQuota int
}

// Subscription is the provider-side subscription state mirrored
// locally, keyed by the provider's subscription id.
type Subscription struct {
	SubscriptionID     string
	UserID             string
	PlanID             string
	Status             string
	CurrentPeriodStart time.Time
	CurrentPeriodEnd   time.Time
}

// UsagePeriod tracks quota consumption for one user and billing
// period, keyed by user id + period start.
type UsagePeriod struct {
	UserID      string
	PeriodStart time.Time
	Quota       int
	Used        int
}

// AccountStore resolves accounts by provider customer id.
type AccountStore interface {
	GetByCustomerID(ctx context.Context, customerID string) (Account, error)
}

// PlanStore resolves plans by local id or provider price id.
type PlanStore interface {
	Get(ctx context.Context, planID string) (Plan, error)
	GetByPriceID(ctx context.Context, priceID string) (Plan, error)
	// Default returns the fallback plan used when a price id is
	// unknown (logged as a warning by callers).
	Default(ctx context.Context) (Plan, error)
}

/* SubscriptionStore and UsageStore expose idempotent upserts keyed by
 * natural identifiers, so re-running a handler converges to the same
 * state. This is the second idempotency layer beneath event-id dedup.
 */
type SubscriptionStore interface {
	Upsert(ctx context.Context, sub Subscription) error
	Get(ctx context.Context, subscriptionID string) (Subscription, error)
}

type UsageStore interface {
	Upsert(ctx context.Context, period UsagePeriod) error
	Get(ctx context.Context, userID string, periodStart time.Time) (UsagePeriod, error)
}

// QuotaSetter pushes a user's plan quota into metering, so the limit
// the convert path enforces tracks what billing granted.
type QuotaSetter interface {
	SetLimit(ctx context.Context, userID string, limit int) error
}
