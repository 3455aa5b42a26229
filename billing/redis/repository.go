package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pixshift/gateway/billing"
	"github.com/redis/go-redis/v9"
)

/* Redis implementation of the billing stores. One small store type per
 * domain interface, all sharing a client. Redis Hashes keyed by
 * natural identifiers:
 *
 *   billing:event:{event_id}
 *   billing:account:customer:{customer_id}
 *   billing:plan:{plan_id}
 *   billing:plan:price:{price_id}     -> plan id
 *   billing:plan:default              -> plan id
 *   billing:subscription:{subscription_id}
 *   billing:usage:{user_id}:{period_start_unix}
 */

const (
	eventPrefix        = "billing:event"
	accountPrefix      = "billing:account:customer"
	planPrefix         = "billing:plan"
	planPricePrefix    = "billing:plan:price"
	planDefaultKey     = "billing:plan:default"
	subscriptionPrefix = "billing:subscription"
	usagePrefix        = "billing:usage"
)

// Connect creates a client and verifies connectivity.
func Connect(addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to Redis: %w", err)
	}
	return client, nil
}

/* recordScript is the atomic upsert-or-increment behind event dedup.
 * Runs as a single script so two concurrent deliveries of one event id
 * serialize: exactly one observes a fresh insert.
 *
 * Returns the attempt count after the call; 0 means the record is
 * already processed and was left untouched.
 */
var recordScript = redis.NewScript(`
local key = KEYS[1]
if redis.call('EXISTS', key) == 0 then
  redis.call('HSET', key,
    'event_id', ARGV[1],
    'event_type', ARGV[2],
    'payload', ARGV[3],
    'processed', '0',
    'attempts', '1',
    'last_error', '',
    'created_at', ARGV[4],
    'processed_at', '0')
  return 1
end
if redis.call('HGET', key, 'processed') == '1' then
  return 0
end
redis.call('HSET', key, 'payload', ARGV[3])
return redis.call('HINCRBY', key, 'attempts', 1)
`)

// EventStore implements billing.EventStore on Redis hashes.
type EventStore struct {
	client *redis.Client
	now    func() time.Time
}

func NewEventStore(client *redis.Client) *EventStore {
	return &EventStore{client: client, now: time.Now}
}

// Record runs the dedup script, then reads back the resulting record.
func (s *EventStore) Record(ctx context.Context, eventID, eventType string, payload []byte) (billing.Event, error) {
	err := recordScript.Run(ctx, s.client, []string{eventKey(eventID)},
		eventID, eventType, payload, s.now().Unix(),
	).Err()
	if err != nil {
		return billing.Event{}, fmt.Errorf("recording event %s: %w", eventID, err)
	}
	return s.Get(ctx, eventID)
}

// MarkProcessed stamps the terminal state and clears the last error.
func (s *EventStore) MarkProcessed(ctx context.Context, eventID string, at time.Time) error {
	err := s.client.HSet(ctx, eventKey(eventID), map[string]interface{}{
		"processed":    "1",
		"processed_at": at.Unix(),
		"last_error":   "",
	}).Err()
	if err != nil {
		return fmt.Errorf("marking event %s processed: %w", eventID, err)
	}
	return nil
}

// MarkFailed persists the failure reason for audit.
func (s *EventStore) MarkFailed(ctx context.Context, eventID, lastError string) error {
	err := s.client.HSet(ctx, eventKey(eventID), "last_error", lastError).Err()
	if err != nil {
		return fmt.Errorf("marking event %s failed: %w", eventID, err)
	}
	return nil
}

// Get retrieves an event record by id.
func (s *EventStore) Get(ctx context.Context, eventID string) (billing.Event, error) {
	data, err := s.client.HGetAll(ctx, eventKey(eventID)).Result()
	if err != nil {
		return billing.Event{}, fmt.Errorf("getting event %s: %w", eventID, err)
	}
	if len(data) == 0 {
		return billing.Event{}, billing.ErrNotFound
	}

	event := billing.Event{
		EventID:            data["event_id"],
		EventType:          data["event_type"],
		Processed:          data["processed"] == "1",
		ProcessingAttempts: int(parseInt64(data["attempts"])),
		LastError:          data["last_error"],
		Payload:            []byte(data["payload"]),
		CreatedAt:          time.Unix(parseInt64(data["created_at"]), 0),
	}
	if unix := parseInt64(data["processed_at"]); unix > 0 {
		event.ProcessedAt = time.Unix(unix, 0)
	}
	return event, nil
}

// AccountStore implements billing.AccountStore.
type AccountStore struct {
	client *redis.Client
}

func NewAccountStore(client *redis.Client) *AccountStore {
	return &AccountStore{client: client}
}

func (s *AccountStore) GetByCustomerID(ctx context.Context, customerID string) (billing.Account, error) {
	data, err := s.client.HGetAll(ctx, accountKey(customerID)).Result()
	if err != nil {
		return billing.Account{}, fmt.Errorf("getting account for customer %s: %w", customerID, err)
	}
	if len(data) == 0 {
		return billing.Account{}, billing.ErrNotFound
	}
	return billing.Account{
		UserID:     data["user_id"],
		CustomerID: data["customer_id"],
		Email:      data["email"],
	}, nil
}

// Save stores the customer-to-user mapping, written when a customer is
// created during checkout.
func (s *AccountStore) Save(ctx context.Context, account billing.Account) error {
	err := s.client.HSet(ctx, accountKey(account.CustomerID), map[string]interface{}{
		"user_id":     account.UserID,
		"customer_id": account.CustomerID,
		"email":       account.Email,
	}).Err()
	if err != nil {
		return fmt.Errorf("saving account for customer %s: %w", account.CustomerID, err)
	}
	return nil
}

// PlanStore implements billing.PlanStore.
type PlanStore struct {
	client *redis.Client
}

func NewPlanStore(client *redis.Client) *PlanStore {
	return &PlanStore{client: client}
}

func (s *PlanStore) Get(ctx context.Context, planID string) (billing.Plan, error) {
	data, err := s.client.HGetAll(ctx, planKey(planID)).Result()
	if err != nil {
		return billing.Plan{}, fmt.Errorf("getting plan %s: %w", planID, err)
	}
	if len(data) == 0 {
		return billing.Plan{}, billing.ErrNotFound
	}
	return billing.Plan{
		ID:           data["id"],
		PriceID:      data["price_id"],
		Name:         data["name"],
		MonthlyQuota: int(parseInt64(data["monthly_quota"])),
	}, nil
}

// GetByPriceID resolves the price-id index, then loads the plan.
func (s *PlanStore) GetByPriceID(ctx context.Context, priceID string) (billing.Plan, error) {
	planID, err := s.client.Get(ctx, priceKey(priceID)).Result()
	if errors.Is(err, redis.Nil) {
		return billing.Plan{}, billing.ErrNotFound
	}
	if err != nil {
		return billing.Plan{}, fmt.Errorf("resolving price %s: %w", priceID, err)
	}
	return s.Get(ctx, planID)
}

// Default loads the configured fallback plan.
func (s *PlanStore) Default(ctx context.Context) (billing.Plan, error) {
	planID, err := s.client.Get(ctx, planDefaultKey).Result()
	if errors.Is(err, redis.Nil) {
		return billing.Plan{}, billing.ErrNotFound
	}
	if err != nil {
		return billing.Plan{}, fmt.Errorf("resolving default plan: %w", err)
	}
	return s.Get(ctx, planID)
}

// Save stores a plan and its price-id index entry; isDefault also
// points the default-plan key at it. Used by operational seeding.
func (s *PlanStore) Save(ctx context.Context, plan billing.Plan, isDefault bool) error {
	err := s.client.HSet(ctx, planKey(plan.ID), map[string]interface{}{
		"id":            plan.ID,
		"price_id":      plan.PriceID,
		"name":          plan.Name,
		"monthly_quota": plan.MonthlyQuota,
	}).Err()
	if err != nil {
		return fmt.Errorf("saving plan %s: %w", plan.ID, err)
	}
	if plan.PriceID != "" {
		if err := s.client.Set(ctx, priceKey(plan.PriceID), plan.ID, 0).Err(); err != nil {
			return fmt.Errorf("indexing price %s: %w", plan.PriceID, err)
		}
	}
	if isDefault {
		if err := s.client.Set(ctx, planDefaultKey, plan.ID, 0).Err(); err != nil {
			return fmt.Errorf("setting default plan: %w", err)
		}
	}
	return nil
}

// SubscriptionStore implements billing.SubscriptionStore.
type SubscriptionStore struct {
	client *redis.Client
}

func NewSubscriptionStore(client *redis.Client) *SubscriptionStore {
	return &SubscriptionStore{client: client}
}

func (s *SubscriptionStore) Upsert(ctx context.Context, sub billing.Subscription) error {
	err := s.client.HSet(ctx, subscriptionKey(sub.SubscriptionID), map[string]interface{}{
		"subscription_id":      sub.SubscriptionID,
		"user_id":              sub.UserID,
		"plan_id":              sub.PlanID,
		"status":               sub.Status,
		"current_period_start": sub.CurrentPeriodStart.Unix(),
		"current_period_end":   sub.CurrentPeriodEnd.Unix(),
	}).Err()
	if err != nil {
		return fmt.Errorf("upserting subscription %s: %w", sub.SubscriptionID, err)
	}
	return nil
}

func (s *SubscriptionStore) Get(ctx context.Context, subscriptionID string) (billing.Subscription, error) {
	data, err := s.client.HGetAll(ctx, subscriptionKey(subscriptionID)).Result()
	if err != nil {
		return billing.Subscription{}, fmt.Errorf("getting subscription %s: %w", subscriptionID, err)
	}
	if len(data) == 0 {
		return billing.Subscription{}, billing.ErrNotFound
	}
	sub := billing.Subscription{
		SubscriptionID: data["subscription_id"],
		UserID:         data["user_id"],
		PlanID:         data["plan_id"],
		Status:         data["status"],
	}
	if unix := parseInt64(data["current_period_start"]); unix > 0 {
		sub.CurrentPeriodStart = time.Unix(unix, 0)
	}
	if unix := parseInt64(data["current_period_end"]); unix > 0 {
		sub.CurrentPeriodEnd = time.Unix(unix, 0)
	}
	return sub, nil
}

// UsageStore implements billing.UsageStore.
type UsageStore struct {
	client *redis.Client
}

func NewUsageStore(client *redis.Client) *UsageStore {
	return &UsageStore{client: client}
}

func (s *UsageStore) Upsert(ctx context.Context, period billing.UsagePeriod) error {
	err := s.client.HSet(ctx, usageKey(period.UserID, period.PeriodStart), map[string]interface{}{
		"user_id":      period.UserID,
		"period_start": period.PeriodStart.Unix(),
		"quota":        period.Quota,
		"used":         period.Used,
	}).Err()
	if err != nil {
		return fmt.Errorf("upserting usage period for %s: %w", period.UserID, err)
	}
	return nil
}

func (s *UsageStore) Get(ctx context.Context, userID string, periodStart time.Time) (billing.UsagePeriod, error) {
	data, err := s.client.HGetAll(ctx, usageKey(userID, periodStart)).Result()
	if err != nil {
		return billing.UsagePeriod{}, fmt.Errorf("getting usage period for %s: %w", userID, err)
	}
	if len(data) == 0 {
		return billing.UsagePeriod{}, billing.ErrNotFound
	}
	return billing.UsagePeriod{
		UserID:      data["user_id"],
		PeriodStart: time.Unix(parseInt64(data["period_start"]), 0),
		Quota:       int(parseInt64(data["quota"])),
		Used:        int(parseInt64(data["used"])),
	}, nil
}

// Key helpers

func eventKey(eventID string) string {
	return fmt.Sprintf("%s:%s", eventPrefix, eventID)
}

func accountKey(customerID string) string {
	return fmt.Sprintf("%s:%s", accountPrefix, customerID)
}

func planKey(planID string) string {
	return fmt.Sprintf("%s:%s", planPrefix, planID)
}

func priceKey(priceID string) string {
	return fmt.Sprintf("%s:%s", planPricePrefix, priceID)
}

func subscriptionKey(subscriptionID string) string {
	return fmt.Sprintf("%s:%s", subscriptionPrefix, subscriptionID)
}

func usageKey(userID string, periodStart time.Time) string {
	return fmt.Sprintf("%s:%s:%d", usagePrefix, userID, periodStart.Unix())
}

func parseInt64(s string) int64 {
	var result int64
	fmt.Sscanf(s, "%d", &result)
	return result
}
