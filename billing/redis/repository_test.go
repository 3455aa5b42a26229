package redis_test

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pixshift/gateway/billing"
	billingredis "github.com/pixshift/gateway/billing/redis"
	usageredis "github.com/pixshift/gateway/usage/redis"
)

func newClient(t *testing.T) *goredis.Client {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestEventStoreRecord(t *testing.T) {
	ctx := context.Background()
	store := billingredis.NewEventStore(newClient(t))
	payload := []byte(`{"id":"evt_1","type":"invoice.paid"}`)

	t.Run("first delivery inserts with one attempt", func(t *testing.T) {
		event, err := store.Record(ctx, "evt_1", "invoice.paid", payload)
		require.NoError(t, err)
		assert.Equal(t, "evt_1", event.EventID)
		assert.Equal(t, "invoice.paid", event.EventType)
		assert.Equal(t, 1, event.ProcessingAttempts)
		assert.False(t, event.Processed)
		assert.Equal(t, payload, event.Payload)
	})

	t.Run("redelivery before success increments attempts", func(t *testing.T) {
		event, err := store.Record(ctx, "evt_1", "invoice.paid", payload)
		require.NoError(t, err)
		assert.Equal(t, 2, event.ProcessingAttempts)
		assert.False(t, event.Processed)
	})

	t.Run("redelivery after success is a no-op", func(t *testing.T) {
		require.NoError(t, store.MarkProcessed(ctx, "evt_1", time.Now()))

		event, err := store.Record(ctx, "evt_1", "invoice.paid", []byte(`{"tampered":true}`))
		require.NoError(t, err)
		assert.True(t, event.Processed)
		assert.Equal(t, 2, event.ProcessingAttempts, "attempts must not change")
		assert.Equal(t, payload, event.Payload, "payload must not change")
	})
}

func TestEventStoreFailureAudit(t *testing.T) {
	ctx := context.Background()
	store := billingredis.NewEventStore(newClient(t))

	_, err := store.Record(ctx, "evt_2", "invoice.paid", []byte(`{}`))
	require.NoError(t, err)

	require.NoError(t, store.MarkFailed(ctx, "evt_2", "account not found"))
	event, err := store.Get(ctx, "evt_2")
	require.NoError(t, err)
	assert.Equal(t, "account not found", event.LastError)
	assert.False(t, event.Processed)

	require.NoError(t, store.MarkProcessed(ctx, "evt_2", time.Now()))
	event, err = store.Get(ctx, "evt_2")
	require.NoError(t, err)
	assert.True(t, event.Processed)
	assert.Empty(t, event.LastError, "success clears the failure reason")
	assert.False(t, event.ProcessedAt.IsZero())
}

func TestEventStoreGetMissing(t *testing.T) {
	store := billingredis.NewEventStore(newClient(t))

	_, err := store.Get(context.Background(), "evt_missing")
	assert.ErrorIs(t, err, billing.ErrNotFound)
}

func TestAccountStore(t *testing.T) {
	ctx := context.Background()
	store := billingredis.NewAccountStore(newClient(t))

	t.Run("missing customer", func(t *testing.T) {
		_, err := store.GetByCustomerID(ctx, "cus_missing")
		assert.ErrorIs(t, err, billing.ErrNotFound)
	})

	t.Run("round trip", func(t *testing.T) {
		account := billing.Account{UserID: "user-1", CustomerID: "cus_1", Email: "a@pixshift.dev"}
		require.NoError(t, store.Save(ctx, account))

		got, err := store.GetByCustomerID(ctx, "cus_1")
		require.NoError(t, err)
		assert.Equal(t, account, got)
	})
}

func TestPlanStore(t *testing.T) {
	ctx := context.Background()
	store := billingredis.NewPlanStore(newClient(t))

	free := billing.Plan{ID: "free", Name: "Free", MonthlyQuota: 50}
	pro := billing.Plan{ID: "pro", PriceID: "price_pro", Name: "Pro", MonthlyQuota: 1000}
	require.NoError(t, store.Save(ctx, free, true))
	require.NoError(t, store.Save(ctx, pro, false))

	t.Run("by price id", func(t *testing.T) {
		got, err := store.GetByPriceID(ctx, "price_pro")
		require.NoError(t, err)
		assert.Equal(t, pro, got)
	})

	t.Run("unknown price id", func(t *testing.T) {
		_, err := store.GetByPriceID(ctx, "price_unknown")
		assert.ErrorIs(t, err, billing.ErrNotFound)
	})

	t.Run("default plan", func(t *testing.T) {
		got, err := store.Default(ctx)
		require.NoError(t, err)
		assert.Equal(t, free, got)
	})
}

func TestSubscriptionStoreUpsertConverges(t *testing.T) {
	ctx := context.Background()
	store := billingredis.NewSubscriptionStore(newClient(t))

	sub := billing.Subscription{
		SubscriptionID:     "sub_1",
		UserID:             "user-1",
		PlanID:             "pro",
		Status:             "active",
		CurrentPeriodStart: time.Unix(1700000000, 0),
		CurrentPeriodEnd:   time.Unix(1702592000, 0),
	}

	// same write twice: second run must converge to identical state
	require.NoError(t, store.Upsert(ctx, sub))
	require.NoError(t, store.Upsert(ctx, sub))

	got, err := store.Get(ctx, "sub_1")
	require.NoError(t, err)
	assert.Equal(t, sub.Status, got.Status)
	assert.True(t, got.CurrentPeriodStart.Equal(sub.CurrentPeriodStart))
	assert.True(t, got.CurrentPeriodEnd.Equal(sub.CurrentPeriodEnd))
}

func TestUsageStore(t *testing.T) {
	ctx := context.Background()
	store := billingredis.NewUsageStore(newClient(t))
	periodStart := time.Unix(1700000000, 0)

	require.NoError(t, store.Upsert(ctx, billing.UsagePeriod{
		UserID:      "user-1",
		PeriodStart: periodStart,
		Quota:       1000,
		Used:        42,
	}))

	got, err := store.Get(ctx, "user-1", periodStart)
	require.NoError(t, err)
	assert.Equal(t, 1000, got.Quota)
	assert.Equal(t, 42, got.Used)

	_, err = store.Get(ctx, "user-1", periodStart.Add(time.Hour))
	assert.ErrorIs(t, err, billing.ErrNotFound, "periods are keyed by exact start")
}

/* A paid invoice must change what metering actually enforces, not just
 * the billing-side usage record. Runs the real handler against the
 * real stores and quota tracker on one database.
 */
func TestInvoicePaidRaisesEnforcedLimit(t *testing.T) {
	ctx := context.Background()
	client := newClient(t)

	accounts := billingredis.NewAccountStore(client)
	plans := billingredis.NewPlanStore(client)
	require.NoError(t, accounts.Save(ctx, billing.Account{UserID: "user-1", CustomerID: "cus_1"}))
	require.NoError(t, plans.Save(ctx, billing.Plan{ID: "pro", PriceID: "price_pro", Name: "Pro", MonthlyQuota: 1000}, false))

	subscriptions := billingredis.NewSubscriptionStore(client)
	require.NoError(t, subscriptions.Upsert(ctx, billing.Subscription{
		SubscriptionID: "sub_1", UserID: "user-1", PlanID: "pro", Status: "active",
	}))

	// a deliberately tiny default: only the synced plan quota can
	// explain a second conversion being allowed
	quota := usageredis.NewQuota(client, 1)

	handlers := billing.NewHandlers(accounts, plans, subscriptions, billingredis.NewUsageStore(client), quota, nil)
	err := handlers.Handle(ctx, billing.KindInvoicePaid,
		[]byte(`{"customer":"cus_1","subscription":"sub_1","period_start":1700000000,"period_end":1702592000}`))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		remaining, err := quota.CheckAndIncrement(ctx, "user-1")
		require.NoError(t, err, "conversion %d must fit the plan quota", i+1)
		assert.Equal(t, 1000-(i+1), remaining)
	}
}
