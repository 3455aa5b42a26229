//go:build integration

package redis_test

import (
	"context"
	"sync"
	"testing"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	testcontainersredis "github.com/testcontainers/testcontainers-go/modules/redis"

	billingredis "github.com/pixshift/gateway/billing/redis"
)

func setupRedisContainer(t *testing.T, ctx context.Context) *goredis.Client {
	t.Helper()

	container, err := testcontainersredis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)
	t.Cleanup(func() { container.Terminate(ctx) })

	addr, err := container.ConnectionString(ctx)
	require.NoError(t, err)
	if len(addr) > 8 && addr[:8] == "redis://" {
		addr = addr[8:]
	}

	client := goredis.NewClient(&goredis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

// TestRecordConcurrency verifies that concurrent deliveries of one
// event id serialize in the dedup script: the attempt counter equals
// the delivery count and no delivery observes a missing record.
func TestRecordConcurrency(t *testing.T) {
	ctx := context.Background()
	store := billingredis.NewEventStore(setupRedisContainer(t, ctx))
	payload := []byte(`{"id":"evt_race","type":"invoice.paid"}`)

	const deliveries = 20
	var wg sync.WaitGroup
	errs := make(chan error, deliveries)

	for i := 0; i < deliveries; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Record(ctx, "evt_race", "invoice.paid", payload)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	event, err := store.Get(ctx, "evt_race")
	require.NoError(t, err)
	assert.Equal(t, deliveries, event.ProcessingAttempts)
	assert.False(t, event.Processed)
}
