package metrics

import (
	"context"
	"time"
)

// Snapshot represents the current state of the security gateway.
type Snapshot struct {
	// EventStatusCounts maps billing event state ("pending",
	// "processed", "failed") to the number of recorded events.
	EventStatusCounts map[string]int64 `json:"event_status_counts"`

	// ThrottledClients is the number of identities currently in a
	// rate-limit denial streak.
	ThrottledClients int64 `json:"throttled_clients"`

	// Timestamp when the snapshot was collected
	Timestamp time.Time `json:"timestamp"`
}

// Collector defines the interface for collecting gateway state from
// the backing store.
type Collector interface {
	// Collect gathers a full snapshot
	Collect(ctx context.Context) (Snapshot, error)

	// GetEventStatusCounts returns billing event counts by state
	GetEventStatusCounts(ctx context.Context) (map[string]int64, error)

	// GetThrottledClients returns the number of identities with an
	// active denial streak
	GetThrottledClients(ctx context.Context) (int64, error)
}
