package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"app/internal/quota"
)

// UsageSender pushes serialized usage deltas onto a durable queue. The pgmq
// client satisfies this with its Send method bound to the usage queue name.
type UsageSender interface {
	Send(ctx context.Context, queue string, payload []byte) error
}

// UsageDeltaMessage is the queue payload carrying one coalesced delta for one
// user. The aggregator consumes these and applies them to Postgres.
type UsageDeltaMessage struct {
	UserID string      `json:"user_id"`
	Delta  quota.Delta `json:"delta"`
}

// QueuedUsageStore is a quota.CounterStore whose writes go through a durable
// queue instead of straight to Postgres. Reads and lazy record creation still
// hit Postgres directly. Wiring the meter to this store means a crash between
// enqueue and apply loses nothing: the message survives in pgmq until the
// aggregator deletes it.
type QueuedUsageStore struct {
	db     UsageRepository
	sender UsageSender
	queue  string
}

// NewQueuedUsageStore wraps the Postgres usage repository with queue-backed writes.
func NewQueuedUsageStore(db UsageRepository, sender UsageSender, queue string) *QueuedUsageStore {
	return &QueuedUsageStore{db: db, sender: sender, queue: queue}
}

func (s *QueuedUsageStore) Get(ctx context.Context, userID string) (*quota.UsageRecord, error) {
	return s.db.Get(ctx, userID)
}

func (s *QueuedUsageStore) SetIfAbsent(ctx context.Context, userID string, rec quota.UsageRecord) error {
	return s.db.SetIfAbsent(ctx, userID, rec)
}

// MergeIncrement enqueues the delta rather than applying it. Delivery is
// at-least-once; duplicates re-apply an additive delta, matching the
// metering core's at-least-once contract.
func (s *QueuedUsageStore) MergeIncrement(ctx context.Context, userID string, delta quota.Delta) error {
	payload, err := json.Marshal(UsageDeltaMessage{UserID: userID, Delta: delta})
	if err != nil {
		return fmt.Errorf("marshal usage delta for user %s: %w", userID, err)
	}
	if err := s.sender.Send(ctx, s.queue, payload); err != nil {
		return fmt.Errorf("enqueue usage delta for user %s: %w", userID, err)
	}
	return nil
}
