package quota

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestMeter builds a meter with a very long interval so tests control
// flushing explicitly.
func newTestMeter(store CounterStore, opts ...MeterOption) *Meter {
	base := []MeterOption{WithFlushInterval(time.Hour)}
	return NewMeter(store, testLogger, append(base, opts...)...)
}

func TestQueueUsageCoalescesPerAccount(t *testing.T) {
	store := newFakeStore()
	m := newTestMeter(store)
	defer m.Close(context.Background())

	m.QueueUsage("u1", Delta{Messages: 1, Tokens: 120})
	m.QueueUsage("u1", Delta{Messages: 1, Tokens: 80, Images: 2})
	m.QueueUsage("u2", Delta{Replays: 1})

	assert.Equal(t, 2, m.PendingAccounts())

	m.Flush(context.Background())

	rec := store.record("u1")
	assert.Equal(t, 2, rec.Messages)
	assert.Equal(t, 2, rec.ImagesToday)
	assert.Equal(t, 1, store.record("u2").Replays)
	// One merge-increment per account, not per queued delta.
	assert.Len(t, store.incs, 2)
	assert.Equal(t, 0, m.PendingAccounts())
}

func TestFlushClearsAggregatesExactlyOnce(t *testing.T) {
	store := newFakeStore()
	m := newTestMeter(store)
	defer m.Close(context.Background())

	m.QueueUsage("u1", Delta{Messages: 3})
	m.Flush(context.Background())
	m.Flush(context.Background())

	assert.Equal(t, 3, store.record("u1").Messages, "second flush must be a no-op")
}

func TestFlushRetainsFailedAggregates(t *testing.T) {
	store := newFakeStore()
	m := newTestMeter(store)
	defer m.Close(context.Background())

	m.QueueUsage("u1", Delta{Messages: 1})
	store.failInc = errors.New("deadline exceeded")
	m.Flush(context.Background())

	// Not dropped: the delta waits for the next attempt.
	assert.Equal(t, 1, m.PendingAccounts())

	// Increments queued while retained keep accumulating.
	m.QueueUsage("u1", Delta{Messages: 2})
	store.failInc = nil
	m.Flush(context.Background())

	assert.Equal(t, 3, store.record("u1").Messages)
	assert.Equal(t, 0, m.PendingAccounts())
}

func TestQueueSizeCeilingTriggersImmediateFlush(t *testing.T) {
	store := newFakeStore()
	m := newTestMeter(store, WithMaxPendingAccounts(50))
	defer m.Close(context.Background())

	for i := 0; i < 50; i++ {
		m.QueueUsage(fmt.Sprintf("user-%d", i), Delta{Messages: 1})
	}

	// The 50th distinct account hit the ceiling; the flush loop should drain
	// the batch without waiting for the hour-long timer.
	require.Eventually(t, func() bool {
		return m.PendingAccounts() == 0
	}, 2*time.Second, 10*time.Millisecond)

	store.mu.Lock()
	writes := len(store.incs)
	store.mu.Unlock()
	assert.Equal(t, 50, writes)
}

func TestQueueUsageConcurrentEnqueue(t *testing.T) {
	store := newFakeStore()
	m := newTestMeter(store, WithMaxPendingAccounts(10000))
	defer m.Close(context.Background())

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				m.QueueUsage("shared", Delta{Messages: 1, Tokens: 5})
			}
		}()
	}
	wg.Wait()
	m.Flush(context.Background())

	assert.Equal(t, 800, store.record("shared").Messages)
}

func TestDeltaOrderIndependence(t *testing.T) {
	// Applying the same deltas in any order yields the same final counters:
	// the merge-increment contract requires commutativity.
	deltas := []Delta{
		{Messages: 1, Tokens: 40},
		{VoiceSeconds: 90, VoiceInteractions: 1},
		{Images: 2},
		{Messages: 3, Replays: 1},
	}

	apply := func(order []int) UsageRecord {
		store := newFakeStore()
		for _, i := range order {
			require.NoError(t, store.MergeIncrement(context.Background(), "u1", deltas[i]))
		}
		return store.record("u1")
	}

	want := apply([]int{0, 1, 2, 3})
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 10; i++ {
		order := r.Perm(len(deltas))
		assert.Equal(t, want, apply(order), "order %v", order)
	}
}

func TestCloseFlushesPending(t *testing.T) {
	store := newFakeStore()
	m := newTestMeter(store)

	m.QueueUsage("u1", Delta{Messages: 1})
	m.Close(context.Background())

	assert.Equal(t, 1, store.record("u1").Messages)
}

func TestRecordImmediateBypassesQueue(t *testing.T) {
	store := newFakeStore()
	m := newTestMeter(store)
	defer m.Close(context.Background())

	require.NoError(t, m.RecordImmediate(context.Background(), "u1", Delta{VoiceSeconds: 45, VoiceInteractions: 1}))
	assert.Equal(t, 45, store.record("u1").VoiceSeconds)
	assert.Equal(t, 0, m.PendingAccounts())

	store.failInc = errors.New("unavailable")
	assert.Error(t, m.RecordImmediate(context.Background(), "u1", Delta{VoiceSeconds: 1}))
}
