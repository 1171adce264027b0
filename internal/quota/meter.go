package quota

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultFlushInterval = 30 * time.Second
	defaultMaxAccounts   = 50
	defaultFlushTimeout  = 10 * time.Second
)

// Meter batches usage increments so that a burst of actions produces one
// merge-increment per account instead of one store write per action. The
// pending map is scoped to this process; it is a write-coalescing cache, not
// a durable log — durability comes from the store it flushes into.
type Meter struct {
	store        CounterStore
	logger       zerolog.Logger
	interval     time.Duration
	maxAccounts  int
	flushTimeout time.Duration

	mu      sync.Mutex
	pending map[string]*Delta

	kick chan struct{}
	stop chan struct{}
	done chan struct{}

	stopOnce sync.Once
}

// MeterOption customizes a Meter.
type MeterOption func(*Meter)

// WithFlushInterval sets the recurring flush interval.
func WithFlushInterval(d time.Duration) MeterOption {
	return func(m *Meter) { m.interval = d }
}

// WithMaxPendingAccounts sets the distinct-account ceiling that triggers an
// immediate flush, bounding both staleness and memory growth.
func WithMaxPendingAccounts(n int) MeterOption {
	return func(m *Meter) { m.maxAccounts = n }
}

// WithFlushTimeout bounds each batched store write so a slow store cannot
// grow the queue indefinitely.
func WithFlushTimeout(d time.Duration) MeterOption {
	return func(m *Meter) { m.flushTimeout = d }
}

// NewMeter creates a Meter and starts its flush loop.
func NewMeter(store CounterStore, logger zerolog.Logger, opts ...MeterOption) *Meter {
	m := &Meter{
		store:        store,
		logger:       logger.With().Str("service", "UsageMeter").Logger(),
		interval:     defaultFlushInterval,
		maxAccounts:  defaultMaxAccounts,
		flushTimeout: defaultFlushTimeout,
		pending:      make(map[string]*Delta),
		kick:         make(chan struct{}, 1),
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	go m.run()
	return m
}

func (m *Meter) run() {
	defer close(m.done)
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.Flush(context.Background())
		case <-m.kick:
			m.Flush(context.Background())
		}
	}
}

// QueueUsage accumulates a delta into the in-memory aggregate for the
// account, creating it if absent and adding to existing fields otherwise.
// It never blocks on I/O.
func (m *Meter) QueueUsage(accountID string, delta Delta) {
	if delta.IsZero() {
		return
	}
	m.mu.Lock()
	agg, ok := m.pending[accountID]
	if !ok {
		agg = &Delta{QueuedAt: time.Now()}
		m.pending[accountID] = agg
	}
	agg.add(delta)
	size := len(m.pending)
	m.mu.Unlock()

	if size >= m.maxAccounts {
		// Flush now instead of waiting for the timer. Non-blocking: if a
		// flush is already signalled, one is enough.
		select {
		case m.kick <- struct{}{}:
		default:
		}
	}
}

// RecordImmediate bypasses the queue and increments the store synchronously,
// for call sites where losing an increment to a crash is unacceptable. The
// gated action already happened, so callers log failures and move on rather
// than blocking the user response.
func (m *Meter) RecordImmediate(ctx context.Context, accountID string, delta Delta) error {
	if delta.IsZero() {
		return nil
	}
	if err := m.store.MergeIncrement(ctx, accountID, delta); err != nil {
		m.logger.Error().Err(err).Str("user_id", accountID).Msg("Immediate usage write failed")
		return err
	}
	return nil
}

// PendingAccounts reports how many accounts have unflushed increments.
func (m *Meter) PendingAccounts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// Flush drains every queued aggregate into the store, one merge-increment
// per account. The batch is taken out of the map under the lock before any
// write, so a successfully flushed aggregate can never be flushed twice.
// Aggregates whose write fails are merged back for the next attempt.
func (m *Meter) Flush(ctx context.Context) {
	m.mu.Lock()
	if len(m.pending) == 0 {
		m.mu.Unlock()
		return
	}
	batch := m.pending
	m.pending = make(map[string]*Delta)
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, m.flushTimeout)
	defer cancel()

	flushed, retained := 0, 0
	for accountID, delta := range batch {
		if err := m.store.MergeIncrement(ctx, accountID, *delta); err != nil {
			m.logger.Error().Err(err).Str("user_id", accountID).Msg("Flush failed; retaining delta for retry")
			m.requeue(accountID, *delta)
			retained++
			continue
		}
		flushed++
	}
	if retained > 0 {
		m.logger.Warn().Int("flushed", flushed).Int("retained", retained).Msg("Flushed usage batch with failures")
		return
	}
	m.logger.Debug().Int("flushed", flushed).Msg("Flushed usage batch")
}

// requeue merges a failed aggregate back, preserving any increments queued
// while the flush was in flight.
func (m *Meter) requeue(accountID string, delta Delta) {
	m.mu.Lock()
	defer m.mu.Unlock()
	agg, ok := m.pending[accountID]
	if !ok {
		d := delta
		m.pending[accountID] = &d
		return
	}
	agg.add(delta)
}

// Close stops the flush loop and attempts one final flush so a graceful
// shutdown loses as little as possible.
func (m *Meter) Close(ctx context.Context) {
	m.stopOnce.Do(func() {
		close(m.stop)
	})
	<-m.done
	m.Flush(ctx)
}
