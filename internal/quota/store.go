package quota

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by CounterStore.Get when an account has no usage
// record yet.
var ErrNotFound = errors.New("usage record not found")

// ErrAccountNotFound is returned by AccountSource when the account does not
// exist. The checker maps it to a policy denial.
var ErrAccountNotFound = errors.New("account not found")

// CounterStore is the persistent home of usage records. MergeIncrement must
// be atomic and commutative per field ("add N", never read-modify-write) so
// concurrent flushes and direct writes cannot lose updates.
type CounterStore interface {
	Get(ctx context.Context, accountID string) (*UsageRecord, error)
	MergeIncrement(ctx context.Context, accountID string, delta Delta) error
	SetIfAbsent(ctx context.Context, accountID string, rec UsageRecord) error
}

// AccountSource resolves an account's billing tier and active add-ons.
type AccountSource interface {
	GetTierAndAddons(ctx context.Context, accountID string) (Tier, []Addon, error)
}

// Clock abstracts time for period-boundary comparisons.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns a Clock backed by time.Now.
func SystemClock() Clock { return systemClock{} }

// RotationNotifier is told when a check observes an expired period so that
// the external period rotator can reset the record. The core never rotates
// counters itself.
type RotationNotifier interface {
	RotationDue(ctx context.Context, accountID string, periodEnd time.Time)
}

// NopNotifier discards rotation notifications.
type NopNotifier struct{}

func (NopNotifier) RotationDue(context.Context, string, time.Time) {}

// PeriodFor returns the initial period window for a lazily created record.
// Free-tier message counters accumulate per calendar day (UTC); everything
// else runs on a rolling month.
func PeriodFor(tier Tier, now time.Time) (start, end time.Time) {
	if tier == TierFree {
		day := utcDay(now)
		return day, day.Add(24 * time.Hour)
	}
	return now, now.AddDate(0, 1, 0)
}

// utcDay truncates to the start of t's UTC day.
func utcDay(t time.Time) time.Time {
	return t.UTC().Truncate(24 * time.Hour)
}
