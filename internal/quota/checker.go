package quota

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
)

// Checker decides whether a metered action is allowed right now. Checking
// never mutates counters; the caller records usage after the gated action
// succeeds.
type Checker struct {
	store    CounterStore
	accounts AccountSource
	clock    Clock
	rotation RotationNotifier
	stale    StalePeriodPolicy
	logger   zerolog.Logger
}

// CheckerOption customizes a Checker.
type CheckerOption func(*Checker)

// WithClock replaces the system clock.
func WithClock(c Clock) CheckerOption {
	return func(ch *Checker) { ch.clock = c }
}

// WithRotationNotifier sets the target for stale-period notifications.
func WithRotationNotifier(n RotationNotifier) CheckerOption {
	return func(ch *Checker) { ch.rotation = n }
}

// WithStalePeriodPolicy makes the stale-period behavior an explicit choice
// instead of an implicit fallback.
func WithStalePeriodPolicy(p StalePeriodPolicy) CheckerOption {
	return func(ch *Checker) { ch.stale = p }
}

// NewChecker creates a Checker with a scoped logger.
func NewChecker(store CounterStore, accounts AccountSource, logger zerolog.Logger, opts ...CheckerOption) *Checker {
	ch := &Checker{
		store:    store,
		accounts: accounts,
		clock:    SystemClock(),
		rotation: NopNotifier{},
		stale:    StalePeriodOptimistic,
		logger:   logger.With().Str("service", "QuotaChecker").Logger(),
	}
	for _, opt := range opts {
		opt(ch)
	}
	return ch
}

// Check evaluates one requested action against the account's policy and
// current counters. For voice, amount is a duration in seconds and also
// counts as one interaction. policy resolves counter-store failures for this
// call site; Check itself never returns an error for them.
func (c *Checker) Check(ctx context.Context, accountID string, kind Kind, amount int, policy FailurePolicy) Decision {
	tier, addons, err := c.accounts.GetTierAndAddons(ctx, accountID)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return denied(ReasonAccountNotFound, 0, 0)
		}
		c.logger.Error().Err(err).Str("user_id", accountID).Msg("Failed to resolve tier and add-ons")
		return c.resolveStoreFailure(policy, kind)
	}

	limits := LimitsFor(tier, addons)
	limit := limits.limitFor(kind)
	if limit == 0 {
		// The tier/add-on combination grants nothing for this kind; deny
		// without touching counters.
		return denied(ReasonPolicyDenied, 0, 0)
	}

	// A single voice session longer than the hard cap is rejected regardless
	// of remaining monthly budget, with its own reason so the caller can say
	// "session too long" instead of "monthly limit reached".
	if kind == KindVoice && limits.MaxVoiceSecondsPerSession > 0 && amount > limits.MaxVoiceSecondsPerSession {
		return denied(ReasonSessionCapExceeded, limits.MaxVoiceSecondsPerSession, 0)
	}

	if limit == unlimited {
		return allowed(unlimited, 0, amount)
	}

	rec, err := c.loadRecord(ctx, accountID, tier)
	if err != nil {
		c.logger.Error().Err(err).Str("user_id", accountID).Str("kind", string(kind)).Msg("Counter store unavailable during check")
		return c.resolveStoreFailure(policy, kind)
	}

	now := c.clock.Now()
	if !rec.PeriodEnd.IsZero() && !now.Before(rec.PeriodEnd) {
		// The period elapsed but the rotator has not reset the record yet.
		c.rotation.RotationDue(ctx, accountID, rec.PeriodEnd)
		if c.stale == StalePeriodDeny {
			return denied(ReasonLimitExceeded, limit, rec.usedFor(kind, now))
		}
		// Optimistic: evaluate against the stale counters to keep latency
		// bounded; the rotator resets out of band.
	}

	used := rec.usedFor(kind, now)
	if used+amount > limit {
		return denied(ReasonLimitExceeded, limit, used)
	}

	if kind == KindVoice && limits.MaxVoiceInteractions > 0 {
		if rec.VoiceInteractions+1 > limits.MaxVoiceInteractions {
			return denied(ReasonLimitExceeded, limits.MaxVoiceInteractions, rec.VoiceInteractions)
		}
	}

	return allowed(limit, used, amount)
}

// loadRecord fetches the account's usage record, lazily creating a zeroed
// one with the tier's period cadence when absent.
func (c *Checker) loadRecord(ctx context.Context, accountID string, tier Tier) (*UsageRecord, error) {
	rec, err := c.store.Get(ctx, accountID)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	now := c.clock.Now()
	start, end := PeriodFor(tier, now)
	fresh := UsageRecord{PeriodStart: start, PeriodEnd: end, ImagesDay: utcDay(now)}
	if err := c.store.SetIfAbsent(ctx, accountID, fresh); err != nil {
		// Creation is best effort; a concurrent request may have won the
		// race. Evaluate against zero counters either way.
		c.logger.Warn().Err(err).Str("user_id", accountID).Msg("Failed to initialize usage record")
	}
	return &fresh, nil
}

func (c *Checker) resolveStoreFailure(policy FailurePolicy, kind Kind) Decision {
	if policy == FailClosed {
		return denied(ReasonStoreUnavailable, 0, 0)
	}
	c.logger.Warn().Str("kind", string(kind)).Msg("Counter store unavailable; failing open")
	return Decision{Allowed: true, Degraded: true, Remaining: unlimited, Limit: unlimited}
}
