package quota

import "time"

// Kind identifies a metered action type.
type Kind string

const (
	KindMessage Kind = "message"
	KindVoice   Kind = "voice"
	KindImage   Kind = "image"
	KindReplay  Kind = "replay"
)

// Tier is an account's base subscription level.
type Tier string

const (
	TierFree Tier = "free"
	TierPro  Tier = "pro"
)

// Addon is an optional paid capability layered on top of a tier.
type Addon string

const (
	AddonVoice       Addon = "voice"
	AddonGameplay    Addon = "gameplay-analysis"
	AddonCompetitive Addon = "competitive-insights"
)

// UsageRecord holds one account's counters for the current period.
// Counters only ever grow within a period; they reset to zero when the
// period rotator advances the window.
type UsageRecord struct {
	Messages          int
	VoiceSeconds      int
	VoiceInteractions int
	ImagesToday       int
	Replays           int
	// ImagesDay is the UTC day ImagesToday belongs to. The image cap is
	// daily even for tiers whose billing window is monthly, so the image
	// counter carries its own day marker instead of riding the period.
	ImagesDay   time.Time
	PeriodStart time.Time
	PeriodEnd   time.Time
}

// Delta is an additive usage increment for one account. Zero-valued fields
// are not written to the store.
type Delta struct {
	Tokens            int
	Messages          int
	VoiceSeconds      int
	VoiceInteractions int
	Replays           int
	Images            int
	QueuedAt          time.Time
}

// add merges another delta into this one. Addition is commutative, so the
// order in which deltas arrive does not affect the flushed total.
func (d *Delta) add(other Delta) {
	d.Tokens += other.Tokens
	d.Messages += other.Messages
	d.VoiceSeconds += other.VoiceSeconds
	d.VoiceInteractions += other.VoiceInteractions
	d.Replays += other.Replays
	d.Images += other.Images
}

// IsZero reports whether the delta carries no increments.
func (d Delta) IsZero() bool {
	return d.Tokens == 0 && d.Messages == 0 && d.VoiceSeconds == 0 &&
		d.VoiceInteractions == 0 && d.Replays == 0 && d.Images == 0
}

// Reason explains why a check was denied.
type Reason string

const (
	// ReasonPolicyDenied: the tier/add-on combination grants zero capacity.
	ReasonPolicyDenied Reason = "policy_denied"
	// ReasonLimitExceeded: counters plus the requested amount would pass the
	// period cap. Recoverable next period.
	ReasonLimitExceeded Reason = "limit_exceeded"
	// ReasonSessionCapExceeded: a single voice request alone is longer than
	// the hard per-session cap, independent of the monthly budget.
	ReasonSessionCapExceeded Reason = "session_cap_exceeded"
	// ReasonAccountNotFound: the account source has no record; treated as the
	// most restrictive policy.
	ReasonAccountNotFound Reason = "account_not_found"
	// ReasonStoreUnavailable: the counter store failed and the call site
	// chose the fail-closed policy.
	ReasonStoreUnavailable Reason = "store_unavailable"
)

// Decision is the outcome of a usage check. It never carries an error: store
// failures resolve to an explicit allow or deny per the call site's policy.
type Decision struct {
	Allowed   bool
	Reason    Reason
	Limit     int
	Used      int
	Remaining int
	// Degraded is set when a fail-open policy produced an allow without
	// consulting counters.
	Degraded bool
}

// FailurePolicy tells the checker how to resolve a counter-store failure.
// It is a property of each call site, not a global default: cheap actions
// fail open so an infrastructure hiccup does not lock users out, actions
// with real monetary cost fail closed.
type FailurePolicy int

const (
	FailOpen FailurePolicy = iota
	FailClosed
)

// StalePeriodPolicy names how the checker treats a record whose period has
// elapsed but which the rotator has not reset yet.
type StalePeriodPolicy int

const (
	// StalePeriodOptimistic evaluates against the stale counters. Keeps
	// request latency bounded; the rotator is notified and resets out of band.
	StalePeriodOptimistic StalePeriodPolicy = iota
	// StalePeriodDeny rejects until the rotator has run.
	StalePeriodDeny
)

const unlimited = -1

// allowed builds an allow decision with remaining capacity after the request.
func allowed(limit, used, amount int) Decision {
	if limit == unlimited {
		return Decision{Allowed: true, Limit: unlimited, Used: used, Remaining: unlimited}
	}
	return Decision{Allowed: true, Limit: limit, Used: used, Remaining: limit - used - amount}
}

// denied builds a deny decision carrying the numbers the caller needs to
// surface exact remaining capacity to the user.
func denied(reason Reason, limit, used int) Decision {
	remaining := limit - used
	if remaining < 0 {
		remaining = 0
	}
	return Decision{Reason: reason, Limit: limit, Used: used, Remaining: remaining}
}
