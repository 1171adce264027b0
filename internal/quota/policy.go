package quota

import "time"

// Limits is the set of caps granted by a (tier, add-ons) combination.
// 0 means no access, -1 means unlimited.
type Limits struct {
	MaxMessages               int // per period (day for free, month for pro)
	MaxMessageChars           int
	MaxVoiceSeconds           int // per period
	MaxVoiceInteractions      int // per period
	MaxVoiceSecondsPerSession int // hard cap on a single session
	MaxImagesPerDay           int
	MaxReplays                int // per period
	UnlimitedInsights         bool
}

// tierLimits is the base policy table. Values mirror the product's pricing
// page: free gets a small daily message allowance and nothing else; base pro
// gets a monthly allowance and image uploads but no voice or replays without
// an add-on.
var tierLimits = map[Tier]Limits{
	TierFree: {
		MaxMessages:     5,
		MaxMessageChars: 200,
	},
	TierPro: {
		MaxMessages:     200,
		MaxMessageChars: 1000,
		MaxImagesPerDay: 3,
	},
}

// addonLimits defines what each add-on grants. When an add-on is present its
// limits apply in full for the kinds it covers; the base tier's (typically
// zero) limits for those kinds are ignored.
var addonLimits = map[Addon]Limits{
	AddonVoice: {
		MaxVoiceSeconds:           3600, // 60 minutes/month
		MaxVoiceInteractions:      550,
		MaxVoiceSecondsPerSession: 1800, // 30 minutes, checked independently
	},
	AddonGameplay: {
		MaxReplays: 15,
	},
	AddonCompetitive: {
		UnlimitedInsights: true,
	},
}

// LimitsFor resolves the effective limit set for an account. Unknown tiers
// collapse to free, the most restrictive policy.
func LimitsFor(tier Tier, addons []Addon) Limits {
	limits, ok := tierLimits[tier]
	if !ok {
		limits = tierLimits[TierFree]
	}
	for _, a := range addons {
		grant, ok := addonLimits[a]
		if !ok {
			continue
		}
		switch a {
		case AddonVoice:
			limits.MaxVoiceSeconds = grant.MaxVoiceSeconds
			limits.MaxVoiceInteractions = grant.MaxVoiceInteractions
			limits.MaxVoiceSecondsPerSession = grant.MaxVoiceSecondsPerSession
		case AddonGameplay:
			limits.MaxReplays = grant.MaxReplays
		case AddonCompetitive:
			limits.UnlimitedInsights = true
		}
	}
	return limits
}

// limitFor returns the period cap governing one action kind.
func (l Limits) limitFor(kind Kind) int {
	switch kind {
	case KindMessage:
		return l.MaxMessages
	case KindVoice:
		return l.MaxVoiceSeconds
	case KindImage:
		return l.MaxImagesPerDay
	case KindReplay:
		return l.MaxReplays
	}
	return 0
}

// usedFor returns the counter governing one action kind as of now.
func (r *UsageRecord) usedFor(kind Kind, now time.Time) int {
	switch kind {
	case KindMessage:
		return r.Messages
	case KindVoice:
		return r.VoiceSeconds
	case KindImage:
		return r.ImagesUsed(now)
	case KindReplay:
		return r.Replays
	}
	return 0
}

// ImagesUsed returns the image counter as of now. The cap is per UTC day
// regardless of the billing window, so a counter left over from an earlier
// day reads as zero.
func (r *UsageRecord) ImagesUsed(now time.Time) int {
	if r.ImagesDay.Before(utcDay(now)) {
		return 0
	}
	return r.ImagesToday
}
