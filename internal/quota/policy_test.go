package quota

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLimitsForFreeTier(t *testing.T) {
	l := LimitsFor(TierFree, nil)
	assert.Equal(t, 5, l.MaxMessages)
	assert.Equal(t, 200, l.MaxMessageChars)
	assert.Equal(t, 0, l.MaxVoiceSeconds)
	assert.Equal(t, 0, l.MaxImagesPerDay)
	assert.Equal(t, 0, l.MaxReplays)
}

func TestLimitsForProTier(t *testing.T) {
	l := LimitsFor(TierPro, nil)
	assert.Equal(t, 200, l.MaxMessages)
	assert.Equal(t, 1000, l.MaxMessageChars)
	assert.Equal(t, 3, l.MaxImagesPerDay)
	assert.Equal(t, 0, l.MaxVoiceSeconds, "base pro has no voice without the add-on")
}

func TestLimitsForUnknownTierFallsBackToFree(t *testing.T) {
	l := LimitsFor(Tier("enterprise"), nil)
	assert.Equal(t, LimitsFor(TierFree, nil), l)
}

func TestVoiceAddonOverridesTierLimits(t *testing.T) {
	// A free account with the voice add-on is evaluated against the add-on's
	// limits, not the tier's zeros.
	l := LimitsFor(TierFree, []Addon{AddonVoice})
	assert.Equal(t, 3600, l.MaxVoiceSeconds)
	assert.Equal(t, 550, l.MaxVoiceInteractions)
	assert.Equal(t, 1800, l.MaxVoiceSecondsPerSession)
	// Message limits stay the tier's own.
	assert.Equal(t, 5, l.MaxMessages)
}

func TestGameplayAddonGrantsReplays(t *testing.T) {
	l := LimitsFor(TierPro, []Addon{AddonGameplay, AddonCompetitive})
	assert.Equal(t, 15, l.MaxReplays)
	assert.True(t, l.UnlimitedInsights)
}

func TestUnknownAddonIsIgnored(t *testing.T) {
	l := LimitsFor(TierPro, []Addon{Addon("team-coaching")})
	assert.Equal(t, LimitsFor(TierPro, nil), l)
}
