package service

import (
	"context"
	"fmt"

	"app/internal/quota"
	"app/internal/repository"

	"github.com/rs/zerolog"
)

const voiceSystemPrompt = "You are an expert Fortnite voice coach. The user is speaking to you " +
	"mid-session; answer in short sentences that are easy to absorb while playing."

// VoiceTurnResult is the outcome of one voice coaching interaction.
type VoiceTurnResult struct {
	Reply    string
	Decision quota.Decision
}

// VoiceUsage summarizes the voice budget for the current period.
type VoiceUsage struct {
	SecondsUsed       int
	SecondsLimit      int
	InteractionsUsed  int
	InteractionsLimit int
	SessionCapSeconds int
}

// VoiceService handles real-time voice coaching turns. Voice minutes carry
// real provider cost, so every turn is gated fail-closed and recorded
// synchronously instead of through the batch queue.
type VoiceService interface {
	CoachTurn(ctx context.Context, userID, transcript string, sessionSeconds int) (*VoiceTurnResult, error)
	GetVoiceUsage(ctx context.Context, userID string) (*VoiceUsage, error)
}

type voiceService struct {
	checker   *quota.Checker
	meter     *quota.Meter
	usageRepo repository.UsageRepository
	accounts  repository.SubscriptionRepository
	coach     CoachModel
	logger    zerolog.Logger
}

// NewVoiceService creates a new VoiceService with a scoped logger.
func NewVoiceService(
	checker *quota.Checker,
	meter *quota.Meter,
	usageRepo repository.UsageRepository,
	accounts repository.SubscriptionRepository,
	coach CoachModel,
	logger zerolog.Logger,
) VoiceService {
	return &voiceService{
		checker:   checker,
		meter:     meter,
		usageRepo: usageRepo,
		accounts:  accounts,
		coach:     coach,
		logger:    logger.With().Str("service", "VoiceService").Logger(),
	}
}

// CoachTurn checks the voice budget for the requested session length, calls
// the coach model on the transcript, and records the consumed seconds and
// interaction immediately. A session longer than the hard per-session cap is
// denied with its own reason even when monthly budget remains.
func (s *voiceService) CoachTurn(ctx context.Context, userID, transcript string, sessionSeconds int) (*VoiceTurnResult, error) {
	decision := s.checker.Check(ctx, userID, quota.KindVoice, sessionSeconds, quota.FailClosed)
	if !decision.Allowed {
		return &VoiceTurnResult{Decision: decision}, ErrQuotaExceeded
	}

	reply, tokens, err := s.coach.Coach(ctx, voiceSystemPrompt, transcript)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Voice coach model call failed")
		return nil, fmt.Errorf("failed to generate voice coaching reply: %w", err)
	}

	// Write-through, not queued: losing voice seconds to a crash would let
	// users overrun a budget that costs real money. The turn already
	// happened, so a failed write is logged and the reply still returned.
	if err := s.meter.RecordImmediate(ctx, userID, quota.Delta{
		VoiceSeconds:      sessionSeconds,
		VoiceInteractions: 1,
		Tokens:            tokens,
	}); err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Int("seconds", sessionSeconds).Msg("Failed to record voice usage")
	}

	return &VoiceTurnResult{Reply: reply, Decision: decision}, nil
}

// GetVoiceUsage returns the voice counters and limits for the current period.
func (s *voiceService) GetVoiceUsage(ctx context.Context, userID string) (*VoiceUsage, error) {
	tier, addons, err := s.accounts.GetTierAndAddons(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve subscription for user %s: %w", userID, err)
	}
	limits := quota.LimitsFor(tier, addons)

	usage := &VoiceUsage{
		SecondsLimit:      limits.MaxVoiceSeconds,
		InteractionsLimit: limits.MaxVoiceInteractions,
		SessionCapSeconds: limits.MaxVoiceSecondsPerSession,
	}

	rec, err := s.usageRepo.Get(ctx, userID)
	if err != nil {
		if err == quota.ErrNotFound {
			return usage, nil
		}
		return nil, fmt.Errorf("failed to fetch usage record for user %s: %w", userID, err)
	}
	usage.SecondsUsed = rec.VoiceSeconds
	usage.InteractionsUsed = rec.VoiceInteractions
	return usage, nil
}
