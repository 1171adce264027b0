package service

import (
	"context"
	"fmt"

	"app/internal/quota"
	"app/internal/repository"

	"github.com/rs/zerolog"
)

const coachSystemPrompt = "You are an expert Fortnite coach. Give concise, actionable advice " +
	"on building, editing, rotations and loadouts. Stay encouraging and specific."

// ChatResult is the outcome of a coaching message exchange.
type ChatResult struct {
	Reply    string
	Decision quota.Decision
}

// ChatService handles text coaching conversations, gating each message on the
// user's message quota and metering the usage the exchange consumed.
type ChatService interface {
	SendMessage(ctx context.Context, userID, message string, imageCount int) (*ChatResult, error)
}

type chatService struct {
	checker  *quota.Checker
	meter    *quota.Meter
	accounts repository.SubscriptionRepository
	coach    CoachModel
	logger   zerolog.Logger
}

// NewChatService creates a new ChatService with a scoped logger.
func NewChatService(
	checker *quota.Checker,
	meter *quota.Meter,
	accounts repository.SubscriptionRepository,
	coach CoachModel,
	logger zerolog.Logger,
) ChatService {
	return &chatService{
		checker:  checker,
		meter:    meter,
		accounts: accounts,
		coach:    coach,
		logger:   logger.With().Str("service", "ChatService").Logger(),
	}
}

// SendMessage validates the message against the tier's character limit,
// checks the message quota (and the image quota when attachments are
// present), calls the coach model, and queues the consumed usage. Messages
// fail open on store trouble: a chat turn is cheap, locking users out is not.
func (s *chatService) SendMessage(ctx context.Context, userID, message string, imageCount int) (*ChatResult, error) {
	tier, addons, err := s.accounts.GetTierAndAddons(ctx, userID)
	if err != nil {
		// Let the checker resolve the same failure consistently below.
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("Failed to resolve tier for length validation")
	} else {
		limits := quota.LimitsFor(tier, addons)
		if limits.MaxMessageChars > 0 && len([]rune(message)) > limits.MaxMessageChars {
			return nil, fmt.Errorf("%w: limit %d characters", ErrMessageTooLong, limits.MaxMessageChars)
		}
	}

	decision := s.checker.Check(ctx, userID, quota.KindMessage, 1, quota.FailOpen)
	if !decision.Allowed {
		return &ChatResult{Decision: decision}, ErrQuotaExceeded
	}

	if imageCount > 0 {
		imgDecision := s.checker.Check(ctx, userID, quota.KindImage, imageCount, quota.FailOpen)
		if !imgDecision.Allowed {
			return &ChatResult{Decision: imgDecision}, ErrQuotaExceeded
		}
	}

	reply, tokens, err := s.coach.Coach(ctx, coachSystemPrompt, message)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Coach model call failed")
		return nil, fmt.Errorf("failed to generate coaching reply: %w", err)
	}

	// The model call already happened; meter it even if the response write
	// later fails.
	s.meter.QueueUsage(userID, quota.Delta{
		Messages: 1,
		Tokens:   tokens,
		Images:   imageCount,
	})

	return &ChatResult{Reply: reply, Decision: decision}, nil
}
