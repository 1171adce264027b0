package service

import (
	"context"
	"fmt"
	"time"

	"app/internal/quota"
	"app/internal/repository"

	"github.com/rs/zerolog"
)

// UsageSummary is the full picture of an account's consumption for the
// current period: counters, effective limits and the period window.
type UsageSummary struct {
	Tier              quota.Tier
	Addons            []quota.Addon
	Record            quota.UsageRecord
	Limits            quota.Limits
	MessagesRemaining int
	PeriodStart       time.Time
	PeriodEnd         time.Time
}

// UsageService exposes usage summaries and period rotation. Rotation is the
// only operation that resets counters; the metering core itself never does.
type UsageService interface {
	GetSummary(ctx context.Context, userID string) (*UsageSummary, error)
	RotatePeriod(ctx context.Context, userID string) error
}

type usageService struct {
	usageRepo repository.UsageRepository
	accounts  repository.SubscriptionRepository
	logger    zerolog.Logger
}

// NewUsageService creates a new UsageService with a scoped logger.
func NewUsageService(usageRepo repository.UsageRepository, accounts repository.SubscriptionRepository, logger zerolog.Logger) UsageService {
	return &usageService{
		usageRepo: usageRepo,
		accounts:  accounts,
		logger:    logger.With().Str("service", "UsageService").Logger(),
	}
}

// GetSummary returns the account's counters together with the limits its
// tier and add-ons grant. Accounts that never performed a metered action get
// a zeroed record with the tier's default window.
func (s *usageService) GetSummary(ctx context.Context, userID string) (*UsageSummary, error) {
	tier, addons, err := s.accounts.GetTierAndAddons(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve subscription for user %s: %w", userID, err)
	}
	limits := quota.LimitsFor(tier, addons)

	rec, err := s.usageRepo.Get(ctx, userID)
	if err != nil {
		if err != quota.ErrNotFound {
			return nil, fmt.Errorf("failed to fetch usage record for user %s: %w", userID, err)
		}
		start, end := quota.PeriodFor(tier, time.Now())
		rec = &quota.UsageRecord{PeriodStart: start, PeriodEnd: end}
	}

	// The image counter rolls daily; a count from an earlier day reads as
	// zero even though the row still carries it.
	rec.ImagesToday = rec.ImagesUsed(time.Now())

	remaining := limits.MaxMessages - rec.Messages
	if remaining < 0 {
		remaining = 0
	}

	return &UsageSummary{
		Tier:              tier,
		Addons:            addons,
		Record:            *rec,
		Limits:            limits,
		MessagesRemaining: remaining,
		PeriodStart:       rec.PeriodStart,
		PeriodEnd:         rec.PeriodEnd,
	}, nil
}

// RotatePeriod zeroes the account's counters and opens a fresh window on the
// tier's cadence (daily for free accounts, monthly otherwise). Invoked by the
// rotation push endpoint after a check reported the period stale.
func (s *usageService) RotatePeriod(ctx context.Context, userID string) error {
	tier, _, err := s.accounts.GetTierAndAddons(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to resolve subscription for user %s: %w", userID, err)
	}
	start, end := quota.PeriodFor(tier, time.Now())
	if err := s.usageRepo.ResetPeriod(ctx, userID, start, end); err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to rotate usage period")
		return err
	}
	s.logger.Info().Str("user_id", userID).Time("period_end", end).Msg("Rotated usage period")
	return nil
}
