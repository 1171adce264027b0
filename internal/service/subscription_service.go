package service

import (
	"context"
	"fmt"

	"app/internal/model"
	"app/internal/repository"

	"github.com/rs/zerolog"
)

// SubscriptionWithPlan pairs a subscription with its resolved plan.
type SubscriptionWithPlan struct {
	Subscription *model.UserSubscription
	Plan         *model.SubscriptionPlan
}

// SubscriptionService defines business logic methods for subscriptions.
type SubscriptionService interface {
	// GetSubscription returns the user's active subscription and plan. A user
	// whose paid subscription lapsed is downgraded to the free plan on read,
	// mirroring what the renewal sweep would do.
	GetSubscription(ctx context.Context, userID string) (*SubscriptionWithPlan, error)
	SetAddons(ctx context.Context, userID string, addons []string) error
}

type subscriptionService struct {
	repo     repository.SubscriptionRepository
	freePlan string
	logger   zerolog.Logger
}

// NewSubscriptionService creates a new SubscriptionService with a scoped logger.
func NewSubscriptionService(repo repository.SubscriptionRepository, freePlanID string, logger zerolog.Logger) SubscriptionService {
	return &subscriptionService{
		repo:     repo,
		freePlan: freePlanID,
		logger:   logger.With().Str("service", "SubscriptionService").Logger(),
	}
}

func (s *subscriptionService) GetSubscription(ctx context.Context, userID string) (*SubscriptionWithPlan, error) {
	sub, err := s.repo.GetActiveSubscription(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to fetch active subscription")
		return nil, err
	}
	if sub == nil {
		// Lapsed or missing: put the user back on the free plan so quota
		// checks resolve a tier again.
		if err := s.repo.DowngradeUserToFreePlan(ctx, userID, s.freePlan); err != nil {
			s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to downgrade lapsed subscription")
			return nil, fmt.Errorf("failed to downgrade user %s to free plan: %w", userID, err)
		}
		s.logger.Info().Str("user_id", userID).Msg("Downgraded lapsed subscription to free plan")
		sub, err = s.repo.GetActiveSubscription(ctx, userID)
		if err != nil || sub == nil {
			return nil, fmt.Errorf("failed to fetch subscription after downgrade for user %s: %w", userID, err)
		}
	}

	plan, err := s.repo.GetPlanByID(ctx, sub.PlanID)
	if err != nil {
		s.logger.Error().Err(err).Str("plan_id", sub.PlanID).Msg("Failed to fetch subscription plan")
		return nil, err
	}

	return &SubscriptionWithPlan{Subscription: sub, Plan: plan}, nil
}

func (s *subscriptionService) SetAddons(ctx context.Context, userID string, addons []string) error {
	if err := s.repo.SetAddons(ctx, userID, addons); err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to set add-ons")
		return err
	}
	s.logger.Info().Str("user_id", userID).Strs("addons", addons).Msg("Updated subscription add-ons")
	return nil
}
