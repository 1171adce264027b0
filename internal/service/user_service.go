package service

import (
	"context"
	"fmt"

	"app/internal/model"
	"app/internal/repository"

	"github.com/rs/zerolog"
)

// UserService defines user account operations.
type UserService interface {
	// CreateUser provisions the account on first login: the user row plus a
	// free subscription so quota checks resolve a tier immediately.
	CreateUser(ctx context.Context, u *model.User) (*model.User, error)
	GetUser(ctx context.Context, userID string) (*model.User, error)
}

type userService struct {
	repo     repository.UserRepository
	subs     repository.SubscriptionRepository
	freePlan string
	logger   zerolog.Logger
}

// NewUserService creates a new UserService with a scoped logger.
func NewUserService(repo repository.UserRepository, subs repository.SubscriptionRepository, freePlanID string, logger zerolog.Logger) UserService {
	return &userService{
		repo:     repo,
		subs:     subs,
		freePlan: freePlanID,
		logger:   logger.With().Str("service", "UserService").Logger(),
	}
}

func (s *userService) CreateUser(ctx context.Context, u *model.User) (*model.User, error) {
	existing, err := s.repo.GetUserByID(ctx, u.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user %s: %w", u.UserID, err)
	}
	if existing != nil {
		if err := s.repo.UpdateLastLogin(ctx, u.UserID); err != nil {
			s.logger.Warn().Err(err).Str("user_id", u.UserID).Msg("Failed to update last login")
		}
		return existing, nil
	}

	if err := s.repo.CreateUser(ctx, u); err != nil {
		return nil, fmt.Errorf("failed to create user %s: %w", u.UserID, err)
	}
	if err := s.subs.UpsertSubscription(ctx, u.UserID, s.freePlan); err != nil {
		s.logger.Error().Err(err).Str("user_id", u.UserID).Msg("Failed to provision free subscription")
		return nil, fmt.Errorf("failed to provision free subscription: %w", err)
	}
	s.logger.Info().Str("user_id", u.UserID).Msg("Provisioned new user on free plan")
	return u, nil
}

func (s *userService) GetUser(ctx context.Context, userID string) (*model.User, error) {
	u, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user %s: %w", userID, err)
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	return u, nil
}
