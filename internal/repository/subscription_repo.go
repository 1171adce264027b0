package repository

import (
	"context"
	"errors"
	"fmt"

	"app/internal/model"
	"app/internal/quota"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SubscriptionRepository defines methods for accessing subscription data.
// It doubles as the quota.AccountSource: the checker resolves a user's tier
// and add-ons through it.
type SubscriptionRepository interface {
	quota.AccountSource
	GetActiveSubscription(ctx context.Context, userID string) (*model.UserSubscription, error)
	GetPlanByID(ctx context.Context, planID string) (*model.SubscriptionPlan, error)
	// UpsertSubscription creates a subscription with the given planID for a
	// new user if none exists, using the plan's billing_period.
	UpsertSubscription(ctx context.Context, userID, planID string) error
	SetAddons(ctx context.Context, userID string, addons []string) error
	DowngradeUserToFreePlan(ctx context.Context, userID, freePlanID string) error
}

type subscriptionRepo struct {
	pool *pgxpool.Pool
}

// NewSubscriptionRepo creates a new SubscriptionRepository.
func NewSubscriptionRepo(pool *pgxpool.Pool) SubscriptionRepository {
	return &subscriptionRepo{pool: pool}
}

// GetTierAndAddons resolves the billing tier and active add-ons the quota
// checker evaluates against. A user whose subscription row lapsed still
// resolves to the free tier with no add-ons; quota.ErrAccountNotFound is
// reserved for users that do not exist at all.
func (r *subscriptionRepo) GetTierAndAddons(ctx context.Context, userID string) (quota.Tier, []quota.Addon, error) {
	const q = `
        SELECT p.tier, s.addons
        FROM user_subscriptions s
        JOIN subscription_plans p ON p.id = s.plan_id
        WHERE s.user_id = $1
          AND s.status IN ('active', 'cancelled') -- Paid users keep access until period end
          AND (s.ends_at + INTERVAL '6 hours') > NOW() -- Grace period covers the gap before the renewal cron runs
    `
	var tier string
	var addons []string
	err := r.pool.QueryRow(ctx, q, userID).Scan(&tier, &addons)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			const userQ = `SELECT EXISTS (SELECT 1 FROM users WHERE user_id = $1)`
			var exists bool
			if err := r.pool.QueryRow(ctx, userQ, userID).Scan(&exists); err != nil {
				return "", nil, fmt.Errorf("resolve user %s: %w", userID, err)
			}
			if !exists {
				return "", nil, quota.ErrAccountNotFound
			}
			// Lapsed subscription: the user keeps the free allowance until the
			// downgrade lands.
			return quota.TierFree, nil, nil
		}
		return "", nil, fmt.Errorf("resolve tier for user %s: %w", userID, err)
	}
	out := make([]quota.Addon, 0, len(addons))
	for _, a := range addons {
		out = append(out, quota.Addon(a))
	}
	return quota.Tier(tier), out, nil
}

// GetActiveSubscription returns the current active subscription for a user.
func (r *subscriptionRepo) GetActiveSubscription(ctx context.Context, userID string) (*model.UserSubscription, error) {
	const q = `
        SELECT user_id, plan_id, stripe_subscription_id, addons, starts_at, ends_at, status, created_at, updated_at
        FROM user_subscriptions
        WHERE user_id = $1
          AND status IN ('active', 'cancelled')
          AND (ends_at + INTERVAL '6 hours') > NOW()
    `
	var us model.UserSubscription
	err := r.pool.QueryRow(ctx, q, userID).Scan(
		&us.UserID,
		&us.PlanID,
		&us.StripeSubscriptionID,
		&us.Addons,
		&us.StartsAt,
		&us.EndsAt,
		&us.Status,
		&us.CreatedAt,
		&us.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch active subscription for user %s: %w", userID, err)
	}
	return &us, nil
}

// GetPlanByID returns the subscription plan.
func (r *subscriptionRepo) GetPlanByID(ctx context.Context, planID string) (*model.SubscriptionPlan, error) {
	const q = `
        SELECT id, name, price_cents, billing_period::text AS billing_period, tier
        FROM subscription_plans
        WHERE id = $1
    `
	var sp model.SubscriptionPlan
	err := r.pool.QueryRow(ctx, q, planID).Scan(&sp.ID, &sp.Name, &sp.PriceCents, &sp.BillingPeriod, &sp.Tier)
	if err != nil {
		return nil, fmt.Errorf("fetch plan %s: %w", planID, err)
	}
	return &sp, nil
}

// UpsertSubscription creates a subscription for a user with the given planID if none exists.
func (r *subscriptionRepo) UpsertSubscription(ctx context.Context, userID, planID string) error {
	const q = `
        INSERT INTO user_subscriptions (user_id, plan_id, addons, starts_at, ends_at, status, created_at, updated_at)
        SELECT $1, $2, '{}', NOW(), NOW() + billing_period, 'active', NOW(), NOW()
        FROM subscription_plans
        WHERE id = $2
        ON CONFLICT (user_id) DO NOTHING;
    `
	if _, err := r.pool.Exec(ctx, q, userID, planID); err != nil {
		return fmt.Errorf("upserting subscription %s for user %s: %w", planID, userID, err)
	}
	return nil
}

// SetAddons replaces the user's active add-on set.
func (r *subscriptionRepo) SetAddons(ctx context.Context, userID string, addons []string) error {
	const q = `UPDATE user_subscriptions SET addons = $2, updated_at = NOW() WHERE user_id = $1`
	if _, err := r.pool.Exec(ctx, q, userID, addons); err != nil {
		return fmt.Errorf("set addons for user %s: %w", userID, err)
	}
	return nil
}

// DowngradeUserToFreePlan downgrades a user to the free plan when their subscription is deleted
func (r *subscriptionRepo) DowngradeUserToFreePlan(ctx context.Context, userID, freePlanID string) error {
	const q = `
        UPDATE user_subscriptions
        SET
            plan_id = $2,
            addons = '{}',
            status = 'active',
            starts_at = NOW(),
            ends_at = NOW() + INTERVAL '31 days',
            stripe_subscription_id = NULL,
            updated_at = NOW()
        WHERE
            user_id = $1;
    `
	if _, err := r.pool.Exec(ctx, q, userID, freePlanID); err != nil {
		return fmt.Errorf("downgrade user %s to free plan: %w", userID, err)
	}
	return nil
}
