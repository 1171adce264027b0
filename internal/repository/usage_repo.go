package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"app/internal/quota"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UsageRepository is the persistent counter store for per-user usage
// records. It implements quota.CounterStore on Postgres: increments are
// single atomic "add N to column" statements, never read-modify-write, so
// concurrent flushes and direct writes cannot lose updates.
type UsageRepository interface {
	quota.CounterStore
	// ResetPeriod zeroes all counters and advances the period window. Only
	// the period rotator calls this; the metering core never does.
	ResetPeriod(ctx context.Context, userID string, start, end time.Time) error
}

type usageRepo struct {
	pool *pgxpool.Pool
}

// NewUsageRepo creates a new UsageRepository.
func NewUsageRepo(pool *pgxpool.Pool) UsageRepository {
	return &usageRepo{pool: pool}
}

// Get returns the user's current usage record, or quota.ErrNotFound when the
// user has never performed a metered action.
func (r *usageRepo) Get(ctx context.Context, userID string) (*quota.UsageRecord, error) {
	const q = `
        SELECT messages_this_period,
               voice_seconds_this_period,
               voice_interactions_this_period,
               images_uploaded_today,
               images_day,
               replays_uploaded_this_period,
               period_start,
               period_end
        FROM usage_records
        WHERE user_id = $1
    `
	var rec quota.UsageRecord
	err := r.pool.QueryRow(ctx, q, userID).Scan(
		&rec.Messages,
		&rec.VoiceSeconds,
		&rec.VoiceInteractions,
		&rec.ImagesToday,
		&rec.ImagesDay,
		&rec.Replays,
		&rec.PeriodStart,
		&rec.PeriodEnd,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, quota.ErrNotFound
		}
		return nil, fmt.Errorf("fetch usage record for user %s: %w", userID, err)
	}
	return &rec, nil
}

// MergeIncrement adds the delta to the user's counters in one statement.
// If the row does not exist yet it is created carrying the delta values and
// a default monthly window, so increments arriving before the lazily created
// record are never dropped. The image counter rolls with the UTC day rather
// than the billing window: an increment landing on a fresh day replaces the
// stale count instead of adding to it.
func (r *usageRepo) MergeIncrement(ctx context.Context, userID string, delta quota.Delta) error {
	const q = `
        INSERT INTO usage_records (
            user_id,
            tokens_used_this_period,
            messages_this_period,
            voice_seconds_this_period,
            voice_interactions_this_period,
            images_uploaded_today,
            images_day,
            replays_uploaded_this_period,
            period_start,
            period_end,
            last_updated
        ) VALUES ($1, $2, $3, $4, $5, $6, (NOW() AT TIME ZONE 'UTC')::date, $7, NOW(), NOW() + INTERVAL '1 month', NOW())
        ON CONFLICT (user_id) DO UPDATE SET
            tokens_used_this_period        = usage_records.tokens_used_this_period + EXCLUDED.tokens_used_this_period,
            messages_this_period           = usage_records.messages_this_period + EXCLUDED.messages_this_period,
            voice_seconds_this_period      = usage_records.voice_seconds_this_period + EXCLUDED.voice_seconds_this_period,
            voice_interactions_this_period = usage_records.voice_interactions_this_period + EXCLUDED.voice_interactions_this_period,
            images_uploaded_today          = CASE
                WHEN usage_records.images_day >= (NOW() AT TIME ZONE 'UTC')::date
                    THEN usage_records.images_uploaded_today + EXCLUDED.images_uploaded_today
                ELSE EXCLUDED.images_uploaded_today
            END,
            images_day                     = GREATEST(usage_records.images_day, (NOW() AT TIME ZONE 'UTC')::date),
            replays_uploaded_this_period   = usage_records.replays_uploaded_this_period + EXCLUDED.replays_uploaded_this_period,
            last_updated                   = NOW()
    `
	_, err := r.pool.Exec(ctx, q, userID,
		delta.Tokens,
		delta.Messages,
		delta.VoiceSeconds,
		delta.VoiceInteractions,
		delta.Images,
		delta.Replays,
	)
	if err != nil {
		return fmt.Errorf("merge usage increment for user %s: %w", userID, err)
	}
	return nil
}

// SetIfAbsent creates a zeroed usage record with the given period window.
// Existing rows are left untouched.
func (r *usageRepo) SetIfAbsent(ctx context.Context, userID string, rec quota.UsageRecord) error {
	const q = `
        INSERT INTO usage_records (
            user_id,
            messages_this_period,
            voice_seconds_this_period,
            voice_interactions_this_period,
            images_uploaded_today,
            images_day,
            replays_uploaded_this_period,
            period_start,
            period_end,
            last_updated
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
        ON CONFLICT (user_id) DO NOTHING
    `
	_, err := r.pool.Exec(ctx, q, userID,
		rec.Messages,
		rec.VoiceSeconds,
		rec.VoiceInteractions,
		rec.ImagesToday,
		rec.ImagesDay,
		rec.Replays,
		rec.PeriodStart,
		rec.PeriodEnd,
	)
	if err != nil {
		return fmt.Errorf("initialize usage record for user %s: %w", userID, err)
	}
	return nil
}

// ResetPeriod zeroes the counters and advances the window. The wholesale
// write is reserved for period boundaries.
func (r *usageRepo) ResetPeriod(ctx context.Context, userID string, start, end time.Time) error {
	const q = `
        UPDATE usage_records SET
            tokens_used_this_period        = 0,
            messages_this_period           = 0,
            voice_seconds_this_period      = 0,
            voice_interactions_this_period = 0,
            images_uploaded_today          = 0,
            images_day                     = (NOW() AT TIME ZONE 'UTC')::date,
            replays_uploaded_this_period   = 0,
            period_start                   = $2,
            period_end                     = $3,
            last_updated                   = NOW()
        WHERE user_id = $1
    `
	if _, err := r.pool.Exec(ctx, q, userID, start, end); err != nil {
		return fmt.Errorf("reset usage period for user %s: %w", userID, err)
	}
	return nil
}
