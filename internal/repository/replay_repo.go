package repository

import (
	"context"
	"errors"
	"fmt"

	"app/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ReplayRepository persists gameplay replay upload records.
type ReplayRepository interface {
	CreateReplay(ctx context.Context, rep *model.Replay) error
	GetReplayByID(ctx context.Context, id string) (*model.Replay, error)
	UpdateStatus(ctx context.Context, id, status string) error
	DeleteReplay(ctx context.Context, id string) error
}

type replayRepo struct {
	pool *pgxpool.Pool
}

// NewReplayRepo creates a new ReplayRepository.
func NewReplayRepo(pool *pgxpool.Pool) ReplayRepository {
	return &replayRepo{pool: pool}
}

func (r *replayRepo) CreateReplay(ctx context.Context, rep *model.Replay) error {
	const q = `
        INSERT INTO replays (id, user_id, filename, storage_path, status, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
        RETURNING created_at, updated_at
    `
	err := r.pool.QueryRow(ctx, q, rep.ID, rep.UserID, rep.Filename, rep.StoragePath, rep.Status).
		Scan(&rep.CreatedAt, &rep.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create replay for user %s: %w", rep.UserID, err)
	}
	return nil
}

func (r *replayRepo) GetReplayByID(ctx context.Context, id string) (*model.Replay, error) {
	const q = `
        SELECT id, user_id, filename, storage_path, status, created_at, updated_at
        FROM replays
        WHERE id = $1
    `
	var rep model.Replay
	err := r.pool.QueryRow(ctx, q, id).Scan(
		&rep.ID,
		&rep.UserID,
		&rep.Filename,
		&rep.StoragePath,
		&rep.Status,
		&rep.CreatedAt,
		&rep.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch replay %s: %w", id, err)
	}
	return &rep, nil
}

func (r *replayRepo) UpdateStatus(ctx context.Context, id, status string) error {
	const q = `UPDATE replays SET status = $2, updated_at = NOW() WHERE id = $1`
	if _, err := r.pool.Exec(ctx, q, id, status); err != nil {
		return fmt.Errorf("update replay %s status: %w", id, err)
	}
	return nil
}

func (r *replayRepo) DeleteReplay(ctx context.Context, id string) error {
	const q = `DELETE FROM replays WHERE id = $1`
	if _, err := r.pool.Exec(ctx, q, id); err != nil {
		return fmt.Errorf("delete replay %s: %w", id, err)
	}
	return nil
}
