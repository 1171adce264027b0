package repository

import (
	"context"
	"errors"
	"fmt"

	"app/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UserRepository interface {
	CreateUser(ctx context.Context, u *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	UpdateLastLogin(ctx context.Context, userID string) error
}

type userRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) UserRepository {
	return &userRepo{pool: pool}
}

func (r *userRepo) CreateUser(ctx context.Context, u *model.User) error {
	const q = `
        INSERT INTO users (user_id, username, email, avatar_url, platform, active_plan_id, is_premium, created_at, last_login)
        VALUES ($1, $2, $3, $4, $5, 'free', FALSE, NOW(), NOW())
        RETURNING active_plan_id, is_premium, created_at, last_login
    `
	err := r.pool.QueryRow(ctx, q, u.UserID, u.Username, u.Email, u.AvatarURL, u.Platform).
		Scan(&u.ActivePlanID, &u.IsPremium, &u.CreatedAt, &u.LastLogin)
	if err != nil {
		return fmt.Errorf("create user %s: %w", u.UserID, err)
	}
	return nil
}

func (r *userRepo) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	const q = `
        SELECT user_id, username, email, avatar_url, platform, stripe_customer_id, active_plan_id, is_premium, created_at, last_login
        FROM users
        WHERE user_id = $1
    `
	var u model.User
	err := r.pool.QueryRow(ctx, q, id).Scan(
		&u.UserID,
		&u.Username,
		&u.Email,
		&u.AvatarURL,
		&u.Platform,
		&u.StripeCustomerID,
		&u.ActivePlanID,
		&u.IsPremium,
		&u.CreatedAt,
		&u.LastLogin,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch user %s: %w", id, err)
	}
	return &u, nil
}

func (r *userRepo) UpdateLastLogin(ctx context.Context, userID string) error {
	const q = `UPDATE users SET last_login = NOW() WHERE user_id = $1`
	if _, err := r.pool.Exec(ctx, q, userID); err != nil {
		return fmt.Errorf("update last login for user %s: %w", userID, err)
	}
	return nil
}
