package model

import "time"

// User represents a user in the system
type User struct {
	UserID           string    `db:"user_id" json:"user_id"`
	Username         string    `db:"username" json:"username"`
	Email            string    `db:"email" json:"email"`
	AvatarURL        string    `db:"avatar_url" json:"avatar_url"`
	Platform         string    `db:"platform" json:"platform"`
	StripeCustomerID *string   `db:"stripe_customer_id" json:"stripe_customer_id,omitempty"`
	ActivePlanID     string    `db:"active_plan_id" json:"active_plan_id"`
	IsPremium        bool      `db:"is_premium" json:"is_premium"` // cached boolean, source of truth is the subscription
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	LastLogin        time.Time `db:"last_login" json:"last_login"`
}
