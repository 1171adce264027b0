package model

import "time"

// SubscriptionPlan identifies a billing tier. Numeric limits are not stored
// per plan row; they come from the static quota policy table.
type SubscriptionPlan struct {
	ID            string `db:"id" json:"id"`
	Name          string `db:"name" json:"name"`
	PriceCents    int    `db:"price_cents" json:"price_cents"`
	BillingPeriod string `db:"billing_period" json:"billing_period"`
	Tier          string `db:"tier" json:"tier"`
}

// UserSubscription represents a user's current subscription and active add-ons.
type UserSubscription struct {
	UserID               string    `db:"user_id" json:"user_id"`
	PlanID               string    `db:"plan_id" json:"plan_id"`
	StripeSubscriptionID *string   `db:"stripe_subscription_id" json:"stripe_subscription_id,omitempty"`
	Addons               []string  `db:"addons" json:"addons"`
	StartsAt             time.Time `db:"starts_at" json:"starts_at"`
	EndsAt               time.Time `db:"ends_at" json:"ends_at"`
	Status               string    `db:"status" json:"status"`
	CreatedAt            time.Time `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time `db:"updated_at" json:"updated_at"`
}
