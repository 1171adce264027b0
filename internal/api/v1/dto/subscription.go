package dto

import "time"

// SubscriptionResponseDTO is the user's subscription together with its plan.
type SubscriptionResponseDTO struct {
	PlanID        string    `json:"plan_id"`
	PlanName      string    `json:"plan_name"`
	Tier          string    `json:"tier"`
	BillingPeriod string    `json:"billing_period"`
	Addons        []string  `json:"addons"`
	Status        string    `json:"status"`
	StartsAt      time.Time `json:"starts_at"`
	EndsAt        time.Time `json:"ends_at"`
}

// AddonsUpdateDTO replaces the subscription's add-on set.
type AddonsUpdateDTO struct {
	Addons []string `json:"addons" validate:"required,dive,oneof=voice gameplay-analysis competitive-insights"`
}
