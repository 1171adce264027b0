package dto

import "time"

// UserCreateDTO provisions the account on first login.
type UserCreateDTO struct {
	Username  string `json:"username" validate:"required,min=1,max=64"`
	Email     string `json:"email" validate:"required,email"`
	AvatarURL string `json:"avatar_url" validate:"omitempty,url"`
	Platform  string `json:"platform" validate:"omitempty,oneof=pc playstation xbox switch mobile"`
}

// UserResponseDTO is a user account record.
type UserResponseDTO struct {
	UserID       string    `json:"user_id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	AvatarURL    string    `json:"avatar_url,omitempty"`
	Platform     string    `json:"platform,omitempty"`
	ActivePlanID string    `json:"active_plan_id"`
	IsPremium    bool      `json:"is_premium"`
	CreatedAt    time.Time `json:"created_at"`
	LastLogin    time.Time `json:"last_login"`
}
