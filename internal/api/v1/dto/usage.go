package dto

import "time"

// UsageSummaryResponseDTO is the account's full usage picture for the
// current period. Limits of -1 mean unlimited, 0 means no access.
type UsageSummaryResponseDTO struct {
	Tier   string   `json:"tier"`
	Addons []string `json:"addons"`

	MessagesUsed      int `json:"messages_used"`
	MessagesLimit     int `json:"messages_limit"`
	MessagesRemaining int `json:"messages_remaining"`

	VoiceSecondsUsed      int `json:"voice_seconds_used"`
	VoiceSecondsLimit     int `json:"voice_seconds_limit"`
	VoiceInteractionsUsed int `json:"voice_interactions_used"`

	ImagesUsedToday int `json:"images_used_today"`
	ImagesPerDay    int `json:"images_per_day"`

	ReplaysUsed  int `json:"replays_used"`
	ReplaysLimit int `json:"replays_limit"`

	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`
}
