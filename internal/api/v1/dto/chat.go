package dto

// ChatRequestDTO is a single coaching message from the user.
type ChatRequestDTO struct {
	Message    string `json:"message" validate:"required"`
	ImageCount int    `json:"image_count" validate:"gte=0,lte=10"`
}

// ChatResponseDTO carries the coach's reply and remaining message capacity.
type ChatResponseDTO struct {
	Reply             string `json:"reply"`
	MessagesRemaining int    `json:"messages_remaining"`
	Degraded          bool   `json:"degraded,omitempty"`
}

// QuotaErrorDTO is the body returned with HTTP 429 when a usage check denies
// the action. Limit and Remaining are -1 when unlimited.
type QuotaErrorDTO struct {
	Error     string `json:"error"`
	Reason    string `json:"reason"`
	Limit     int    `json:"limit"`
	Used      int    `json:"used"`
	Remaining int    `json:"remaining"`
}
