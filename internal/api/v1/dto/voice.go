package dto

// VoiceTurnRequestDTO is one voice coaching interaction: the transcript of
// what the user said and how long the session segment ran.
type VoiceTurnRequestDTO struct {
	Transcript     string `json:"transcript" validate:"required"`
	SessionSeconds int    `json:"session_seconds" validate:"required,gt=0"`
}

// VoiceTurnResponseDTO carries the coach's spoken reply text.
type VoiceTurnResponseDTO struct {
	Reply string `json:"reply"`
}

// VoiceUsageResponseDTO summarizes the voice budget for the current period.
type VoiceUsageResponseDTO struct {
	SecondsUsed       int `json:"seconds_used"`
	SecondsLimit      int `json:"seconds_limit"`
	InteractionsUsed  int `json:"interactions_used"`
	InteractionsLimit int `json:"interactions_limit"`
	SessionCapSeconds int `json:"session_cap_seconds"`
}
