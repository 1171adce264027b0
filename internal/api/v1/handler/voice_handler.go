package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"app/internal/api/v1/dto"
	"app/internal/middleware"
	"app/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

type VoiceHandler struct {
	voiceService service.VoiceService
	validate     *validator.Validate
	logger       zerolog.Logger
}

func NewVoiceHandler(voiceService service.VoiceService, validate *validator.Validate, logger zerolog.Logger) *VoiceHandler {
	return &VoiceHandler{
		voiceService: voiceService,
		validate:     validate,
		logger:       logger,
	}
}

// RegisterRoutes mounts v1 voice routes
func (h *VoiceHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("/voice/coach", authMw(http.HandlerFunc(h.coachTurn)))
	mux.Handle("/voice/usage", authMw(http.HandlerFunc(h.getVoiceUsage)))
}

// coachTurn godoc
// @Summary Run one voice coaching turn
// @Description Checks the voice budget for the session length, generates a reply from the transcript, and records the consumed seconds immediately. A session longer than the per-session cap is denied with reason session_cap_exceeded even when monthly budget remains.
// @Tags voice
// @Accept json
// @Produce json
// @Param request body dto.VoiceTurnRequestDTO true "Voice turn"
// @Success 200 {object} dto.VoiceTurnResponseDTO
// @Failure 400 {string} string "Invalid JSON payload or validation failed"
// @Failure 401 {string} string "Unauthorized: User ID not found in context"
// @Failure 429 {object} dto.QuotaErrorDTO
// @Failure 500 {string} string "Failed to generate reply"
// @Router /voice/coach [post]
func (h *VoiceHandler) coachTurn(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}

	var req dto.VoiceTurnRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.voiceService.CoachTurn(r.Context(), userID, req.Transcript, req.SessionSeconds)
	if err != nil {
		if errors.Is(err, service.ErrQuotaExceeded) {
			writeQuotaDenial(w, h.logger, result.Decision)
			return
		}
		http.Error(w, "Failed to generate reply: "+err.Error(), http.StatusInternalServerError)
		return
	}

	resp := dto.VoiceTurnResponseDTO{Reply: result.Reply}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error().Err(err).Msg("Failed to encode response")
	}
}

// getVoiceUsage godoc
// @Summary Get voice usage
// @Description Returns the voice seconds and interactions used this period together with the account's limits.
// @Tags voice
// @Produce json
// @Success 200 {object} dto.VoiceUsageResponseDTO
// @Failure 401 {string} string "Unauthorized: User ID not found in context"
// @Failure 500 {string} string "Failed to fetch voice usage"
// @Router /voice/usage [get]
func (h *VoiceHandler) getVoiceUsage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}

	usage, err := h.voiceService.GetVoiceUsage(r.Context(), userID)
	if err != nil {
		http.Error(w, "Failed to fetch voice usage: "+err.Error(), http.StatusInternalServerError)
		return
	}

	resp := dto.VoiceUsageResponseDTO{
		SecondsUsed:       usage.SecondsUsed,
		SecondsLimit:      usage.SecondsLimit,
		InteractionsUsed:  usage.InteractionsUsed,
		InteractionsLimit: usage.InteractionsLimit,
		SessionCapSeconds: usage.SessionCapSeconds,
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error().Err(err).Msg("Failed to encode response")
	}
}
