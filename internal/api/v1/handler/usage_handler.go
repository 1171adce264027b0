package handler

import (
	"encoding/json"
	"net/http"

	"app/internal/api/v1/dto"
	"app/internal/middleware"
	"app/internal/service"

	"github.com/rs/zerolog"
)

type UsageHandler struct {
	usageService service.UsageService
	logger       zerolog.Logger
}

func NewUsageHandler(usageService service.UsageService, logger zerolog.Logger) *UsageHandler {
	return &UsageHandler{
		usageService: usageService,
		logger:       logger,
	}
}

// RegisterRoutes mounts v1 usage routes
func (h *UsageHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("/usage", authMw(http.HandlerFunc(h.getSummary)))
}

// getSummary godoc
// @Summary Get usage summary
// @Description Returns the account's counters, effective limits and current period window. Limits of -1 mean unlimited.
// @Tags usage
// @Produce json
// @Success 200 {object} dto.UsageSummaryResponseDTO
// @Failure 401 {string} string "Unauthorized: User ID not found in context"
// @Failure 500 {string} string "Failed to fetch usage summary"
// @Router /usage [get]
func (h *UsageHandler) getSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}

	summary, err := h.usageService.GetSummary(r.Context(), userID)
	if err != nil {
		http.Error(w, "Failed to fetch usage summary: "+err.Error(), http.StatusInternalServerError)
		return
	}

	addons := make([]string, len(summary.Addons))
	for i, a := range summary.Addons {
		addons[i] = string(a)
	}

	resp := dto.UsageSummaryResponseDTO{
		Tier:                  string(summary.Tier),
		Addons:                addons,
		MessagesUsed:          summary.Record.Messages,
		MessagesLimit:         summary.Limits.MaxMessages,
		MessagesRemaining:     summary.MessagesRemaining,
		VoiceSecondsUsed:      summary.Record.VoiceSeconds,
		VoiceSecondsLimit:     summary.Limits.MaxVoiceSeconds,
		VoiceInteractionsUsed: summary.Record.VoiceInteractions,
		ImagesUsedToday:       summary.Record.ImagesToday,
		ImagesPerDay:          summary.Limits.MaxImagesPerDay,
		ReplaysUsed:           summary.Record.Replays,
		ReplaysLimit:          summary.Limits.MaxReplays,
		PeriodStart:           summary.PeriodStart,
		PeriodEnd:             summary.PeriodEnd,
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error().Err(err).Msg("Failed to encode response")
	}
}
