package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"app/internal/api/v1/dto"
	"app/internal/middleware"
	"app/internal/quota"
	"app/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

type ChatHandler struct {
	chatService service.ChatService
	validate    *validator.Validate
	logger      zerolog.Logger
}

func NewChatHandler(chatService service.ChatService, validate *validator.Validate, logger zerolog.Logger) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
		validate:    validate,
		logger:      logger,
	}
}

// RegisterRoutes mounts v1 chat routes
func (h *ChatHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("/chat", authMw(http.HandlerFunc(h.handleChat)))
}

func (h *ChatHandler) handleChat(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/chat":
		h.sendMessage(w, r)
	default:
		http.NotFound(w, r)
	}
}

// sendMessage godoc
// @Summary Send a coaching message
// @Description Sends a message to the AI coach. The message is gated on the account's message quota; attached images are gated on the daily image quota. Denials return 429 with the reason and remaining capacity.
// @Tags chat
// @Accept json
// @Produce json
// @Param request body dto.ChatRequestDTO true "Chat message"
// @Success 200 {object} dto.ChatResponseDTO
// @Failure 400 {string} string "Invalid JSON payload or message too long"
// @Failure 401 {string} string "Unauthorized: User ID not found in context"
// @Failure 429 {object} dto.QuotaErrorDTO
// @Failure 500 {string} string "Failed to generate reply"
// @Router /chat [post]
func (h *ChatHandler) sendMessage(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}

	var req dto.ChatRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.chatService.SendMessage(r.Context(), userID, req.Message, req.ImageCount)
	if err != nil {
		if errors.Is(err, service.ErrQuotaExceeded) {
			writeQuotaDenial(w, h.logger, result.Decision)
			return
		}
		if errors.Is(err, service.ErrMessageTooLong) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, "Failed to generate reply: "+err.Error(), http.StatusInternalServerError)
		return
	}

	resp := dto.ChatResponseDTO{
		Reply:             result.Reply,
		MessagesRemaining: result.Decision.Remaining,
		Degraded:          result.Decision.Degraded,
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error().Err(err).Msg("Failed to encode response")
	}
}

// writeQuotaDenial renders a denied decision as HTTP 429 with the numbers the
// client needs to explain the denial to the user.
func writeQuotaDenial(w http.ResponseWriter, logger zerolog.Logger, decision quota.Decision) {
	resp := dto.QuotaErrorDTO{
		Error:     "Quota exceeded",
		Reason:    string(decision.Reason),
		Limit:     decision.Limit,
		Used:      decision.Used,
		Remaining: decision.Remaining,
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.Error().Err(err).Msg("Failed to encode quota denial response")
	}
}
