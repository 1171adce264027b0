package handler

import (
	"encoding/base64"
	"encoding/json"
	"net/http"

	"app/internal/api/v1/dto"
	"app/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// RotationHandler receives Pub/Sub push deliveries of rotation-due events and
// resets the named account's usage period.
type RotationHandler struct {
	usageService service.UsageService
	validate     *validator.Validate
	logger       zerolog.Logger
}

func NewRotationHandler(usageService service.UsageService, validate *validator.Validate, logger zerolog.Logger) *RotationHandler {
	return &RotationHandler{
		usageService: usageService,
		validate:     validate,
		logger:       logger,
	}
}

// RegisterRoutes mounts the internal rotation push endpoint
func (h *RotationHandler) RegisterRoutes(mux *http.ServeMux, pubsubAuthMw func(http.Handler) http.Handler) {
	mux.Handle("/internal/usage/rotation", pubsubAuthMw(http.HandlerFunc(h.handleRotationPush)))
}

// handleRotationPush godoc
// @Summary Handle a rotation-due push
// @Description Decodes a Pub/Sub push envelope carrying a rotation-due event and resets the account's counters on its tier cadence. Returns 200 on bad payloads so Pub/Sub does not redeliver poison messages.
// @Tags internal
// @Accept json
// @Param request body dto.PubSubPushRequest true "Pub/Sub push envelope"
// @Success 200 {string} string "OK"
// @Failure 400 {string} string "Invalid push envelope"
// @Failure 500 {string} string "Failed to rotate period"
// @Router /internal/usage/rotation [post]
func (h *RotationHandler) handleRotationPush(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	var push dto.PubSubPushRequest
	if err := json.NewDecoder(r.Body).Decode(&push); err != nil {
		http.Error(w, "Invalid push envelope: "+err.Error(), http.StatusBadRequest)
		return
	}

	data, err := base64.StdEncoding.DecodeString(push.Message.Data)
	if err != nil {
		// Undecodable payloads will never succeed; acknowledge so Pub/Sub
		// stops redelivering.
		h.logger.Error().Err(err).Str("message_id", push.Message.MessageID).Msg("Failed to decode rotation push data")
		w.WriteHeader(http.StatusOK)
		return
	}

	var event dto.RotationEventDTO
	if err := json.Unmarshal(data, &event); err != nil {
		h.logger.Error().Err(err).Str("message_id", push.Message.MessageID).Msg("Failed to unmarshal rotation event")
		w.WriteHeader(http.StatusOK)
		return
	}
	if err := h.validate.Struct(&event); err != nil {
		h.logger.Error().Err(err).Str("message_id", push.Message.MessageID).Msg("Rotation event failed validation")
		w.WriteHeader(http.StatusOK)
		return
	}

	if err := h.usageService.RotatePeriod(r.Context(), event.UserID); err != nil {
		// Transient failure: return 500 so Pub/Sub retries the delivery.
		http.Error(w, "Failed to rotate period: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}
