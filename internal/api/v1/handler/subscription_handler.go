package handler

import (
	"encoding/json"
	"net/http"

	"app/internal/api/v1/dto"
	"app/internal/middleware"
	"app/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

type SubscriptionHandler struct {
	subscriptionService service.SubscriptionService
	validate            *validator.Validate
	logger              zerolog.Logger
}

func NewSubscriptionHandler(subscriptionService service.SubscriptionService, validate *validator.Validate, logger zerolog.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{
		subscriptionService: subscriptionService,
		validate:            validate,
		logger:              logger,
	}
}

// RegisterRoutes mounts v1 subscription routes
func (h *SubscriptionHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("/subscription", authMw(http.HandlerFunc(h.getSubscription)))
	mux.Handle("/subscription/addons", authMw(http.HandlerFunc(h.setAddons)))
}

// getSubscription godoc
// @Summary Get the current subscription
// @Description Returns the user's subscription and plan. A lapsed paid subscription is downgraded to the free plan on read.
// @Tags subscriptions
// @Produce json
// @Success 200 {object} dto.SubscriptionResponseDTO
// @Failure 401 {string} string "Unauthorized: User ID not found in context"
// @Failure 500 {string} string "Failed to get subscription"
// @Router /subscription [get]
func (h *SubscriptionHandler) getSubscription(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}

	sub, err := h.subscriptionService.GetSubscription(r.Context(), userID)
	if err != nil {
		http.Error(w, "Failed to get subscription: "+err.Error(), http.StatusInternalServerError)
		return
	}

	resp := dto.SubscriptionResponseDTO{
		PlanID:        sub.Plan.ID,
		PlanName:      sub.Plan.Name,
		Tier:          sub.Plan.Tier,
		BillingPeriod: sub.Plan.BillingPeriod,
		Addons:        sub.Subscription.Addons,
		Status:        sub.Subscription.Status,
		StartsAt:      sub.Subscription.StartsAt,
		EndsAt:        sub.Subscription.EndsAt,
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error().Err(err).Msg("Failed to encode response")
	}
}

// setAddons godoc
// @Summary Replace subscription add-ons
// @Description Replaces the subscription's add-on set. Add-ons take effect on the next quota check.
// @Tags subscriptions
// @Accept json
// @Param request body dto.AddonsUpdateDTO true "Add-on set"
// @Success 204 {string} string "No Content"
// @Failure 400 {string} string "Invalid JSON payload or validation failed"
// @Failure 401 {string} string "Unauthorized: User ID not found in context"
// @Failure 500 {string} string "Failed to update add-ons"
// @Router /subscription/addons [put]
func (h *SubscriptionHandler) setAddons(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		http.NotFound(w, r)
		return
	}
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}

	var req dto.AddonsUpdateDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.subscriptionService.SetAddons(r.Context(), userID, req.Addons); err != nil {
		http.Error(w, "Failed to update add-ons: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
