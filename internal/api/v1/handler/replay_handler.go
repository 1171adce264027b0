package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"app/internal/api/v1/dto"
	"app/internal/middleware"
	"app/internal/model"
	"app/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

type ReplayHandler struct {
	replayService service.ReplayService
	validate      *validator.Validate
	logger        zerolog.Logger
}

func NewReplayHandler(replayService service.ReplayService, validate *validator.Validate, logger zerolog.Logger) *ReplayHandler {
	return &ReplayHandler{
		replayService: replayService,
		validate:      validate,
		logger:        logger,
	}
}

// RegisterRoutes mounts v1 replay routes
func (h *ReplayHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("/replays/upload", authMw(http.HandlerFunc(h.initiateUpload)))
	mux.Handle("/replays/", authMw(http.HandlerFunc(h.handleReplay)))
}

func (h *ReplayHandler) handleReplay(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/replays/")
	switch {
	case strings.HasSuffix(path, "/complete") && r.Method == http.MethodPost:
		replayID := strings.TrimSuffix(path, "/complete")
		h.completeUpload(w, r, replayID)
	case !strings.Contains(path, "/") && path != "" && r.Method == http.MethodGet:
		h.getReplay(w, r, path)
	default:
		http.NotFound(w, r)
	}
}

// initiateUpload godoc
// @Summary Initiate a replay upload
// @Description Checks the replay quota and returns a presigned URL for direct upload. Requires the gameplay analysis add-on; denials return 429.
// @Tags replays
// @Accept json
// @Produce json
// @Param request body dto.ReplayUploadRequestDTO true "Replay upload request"
// @Success 201 {object} dto.ReplayUploadResponseDTO
// @Failure 400 {string} string "Invalid JSON payload or validation failed"
// @Failure 401 {string} string "Unauthorized: User ID not found in context"
// @Failure 429 {object} dto.QuotaErrorDTO
// @Failure 500 {string} string "Failed to initiate upload"
// @Router /replays/upload [post]
func (h *ReplayHandler) initiateUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}

	var req dto.ReplayUploadRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}

	ticket, err := h.replayService.InitiateUpload(r.Context(), userID, req.Filename)
	if err != nil {
		if errors.Is(err, service.ErrQuotaExceeded) {
			writeQuotaDenial(w, h.logger, ticket.Decision)
			return
		}
		http.Error(w, "Failed to initiate upload: "+err.Error(), http.StatusInternalServerError)
		return
	}

	resp := dto.ReplayUploadResponseDTO{
		ID:        ticket.Replay.ID,
		UploadURL: ticket.UploadURL,
		Status:    ticket.Replay.Status,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error().Err(err).Msg("Failed to encode response")
	}
}

// completeUpload godoc
// @Summary Complete a replay upload
// @Description Marks the replay uploaded and records one replay against the period quota.
// @Tags replays
// @Produce json
// @Param replayId path string true "Replay ID"
// @Success 200 {object} dto.ReplayResponseDTO
// @Failure 401 {string} string "Unauthorized: User ID not found in context"
// @Failure 404 {string} string "Replay not found"
// @Failure 500 {string} string "Failed to complete upload"
// @Router /replays/{replayId}/complete [post]
func (h *ReplayHandler) completeUpload(w http.ResponseWriter, r *http.Request, replayID string) {
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}

	replay, err := h.replayService.CompleteUpload(r.Context(), replayID, userID)
	if err != nil {
		if errors.Is(err, service.ErrReplayNotFound) || errors.Is(err, service.ErrUnauthorized) {
			http.Error(w, "Replay not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to complete upload: "+err.Error(), http.StatusInternalServerError)
		return
	}

	h.writeReplay(w, replay)
}

// getReplay godoc
// @Summary Get a replay
// @Description Returns a replay record owned by the authenticated user.
// @Tags replays
// @Produce json
// @Param replayId path string true "Replay ID"
// @Success 200 {object} dto.ReplayResponseDTO
// @Failure 401 {string} string "Unauthorized: User ID not found in context"
// @Failure 404 {string} string "Replay not found"
// @Failure 500 {string} string "Failed to get replay"
// @Router /replays/{replayId} [get]
func (h *ReplayHandler) getReplay(w http.ResponseWriter, r *http.Request, replayID string) {
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}

	replay, err := h.replayService.GetReplay(r.Context(), replayID, userID)
	if err != nil {
		if errors.Is(err, service.ErrReplayNotFound) {
			http.Error(w, "Replay not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to get replay: "+err.Error(), http.StatusInternalServerError)
		return
	}

	h.writeReplay(w, replay)
}

func (h *ReplayHandler) writeReplay(w http.ResponseWriter, replay *model.Replay) {
	resp := dto.ReplayResponseDTO{
		ID:        replay.ID,
		UserID:    replay.UserID,
		Filename:  replay.Filename,
		Status:    replay.Status,
		CreatedAt: replay.CreatedAt,
		UpdatedAt: replay.UpdatedAt,
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error().Err(err).Msg("Failed to encode response")
	}
}
