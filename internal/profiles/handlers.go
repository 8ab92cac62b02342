package profiles

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/fdg312/plateplan/internal/logging"
	"github.com/fdg312/plateplan/internal/userctx"
)

// Handler содержит HTTP обработчики для профилей
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler создаёт новый handler
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logging.OrNop(logger)}
}

// HandleGet обрабатывает GET /v1/profile
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ownerUserID := userctx.OwnerID(r.Context())

	profile, err := h.service.GetProfile(r.Context(), ownerUserID)
	if err != nil {
		h.logger.Error("get profile failed", zap.String("owner", ownerUserID), zap.Error(err))
		h.sendError(w, http.StatusInternalServerError, "internal_error", "Failed to get profile")
		return
	}

	h.sendJSON(w, http.StatusOK, profile)
}

// HandleUpdate обрабатывает PUT /v1/profile
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ownerUserID := userctx.OwnerID(r.Context())

	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, http.StatusBadRequest, "invalid_json", "Invalid JSON")
		return
	}

	profile, err := h.service.UpdateProfile(r.Context(), ownerUserID, req)
	if err != nil {
		if errors.Is(err, ErrInvalidRequest) {
			h.sendError(w, http.StatusBadRequest, "invalid_request", strings.TrimPrefix(err.Error(), ErrInvalidRequest.Error()+": "))
			return
		}
		h.logger.Error("update profile failed", zap.String("owner", ownerUserID), zap.Error(err))
		h.sendError(w, http.StatusInternalServerError, "internal_error", "Failed to update profile")
		return
	}

	h.sendJSON(w, http.StatusOK, profile)
}

// sendJSON отправляет JSON ответ
func (h *Handler) sendJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// sendError отправляет ошибку в формате ErrorResponse
func (h *Handler) sendError(w http.ResponseWriter, status int, code, message string) {
	h.sendJSON(w, status, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}
