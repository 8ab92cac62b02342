package mealplans

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/fdg312/plateplan/internal/access"
	"github.com/fdg312/plateplan/internal/logging"
	"github.com/fdg312/plateplan/internal/recipes"
	"github.com/fdg312/plateplan/internal/scaling"
	"github.com/fdg312/plateplan/internal/userctx"
)

// Handler handles HTTP requests for meal plans.
type Handler struct {
	service  *Service
	logger   *zap.Logger
	location *time.Location
}

// NewHandler creates a new meal plans handler.
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logging.OrNop(logger), location: time.UTC}
}

// WithLocation sets the zone whose calendar date counts as "today".
func (h *Handler) WithLocation(loc *time.Location) *Handler {
	if loc != nil {
		h.location = loc
	}
	return h
}

// HandleList handles GET /v1/meal-plans
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ownerUserID := userctx.OwnerID(r.Context())

	items, err := h.service.ListTemplates(r.Context(), ownerUserID)
	if err != nil {
		h.writeServiceError(w, err, "Failed to list meal plans")
		return
	}

	writeJSON(w, http.StatusOK, ListTemplatesResponse{Items: items})
}

// HandleGet handles GET /v1/meal-plans/{id}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ownerUserID := userctx.OwnerID(r.Context())

	tpl, err := h.service.GetTemplate(r.Context(), ownerUserID, r.PathValue("id"))
	if err != nil {
		h.writeServiceError(w, err, "Failed to get meal plan")
		return
	}

	writeJSON(w, http.StatusOK, tpl)
}

// HandleAssign handles POST /v1/meal-plans/assign
func (h *Handler) HandleAssign(w http.ResponseWriter, r *http.Request) {
	ownerUserID := userctx.OwnerID(r.Context())

	var req AssignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "Invalid JSON")
		return
	}

	result, err := h.service.Assign(r.Context(), ownerUserID, req)
	if err != nil {
		h.writeServiceError(w, err, "Failed to assign meal plan")
		return
	}

	writeJSON(w, http.StatusOK, AssignResponse{
		OK:         true,
		Assignment: result.Assignment,
		Report:     result.Report,
	})
}

// HandleGetAssignment handles GET /v1/meal-plans/assignment
func (h *Handler) HandleGetAssignment(w http.ResponseWriter, r *http.Request) {
	ownerUserID := userctx.OwnerID(r.Context())

	current, err := h.service.Current(r.Context(), ownerUserID, time.Now().In(h.location))
	if err != nil {
		h.writeServiceError(w, err, "Failed to get assignment")
		return
	}

	writeJSON(w, http.StatusOK, current)
}

// HandleClearAssignment handles DELETE /v1/meal-plans/assignment
func (h *Handler) HandleClearAssignment(w http.ResponseWriter, r *http.Request) {
	ownerUserID := userctx.OwnerID(r.Context())

	if err := h.service.Clear(r.Context(), ownerUserID); err != nil {
		h.writeServiceError(w, err, "Failed to clear assignment")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, ErrInvalidRange):
		writeError(w, http.StatusBadRequest, "invalid_range", err.Error())
	case errors.Is(err, ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, access.ErrPlanLocked):
		writeError(w, http.StatusForbidden, "plan_locked", err.Error())
	case errors.Is(err, ErrTemplateNotFound):
		writeError(w, http.StatusNotFound, "plan_not_found", err.Error())
	case errors.Is(err, recipes.ErrRecipeNotFound):
		writeError(w, http.StatusBadRequest, "recipe_not_found", err.Error())
	case errors.Is(err, scaling.ErrInvalidMultiplier):
		writeError(w, http.StatusBadRequest, "invalid_multiplier", err.Error())
	default:
		h.logger.Error(fallback, zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", fallback)
	}
}

// writeJSON encodes before writing the status, so a body that cannot be
// encoded turns into a 500 rather than an empty success.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	body, err := json.Marshal(data)
	if err != nil {
		status = http.StatusInternalServerError
		body = []byte(`{"error":{"code":"internal_error","message":"Failed to encode response"}}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(append(body, '\n'))
}

// writeError writes an error response in the standard format.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{
		Error: ErrorDetail{Code: code, Message: message},
	})
}
