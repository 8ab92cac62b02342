package planner

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/fdg312/plateplan/internal/access"
	"github.com/fdg312/plateplan/internal/logging"
	"github.com/fdg312/plateplan/internal/recipes"
	"github.com/fdg312/plateplan/internal/scaling"
	"github.com/fdg312/plateplan/internal/userctx"
	"github.com/fdg312/plateplan/internal/validation"
)

// Handler handles HTTP requests for the day planner.
type Handler struct {
	service *Service
	logger  *zap.Logger
}

func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logging.OrNop(logger)}
}

// HandleAdd handles POST /v1/planner/add
func (h *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	ownerUserID := userctx.OwnerID(r.Context())

	var req AddItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDecodeError(w, err)
		return
	}

	item, err := h.service.AddItem(r.Context(), ownerUserID, req)
	if err != nil {
		h.writeServiceError(w, err, "Failed to add item")
		return
	}

	writeJSON(w, http.StatusCreated, item)
}

// HandleUpdate handles POST /v1/planner/update
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ownerUserID := userctx.OwnerID(r.Context())

	var req UpdateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDecodeError(w, err)
		return
	}
	if req.Multiplier == nil {
		writeError(w, http.StatusBadRequest, "invalid_multiplier", "multiplier is required")
		return
	}
	if err := validation.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	item, err := h.service.UpdateMultiplier(r.Context(), ownerUserID, req.ItemID, *req.Multiplier)
	if err != nil {
		h.writeServiceError(w, err, "Failed to update item")
		return
	}

	writeJSON(w, http.StatusOK, item)
}

// HandleRemove handles POST /v1/planner/remove. It answers 200 even when
// the item does not exist.
func (h *Handler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	ownerUserID := userctx.OwnerID(r.Context())

	var req RemoveItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "Invalid JSON")
		return
	}
	if strings.TrimSpace(req.ItemID) == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "itemId is required")
		return
	}

	if err := h.service.RemoveItem(r.Context(), ownerUserID, req.ItemID); err != nil {
		h.writeServiceError(w, err, "Failed to remove item")
		return
	}

	writeJSON(w, http.StatusOK, OKResponse{OK: true})
}

// HandleGetDay handles GET /v1/planner/days/{date}
func (h *Handler) HandleGetDay(w http.ResponseWriter, r *http.Request) {
	ownerUserID := userctx.OwnerID(r.Context())

	date, err := validation.ParseDate(r.PathValue("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "date must be in YYYY-MM-DD format")
		return
	}

	view, err := h.service.GetDay(r.Context(), ownerUserID, date)
	if err != nil {
		h.writeServiceError(w, err, "Failed to get day")
		return
	}

	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, scaling.ErrInvalidMultiplier):
		writeError(w, http.StatusBadRequest, "invalid_multiplier", err.Error())
	case errors.Is(err, recipes.ErrRecipeNotFound):
		writeError(w, http.StatusBadRequest, "recipe_not_found", err.Error())
	case errors.Is(err, ErrItemNotFound):
		writeError(w, http.StatusNotFound, "item_not_found", err.Error())
	case errors.Is(err, ErrTemplateNotFound):
		writeError(w, http.StatusNotFound, "plan_not_found", err.Error())
	case errors.Is(err, access.ErrPlanLocked):
		writeError(w, http.StatusForbidden, "plan_locked", err.Error())
	default:
		h.logger.Error(fallback, zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", fallback)
	}
}

// writeDecodeError reports a multiplier of the wrong JSON type (a string, or
// a number that overflows float64) as invalid_multiplier.
func writeDecodeError(w http.ResponseWriter, err error) {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field == "multiplier" {
		writeError(w, http.StatusBadRequest, "invalid_multiplier", "multiplier must be a number")
		return
	}
	writeError(w, http.StatusBadRequest, "invalid_json", "Invalid JSON")
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

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{
		Error: ErrorDetail{Code: code, Message: message},
	})
}
