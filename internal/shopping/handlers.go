package shopping

import (
	"encoding/json"
	"errors"
	"net/http"
	"path"
	"strings"

	"go.uber.org/zap"

	"github.com/fdg312/plateplan/internal/logging"
	"github.com/fdg312/plateplan/internal/recipes"
	"github.com/fdg312/plateplan/internal/scaling"
	"github.com/fdg312/plateplan/internal/userctx"
)

// Handler handles HTTP requests for shopping lists.
type Handler struct {
	service *Service
	logger  *zap.Logger
}

func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logging.OrNop(logger)}
}

// HandleAggregate handles POST /v1/shopping-lists/aggregate
func (h *Handler) HandleAggregate(w http.ResponseWriter, r *http.Request) {
	var req AggregateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && strings.HasSuffix(typeErr.Field, "multiplier") {
			writeError(w, http.StatusBadRequest, "invalid_multiplier", "multiplier must be a number")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid_json", "Invalid JSON")
		return
	}

	lines, err := h.service.Aggregate(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, err, "Failed to aggregate ingredients")
		return
	}
	writeJSON(w, http.StatusOK, LinesResponse{Items: lines})
}

// HandleCreate handles POST /v1/shopping-lists
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateListRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "Invalid JSON")
		return
	}

	list, err := h.service.CreateList(r.Context(), userctx.OwnerID(r.Context()), req)
	if err != nil {
		h.writeServiceError(w, err, "Failed to create shopping list")
		return
	}
	writeJSON(w, http.StatusCreated, list)
}

// HandleList handles GET /v1/shopping-lists
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	lists, err := h.service.ListLists(r.Context(), userctx.OwnerID(r.Context()))
	if err != nil {
		h.writeServiceError(w, err, "Failed to list shopping lists")
		return
	}
	writeJSON(w, http.StatusOK, ListListsResponse{Items: lists})
}

// HandleGet handles GET /v1/shopping-lists/{id}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	detail, err := h.service.GetList(r.Context(), userctx.OwnerID(r.Context()), r.PathValue("id"))
	if err != nil {
		h.writeServiceError(w, err, "Failed to get shopping list")
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// HandleDelete handles DELETE /v1/shopping-lists/{id}
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteList(r.Context(), userctx.OwnerID(r.Context()), r.PathValue("id")); err != nil {
		h.writeServiceError(w, err, "Failed to delete shopping list")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleAddItem handles POST /v1/shopping-lists/{id}/items
func (h *Handler) HandleAddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "Invalid JSON")
		return
	}

	item, err := h.service.AddItem(r.Context(), userctx.OwnerID(r.Context()), r.PathValue("id"), req)
	if err != nil {
		h.writeServiceError(w, err, "Failed to add item")
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

// HandleDeleteItem handles DELETE /v1/shopping-lists/{id}/items/{item_id}
func (h *Handler) HandleDeleteItem(w http.ResponseWriter, r *http.Request) {
	err := h.service.DeleteItem(r.Context(), userctx.OwnerID(r.Context()), r.PathValue("id"), r.PathValue("item_id"))
	if err != nil {
		h.writeServiceError(w, err, "Failed to delete item")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleAttachRecipe handles POST /v1/shopping-lists/{id}/recipes
func (h *Handler) HandleAttachRecipe(w http.ResponseWriter, r *http.Request) {
	var req AttachRecipeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "Invalid JSON")
		return
	}

	resp, err := h.service.AttachRecipe(r.Context(), userctx.OwnerID(r.Context()), r.PathValue("id"), req)
	if err != nil {
		h.writeServiceError(w, err, "Failed to attach recipe")
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

// HandleDetachRecipe handles DELETE /v1/shopping-lists/{id}/recipes/{recipe_id}
func (h *Handler) HandleDetachRecipe(w http.ResponseWriter, r *http.Request) {
	err := h.service.DetachRecipe(r.Context(), userctx.OwnerID(r.Context()), r.PathValue("id"), r.PathValue("recipe_id"))
	if err != nil {
		h.writeServiceError(w, err, "Failed to detach recipe")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleMerged handles GET /v1/shopping-lists/{id}/merged
func (h *Handler) HandleMerged(w http.ResponseWriter, r *http.Request) {
	lines, err := h.service.Merged(r.Context(), userctx.OwnerID(r.Context()), r.PathValue("id"))
	if err != nil {
		h.writeServiceError(w, err, "Failed to merge shopping list")
		return
	}
	writeJSON(w, http.StatusOK, LinesResponse{Items: lines})
}

// HandleExport handles POST /v1/shopping-lists/{id}/export
func (h *Handler) HandleExport(w http.ResponseWriter, r *http.Request) {
	export, err := h.service.Export(r.Context(), userctx.OwnerID(r.Context()), r.PathValue("id"))
	if err != nil {
		h.writeServiceError(w, err, "Failed to export shopping list")
		return
	}
	writeJSON(w, http.StatusCreated, export)
}

// HandleDownload handles GET /v1/exports/{key...}
func (h *Handler) HandleDownload(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")

	data, err := h.service.Download(r.Context(), userctx.OwnerID(r.Context()), key)
	if err != nil {
		h.writeServiceError(w, err, "Failed to download export")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+path.Base(key)+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, scaling.ErrInvalidMultiplier):
		writeError(w, http.StatusBadRequest, "invalid_multiplier", err.Error())
	case errors.Is(err, recipes.ErrRecipeNotFound):
		writeError(w, http.StatusBadRequest, "recipe_not_found", err.Error())
	case errors.Is(err, ErrListNotFound):
		writeError(w, http.StatusNotFound, "list_not_found", "Shopping list not found")
	case errors.Is(err, ErrItemNotFound):
		writeError(w, http.StatusNotFound, "item_not_found", "Shopping list item not found")
	case errors.Is(err, ErrExportNotFound):
		writeError(w, http.StatusNotFound, "export_not_found", "Export not found")
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
