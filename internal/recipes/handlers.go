package recipes

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/fdg312/plateplan/internal/logging"
	"github.com/fdg312/plateplan/internal/storage"
)

// Handler handles HTTP requests for the recipe catalog.
type Handler struct {
	catalog Catalog
	logger  *zap.Logger
}

func NewHandler(catalog Catalog, logger *zap.Logger) *Handler {
	return &Handler{catalog: catalog, logger: logging.OrNop(logger)}
}

// HandleList handles GET /v1/recipes?meal_slot=&q=&limit=
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	slot := r.URL.Query().Get("meal_slot")
	if slot != "" && !storage.IsValidMealSlot(slot) {
		writeError(w, http.StatusBadRequest, "invalid_request", "meal_slot must be one of breakfast, lunch, dinner, snack")
		return
	}

	filter := storage.RecipeFilter{
		MealSlot: slot,
		Query:    r.URL.Query().Get("q"),
		Limit:    parseIntQuery(r, "limit", defaultListLimit),
	}

	list, err := h.catalog.ListRecipes(r.Context(), filter)
	if err != nil {
		h.logger.Error("list recipes failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to list recipes")
		return
	}

	items := make([]RecipeDTO, len(list))
	for i, recipe := range list {
		items[i] = toDTO(recipe)
	}
	writeJSON(w, http.StatusOK, ListRecipesResponse{Items: items})
}

// HandleGet handles GET /v1/recipes/{id}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	recipe, err := h.catalog.GetRecipe(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrRecipeNotFound) {
			writeError(w, http.StatusNotFound, "recipe_not_found", "Recipe not found")
			return
		}
		h.logger.Error("get recipe failed", zap.String("recipe_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to get recipe")
		return
	}

	writeJSON(w, http.StatusOK, toDTO(*recipe))
}

func parseIntQuery(r *http.Request, key string, defaultValue int) int {
	valStr := r.URL.Query().Get(key)
	if valStr == "" {
		return defaultValue
	}
	val, err := strconv.Atoi(valStr)
	if err != nil {
		return defaultValue
	}
	return val
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
