package planner

import (
	"time"

	"github.com/fdg312/plateplan/internal/storage"
)

// AddItemRequest - POST /v1/planner/add. Field names follow the client payload.
type AddItemRequest struct {
	Date       string   `json:"date" validate:"required,ymd"`
	RecipeID   string   `json:"recipeId" validate:"required"`
	MealType   string   `json:"meal_type" validate:"omitempty,meal_slot"`
	AutoScale  bool     `json:"autoScale"`
	Multiplier *float64 `json:"multiplier"`
	PlanID     *string  `json:"plan_id"`
}

// UpdateItemRequest - POST /v1/planner/update
type UpdateItemRequest struct {
	Date       string   `json:"date" validate:"omitempty,ymd"`
	ItemID     string   `json:"itemId" validate:"required"`
	Multiplier *float64 `json:"multiplier" validate:"required"`
}

// RemoveItemRequest - POST /v1/planner/remove
type RemoveItemRequest struct {
	Date   string `json:"date"`
	ItemID string `json:"itemId"`
}

// DayItemDTO is a planner entry with macros derived from its recipe.
type DayItemDTO struct {
	ID          string         `json:"id"`
	Date        string         `json:"date"`
	MealSlot    string         `json:"meal_slot"`
	RecipeID    string         `json:"recipe_id"`
	RecipeTitle string         `json:"recipe_title,omitempty"`
	Multiplier  float64        `json:"multiplier"`
	Source      string         `json:"source"`
	TemplateID  *string        `json:"template_id,omitempty"`
	Macros      storage.Macros `json:"macros"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// DayView - ответ для GET /v1/planner/days/{date}. Targets and Remaining
// are null when the profile has no targets.
type DayView struct {
	Date      string          `json:"date"`
	Items     []DayItemDTO    `json:"items"`
	Totals    storage.Macros  `json:"totals"`
	Targets   *storage.Macros `json:"targets"`
	Remaining *storage.Macros `json:"remaining"`
}

type OKResponse struct {
	OK bool `json:"ok"`
}

type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
