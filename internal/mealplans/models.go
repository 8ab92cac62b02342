package mealplans

import (
	"fmt"
	"strings"
	"time"

	"github.com/fdg312/plateplan/internal/storage"
)

const (
	MinWeeks = 1
	MaxWeeks = 12
)

// AssignRequest - POST /v1/meal-plans/assign
type AssignRequest struct {
	PlanID    string `json:"plan_id"`
	StartDate string `json:"start_date"`
	Weeks     int    `json:"weeks"`
	Overwrite bool   `json:"overwrite"`
	AutoScale bool   `json:"autoScale"`
}

func (r *AssignRequest) Validate() error {
	if strings.TrimSpace(r.PlanID) == "" {
		return fmt.Errorf("%w: plan_id is required", ErrInvalidRequest)
	}
	if r.Weeks < MinWeeks || r.Weeks > MaxWeeks {
		return fmt.Errorf("%w: weeks must be between %d and %d", ErrInvalidRange, MinWeeks, MaxWeeks)
	}
	if _, err := time.Parse(storage.DateLayout, strings.TrimSpace(r.StartDate)); err != nil {
		return fmt.Errorf("%w: start_date must be a valid YYYY-MM-DD date", ErrInvalidRange)
	}
	return nil
}

type AssignmentDTO struct {
	PlanID    string    `json:"plan_id"`
	PlanTitle string    `json:"plan_title,omitempty"`
	StartDate string    `json:"start_date"`
	EndDate   string    `json:"end_date"`
	Weeks     int       `json:"weeks"`
	Overwrite bool      `json:"overwrite"`
	AutoScale bool      `json:"auto_scale"`
	CreatedAt time.Time `json:"created_at"`
}

// AssignmentReport says what one assign call did to the calendar.
type AssignmentReport struct {
	Created  int      `json:"created"`
	Replaced int      `json:"replaced"`
	Skipped  int      `json:"skipped"`
	Dates    []string `json:"dates"`
}

type AssignmentResult struct {
	Assignment AssignmentDTO    `json:"assignment"`
	Report     AssignmentReport `json:"report"`
}

type AssignResponse struct {
	OK         bool             `json:"ok"`
	Assignment AssignmentDTO    `json:"assignment"`
	Report     AssignmentReport `json:"report"`
}

type State string

const (
	StateNone      State = "none"
	StateScheduled State = "scheduled"
	StateActive    State = "active"
)

// Current is the user's assignment as seen on a given day: none, or a
// stored assignment that is scheduled or active. Expired assignments read
// as none.
type Current struct {
	State      State          `json:"state"`
	Assignment *AssignmentDTO `json:"assignment,omitempty"`
}

type TemplateItemDTO struct {
	DayOfWeek         int     `json:"day_of_week"`
	MealSlot          string  `json:"meal_slot"`
	RecipeID          string  `json:"recipe_id"`
	RecipeTitle       string  `json:"recipe_title,omitempty"`
	DefaultMultiplier float64 `json:"default_multiplier"`
}

type TemplateDTO struct {
	ID          string            `json:"id"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Tier        string            `json:"tier"`
	Locked      bool              `json:"locked"`
	ItemCount   int               `json:"item_count"`
	Items       []TemplateItemDTO `json:"items,omitempty"`
}

type ListTemplatesResponse struct {
	Items []TemplateDTO `json:"items"`
}

type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func toAssignmentDTO(a storage.PlanAssignment, title string) AssignmentDTO {
	return AssignmentDTO{
		PlanID:    a.TemplateID,
		PlanTitle: title,
		StartDate: a.StartDate.Format(storage.DateLayout),
		EndDate:   a.EndDate.Format(storage.DateLayout),
		Weeks:     a.Weeks,
		Overwrite: a.Overwrite,
		AutoScale: a.AutoScale,
		CreatedAt: a.CreatedAt,
	}
}
