package recipes

import (
	"github.com/fdg312/plateplan/internal/storage"
)

// RecipeDTO - DTO для API
type RecipeDTO struct {
	ID          string               `json:"id"`
	Title       string               `json:"title"`
	MealSlot    string               `json:"meal_slot"`
	PerServing  storage.Macros       `json:"per_serving"`
	Ingredients []storage.Ingredient `json:"ingredients"`
	Tags        []string             `json:"tags"`
}

type ListRecipesResponse struct {
	Items []RecipeDTO `json:"items"`
}

type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func toDTO(r storage.Recipe) RecipeDTO {
	dto := RecipeDTO{
		ID:          r.ID,
		Title:       r.Title,
		MealSlot:    r.MealSlot,
		PerServing:  r.PerServing,
		Ingredients: r.Ingredients,
		Tags:        r.Tags,
	}
	if dto.Ingredients == nil {
		dto.Ingredients = []storage.Ingredient{}
	}
	if dto.Tags == nil {
		dto.Tags = []string{}
	}
	return dto
}
