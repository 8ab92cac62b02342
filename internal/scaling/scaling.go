// Package scaling computes serving multipliers and the scaled macros and
// ingredient quantities that follow from them.
package scaling

import (
	"errors"
	"fmt"
	"math"

	"github.com/fdg312/plateplan/internal/storage"
)

const (
	DefaultMultiplier = 1.0
	MinAutoMultiplier = 0.25
	MaxAutoMultiplier = 3.0

	// MaxMultiplier caps manual multipliers, matching the 100-people limit
	// of shopping-list attachments.
	MaxMultiplier = 100.0
)

var ErrInvalidMultiplier = errors.New("invalid multiplier")

// ScaledItem is a recipe scaled by Multiplier.
type ScaledItem struct {
	RecipeID    string               `json:"recipe_id"`
	Multiplier  float64              `json:"multiplier"`
	Macros      storage.Macros       `json:"macros"`
	Ingredients []storage.Ingredient `json:"ingredients"`
}

// ValidateMultiplier accepts values in (0, MaxMultiplier].
func ValidateMultiplier(m float64) error {
	if math.IsNaN(m) || m <= 0 {
		return fmt.Errorf("%w: must be greater than 0, got %v", ErrInvalidMultiplier, m)
	}
	if m > MaxMultiplier {
		return fmt.Errorf("%w: must be at most %v, got %v", ErrInvalidMultiplier, MaxMultiplier, m)
	}
	return nil
}

// Scale multiplies every macro and ingredient quantity of recipe by multiplier.
// A product that overflows float64 is reported as ErrInvalidMultiplier.
func Scale(recipe storage.Recipe, multiplier float64) (ScaledItem, error) {
	if err := ValidateMultiplier(multiplier); err != nil {
		return ScaledItem{}, err
	}
	scaled := apply(recipe, multiplier)
	if !scaled.finite() {
		return ScaledItem{}, fmt.Errorf("%w: %v overflows recipe %s", ErrInvalidMultiplier, multiplier, recipe.ID)
	}
	return scaled, nil
}

func (it ScaledItem) finite() bool {
	m := it.Macros
	for _, v := range []float64{m.Calories, m.ProteinG, m.CarbsG, m.FatG} {
		if math.IsInf(v, 0) || math.IsNaN(v) {
			return false
		}
	}
	for _, ing := range it.Ingredients {
		if math.IsInf(ing.Quantity, 0) || math.IsNaN(ing.Quantity) {
			return false
		}
	}
	return true
}

// AutoScale picks the largest multiplier whose calories fit the residual
// budget, clamped to [MinAutoMultiplier, MaxAutoMultiplier]. A nil budget or a
// recipe without calories gets DefaultMultiplier.
func AutoScale(recipe storage.Recipe, budget *Budget) ScaledItem {
	return apply(recipe, AutoMultiplier(recipe.PerServing.Calories, budget))
}

func AutoMultiplier(caloriesPerServing float64, budget *Budget) float64 {
	if budget == nil || math.IsNaN(caloriesPerServing) || caloriesPerServing <= 0 {
		return DefaultMultiplier
	}
	m := budget.Remaining.Calories / caloriesPerServing
	if math.IsNaN(m) {
		return DefaultMultiplier
	}
	return clamp(m, MinAutoMultiplier, MaxAutoMultiplier)
}

func apply(recipe storage.Recipe, m float64) ScaledItem {
	ingredients := make([]storage.Ingredient, len(recipe.Ingredients))
	for i, ing := range recipe.Ingredients {
		ingredients[i] = storage.Ingredient{
			Name:     ing.Name,
			Quantity: ing.Quantity * m,
			Unit:     ing.Unit,
		}
	}
	return ScaledItem{
		RecipeID:    recipe.ID,
		Multiplier:  m,
		Macros:      recipe.PerServing.Scale(m),
		Ingredients: ingredients,
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
