package shopping

import (
	"context"
	"fmt"

	"github.com/fdg312/plateplan/internal/recipes"
	"github.com/fdg312/plateplan/internal/scaling"
	"github.com/fdg312/plateplan/internal/storage"
)

// Selection is one recipe at a serving multiplier. A nil Multiplier means 1.
type Selection struct {
	RecipeID   string   `json:"recipeId" validate:"required"`
	Multiplier *float64 `json:"multiplier,omitempty"`
}

// Aggregator scales the ingredient lists of selected recipes and merges them.
type Aggregator struct {
	catalog recipes.Catalog
}

func NewAggregator(catalog recipes.Catalog) *Aggregator {
	return &Aggregator{catalog: catalog}
}

// Aggregate checks every multiplier and recipe before merging anything.
func (a *Aggregator) Aggregate(ctx context.Context, selections []Selection) ([]Line, error) {
	multipliers := make([]float64, len(selections))
	for i, sel := range selections {
		m := scaling.DefaultMultiplier
		if sel.Multiplier != nil {
			m = *sel.Multiplier
		}
		if err := scaling.ValidateMultiplier(m); err != nil {
			return nil, fmt.Errorf("selection %d: %w", i, err)
		}
		multipliers[i] = m
	}

	loaded := make(map[string]*storage.Recipe)
	var lines []Line
	for i, sel := range selections {
		recipe, ok := loaded[sel.RecipeID]
		if !ok {
			r, err := a.catalog.GetRecipe(ctx, sel.RecipeID)
			if err != nil {
				return nil, err
			}
			recipe = r
			loaded[sel.RecipeID] = recipe
		}

		scaled, err := scaling.Scale(*recipe, multipliers[i])
		if err != nil {
			return nil, fmt.Errorf("selection %d: %w", i, err)
		}
		lines = append(lines, linesFromIngredients(scaled.Ingredients)...)
	}

	merged, err := Merge(lines)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", scaling.ErrInvalidMultiplier, err)
	}
	return merged, nil
}

func linesFromIngredients(ings []storage.Ingredient) []Line {
	out := make([]Line, len(ings))
	for i, ing := range ings {
		out[i] = Line{Name: ing.Name, Quantity: ing.Quantity, Unit: ing.Unit}
	}
	return out
}
