// Package catalog ships the built-in recipe catalog and plan templates.
package catalog

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/fdg312/plateplan/internal/storage"
)

//go:embed seed.json
var seedJSON []byte

// Seed is the decoded contents of seed.json.
type Seed struct {
	Recipes   []storage.Recipe       `json:"recipes"`
	Templates []storage.PlanTemplate `json:"templates"`
}

// Load decodes the embedded seed and checks it is internally consistent.
func Load() (*Seed, error) {
	return Parse(seedJSON)
}

func Parse(data []byte) (*Seed, error) {
	var seed Seed
	if err := json.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to decode seed: %w", err)
	}

	recipes := make(map[string]struct{}, len(seed.Recipes))
	for _, r := range seed.Recipes {
		if r.ID == "" {
			return nil, fmt.Errorf("recipe %q: empty id", r.Title)
		}
		if !storage.IsValidMealSlot(r.MealSlot) {
			return nil, fmt.Errorf("recipe %s: invalid meal slot %q", r.ID, r.MealSlot)
		}
		recipes[r.ID] = struct{}{}
	}

	for ti := range seed.Templates {
		t := &seed.Templates[ti]
		if t.Tier != storage.TierFree && t.Tier != storage.TierPremium {
			return nil, fmt.Errorf("template %s: invalid tier %q", t.ID, t.Tier)
		}
		for i := range t.Items {
			item := &t.Items[i]
			item.Position = i
			if item.DayOfWeek < 0 || item.DayOfWeek > 6 {
				return nil, fmt.Errorf("template %s item %d: invalid day_of_week %d", t.ID, i, item.DayOfWeek)
			}
			if !storage.IsValidMealSlot(item.MealSlot) {
				return nil, fmt.Errorf("template %s item %d: invalid meal slot %q", t.ID, i, item.MealSlot)
			}
			if _, ok := recipes[item.RecipeID]; !ok {
				return nil, fmt.Errorf("template %s item %d: unknown recipe %q", t.ID, i, item.RecipeID)
			}
			if item.DefaultMultiplier <= 0 {
				return nil, fmt.Errorf("template %s item %d: default_multiplier must be positive", t.ID, i)
			}
		}
	}

	return &seed, nil
}

// Apply upserts every recipe and template. It is safe to run repeatedly.
func (s *Seed) Apply(ctx context.Context, st storage.Storage) error {
	for _, r := range s.Recipes {
		if err := st.GetRecipesStorage().UpsertRecipe(ctx, r); err != nil {
			return fmt.Errorf("failed to seed recipe %s: %w", r.ID, err)
		}
	}
	for _, t := range s.Templates {
		if err := st.GetTemplatesStorage().UpsertTemplate(ctx, t); err != nil {
			return fmt.Errorf("failed to seed template %s: %w", t.ID, err)
		}
	}
	return nil
}
