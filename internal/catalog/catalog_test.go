package catalog

import (
	"context"
	"strings"
	"testing"

	"github.com/fdg312/plateplan/internal/storage"
	"github.com/fdg312/plateplan/internal/storage/memory"
)

func TestLoadEmbeddedSeed(t *testing.T) {
	seed, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(seed.Recipes) == 0 || len(seed.Templates) == 0 {
		t.Fatalf("expected recipes and templates, got %d/%d", len(seed.Recipes), len(seed.Templates))
	}

	var premium int
	for _, tpl := range seed.Templates {
		if tpl.Tier == storage.TierPremium {
			premium++
		}
		for i, item := range tpl.Items {
			if item.Position != i {
				t.Errorf("template %s item %d has position %d", tpl.ID, i, item.Position)
			}
		}
	}
	if premium == 0 {
		t.Error("expected at least one premium template")
	}
}

func TestParseRejectsBrokenSeed(t *testing.T) {
	tests := []struct {
		name string
		json string
		want string
	}{
		{
			"unknown recipe",
			`{"recipes":[],"templates":[{"id":"t","tier":"free","items":[{"day_of_week":0,"meal_slot":"lunch","recipe_id":"x","default_multiplier":1}]}]}`,
			"unknown recipe",
		},
		{
			"bad slot",
			`{"recipes":[{"id":"r","title":"R","meal_slot":"brunch"}]}`,
			"invalid meal slot",
		},
		{
			"bad weekday",
			`{"recipes":[{"id":"r","title":"R","meal_slot":"lunch"}],"templates":[{"id":"t","tier":"free","items":[{"day_of_week":7,"meal_slot":"lunch","recipe_id":"r","default_multiplier":1}]}]}`,
			"invalid day_of_week",
		},
		{
			"zero multiplier",
			`{"recipes":[{"id":"r","title":"R","meal_slot":"lunch"}],"templates":[{"id":"t","tier":"free","items":[{"day_of_week":0,"meal_slot":"lunch","recipe_id":"r","default_multiplier":0}]}]}`,
			"must be positive",
		},
		{
			"bad tier",
			`{"recipes":[],"templates":[{"id":"t","tier":"gold"}]}`,
			"invalid tier",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.json))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestApplyIsIdempotent(t *testing.T) {
	seed, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	store := memory.New()
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := seed.Apply(ctx, store); err != nil {
			t.Fatalf("Apply #%d: %v", i+1, err)
		}
	}

	templates, err := store.GetTemplatesStorage().ListTemplates(ctx)
	if err != nil {
		t.Fatalf("ListTemplates: %v", err)
	}
	if len(templates) != len(seed.Templates) {
		t.Errorf("expected %d templates, got %d", len(seed.Templates), len(templates))
	}

	recipe, found, err := store.GetRecipesStorage().GetRecipe(ctx, "overnight-oats")
	if err != nil || !found {
		t.Fatalf("expected seeded recipe, found=%v err=%v", found, err)
	}
	if recipe.PerServing.Calories != 380 {
		t.Errorf("unexpected calories %v", recipe.PerServing.Calories)
	}
}
