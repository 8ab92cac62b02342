package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fdg312/plateplan/internal/storage"
)

type recipesStorage struct {
	mu      sync.RWMutex
	recipes map[string]*storage.Recipe // key: recipe id
}

func newRecipesStorage() *recipesStorage {
	return &recipesStorage{
		recipes: make(map[string]*storage.Recipe),
	}
}

func (s *recipesStorage) GetRecipe(ctx context.Context, id string) (storage.Recipe, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.recipes[id]
	if !ok {
		return storage.Recipe{}, false, nil
	}
	return cloneRecipe(r), true, nil
}

func (s *recipesStorage) ListRecipes(ctx context.Context, filter storage.RecipeFilter) ([]storage.Recipe, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	queryLower := strings.ToLower(strings.TrimSpace(filter.Query))

	results := make([]storage.Recipe, 0, len(s.recipes))
	for _, r := range s.recipes {
		if filter.MealSlot != "" && r.MealSlot != filter.MealSlot {
			continue
		}

		// Filter by query against title and tags
		if queryLower != "" {
			match := strings.Contains(strings.ToLower(r.Title), queryLower)
			if !match {
				for _, tag := range r.Tags {
					if strings.Contains(strings.ToLower(tag), queryLower) {
						match = true
						break
					}
				}
			}
			if !match {
				continue
			}
		}

		results = append(results, cloneRecipe(r))
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Title != results[j].Title {
			return results[i].Title < results[j].Title
		}
		return results[i].ID < results[j].ID
	})

	if filter.Limit > 0 && len(results) > filter.Limit {
		results = results[:filter.Limit]
	}
	return results, nil
}

func (s *recipesStorage) UpsertRecipe(ctx context.Context, recipe storage.Recipe) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if existing, ok := s.recipes[recipe.ID]; ok {
		recipe.CreatedAt = existing.CreatedAt
	} else if recipe.CreatedAt.IsZero() {
		recipe.CreatedAt = now
	}
	recipe.UpdatedAt = now

	stored := cloneRecipe(&recipe)
	s.recipes[recipe.ID] = &stored
	return nil
}

func cloneRecipe(r *storage.Recipe) storage.Recipe {
	out := *r
	out.Ingredients = make([]storage.Ingredient, len(r.Ingredients))
	for i, ing := range r.Ingredients {
		out.Ingredients[i] = ing
		if ing.Unit != nil {
			u := *ing.Unit
			out.Ingredients[i].Unit = &u
		}
	}
	if r.Tags != nil {
		out.Tags = append([]string(nil), r.Tags...)
	}
	return out
}
