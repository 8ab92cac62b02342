// Package recipes is the read-only recipe catalog consumed by the planner,
// the scheduler and the shopping aggregator.
package recipes

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fdg312/plateplan/internal/storage"
)

var ErrRecipeNotFound = errors.New("recipe not found")

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// Catalog looks up recipes by id and lists them by filter.
type Catalog interface {
	GetRecipe(ctx context.Context, id string) (*storage.Recipe, error)
	ListRecipes(ctx context.Context, filter storage.RecipeFilter) ([]storage.Recipe, error)
}

// StoreCatalog serves the catalog straight from storage.
type StoreCatalog struct {
	store storage.RecipesStorage
}

func NewStoreCatalog(store storage.RecipesStorage) *StoreCatalog {
	return &StoreCatalog{store: store}
}

func (c *StoreCatalog) GetRecipe(ctx context.Context, id string) (*storage.Recipe, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: empty id", ErrRecipeNotFound)
	}

	recipe, found, err := c.store.GetRecipe(ctx, id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrRecipeNotFound, id)
	}
	return &recipe, nil
}

func (c *StoreCatalog) ListRecipes(ctx context.Context, filter storage.RecipeFilter) ([]storage.Recipe, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	if filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}
	filter.Query = strings.TrimSpace(filter.Query)
	return c.store.ListRecipes(ctx, filter)
}
