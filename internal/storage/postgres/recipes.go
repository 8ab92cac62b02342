package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/fdg312/plateplan/internal/storage"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type recipesStorage struct {
	pool *pgxpool.Pool
}

func newRecipesStorage(pool *pgxpool.Pool) *recipesStorage {
	return &recipesStorage{pool: pool}
}

const recipeColumns = `id, title, meal_slot, calories, protein_g, carbs_g, fat_g, ingredients, tags, created_at, updated_at`

func (s *recipesStorage) GetRecipe(ctx context.Context, id string) (storage.Recipe, bool, error) {
	query := `SELECT ` + recipeColumns + ` FROM recipes WHERE id = $1`

	r, err := scanRecipe(s.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return storage.Recipe{}, false, nil
	}
	if err != nil {
		return storage.Recipe{}, false, fmt.Errorf("failed to get recipe: %w", err)
	}
	return r, true, nil
}

func (s *recipesStorage) ListRecipes(ctx context.Context, filter storage.RecipeFilter) ([]storage.Recipe, error) {
	query := `
		SELECT ` + recipeColumns + `
		FROM recipes
		WHERE ($1 = '' OR meal_slot = $1)
		  AND ($2 = ''
		       OR title ILIKE '%' || $2 || '%'
		       OR EXISTS (SELECT 1 FROM unnest(tags) AS t WHERE t ILIKE '%' || $2 || '%'))
		ORDER BY title, id
		LIMIT NULLIF($3, 0)
	`

	rows, err := s.pool.Query(ctx, query, filter.MealSlot, strings.TrimSpace(filter.Query), filter.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recipes: %w", err)
	}
	defer rows.Close()

	results := []storage.Recipe{}
	for rows.Next() {
		r, err := scanRecipe(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan recipe: %w", err)
		}
		results = append(results, r)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("error iterating recipes: %w", rows.Err())
	}
	return results, nil
}

func (s *recipesStorage) UpsertRecipe(ctx context.Context, recipe storage.Recipe) error {
	ingredients, err := json.Marshal(recipe.Ingredients)
	if err != nil {
		return fmt.Errorf("failed to encode ingredients: %w", err)
	}
	tags := recipe.Tags
	if tags == nil {
		tags = []string{}
	}

	query := `
		INSERT INTO recipes (id, title, meal_slot, calories, protein_g, carbs_g, fat_g, ingredients, tags)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id)
		DO UPDATE SET
			title = EXCLUDED.title,
			meal_slot = EXCLUDED.meal_slot,
			calories = EXCLUDED.calories,
			protein_g = EXCLUDED.protein_g,
			carbs_g = EXCLUDED.carbs_g,
			fat_g = EXCLUDED.fat_g,
			ingredients = EXCLUDED.ingredients,
			tags = EXCLUDED.tags,
			updated_at = now()
	`

	_, err = s.pool.Exec(ctx, query,
		recipe.ID,
		recipe.Title,
		recipe.MealSlot,
		recipe.PerServing.Calories,
		recipe.PerServing.ProteinG,
		recipe.PerServing.CarbsG,
		recipe.PerServing.FatG,
		ingredients,
		tags,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert recipe: %w", err)
	}
	return nil
}

func scanRecipe(row pgx.Row) (storage.Recipe, error) {
	var (
		r           storage.Recipe
		ingredients []byte
	)
	err := row.Scan(
		&r.ID,
		&r.Title,
		&r.MealSlot,
		&r.PerServing.Calories,
		&r.PerServing.ProteinG,
		&r.PerServing.CarbsG,
		&r.PerServing.FatG,
		&ingredients,
		&r.Tags,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	if err != nil {
		return storage.Recipe{}, err
	}
	if len(ingredients) > 0 {
		if err := json.Unmarshal(ingredients, &r.Ingredients); err != nil {
			return storage.Recipe{}, fmt.Errorf("decode ingredients: %w", err)
		}
	}
	return r, nil
}
