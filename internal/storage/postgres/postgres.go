package postgres

import (
	"context"
	"fmt"

	"github.com/fdg312/plateplan/internal/storage"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStorage is the pgx-backed implementation of storage.Storage.
type PostgresStorage struct {
	pool      *pgxpool.Pool
	recipes   *recipesStorage
	templates *templatesStorage
	dayItems  *dayItemsStorage
	assigns   *assignmentsStorage
	shopping  *shoppingListsStorage
	profiles  *profilesStorage
}

var _ storage.Storage = (*PostgresStorage)(nil)

func New(ctx context.Context, databaseURL string) (*PostgresStorage, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStorage{
		pool:      pool,
		recipes:   newRecipesStorage(pool),
		templates: newTemplatesStorage(pool),
		dayItems:  newDayItemsStorage(pool),
		assigns:   newAssignmentsStorage(pool),
		shopping:  newShoppingListsStorage(pool),
		profiles:  newProfilesStorage(pool),
	}, nil
}

func (p *PostgresStorage) GetRecipesStorage() storage.RecipesStorage {
	return p.recipes
}

func (p *PostgresStorage) GetTemplatesStorage() storage.TemplatesStorage {
	return p.templates
}

func (p *PostgresStorage) GetDayItemsStorage() storage.DayItemsStorage {
	return p.dayItems
}

func (p *PostgresStorage) GetAssignmentsStorage() storage.AssignmentsStorage {
	return p.assigns
}

func (p *PostgresStorage) GetShoppingListsStorage() storage.ShoppingListsStorage {
	return p.shopping
}

func (p *PostgresStorage) GetProfilesStorage() storage.ProfilesStorage {
	return p.profiles
}

func (p *PostgresStorage) Close() error {
	p.pool.Close()
	return nil
}
