package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fdg312/plateplan/internal/storage"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type dayItemsStorage struct {
	pool *pgxpool.Pool
}

func newDayItemsStorage(pool *pgxpool.Pool) *dayItemsStorage {
	return &dayItemsStorage{pool: pool}
}

const dayItemColumns = `id::text, owner_user_id, date, meal_slot, recipe_id, multiplier, source, template_id, created_at, updated_at`

const mealSlotOrder = `
	CASE meal_slot
		WHEN 'breakfast' THEN 1
		WHEN 'lunch' THEN 2
		WHEN 'dinner' THEN 3
		WHEN 'snack' THEN 4
	END`

func (s *dayItemsStorage) ListDayItems(ctx context.Context, ownerUserID string, date time.Time) ([]storage.DayItem, error) {
	query := `
		SELECT ` + dayItemColumns + `
		FROM day_items
		WHERE owner_user_id = $1 AND date = $2
		ORDER BY ` + mealSlotOrder + `, created_at, id
	`

	rows, err := s.pool.Query(ctx, query, ownerUserID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to list day items: %w", err)
	}
	return collectDayItems(rows)
}

func (s *dayItemsStorage) ListDayItemsRange(ctx context.Context, ownerUserID string, from, to time.Time) ([]storage.DayItem, error) {
	query := `
		SELECT ` + dayItemColumns + `
		FROM day_items
		WHERE owner_user_id = $1 AND date >= $2 AND date < $3
		ORDER BY date, ` + mealSlotOrder + `, created_at, id
	`

	rows, err := s.pool.Query(ctx, query, ownerUserID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list day items range: %w", err)
	}
	return collectDayItems(rows)
}

func (s *dayItemsStorage) GetDayItem(ctx context.Context, ownerUserID string, id string) (storage.DayItem, bool, error) {
	if _, err := uuid.Parse(id); err != nil {
		return storage.DayItem{}, false, nil
	}

	query := `SELECT ` + dayItemColumns + ` FROM day_items WHERE owner_user_id = $1 AND id = $2`

	item, err := scanDayItem(s.pool.QueryRow(ctx, query, ownerUserID, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return storage.DayItem{}, false, nil
	}
	if err != nil {
		return storage.DayItem{}, false, fmt.Errorf("failed to get day item: %w", err)
	}
	return item, true, nil
}

func (s *dayItemsStorage) CreateDayItem(ctx context.Context, item storage.DayItem) (storage.DayItem, error) {
	created, err := insertDayItem(ctx, s.pool, item)
	if err != nil {
		return storage.DayItem{}, fmt.Errorf("failed to create day item: %w", err)
	}
	return created, nil
}

func (s *dayItemsStorage) UpdateDayItemMultiplier(ctx context.Context, ownerUserID string, id string, multiplier float64) (storage.DayItem, bool, error) {
	if _, err := uuid.Parse(id); err != nil {
		return storage.DayItem{}, false, nil
	}

	query := `
		UPDATE day_items
		SET multiplier = $3, updated_at = clock_timestamp()
		WHERE owner_user_id = $1 AND id = $2
		RETURNING ` + dayItemColumns

	item, err := scanDayItem(s.pool.QueryRow(ctx, query, ownerUserID, id, multiplier))
	if errors.Is(err, pgx.ErrNoRows) {
		return storage.DayItem{}, false, nil
	}
	if err != nil {
		return storage.DayItem{}, false, fmt.Errorf("failed to update day item: %w", err)
	}
	return item, true, nil
}

func (s *dayItemsStorage) DeleteDayItem(ctx context.Context, ownerUserID string, id string) (bool, error) {
	if _, err := uuid.Parse(id); err != nil {
		return false, nil
	}

	tag, err := s.pool.Exec(ctx, `DELETE FROM day_items WHERE owner_user_id = $1 AND id = $2`, ownerUserID, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete day item: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// querier is satisfied by both the pool and a transaction.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func insertDayItem(ctx context.Context, q querier, item storage.DayItem) (storage.DayItem, error) {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}

	query := `
		INSERT INTO day_items (id, owner_user_id, date, meal_slot, recipe_id, multiplier, source, template_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + dayItemColumns

	return scanDayItem(q.QueryRow(ctx, query,
		item.ID,
		item.OwnerUserID,
		item.Date,
		item.MealSlot,
		item.RecipeID,
		item.Multiplier,
		item.Source,
		item.TemplateID,
	))
}

func scanDayItem(row pgx.Row) (storage.DayItem, error) {
	var item storage.DayItem
	err := row.Scan(
		&item.ID,
		&item.OwnerUserID,
		&item.Date,
		&item.MealSlot,
		&item.RecipeID,
		&item.Multiplier,
		&item.Source,
		&item.TemplateID,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		return storage.DayItem{}, err
	}
	item.Date = item.Date.UTC()
	return item, nil
}

func collectDayItems(rows pgx.Rows) ([]storage.DayItem, error) {
	defer rows.Close()

	items := []storage.DayItem{}
	for rows.Next() {
		item, err := scanDayItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan day item: %w", err)
		}
		items = append(items, item)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("error iterating day items: %w", rows.Err())
	}
	return items, nil
}
