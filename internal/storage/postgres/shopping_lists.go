package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/fdg312/plateplan/internal/storage"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type shoppingListsStorage struct {
	pool *pgxpool.Pool
}

func newShoppingListsStorage(pool *pgxpool.Pool) *shoppingListsStorage {
	return &shoppingListsStorage{pool: pool}
}

const listItemColumns = `id::text, list_id::text, name, qty, unit, source_recipe_id, people, created_at`

func (s *shoppingListsStorage) CreateList(ctx context.Context, list storage.ShoppingList) (storage.ShoppingList, error) {
	if list.ID == "" {
		list.ID = uuid.New().String()
	}

	query := `
		INSERT INTO shopping_lists (id, owner_user_id, name)
		VALUES ($1, $2, $3)
		RETURNING id::text, owner_user_id, name, created_at, updated_at
	`

	var out storage.ShoppingList
	err := s.pool.QueryRow(ctx, query, list.ID, list.OwnerUserID, list.Name).Scan(
		&out.ID,
		&out.OwnerUserID,
		&out.Name,
		&out.CreatedAt,
		&out.UpdatedAt,
	)
	if err != nil {
		return storage.ShoppingList{}, fmt.Errorf("failed to create shopping list: %w", err)
	}
	return out, nil
}

func (s *shoppingListsStorage) GetList(ctx context.Context, ownerUserID string, id string) (storage.ShoppingList, bool, error) {
	if _, err := uuid.Parse(id); err != nil {
		return storage.ShoppingList{}, false, nil
	}

	query := `
		SELECT id::text, owner_user_id, name, created_at, updated_at
		FROM shopping_lists
		WHERE owner_user_id = $1 AND id = $2
	`

	var out storage.ShoppingList
	err := s.pool.QueryRow(ctx, query, ownerUserID, id).Scan(
		&out.ID,
		&out.OwnerUserID,
		&out.Name,
		&out.CreatedAt,
		&out.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return storage.ShoppingList{}, false, nil
	}
	if err != nil {
		return storage.ShoppingList{}, false, fmt.Errorf("failed to get shopping list: %w", err)
	}
	return out, true, nil
}

func (s *shoppingListsStorage) ListLists(ctx context.Context, ownerUserID string) ([]storage.ShoppingList, error) {
	query := `
		SELECT id::text, owner_user_id, name, created_at, updated_at
		FROM shopping_lists
		WHERE owner_user_id = $1
		ORDER BY created_at DESC
	`

	rows, err := s.pool.Query(ctx, query, ownerUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list shopping lists: %w", err)
	}
	defer rows.Close()

	lists := []storage.ShoppingList{}
	for rows.Next() {
		var l storage.ShoppingList
		if err := rows.Scan(&l.ID, &l.OwnerUserID, &l.Name, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan shopping list: %w", err)
		}
		lists = append(lists, l)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("error iterating shopping lists: %w", rows.Err())
	}
	return lists, nil
}

// DeleteList relies on ON DELETE CASCADE for items and recipe attachments.
func (s *shoppingListsStorage) DeleteList(ctx context.Context, ownerUserID string, id string) (bool, error) {
	if _, err := uuid.Parse(id); err != nil {
		return false, nil
	}

	tag, err := s.pool.Exec(ctx, `DELETE FROM shopping_lists WHERE owner_user_id = $1 AND id = $2`, ownerUserID, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete shopping list: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *shoppingListsStorage) AddListItem(ctx context.Context, item storage.ShoppingListItem) (storage.ShoppingListItem, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return storage.ShoppingListItem{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	out, err := insertListItem(ctx, tx, item)
	if err != nil {
		return storage.ShoppingListItem{}, err
	}
	if err := touchList(ctx, tx, item.ListID); err != nil {
		return storage.ShoppingListItem{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return storage.ShoppingListItem{}, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return out, nil
}

func (s *shoppingListsStorage) ListListItems(ctx context.Context, listID string) ([]storage.ShoppingListItem, error) {
	query := `
		SELECT ` + listItemColumns + `
		FROM shopping_list_items
		WHERE list_id = $1
		ORDER BY created_at, id
	`

	rows, err := s.pool.Query(ctx, query, listID)
	if err != nil {
		return nil, fmt.Errorf("failed to list shopping list items: %w", err)
	}
	defer rows.Close()

	items := []storage.ShoppingListItem{}
	for rows.Next() {
		it, err := scanListItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan shopping list item: %w", err)
		}
		items = append(items, it)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("error iterating shopping list items: %w", rows.Err())
	}
	return items, nil
}

func (s *shoppingListsStorage) DeleteListItem(ctx context.Context, listID string, itemID string) (bool, error) {
	if _, err := uuid.Parse(itemID); err != nil {
		return false, nil
	}

	tag, err := s.pool.Exec(ctx, `DELETE FROM shopping_list_items WHERE list_id = $1 AND id = $2`, listID, itemID)
	if err != nil {
		return false, fmt.Errorf("failed to delete shopping list item: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *shoppingListsStorage) AttachRecipe(ctx context.Context, attachment storage.ShoppingListRecipe, items []storage.ShoppingListItem) ([]storage.ShoppingListItem, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := detachRecipe(ctx, tx, attachment.ListID, attachment.RecipeID); err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO shopping_list_recipes (list_id, recipe_id, people)
		VALUES ($1, $2, $3)`, attachment.ListID, attachment.RecipeID, attachment.People)
	if err != nil {
		return nil, fmt.Errorf("failed to attach recipe: %w", err)
	}

	out := make([]storage.ShoppingListItem, 0, len(items))
	for _, it := range items {
		it.ListID = attachment.ListID
		inserted, err := insertListItem(ctx, tx, it)
		if err != nil {
			return nil, err
		}
		out = append(out, inserted)
	}
	if err := touchList(ctx, tx, attachment.ListID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return out, nil
}

func (s *shoppingListsStorage) DetachRecipe(ctx context.Context, listID string, recipeID string) (bool, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var exists bool
	err = tx.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM shopping_list_recipes WHERE list_id = $1 AND recipe_id = $2)`,
		listID, recipeID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check recipe attachment: %w", err)
	}
	if err := detachRecipe(ctx, tx, listID, recipeID); err != nil {
		return false, err
	}
	if exists {
		if err := touchList(ctx, tx, listID); err != nil {
			return false, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return exists, nil
}

func (s *shoppingListsStorage) ListAttachments(ctx context.Context, listID string) ([]storage.ShoppingListRecipe, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT list_id::text, recipe_id, people, created_at
		FROM shopping_list_recipes
		WHERE list_id = $1
		ORDER BY created_at`, listID)
	if err != nil {
		return nil, fmt.Errorf("failed to list recipe attachments: %w", err)
	}
	defer rows.Close()

	out := []storage.ShoppingListRecipe{}
	for rows.Next() {
		var a storage.ShoppingListRecipe
		if err := rows.Scan(&a.ListID, &a.RecipeID, &a.People, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan recipe attachment: %w", err)
		}
		out = append(out, a)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("error iterating recipe attachments: %w", rows.Err())
	}
	return out, nil
}

func insertListItem(ctx context.Context, tx pgx.Tx, item storage.ShoppingListItem) (storage.ShoppingListItem, error) {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}

	query := `
		INSERT INTO shopping_list_items (id, list_id, name, qty, unit, source_recipe_id, people)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + listItemColumns

	out, err := scanListItem(tx.QueryRow(ctx, query,
		item.ID,
		item.ListID,
		item.Name,
		item.Quantity,
		item.Unit,
		item.SourceRecipeID,
		item.People,
	))
	if err != nil {
		return storage.ShoppingListItem{}, fmt.Errorf("failed to insert shopping list item: %w", err)
	}
	return out, nil
}

func detachRecipe(ctx context.Context, tx pgx.Tx, listID, recipeID string) error {
	if _, err := tx.Exec(ctx, `DELETE FROM shopping_list_items WHERE list_id = $1 AND source_recipe_id = $2`, listID, recipeID); err != nil {
		return fmt.Errorf("failed to delete recipe items: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM shopping_list_recipes WHERE list_id = $1 AND recipe_id = $2`, listID, recipeID); err != nil {
		return fmt.Errorf("failed to delete recipe attachment: %w", err)
	}
	return nil
}

func touchList(ctx context.Context, tx pgx.Tx, listID string) error {
	if _, err := tx.Exec(ctx, `UPDATE shopping_lists SET updated_at = now() WHERE id = $1`, listID); err != nil {
		return fmt.Errorf("failed to touch shopping list: %w", err)
	}
	return nil
}

func scanListItem(row pgx.Row) (storage.ShoppingListItem, error) {
	var it storage.ShoppingListItem
	err := row.Scan(
		&it.ID,
		&it.ListID,
		&it.Name,
		&it.Quantity,
		&it.Unit,
		&it.SourceRecipeID,
		&it.People,
		&it.CreatedAt,
	)
	return it, err
}
