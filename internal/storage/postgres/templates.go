package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/fdg312/plateplan/internal/storage"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type templatesStorage struct {
	pool *pgxpool.Pool
}

func newTemplatesStorage(pool *pgxpool.Pool) *templatesStorage {
	return &templatesStorage{pool: pool}
}

func (s *templatesStorage) GetTemplate(ctx context.Context, id string) (storage.PlanTemplate, bool, error) {
	query := `
		SELECT id, title, description, tier, created_at, updated_at
		FROM plan_templates
		WHERE id = $1
	`

	var t storage.PlanTemplate
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&t.ID,
		&t.Title,
		&t.Description,
		&t.Tier,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return storage.PlanTemplate{}, false, nil
	}
	if err != nil {
		return storage.PlanTemplate{}, false, fmt.Errorf("failed to get plan template: %w", err)
	}

	items, err := s.listItems(ctx, []string{t.ID})
	if err != nil {
		return storage.PlanTemplate{}, false, err
	}
	t.Items = items[t.ID]
	return t, true, nil
}

func (s *templatesStorage) ListTemplates(ctx context.Context) ([]storage.PlanTemplate, error) {
	query := `
		SELECT id, title, description, tier, created_at, updated_at
		FROM plan_templates
		ORDER BY CASE tier WHEN 'free' THEN 0 ELSE 1 END, title
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list plan templates: %w", err)
	}
	defer rows.Close()

	templates := []storage.PlanTemplate{}
	var ids []string
	for rows.Next() {
		var t storage.PlanTemplate
		if err := rows.Scan(&t.ID, &t.Title, &t.Description, &t.Tier, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan plan template: %w", err)
		}
		templates = append(templates, t)
		ids = append(ids, t.ID)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("error iterating plan templates: %w", rows.Err())
	}
	if len(ids) == 0 {
		return templates, nil
	}

	items, err := s.listItems(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range templates {
		templates[i].Items = items[templates[i].ID]
	}
	return templates, nil
}

func (s *templatesStorage) UpsertTemplate(ctx context.Context, template storage.PlanTemplate) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	upsertQuery := `
		INSERT INTO plan_templates (id, title, description, tier)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id)
		DO UPDATE SET
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			tier = EXCLUDED.tier,
			updated_at = now()
	`
	if _, err := tx.Exec(ctx, upsertQuery, template.ID, template.Title, template.Description, template.Tier); err != nil {
		return fmt.Errorf("failed to upsert plan template: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM plan_template_items WHERE template_id = $1`, template.ID); err != nil {
		return fmt.Errorf("failed to delete plan template items: %w", err)
	}

	itemQuery := `
		INSERT INTO plan_template_items (template_id, position, day_of_week, meal_slot, recipe_id, default_multiplier)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	for _, item := range template.Items {
		_, err := tx.Exec(ctx, itemQuery,
			template.ID,
			item.Position,
			item.DayOfWeek,
			item.MealSlot,
			item.RecipeID,
			item.DefaultMultiplier,
		)
		if err != nil {
			return fmt.Errorf("failed to insert plan template item: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *templatesStorage) listItems(ctx context.Context, templateIDs []string) (map[string][]storage.PlanItem, error) {
	query := `
		SELECT template_id, position, day_of_week, meal_slot, recipe_id, default_multiplier
		FROM plan_template_items
		WHERE template_id = ANY($1)
		ORDER BY template_id, position
	`

	rows, err := s.pool.Query(ctx, query, templateIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to get plan template items: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]storage.PlanItem, len(templateIDs))
	for rows.Next() {
		var (
			templateID string
			item       storage.PlanItem
		)
		err := rows.Scan(
			&templateID,
			&item.Position,
			&item.DayOfWeek,
			&item.MealSlot,
			&item.RecipeID,
			&item.DefaultMultiplier,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan plan template item: %w", err)
		}
		out[templateID] = append(out[templateID], item)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("error iterating plan template items: %w", rows.Err())
	}
	return out, nil
}
