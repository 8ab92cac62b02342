package postgres

import "context"

// Truncate empties every table between integration subtests.
func (p *PostgresStorage) Truncate(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, `
		TRUNCATE shopping_list_items, shopping_list_recipes, shopping_lists,
		         plan_assignments, day_items, profiles,
		         plan_template_items, plan_templates, recipes`)
	return err
}
