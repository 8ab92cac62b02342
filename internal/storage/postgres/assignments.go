package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/fdg312/plateplan/internal/storage"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type assignmentsStorage struct {
	pool *pgxpool.Pool
}

func newAssignmentsStorage(pool *pgxpool.Pool) *assignmentsStorage {
	return &assignmentsStorage{pool: pool}
}

func (s *assignmentsStorage) GetAssignment(ctx context.Context, ownerUserID string) (storage.PlanAssignment, bool, error) {
	query := `
		SELECT owner_user_id, template_id, start_date, end_date, weeks, overwrite, auto_scale, created_at
		FROM plan_assignments
		WHERE owner_user_id = $1
	`

	var a storage.PlanAssignment
	err := s.pool.QueryRow(ctx, query, ownerUserID).Scan(
		&a.OwnerUserID,
		&a.TemplateID,
		&a.StartDate,
		&a.EndDate,
		&a.Weeks,
		&a.Overwrite,
		&a.AutoScale,
		&a.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return storage.PlanAssignment{}, false, nil
	}
	if err != nil {
		return storage.PlanAssignment{}, false, fmt.Errorf("failed to get plan assignment: %w", err)
	}
	a.StartDate = a.StartDate.UTC()
	a.EndDate = a.EndDate.UTC()
	return a, true, nil
}

func (s *assignmentsStorage) DeleteAssignment(ctx context.Context, ownerUserID string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM plan_assignments WHERE owner_user_id = $1`, ownerUserID); err != nil {
		return fmt.Errorf("failed to delete plan assignment: %w", err)
	}
	return nil
}

// ApplyAssignment runs every write and the assignment upsert in one
// transaction. A per-owner advisory lock serializes concurrent assignments.
func (s *assignmentsStorage) ApplyAssignment(ctx context.Context, assignment storage.PlanAssignment, writes []storage.PendingWrite) (storage.ApplyReport, error) {
	if err := storage.CheckWrites(assignment.OwnerUserID, writes); err != nil {
		return storage.ApplyReport{}, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return storage.ApplyReport{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, assignment.OwnerUserID); err != nil {
		return storage.ApplyReport{}, fmt.Errorf("failed to lock owner: %w", err)
	}

	var report storage.ApplyReport
	created := make(map[string]int) // item id -> index in report.Items

	for _, w := range writes {
		if w.Overwrite {
			deleted, err := deleteOccupants(ctx, tx, w.Item)
			if err != nil {
				return storage.ApplyReport{}, err
			}
			for _, id := range deleted {
				if idx, ok := created[id]; ok {
					report.Items[idx].ID = ""
					delete(created, id)
				} else {
					report.Replaced++
				}
			}
		} else {
			var occupied bool
			err := tx.QueryRow(ctx, `
				SELECT EXISTS (
					SELECT 1 FROM day_items
					WHERE owner_user_id = $1 AND date = $2 AND meal_slot = $3
				)`, w.Item.OwnerUserID, w.Item.Date, w.Item.MealSlot).Scan(&occupied)
			if err != nil {
				return storage.ApplyReport{}, fmt.Errorf("failed to check slot occupancy: %w", err)
			}
			if occupied {
				report.Skipped++
				continue
			}
		}

		item := w.Item
		item.ID = ""
		inserted, err := insertDayItem(ctx, tx, item)
		if err != nil {
			return storage.ApplyReport{}, fmt.Errorf("failed to insert day item: %w", err)
		}
		created[inserted.ID] = len(report.Items)
		report.Items = append(report.Items, inserted)
	}

	upsertQuery := `
		INSERT INTO plan_assignments (owner_user_id, template_id, start_date, end_date, weeks, overwrite, auto_scale)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (owner_user_id)
		DO UPDATE SET
			template_id = EXCLUDED.template_id,
			start_date = EXCLUDED.start_date,
			end_date = EXCLUDED.end_date,
			weeks = EXCLUDED.weeks,
			overwrite = EXCLUDED.overwrite,
			auto_scale = EXCLUDED.auto_scale,
			created_at = now()
	`
	_, err = tx.Exec(ctx, upsertQuery,
		assignment.OwnerUserID,
		assignment.TemplateID,
		assignment.StartDate,
		assignment.EndDate,
		assignment.Weeks,
		assignment.Overwrite,
		assignment.AutoScale,
	)
	if err != nil {
		return storage.ApplyReport{}, fmt.Errorf("failed to upsert plan assignment: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return storage.ApplyReport{}, fmt.Errorf("failed to commit transaction: %w", err)
	}

	kept := report.Items[:0]
	for _, item := range report.Items {
		if item.ID != "" {
			kept = append(kept, item)
		}
	}
	report.Items = kept
	report.Created = len(kept)
	return report, nil
}

func deleteOccupants(ctx context.Context, tx pgx.Tx, item storage.DayItem) ([]string, error) {
	rows, err := tx.Query(ctx, `
		DELETE FROM day_items
		WHERE owner_user_id = $1 AND date = $2 AND meal_slot = $3
		RETURNING id::text`, item.OwnerUserID, item.Date, item.MealSlot)
	if err != nil {
		return nil, fmt.Errorf("failed to delete slot occupants: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan deleted id: %w", err)
		}
		ids = append(ids, id)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("error iterating deleted ids: %w", rows.Err())
	}
	return ids, nil
}
