package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/fdg312/plateplan/internal/storage"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type profilesStorage struct {
	pool *pgxpool.Pool
}

func newProfilesStorage(pool *pgxpool.Pool) *profilesStorage {
	return &profilesStorage{pool: pool}
}

const profileColumns = `owner_user_id, sex, birth_date, height_cm, weight_kg, activity_level, goal,
	target_calories, target_protein_g, target_carbs_g, target_fat_g, subscription_status, updated_at`

func (s *profilesStorage) GetProfile(ctx context.Context, ownerUserID string) (storage.Profile, bool, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE owner_user_id = $1`

	p, err := scanProfile(s.pool.QueryRow(ctx, query, ownerUserID))
	if errors.Is(err, pgx.ErrNoRows) {
		return storage.Profile{}, false, nil
	}
	if err != nil {
		return storage.Profile{}, false, fmt.Errorf("failed to get profile: %w", err)
	}
	return p, true, nil
}

func (s *profilesStorage) UpsertProfile(ctx context.Context, profile storage.Profile) (storage.Profile, error) {
	query := `
		INSERT INTO profiles (owner_user_id, sex, birth_date, height_cm, weight_kg, activity_level, goal,
		                      target_calories, target_protein_g, target_carbs_g, target_fat_g)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (owner_user_id)
		DO UPDATE SET
			sex = EXCLUDED.sex,
			birth_date = EXCLUDED.birth_date,
			height_cm = EXCLUDED.height_cm,
			weight_kg = EXCLUDED.weight_kg,
			activity_level = EXCLUDED.activity_level,
			goal = EXCLUDED.goal,
			target_calories = EXCLUDED.target_calories,
			target_protein_g = EXCLUDED.target_protein_g,
			target_carbs_g = EXCLUDED.target_carbs_g,
			target_fat_g = EXCLUDED.target_fat_g,
			updated_at = now()
		RETURNING ` + profileColumns

	out, err := scanProfile(s.pool.QueryRow(ctx, query,
		profile.OwnerUserID,
		profile.Sex,
		profile.BirthDate,
		profile.HeightCM,
		profile.WeightKG,
		profile.ActivityLevel,
		profile.Goal,
		profile.TargetCalories,
		profile.TargetProteinG,
		profile.TargetCarbsG,
		profile.TargetFatG,
	))
	if err != nil {
		return storage.Profile{}, fmt.Errorf("failed to upsert profile: %w", err)
	}
	return out, nil
}

func (s *profilesStorage) SetSubscriptionStatus(ctx context.Context, ownerUserID string, status string) error {
	query := `
		INSERT INTO profiles (owner_user_id, subscription_status)
		VALUES ($1, $2)
		ON CONFLICT (owner_user_id)
		DO UPDATE SET subscription_status = EXCLUDED.subscription_status, updated_at = now()
	`
	if _, err := s.pool.Exec(ctx, query, ownerUserID, status); err != nil {
		return fmt.Errorf("failed to set subscription status: %w", err)
	}
	return nil
}

func scanProfile(row pgx.Row) (storage.Profile, error) {
	var p storage.Profile
	err := row.Scan(
		&p.OwnerUserID,
		&p.Sex,
		&p.BirthDate,
		&p.HeightCM,
		&p.WeightKG,
		&p.ActivityLevel,
		&p.Goal,
		&p.TargetCalories,
		&p.TargetProteinG,
		&p.TargetCarbsG,
		&p.TargetFatG,
		&p.SubscriptionStatus,
		&p.UpdatedAt,
	)
	return p, err
}
