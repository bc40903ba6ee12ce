package repositories

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mrniikke/fitness-challange/internal/app/models"
	"github.com/mrniikke/fitness-challange/internal/db"
)

// ProfileRepository handles database operations for user profiles
type ProfileRepository struct {
	db db.Querier
}

// NewProfileRepository creates a new ProfileRepository
func NewProfileRepository(q db.Querier) *ProfileRepository {
	return &ProfileRepository{db: q}
}

func selectProfileQuery() squirrel.SelectBuilder {
	return squirrel.Select("user_id", "username", "display_name", "timezone").
		From(models.TableProfiles).
		PlaceholderFormat(squirrel.Dollar)
}

func (r *ProfileRepository) queryProfiles(ctx context.Context, query squirrel.SelectBuilder) ([]models.Profile, error) {
	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, storeError(err, "list profiles")
	}

	profiles, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Profile, error) {
		var p models.Profile
		err := row.Scan(&p.UserID, &p.Username, &p.DisplayName, &p.Timezone)
		return p, err
	})
	if err != nil {
		return nil, storeError(err, "list profiles")
	}
	return profiles, nil
}

// GetProfile retrieves the profile of a user
func (r *ProfileRepository) GetProfile(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	sql, args, err := selectProfileQuery().Where(squirrel.Eq{"user_id": userID}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	var p models.Profile
	err = r.db.QueryRow(ctx, sql, args...).Scan(&p.UserID, &p.Username, &p.DisplayName, &p.Timezone)
	if err != nil {
		return nil, notFoundOr(err, "profile not found", "get profile")
	}
	return &p, nil
}

// ListProfiles returns the profiles of the given users keyed by user id
func (r *ProfileRepository) ListProfiles(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]models.Profile, error) {
	result := make(map[uuid.UUID]models.Profile, len(userIDs))
	if len(userIDs) == 0 {
		return result, nil
	}

	profiles, err := r.queryProfiles(ctx, selectProfileQuery().Where(squirrel.Eq{"user_id": userIDs}))
	if err != nil {
		return nil, err
	}
	for _, p := range profiles {
		result[p.UserID] = p
	}
	return result, nil
}

// ListAllProfiles returns every profile
func (r *ProfileRepository) ListAllProfiles(ctx context.Context) ([]models.Profile, error) {
	return r.queryProfiles(ctx, selectProfileQuery().OrderBy("user_id"))
}

// UpsertProfile creates or replaces a profile
func (r *ProfileRepository) UpsertProfile(ctx context.Context, profile *models.Profile) error {
	sql, args, err := squirrel.Insert(models.TableProfiles).
		Columns("user_id", "username", "display_name", "timezone").
		Values(profile.UserID, profile.Username, profile.DisplayName, profile.Timezone).
		Suffix("ON CONFLICT (user_id) DO UPDATE SET username = EXCLUDED.username, display_name = EXCLUDED.display_name, timezone = EXCLUDED.timezone, updated_at = NOW()").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("error building SQL: %w", err)
	}

	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		return storeError(err, "upsert profile")
	}
	return nil
}
