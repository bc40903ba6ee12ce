package repositories

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mrniikke/fitness-challange/internal/app/models"
	"github.com/mrniikke/fitness-challange/internal/db"
	"github.com/mrniikke/fitness-challange/internal/pkg/apperrors"
	"github.com/mrniikke/fitness-challange/internal/pkg/dberrors"
)

// GroupRepository handles database operations for groups
type GroupRepository struct {
	db *db.PostgresDB
}

// NewGroupRepository creates a new GroupRepository
func NewGroupRepository(database *db.PostgresDB) *GroupRepository {
	return &GroupRepository{db: database}
}

func selectGroupQuery() squirrel.SelectBuilder {
	return squirrel.Select(
		"id", "name", "description", "invite_code", "created_by",
		"duration_days", "end_date::text", "created_at", "updated_at",
	).
		From(models.TableGroups).
		PlaceholderFormat(squirrel.Dollar)
}

func scanGroup(row pgx.Row) (*models.Group, error) {
	var g models.Group
	err := row.Scan(
		&g.ID,
		&g.Name,
		&g.Description,
		&g.InviteCode,
		&g.CreatedBy,
		&g.DurationDays,
		&g.EndDate,
		&g.CreatedAt,
		&g.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// CreateGroup inserts a group, its challenges and its creator in one transaction
func (r *GroupRepository) CreateGroup(ctx context.Context, group *models.Group, challenges []models.Challenge, creator *models.Member) error {
	return r.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		sql, args, err := squirrel.Insert(models.TableGroups).
			Columns("id", "name", "description", "invite_code", "created_by", "duration_days", "end_date", "created_at", "updated_at").
			Values(group.ID, group.Name, group.Description, group.InviteCode, group.CreatedBy, group.DurationDays, group.EndDate, group.CreatedAt, group.UpdatedAt).
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return fmt.Errorf("error building SQL: %w", err)
		}
		if _, err := tx.Exec(ctx, sql, args...); err != nil {
			if dberrors.IsDuplicateConstraintError(err, dberrors.GroupsInviteCodeConstraint) {
				return apperrors.NewConflictError("invite code already in use")
			}
			return storeError(err, "create group")
		}

		insert := squirrel.Insert(models.TableGroupChallenges).
			Columns("id", "group_id", "name", "goal_amount", "created_at").
			PlaceholderFormat(squirrel.Dollar)
		for _, c := range challenges {
			insert = insert.Values(c.ID, c.GroupID, c.Name, c.GoalAmount, c.CreatedAt)
		}
		sql, args, err = insert.ToSql()
		if err != nil {
			return fmt.Errorf("error building SQL: %w", err)
		}
		if _, err := tx.Exec(ctx, sql, args...); err != nil {
			return storeError(err, "create challenges")
		}

		return insertMember(ctx, tx, creator)
	})
}

// GetGroup retrieves a group by ID
func (r *GroupRepository) GetGroup(ctx context.Context, id uuid.UUID) (*models.Group, error) {
	sql, args, err := selectGroupQuery().Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	group, err := scanGroup(r.db.Pool.QueryRow(ctx, sql, args...))
	if err != nil {
		return nil, notFoundOr(err, "group not found", "get group")
	}
	return group, nil
}

// GetGroupByInviteCode retrieves a group by its (normalized) invite code
func (r *GroupRepository) GetGroupByInviteCode(ctx context.Context, code string) (*models.Group, error) {
	sql, args, err := selectGroupQuery().Where(squirrel.Eq{"invite_code": code}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	group, err := scanGroup(r.db.Pool.QueryRow(ctx, sql, args...))
	if err != nil {
		return nil, notFoundOr(err, "no group with this invite code", "get group by invite code")
	}
	return group, nil
}

// ChallengeRepository handles database operations for group challenges
type ChallengeRepository struct {
	db db.Querier
}

// NewChallengeRepository creates a new ChallengeRepository
func NewChallengeRepository(q db.Querier) *ChallengeRepository {
	return &ChallengeRepository{db: q}
}

// ListChallenges returns the challenges of a group in creation order
func (r *ChallengeRepository) ListChallenges(ctx context.Context, groupID uuid.UUID) ([]models.Challenge, error) {
	sql, args, err := squirrel.Select("id", "group_id", "name", "goal_amount", "created_at").
		From(models.TableGroupChallenges).
		Where(squirrel.Eq{"group_id": groupID}).
		OrderBy("created_at", "id").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, storeError(err, "list challenges")
	}
	defer rows.Close()

	challenges := []models.Challenge{}
	for rows.Next() {
		var c models.Challenge
		if err := rows.Scan(&c.ID, &c.GroupID, &c.Name, &c.GoalAmount, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		challenges = append(challenges, c)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError(err, "list challenges")
	}

	return challenges, nil
}
