package repositories

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/mrniikke/fitness-challange/internal/app/models"
	"github.com/mrniikke/fitness-challange/internal/db"
	"github.com/mrniikke/fitness-challange/internal/pkg/apperrors"
	"github.com/mrniikke/fitness-challange/internal/pkg/dberrors"
)

// MemberRepository handles database operations for group members
type MemberRepository struct {
	db db.Querier
}

// NewMemberRepository creates a new MemberRepository
func NewMemberRepository(q db.Querier) *MemberRepository {
	return &MemberRepository{db: q}
}

func insertMember(ctx context.Context, q db.Querier, m *models.Member) error {
	sql, args, err := squirrel.Insert(models.TableGroupMembers).
		Columns("id", "group_id", "user_id", "role", "joined_at").
		Values(m.ID, m.GroupID, m.UserID, string(m.Role), m.JoinedAt).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("error building SQL: %w", err)
	}

	if _, err := q.Exec(ctx, sql, args...); err != nil {
		if dberrors.IsDuplicateConstraintError(err, dberrors.GroupMembersUniqueConstraint) {
			return apperrors.NewConflictError("already a member of this group")
		}
		return storeError(err, "add member")
	}
	return nil
}

// AddMember adds a user to a group
func (r *MemberRepository) AddMember(ctx context.Context, member *models.Member) error {
	return insertMember(ctx, r.db, member)
}

// RemoveMember removes a user from a group
func (r *MemberRepository) RemoveMember(ctx context.Context, groupID, userID uuid.UUID) error {
	sql, args, err := squirrel.Delete(models.TableGroupMembers).
		Where(squirrel.Eq{"group_id": groupID, "user_id": userID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("error building SQL: %w", err)
	}

	result, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return storeError(err, "remove member")
	}
	if result.RowsAffected() == 0 {
		return apperrors.NewResourceNotFoundError("not a member of this group")
	}
	return nil
}

// GetMember retrieves one membership
func (r *MemberRepository) GetMember(ctx context.Context, groupID, userID uuid.UUID) (*models.Member, error) {
	sql, args, err := squirrel.Select("id", "group_id", "user_id", "role", "joined_at").
		From(models.TableGroupMembers).
		Where(squirrel.Eq{"group_id": groupID, "user_id": userID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	var m models.Member
	err = r.db.QueryRow(ctx, sql, args...).Scan(&m.ID, &m.GroupID, &m.UserID, &m.Role, &m.JoinedAt)
	if err != nil {
		return nil, notFoundOr(err, "not a member of this group", "get member")
	}
	return &m, nil
}

// ListMembers returns the members of a group ordered by join time
func (r *MemberRepository) ListMembers(ctx context.Context, groupID uuid.UUID) ([]models.Member, error) {
	sql, args, err := squirrel.Select("id", "group_id", "user_id", "role", "joined_at").
		From(models.TableGroupMembers).
		Where(squirrel.Eq{"group_id": groupID}).
		OrderBy("joined_at").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, storeError(err, "list members")
	}
	defer rows.Close()

	members := []models.Member{}
	for rows.Next() {
		var m models.Member
		if err := rows.Scan(&m.ID, &m.GroupID, &m.UserID, &m.Role, &m.JoinedAt); err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError(err, "list members")
	}
	return members, nil
}

// ListGroupIDsForUser returns the groups a user belongs to
func (r *MemberRepository) ListGroupIDsForUser(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	sql, args, err := squirrel.Select("group_id").
		From(models.TableGroupMembers).
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("joined_at").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, storeError(err, "list user groups")
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError(err, "list user groups")
	}
	return ids, nil
}
