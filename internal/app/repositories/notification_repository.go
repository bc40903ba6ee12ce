package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/mrniikke/fitness-challange/internal/app/models"
	"github.com/mrniikke/fitness-challange/internal/db"
	"github.com/mrniikke/fitness-challange/internal/pkg/apperrors"
)

// NotificationRepository handles database operations for scheduled notifications
type NotificationRepository struct {
	db db.Querier
}

// NewNotificationRepository creates a new NotificationRepository
func NewNotificationRepository(q db.Querier) *NotificationRepository {
	return &NotificationRepository{db: q}
}

// CreateScheduled inserts a scheduled notification
func (r *NotificationRepository) CreateScheduled(ctx context.Context, n *models.ScheduledNotification) error {
	sql, args, err := squirrel.Insert(models.TableScheduledNotifications).
		Columns("id", "user_id", "group_id", "title", "message", "notification_type", "read", "created_at").
		Values(n.ID, n.UserID, n.GroupID, n.Title, n.Message, string(n.Type), n.Read, n.CreatedAt).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("error building SQL: %w", err)
	}

	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		return storeError(err, "create notification")
	}
	return nil
}

// ListUnread returns up to limit unread notifications, newest first
func (r *NotificationRepository) ListUnread(ctx context.Context, userID, groupID uuid.UUID, limit int) ([]models.ScheduledNotification, error) {
	sql, args, err := squirrel.Select("id", "user_id", "group_id", "title", "message", "notification_type", "read", "created_at").
		From(models.TableScheduledNotifications).
		Where(squirrel.Eq{"user_id": userID, "group_id": groupID, "read": false}).
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, storeError(err, "list notifications")
	}
	defer rows.Close()

	notifications := []models.ScheduledNotification{}
	for rows.Next() {
		var n models.ScheduledNotification
		if err := rows.Scan(&n.ID, &n.UserID, &n.GroupID, &n.Title, &n.Message, &n.Type, &n.Read, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError(err, "list notifications")
	}
	return notifications, nil
}

// MarkRead flags a notification as read
func (r *NotificationRepository) MarkRead(ctx context.Context, id uuid.UUID) error {
	sql, args, err := squirrel.Update(models.TableScheduledNotifications).
		Set("read", true).
		Where(squirrel.Eq{"id": id}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("error building SQL: %w", err)
	}

	result, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return storeError(err, "mark notification read")
	}
	if result.RowsAffected() == 0 {
		return apperrors.NewResourceNotFoundError("notification not found")
	}
	return nil
}

// ExistsSince reports whether a notification of typ exists for (user, group) since the given instant
func (r *NotificationRepository) ExistsSince(ctx context.Context, userID, groupID uuid.UUID, typ models.NotificationType, since time.Time) (bool, error) {
	sql, args, err := squirrel.Select("1").
		Prefix("SELECT EXISTS (").
		From(models.TableScheduledNotifications).
		Where(squirrel.Eq{"user_id": userID, "group_id": groupID, "notification_type": string(typ)}).
		Where(squirrel.GtOrEq{"created_at": since}).
		Suffix(")").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("error building SQL: %w", err)
	}

	var exists bool
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&exists); err != nil {
		return false, storeError(err, "check notifications")
	}
	return exists, nil
}
