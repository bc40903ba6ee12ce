package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/mrniikke/fitness-challange/internal/app/models"
	"github.com/mrniikke/fitness-challange/internal/pkg/apperrors"
)

// CreateScheduled inserts a scheduled notification
func (s *Store) CreateScheduled(ctx context.Context, n *models.ScheduledNotification) error {
	s.mu.Lock()
	if err := s.fault(OpCreateScheduled); err != nil {
		s.mu.Unlock()
		return err
	}
	s.notifications = append(s.notifications, *n)
	ev := s.change(models.TableScheduledNotifications, models.ChangeInsert, n.GroupID, nil, *n)
	s.mu.Unlock()

	s.publish(ctx, []models.ChangeEvent{ev})
	return nil
}

// ListUnread returns up to limit unread notifications, newest first
func (s *Store) ListUnread(ctx context.Context, userID, groupID uuid.UUID, limit int) ([]models.ScheduledNotification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fault(OpListUnread); err != nil {
		return nil, err
	}
	result := []models.ScheduledNotification{}
	for _, n := range s.notifications {
		if n.UserID == userID && n.GroupID == groupID && !n.Read {
			result = append(result, n)
		}
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// MarkRead flags a notification as read
func (s *Store) MarkRead(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fault(OpMarkRead); err != nil {
		return err
	}
	for i := range s.notifications {
		if s.notifications[i].ID == id {
			s.notifications[i].Read = true
			return nil
		}
	}
	return apperrors.NewResourceNotFoundError("notification not found")
}

// ExistsSince reports whether a notification of typ exists for (user, group) since the given instant
func (s *Store) ExistsSince(ctx context.Context, userID, groupID uuid.UUID, typ models.NotificationType, since time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, n := range s.notifications {
		if n.UserID == userID && n.GroupID == groupID && n.Type == typ && !n.CreatedAt.Before(since) {
			return true, nil
		}
	}
	return false, nil
}

// Scheduled returns a copy of every scheduled notification
func (s *Store) Scheduled() []models.ScheduledNotification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.ScheduledNotification(nil), s.notifications...)
}
