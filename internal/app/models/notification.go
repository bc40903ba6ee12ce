package models

import (
	"time"

	"github.com/google/uuid"
)

// NotificationType classifies a user-facing notification
type NotificationType string

const (
	NotificationMemberJoined      NotificationType = "member_joined"
	NotificationProgressLogged    NotificationType = "progress_logged"
	NotificationGoalCompleted     NotificationType = "goal_completed"
	NotificationChallengeReminder NotificationType = "challenge_reminder"
)

// Notification is an entry of the in-app notification list
type Notification struct {
	ID            string           `json:"id"`
	Type          NotificationType `json:"type"`
	Title         string           `json:"title"`
	Message       string           `json:"message"`
	Timestamp     time.Time        `json:"timestamp"`
	GroupID       uuid.UUID        `json:"group_id"`
	GroupName     string           `json:"group_name"`
	UserID        *uuid.UUID       `json:"user_id,omitempty"`
	UserName      string           `json:"user_name,omitempty"`
	Delta         int              `json:"delta,omitempty"`
	Total         int              `json:"total,omitempty"`
	FirstFinisher bool             `json:"first_finisher,omitempty"`
	Read          bool             `json:"read"`

	// ScheduledID links the entry to a durable scheduled notification
	ScheduledID *uuid.UUID `json:"scheduled_id,omitempty"`
}

// ScheduledNotification is a durable notification row, e.g. a reminder
type ScheduledNotification struct {
	ID        uuid.UUID        `json:"id" db:"id"`
	UserID    uuid.UUID        `json:"user_id" db:"user_id"`
	GroupID   uuid.UUID        `json:"group_id" db:"group_id"`
	Title     string           `json:"title" db:"title"`
	Message   string           `json:"message" db:"message"`
	Type      NotificationType `json:"notification_type" db:"notification_type"`
	Read      bool             `json:"read" db:"read"`
	CreatedAt time.Time        `json:"created_at" db:"created_at"`
}

// AsNotification converts the durable row into an inbox entry
func (s *ScheduledNotification) AsNotification() Notification {
	id := s.ID
	return Notification{
		ID:          s.ID.String(),
		Type:        s.Type,
		Title:       s.Title,
		Message:     s.Message,
		Timestamp:   s.CreatedAt,
		GroupID:     s.GroupID,
		Read:        s.Read,
		ScheduledID: &id,
	}
}
