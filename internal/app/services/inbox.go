package services

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/mrniikke/fitness-challange/internal/app/models"
	"github.com/mrniikke/fitness-challange/internal/app/repositories"
	"github.com/mrniikke/fitness-challange/internal/pkg/apperrors"
)

// DefaultInboxSize is the number of notifications kept when none is configured
const DefaultInboxSize = 10

// Inbox is the bounded, newest-first list of notifications of a session
type Inbox struct {
	mu       sync.Mutex
	size     int
	items    []models.Notification
	store    repositories.NotificationStore
	onChange func([]models.Notification)
	logger   zerolog.Logger
}

// NewInbox creates an Inbox holding at most size notifications
func NewInbox(size int, store repositories.NotificationStore, logger zerolog.Logger) *Inbox {
	if size <= 0 {
		size = DefaultInboxSize
	}
	return &Inbox{
		size:   size,
		store:  store,
		logger: logger,
	}
}

// OnChange registers fn to receive the list after every change
func (b *Inbox) OnChange(fn func([]models.Notification)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onChange = fn
}

// Push prepends n, dropping the oldest entries beyond the bound. An entry
// already present is not added twice.
func (b *Inbox) Push(n models.Notification) {
	b.mu.Lock()
	for _, existing := range b.items {
		if existing.ID == n.ID {
			b.mu.Unlock()
			return
		}
	}

	items := make([]models.Notification, 0, len(b.items)+1)
	items = append(items, n)
	items = append(items, b.items...)
	if len(items) > b.size {
		items = items[:b.size]
	}
	b.items = items
	snapshot, fn := b.snapshotLocked()
	b.mu.Unlock()

	b.logger.Debug().Str("id", n.ID).Str("type", string(n.Type)).Msg("Notification added")
	if fn != nil {
		fn(snapshot)
	}
}

// List returns the notifications, newest first
func (b *Inbox) List() []models.Notification {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]models.Notification{}, b.items...)
}

// Remove drops a notification. A notification backed by a durable record is
// marked read in the store first; if that fails the entry stays.
func (b *Inbox) Remove(ctx context.Context, id string) error {
	b.mu.Lock()
	idx := -1
	for i, n := range b.items {
		if n.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		b.mu.Unlock()
		return apperrors.NewResourceNotFoundError("notification not found")
	}
	target := b.items[idx]
	b.mu.Unlock()

	if target.ScheduledID != nil {
		if err := b.store.MarkRead(ctx, *target.ScheduledID); err != nil {
			b.logger.Error().Err(err).Str("id", id).Msg("Failed to mark notification as read")
			return storeFailure(err, "failed to mark notification as read")
		}
	}

	b.mu.Lock()
	for i, n := range b.items {
		if n.ID == id {
			b.items = append(b.items[:i:i], b.items[i+1:]...)
			break
		}
	}
	snapshot, fn := b.snapshotLocked()
	b.mu.Unlock()

	if fn != nil {
		fn(snapshot)
	}
	return nil
}

// Clear drops every notification without touching durable records
func (b *Inbox) Clear() {
	b.mu.Lock()
	b.items = nil
	snapshot, fn := b.snapshotLocked()
	b.mu.Unlock()

	if fn != nil {
		fn(snapshot)
	}
}

func (b *Inbox) snapshotLocked() ([]models.Notification, func([]models.Notification)) {
	if b.onChange == nil {
		return nil, nil
	}
	return append([]models.Notification{}, b.items...), b.onChange
}
