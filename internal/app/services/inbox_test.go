package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrniikke/fitness-challange/internal/app/models"
	"github.com/mrniikke/fitness-challange/internal/app/repositories/memory"
	"github.com/mrniikke/fitness-challange/internal/pkg/apperrors"
)

func TestInboxKeepsNewestFirstWithinBound(t *testing.T) {
	inbox := NewInbox(10, memory.New(), zerolog.Nop())

	for i := 0; i < 12; i++ {
		inbox.Push(models.Notification{ID: fmt.Sprintf("n-%d", i), Type: models.NotificationProgressLogged})
	}

	items := inbox.List()
	require.Len(t, items, 10)
	assert.Equal(t, "n-11", items[0].ID)
	assert.Equal(t, "n-2", items[9].ID)

	inbox.Push(models.Notification{ID: "n-11"})
	assert.Len(t, inbox.List(), 10)
	assert.Equal(t, "n-11", inbox.List()[0].ID)
}

func TestInboxDefaultSize(t *testing.T) {
	inbox := NewInbox(0, memory.New(), zerolog.Nop())
	for i := 0; i < 15; i++ {
		inbox.Push(models.Notification{ID: fmt.Sprintf("n-%d", i)})
	}
	assert.Len(t, inbox.List(), DefaultInboxSize)
}

func TestInboxRemoveMarksDurableRecordRead(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	user, group := uuid.New(), uuid.New()
	record := &models.ScheduledNotification{
		ID:        uuid.New(),
		UserID:    user,
		GroupID:   group,
		Title:     "💪 Challenge Reminder",
		Type:      models.NotificationChallengeReminder,
		CreatedAt: time.Date(2024, 5, 10, 20, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.CreateScheduled(ctx, record))

	inbox := NewInbox(10, store, zerolog.Nop())
	inbox.Push(record.AsNotification())
	inbox.Push(models.Notification{ID: "ephemeral"})

	require.NoError(t, inbox.Remove(ctx, "ephemeral"))
	require.NoError(t, inbox.Remove(ctx, record.ID.String()))
	assert.Empty(t, inbox.List())

	unread, err := store.ListUnread(ctx, user, group, 10)
	require.NoError(t, err)
	assert.Empty(t, unread)

	err = inbox.Remove(ctx, "missing")
	assert.ErrorIs(t, err, apperrors.ErrResourceNotFound)
}

func TestInboxRemoveKeepsEntryWhenStoreFails(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	id := uuid.New()

	inbox := NewInbox(10, store, zerolog.Nop())
	inbox.Push(models.Notification{ID: id.String(), ScheduledID: &id})

	store.FailNext(memory.OpMarkRead, errors.New("connection refused"))
	err := inbox.Remove(ctx, id.String())
	require.Error(t, err)
	assert.True(t, apperrors.IsRetryable(err))
	assert.Len(t, inbox.List(), 1)
}

func TestInboxClearAndOnChange(t *testing.T) {
	inbox := NewInbox(10, memory.New(), zerolog.Nop())

	var seen []int
	inbox.OnChange(func(items []models.Notification) { seen = append(seen, len(items)) })

	inbox.Push(models.Notification{ID: "a"})
	inbox.Push(models.Notification{ID: "b"})
	inbox.Clear()

	assert.Empty(t, inbox.List())
	assert.Equal(t, []int{1, 2, 0}, seen)
}
