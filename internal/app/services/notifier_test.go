package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrniikke/fitness-challange/internal/app/models"
	"github.com/mrniikke/fitness-challange/internal/pkg/auth"
)

type fakeDirectory struct {
	users  map[uuid.UUID]string
	groups map[uuid.UUID]string
}

func (d fakeDirectory) UserName(_ context.Context, id uuid.UUID) (string, error) {
	if name, ok := d.users[id]; ok {
		return name, nil
	}
	return "", errors.New("profile lookup failed")
}

func (d fakeDirectory) GroupName(_ context.Context, id uuid.UUID) (string, error) {
	if name, ok := d.groups[id]; ok {
		return name, nil
	}
	return "", errors.New("group lookup failed")
}

type notifierCase struct {
	self, alice, group uuid.UUID
	notifier           *Notifier
}

func newNotifierCase() notifierCase {
	c := notifierCase{self: uuid.New(), alice: uuid.New(), group: uuid.New()}
	dir := fakeDirectory{
		users:  map[uuid.UUID]string{c.alice: "Alice"},
		groups: map[uuid.UUID]string{c.group: "Morning crew"},
	}
	c.notifier = NewNotifier(auth.StaticIdentity{User: auth.User{ID: c.self}}, dir, zerolog.Nop())
	return c
}

func rowImage(t *testing.T, v interface{}) json.RawMessage {
	t.Helper()
	if v == nil {
		return nil
	}
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

func (c notifierCase) event(t *testing.T, table string, typ models.ChangeType, oldRow, newRow interface{}) models.ChangeEvent {
	return models.ChangeEvent{
		Table:      table,
		Type:       typ,
		GroupID:    c.group,
		Old:        rowImage(t, oldRow),
		New:        rowImage(t, newRow),
		CommitTime: time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC),
	}
}

func (c notifierCase) log(user uuid.UUID, amount int, completed, first bool) models.ProgressLog {
	l := models.ProgressLog{
		ID:              uuid.MustParse("11111111-2222-3333-4444-555555555555"),
		UserID:          user,
		GroupID:         c.group,
		ChallengeID:     uuid.MustParse("99999999-2222-3333-4444-555555555555"),
		Amount:          amount,
		LogDate:         "2024-05-10",
		IsFirstFinisher: first,
	}
	if completed {
		at := time.Date(2024, 5, 10, 11, 0, 0, 0, time.UTC)
		l.CompletedAt = &at
	}
	return l
}

func TestClassifyMemberJoined(t *testing.T) {
	c := newNotifierCase()
	ctx := context.Background()

	n := c.notifier.Classify(ctx, c.event(t, models.TableGroupMembers, models.ChangeInsert, nil,
		models.Member{ID: uuid.New(), GroupID: c.group, UserID: c.alice, Role: models.RoleMember}))
	require.NotNil(t, n)
	assert.Equal(t, models.NotificationMemberJoined, n.Type)
	assert.Equal(t, "New member joined!", n.Title)
	assert.Equal(t, "Alice joined Morning crew", n.Message)
	assert.Equal(t, "Morning crew", n.GroupName)
	assert.Equal(t, c.alice, *n.UserID)
	assert.False(t, n.Read)

	self := c.notifier.Classify(ctx, c.event(t, models.TableGroupMembers, models.ChangeInsert, nil,
		models.Member{GroupID: c.group, UserID: c.self}))
	assert.Nil(t, self)

	left := c.notifier.Classify(ctx, c.event(t, models.TableGroupMembers, models.ChangeDelete,
		models.Member{GroupID: c.group, UserID: c.alice}, nil))
	assert.Nil(t, left)
}

func TestClassifyProgressLogged(t *testing.T) {
	c := newNotifierCase()
	ctx := context.Background()

	inserted := c.notifier.Classify(ctx, c.event(t, models.TableProgressLogs, models.ChangeInsert, nil, c.log(c.alice, 20, false, false)))
	require.NotNil(t, inserted)
	assert.Equal(t, models.NotificationProgressLogged, inserted.Type)
	assert.Equal(t, "Progress logged", inserted.Title)
	assert.Equal(t, "Alice logged 20 progress (total: 20)", inserted.Message)
	assert.Equal(t, 20, inserted.Delta)

	updated := c.notifier.Classify(ctx, c.event(t, models.TableProgressLogs, models.ChangeUpdate,
		c.log(c.alice, 20, false, false), c.log(c.alice, 35, false, false)))
	require.NotNil(t, updated)
	assert.Equal(t, "Alice logged 15 progress (total: 35)", updated.Message)
	assert.Equal(t, 15, updated.Delta)
	assert.Equal(t, 35, updated.Total)
}

func TestClassifyGoalCompleted(t *testing.T) {
	c := newNotifierCase()
	ctx := context.Background()

	n := c.notifier.Classify(ctx, c.event(t, models.TableProgressLogs, models.ChangeUpdate,
		c.log(c.alice, 40, false, false), c.log(c.alice, 55, true, false)))
	require.NotNil(t, n)
	assert.Equal(t, models.NotificationGoalCompleted, n.Type)
	assert.Equal(t, "✅ Goal completed!", n.Title)
	assert.Equal(t, "Alice completed a challenge!", n.Message)
	assert.False(t, n.FirstFinisher)

	inserted := c.notifier.Classify(ctx, c.event(t, models.TableProgressLogs, models.ChangeInsert, nil, c.log(c.alice, 60, true, false)))
	require.NotNil(t, inserted)
	assert.Equal(t, models.NotificationGoalCompleted, inserted.Type)
}

func TestClassifyFirstFinisher(t *testing.T) {
	c := newNotifierCase()
	ctx := context.Background()

	n := c.notifier.Classify(ctx, c.event(t, models.TableProgressLogs, models.ChangeUpdate,
		c.log(c.alice, 40, false, false), c.log(c.alice, 55, true, true)))
	require.NotNil(t, n)
	assert.Equal(t, models.NotificationGoalCompleted, n.Type)
	assert.Equal(t, "🎉 First to finish!", n.Title)
	assert.Equal(t, "Alice is the first to complete a challenge today!", n.Message)
	assert.True(t, n.FirstFinisher)
	assert.Equal(t, 55, n.Total)

	inserted := c.notifier.Classify(ctx, c.event(t, models.TableProgressLogs, models.ChangeInsert, nil, c.log(c.alice, 60, true, true)))
	require.NotNil(t, inserted)
	assert.Equal(t, "🎉 First to finish!", inserted.Title)
}

func TestClassifyIgnoresFlagOnlyUpdate(t *testing.T) {
	c := newNotifierCase()

	n := c.notifier.Classify(context.Background(), c.event(t, models.TableProgressLogs, models.ChangeUpdate,
		c.log(c.alice, 55, true, false), c.log(c.alice, 55, true, true)))
	assert.Nil(t, n)
}

func TestClassifyIgnoresNonNotifiableChanges(t *testing.T) {
	c := newNotifierCase()
	ctx := context.Background()

	cases := map[string]models.ChangeEvent{
		"own progress": c.event(t, models.TableProgressLogs, models.ChangeInsert, nil, c.log(c.self, 10, false, false)),
		"own completion": c.event(t, models.TableProgressLogs, models.ChangeUpdate,
			c.log(c.self, 5, false, false), c.log(c.self, 10, true, false)),
		"decrease": c.event(t, models.TableProgressLogs, models.ChangeUpdate,
			c.log(c.alice, 30, false, false), c.log(c.alice, 20, false, false)),
		"unchanged completed": c.event(t, models.TableProgressLogs, models.ChangeUpdate,
			c.log(c.alice, 55, true, true), c.log(c.alice, 55, true, true)),
		"delete":      c.event(t, models.TableProgressLogs, models.ChangeDelete, c.log(c.alice, 30, false, false), nil),
		"other table": c.event(t, models.TableGroupChallenges, models.ChangeInsert, nil, map[string]string{"name": "squats"}),
		"no image":    c.event(t, models.TableProgressLogs, models.ChangeInsert, nil, nil),
	}
	for name, ev := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Nil(t, c.notifier.Classify(ctx, ev))
		})
	}
}

func TestClassifySuppressesSelfFromPreviousImage(t *testing.T) {
	c := newNotifierCase()
	before := c.log(c.self, 5, false, false)
	after := c.log(c.alice, 10, false, false)

	n := c.notifier.Classify(context.Background(), c.event(t, models.TableProgressLogs, models.ChangeUpdate, before, after))
	assert.Nil(t, n)
}

func TestClassifyFallsBackWhenNamesAreUnknown(t *testing.T) {
	c := newNotifierCase()
	stranger := uuid.New()
	ev := c.event(t, models.TableGroupMembers, models.ChangeInsert, nil, models.Member{UserID: stranger})
	ev.GroupID = uuid.New()

	n := c.notifier.Classify(context.Background(), ev)
	require.NotNil(t, n)
	assert.Equal(t, "Someone joined Group", n.Message)
	assert.Equal(t, models.UnknownUserName, n.UserName)
}

func TestClassifyScheduledNotification(t *testing.T) {
	c := newNotifierCase()
	ctx := context.Background()
	reminder := models.ScheduledNotification{
		ID:        uuid.New(),
		UserID:    c.self,
		GroupID:   c.group,
		Title:     "💪 Challenge Reminder",
		Message:   "There is still time",
		Type:      models.NotificationChallengeReminder,
		CreatedAt: time.Date(2024, 5, 10, 20, 0, 0, 0, time.UTC),
	}

	n := c.notifier.Classify(ctx, c.event(t, models.TableScheduledNotifications, models.ChangeInsert, nil, reminder))
	require.NotNil(t, n)
	assert.Equal(t, models.NotificationChallengeReminder, n.Type)
	assert.Equal(t, reminder.ID.String(), n.ID)
	require.NotNil(t, n.ScheduledID)
	assert.Equal(t, reminder.ID, *n.ScheduledID)
	assert.Equal(t, "Morning crew", n.GroupName)

	reminder.UserID = c.alice
	assert.Nil(t, c.notifier.Classify(ctx, c.event(t, models.TableScheduledNotifications, models.ChangeInsert, nil, reminder)))
}
