package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/mrniikke/fitness-challange/internal/app/models"
	"github.com/mrniikke/fitness-challange/internal/app/models/dto"
	"github.com/mrniikke/fitness-challange/internal/app/repositories/memory"
	"github.com/mrniikke/fitness-challange/internal/pkg/auth"
	"github.com/mrniikke/fitness-challange/internal/pkg/broker"
	"github.com/mrniikke/fitness-challange/internal/pkg/cache"
	"github.com/mrniikke/fitness-challange/internal/pkg/calendar"
	"github.com/mrniikke/fitness-challange/internal/pkg/realtime"
)

// testClock is a settable clock
type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

type fixture struct {
	ctx      context.Context
	clock    *testClock
	cal      *calendar.Calendar
	hub      *realtime.Hub
	store    *memory.Store
	pushes   *broker.Recorder
	self     uuid.UUID
	services *Services
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	clock := &testClock{t: time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)}
	cal := calendar.New(clock, time.UTC)
	hub := realtime.NewHub(0, zerolog.Nop())
	t.Cleanup(hub.Close)

	store := memory.New(memory.WithFeed(hub), memory.WithClock(clock))
	pushes := &broker.Recorder{}
	self := uuid.New()

	svc := New(Deps{
		Store:     store,
		Cache:     cache.NewMemory(0),
		Feed:      hub,
		Publisher: pushes,
		Calendar:  cal,
		Identity:  auth.StaticIdentity{User: auth.User{ID: self, DisplayName: "Me"}},
		InboxSize: 10,
		Reminders: ReminderWindow{Start: 20 * time.Hour, End: 20*time.Hour + 30*time.Minute},
		Logger:    zerolog.Nop(),
	})

	return &fixture{
		ctx:      context.Background(),
		clock:    clock,
		cal:      cal,
		hub:      hub,
		store:    store,
		pushes:   pushes,
		self:     self,
		services: svc,
	}
}

// createGroup creates a group owned by creator with one challenge per goal
func (f *fixture) createGroup(t *testing.T, creator uuid.UUID, code string, goals ...int) *models.Group {
	t.Helper()

	inputs := make([]dto.ChallengeInput, 0, len(goals))
	for i, g := range goals {
		inputs = append(inputs, dto.ChallengeInput{Name: "challenge " + string(rune('A'+i)), GoalAmount: g})
	}
	group, err := f.services.Groups.CreateGroup(f.ctx, &dto.CreateGroupRequest{
		Name:       "Morning crew",
		InviteCode: code,
		CreatedBy:  creator,
		Challenges: inputs,
	})
	require.NoError(t, err)
	return group
}

// join adds a fresh user to group and returns its id
func (f *fixture) join(t *testing.T, group *models.Group, name string) uuid.UUID {
	t.Helper()

	userID := uuid.New()
	f.profile(t, userID, name, "UTC")
	_, err := f.services.Groups.JoinGroup(f.ctx, &dto.JoinGroupRequest{InviteCode: group.InviteCode, UserID: userID})
	require.NoError(t, err)
	return userID
}

func (f *fixture) profile(t *testing.T, userID uuid.UUID, name, timezone string) {
	t.Helper()
	require.NoError(t, f.store.UpsertProfile(f.ctx, &models.Profile{UserID: userID, DisplayName: &name, Timezone: timezone}))
}

func (f *fixture) logProgress(userID uuid.UUID, group *models.Group, challenge int, delta int) (*models.UpdatedLog, error) {
	return f.services.Progress.LogProgress(f.ctx, &dto.LogProgressRequest{
		UserID:      userID,
		GroupID:     group.ID,
		ChallengeID: group.Challenges[challenge].ID,
		Delta:       delta,
	})
}
