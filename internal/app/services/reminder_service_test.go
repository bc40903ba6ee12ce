package services

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrniikke/fitness-challange/internal/app/models"
	"github.com/mrniikke/fitness-challange/internal/app/repositories/memory"
)

func TestReminderWindowContains(t *testing.T) {
	w := ReminderWindow{Start: 20 * time.Hour, End: 20*time.Hour + 30*time.Minute}
	day := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)

	assert.False(t, w.contains(day.Add(19*time.Hour+59*time.Minute)))
	assert.True(t, w.contains(day.Add(20*time.Hour)))
	assert.True(t, w.contains(day.Add(20*time.Hour+29*time.Minute)))
	assert.False(t, w.contains(day.Add(20*time.Hour+30*time.Minute)))
}

func TestReminderWindowFollowsWallClockAcrossDST(t *testing.T) {
	w := ReminderWindow{Start: 20 * time.Hour, End: 20*time.Hour + 30*time.Minute}
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	// 2024-03-10 is 23 hours long in New York, 2024-11-03 is 25.
	for _, day := range []time.Time{
		time.Date(2024, time.March, 10, 0, 0, 0, 0, ny),
		time.Date(2024, time.November, 3, 0, 0, 0, 0, ny),
	} {
		at := func(hour int) time.Time {
			return time.Date(day.Year(), day.Month(), day.Day(), hour, 10, 0, 0, ny)
		}
		assert.True(t, w.contains(at(20)), day)
		assert.False(t, w.contains(at(21)), day)
		assert.False(t, w.contains(at(19)), day)
	}
}

func TestRemindersOnDaylightSavingDay(t *testing.T) {
	f := newFixture(t)
	f.profile(t, f.self, "Me", "America/New_York")
	f.createGroup(t, f.self, "ABCD1234", 10)

	// 01:10 UTC on 2024-03-11 is 21:10 EDT on the day clocks went forward.
	f.clock.Set(time.Date(2024, 3, 11, 1, 10, 0, 0, time.UTC))
	sent, err := f.services.Reminders.RunOnce(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, sent)

	// 00:10 UTC is 20:10 EDT.
	f.clock.Set(time.Date(2024, 3, 11, 0, 10, 0, 0, time.UTC))
	sent, err = f.services.Reminders.RunOnce(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
}

func TestRemindersUseTheUsersLocalEvening(t *testing.T) {
	f := newFixture(t)
	f.profile(t, f.self, "Me", "Asia/Tokyo")
	group := f.createGroup(t, f.self, "ABCD1234", 10)
	relaxed := f.join(t, group, "Relaxed")

	// 11:10 UTC is 20:10 in Tokyo and mid-day in UTC.
	f.clock.Set(time.Date(2024, 5, 10, 11, 10, 0, 0, time.UTC))

	sent, err := f.services.Reminders.RunOnce(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)

	scheduled := f.store.Scheduled()
	require.Len(t, scheduled, 1)
	assert.Equal(t, f.self, scheduled[0].UserID)
	assert.Equal(t, models.NotificationChallengeReminder, scheduled[0].Type)
	assert.Equal(t, "Get up and be awesome. There is still time to complete your challenges in Morning crew!", scheduled[0].Message)

	pushes := f.pushes.Messages()
	require.Len(t, pushes, 1)
	assert.Equal(t, scheduled[0].ID.String(), pushes[0].ID)
	assert.Equal(t, "challenge_reminder", pushes[0].Type)

	// At most one reminder per local day.
	f.clock.Set(time.Date(2024, 5, 10, 11, 20, 0, 0, time.UTC))
	sent, err = f.services.Reminders.RunOnce(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, sent)

	// 20:05 UTC: the UTC member's evening, the Tokyo member's early morning.
	f.clock.Set(time.Date(2024, 5, 10, 20, 5, 0, 0, time.UTC))
	sent, err = f.services.Reminders.RunOnce(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	scheduled = f.store.Scheduled()
	require.Len(t, scheduled, 2)
	assert.Equal(t, relaxed, scheduled[1].UserID)
}

func TestRemindersSkipCompletedDays(t *testing.T) {
	f := newFixture(t)
	f.profile(t, f.self, "Me", "UTC")
	group := f.createGroup(t, f.self, "ABCD1234", 10)

	_, err := f.logProgress(f.self, group, 0, 10)
	require.NoError(t, err)

	f.clock.Set(time.Date(2024, 5, 10, 20, 0, 0, 0, time.UTC))
	sent, err := f.services.Reminders.RunOnce(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, sent)
	assert.Empty(t, f.pushes.Messages())
}

func TestRemindersFallBackToUTCForUnknownZones(t *testing.T) {
	f := newFixture(t)
	f.profile(t, f.self, "Me", "Mars/Olympus_Mons")
	f.createGroup(t, f.self, "ABCD1234", 10)

	f.clock.Set(time.Date(2024, 5, 10, 20, 15, 0, 0, time.UTC))
	sent, err := f.services.Reminders.RunOnce(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
}

func TestRemindersReportStoreFailures(t *testing.T) {
	f := newFixture(t)
	f.profile(t, f.self, "Me", "UTC")
	f.createGroup(t, f.self, "ABCD1234", 10)

	f.clock.Set(time.Date(2024, 5, 10, 20, 15, 0, 0, time.UTC))
	f.store.FailNext(memory.OpCreateScheduled, errors.New("connection refused"))
	sent, err := f.services.Reminders.RunOnce(f.ctx)
	assert.Error(t, err)
	assert.Equal(t, 0, sent)

	// Nothing was recorded, so the next pass tries again.
	sent, err = f.services.Reminders.RunOnce(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
}

func TestRemindersContinueAfterAFailingGroup(t *testing.T) {
	f := newFixture(t)
	f.profile(t, f.self, "Me", "UTC")
	f.createGroup(t, f.self, "ABCD1234", 10)
	f.createGroup(t, f.self, "EFGH5678", 10)

	f.clock.Set(time.Date(2024, 5, 10, 20, 15, 0, 0, time.UTC))
	f.store.FailNext(memory.OpCreateScheduled, errors.New("connection refused"))
	sent, err := f.services.Reminders.RunOnce(f.ctx)
	assert.Error(t, err)
	assert.Equal(t, 1, sent)
	assert.Len(t, f.store.Scheduled(), 1)
}
