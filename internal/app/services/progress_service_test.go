package services

import (
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrniikke/fitness-challange/internal/app/models/dto"
	"github.com/mrniikke/fitness-challange/internal/app/repositories/memory"
	"github.com/mrniikke/fitness-challange/internal/app/standings"
	"github.com/mrniikke/fitness-challange/internal/pkg/apperrors"
)

func TestLogProgressAccumulatesPastGoal(t *testing.T) {
	f := newFixture(t)
	group := f.createGroup(t, f.self, "ABCD1234", 50)

	first, err := f.logProgress(f.self, group, 0, 30)
	require.NoError(t, err)
	assert.Equal(t, 30, first.Log.Amount)
	assert.Equal(t, 0, first.Previous)
	assert.False(t, first.CompletedChallenge)
	assert.Nil(t, first.Log.CompletedAt)

	second, err := f.logProgress(f.self, group, 0, 25)
	require.NoError(t, err)
	assert.Equal(t, 55, second.Log.Amount)
	assert.Equal(t, 30, second.Previous)
	assert.Equal(t, 25, second.Delta)
	assert.True(t, second.CompletedChallenge)
	assert.True(t, second.CompletedDay)
	assert.True(t, second.FirstFinisher)
	require.NotNil(t, second.Log.CompletedAt)
	assert.Equal(t, 100, standings.PercentComplete(second.Log.Amount, 50))

	// Further progress keeps accumulating without re-completing.
	third, err := f.logProgress(f.self, group, 0, 5)
	require.NoError(t, err)
	assert.Equal(t, 60, third.Log.Amount)
	assert.False(t, third.CompletedChallenge)
	assert.False(t, third.FirstFinisher)
	assert.Equal(t, second.Log.CompletedAt, third.Log.CompletedAt)
}

func TestLogProgressDayNeedsEveryChallenge(t *testing.T) {
	f := newFixture(t)
	group := f.createGroup(t, f.self, "ABCD1234", 50, 30)

	res, err := f.logProgress(f.self, group, 0, 50)
	require.NoError(t, err)
	assert.True(t, res.CompletedChallenge)
	assert.False(t, res.CompletedDay)
	assert.False(t, res.FirstFinisher)
	assert.Empty(t, f.store.FirstFinisherClaims(group.ID))

	res, err = f.logProgress(f.self, group, 1, 30)
	require.NoError(t, err)
	assert.True(t, res.CompletedDay)
	assert.True(t, res.FirstFinisher)
	assert.True(t, res.Log.IsFirstFinisher)
	assert.Equal(t, group.Challenges[1].ID, res.Log.ChallengeID)
}

func TestLogProgressOnlyFirstFinisherPerGroupDay(t *testing.T) {
	f := newFixture(t)
	group := f.createGroup(t, f.self, "ABCD1234", 10)
	other := f.join(t, group, "Alice")

	res, err := f.logProgress(other, group, 0, 10)
	require.NoError(t, err)
	assert.True(t, res.FirstFinisher)

	res, err = f.logProgress(f.self, group, 0, 10)
	require.NoError(t, err)
	assert.True(t, res.CompletedDay)
	assert.False(t, res.FirstFinisher)

	// The next day is a new scope.
	f.clock.Set(f.clock.Now().AddDate(0, 0, 1))
	res, err = f.logProgress(f.self, group, 0, 10)
	require.NoError(t, err)
	assert.True(t, res.FirstFinisher)
	assert.Len(t, f.store.FirstFinisherClaims(group.ID), 2)
}

func TestLogProgressConcurrentCompletionsHaveOneFirstFinisher(t *testing.T) {
	f := newFixture(t)
	group := f.createGroup(t, f.self, "ABCD1234", 10)

	users := []uuid.UUID{f.self}
	for i := 0; i < 15; i++ {
		users = append(users, f.join(t, group, "member"))
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners int
	)
	for _, u := range users {
		wg.Add(1)
		go func(u uuid.UUID) {
			defer wg.Done()
			res, err := f.logProgress(u, group, 0, 10)
			if !assert.NoError(t, err) {
				return
			}
			assert.True(t, res.CompletedDay)
			if res.FirstFinisher {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}(u)
	}
	wg.Wait()

	assert.Equal(t, 1, winners)
	assert.Len(t, f.store.FirstFinisherClaims(group.ID), 1)

	logs, err := f.store.ListGroupLogs(f.ctx, group.ID)
	require.NoError(t, err)
	flagged := 0
	for _, l := range logs {
		if l.IsFirstFinisher {
			flagged++
		}
	}
	assert.Equal(t, 1, flagged)
}

func TestLogProgressRejectsInvalidInput(t *testing.T) {
	f := newFixture(t)
	group := f.createGroup(t, f.self, "ABCD1234", 10)

	_, err := f.logProgress(f.self, group, 0, 0)
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)

	_, err = f.logProgress(f.self, group, 0, -3)
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)

	_, err = f.services.Progress.LogProgress(f.ctx, &dto.LogProgressRequest{
		UserID: f.self, GroupID: group.ID, ChallengeID: uuid.New(), Delta: 1,
	})
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)
	assert.ErrorIs(t, err, apperrors.ErrUnknownChallenge)

	_, err = f.services.Progress.LogProgress(f.ctx, nil)
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)
}

func TestLogProgressRequiresKnownGroupAndMembership(t *testing.T) {
	f := newFixture(t)
	group := f.createGroup(t, f.self, "ABCD1234", 10)

	_, err := f.services.Progress.LogProgress(f.ctx, &dto.LogProgressRequest{
		UserID: f.self, GroupID: uuid.New(), ChallengeID: group.Challenges[0].ID, Delta: 1,
	})
	assert.ErrorIs(t, err, apperrors.ErrResourceNotFound)

	_, err = f.logProgress(uuid.New(), group, 0, 1)
	assert.ErrorIs(t, err, apperrors.ErrResourceNotFound)
}

func TestLogProgressStoreFailureRollsBack(t *testing.T) {
	f := newFixture(t)
	group := f.createGroup(t, f.self, "ABCD1234", 10)

	f.store.FailNext(memory.OpClaim, errors.New("connection reset by peer"))
	_, err := f.logProgress(f.self, group, 0, 10)
	require.Error(t, err)
	assert.True(t, apperrors.IsRetryable(err))

	logs, err := f.store.ListUserDay(f.ctx, f.self, group.ID, f.cal.Today())
	require.NoError(t, err)
	assert.Empty(t, logs)
	assert.Empty(t, f.store.FirstFinisherClaims(group.ID))

	// The retry applies the submission exactly once.
	res, err := f.logProgress(f.self, group, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 10, res.Log.Amount)
	assert.True(t, res.FirstFinisher)
}

func TestLogProgressIncrementFailureIsRetryable(t *testing.T) {
	f := newFixture(t)
	group := f.createGroup(t, f.self, "ABCD1234", 10)

	f.store.FailNext(memory.OpIncrement, errors.New("server closed the connection"))
	_, err := f.logProgress(f.self, group, 0, 3)
	assert.True(t, apperrors.IsRetryable(err))

	f.store.FailNext(memory.OpGetMember, errors.New("timeout"))
	_, err = f.logProgress(f.self, group, 0, 3)
	assert.True(t, apperrors.IsRetryable(err))
}

func TestLogProgressAmountNeverDecreases(t *testing.T) {
	f := newFixture(t)
	group := f.createGroup(t, f.self, "ABCD1234", 100)

	last := 0
	for _, delta := range []int{1, 7, 3, 40, 2, 90} {
		res, err := f.logProgress(f.self, group, 0, delta)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, res.Log.Amount, last)
		assert.Equal(t, last+delta, res.Log.Amount)
		last = res.Log.Amount
	}
}
