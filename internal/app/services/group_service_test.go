package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrniikke/fitness-challange/internal/app/models"
	"github.com/mrniikke/fitness-challange/internal/app/models/dto"
	"github.com/mrniikke/fitness-challange/internal/pkg/apperrors"
)

func TestCreateGroupMakesCreatorAdmin(t *testing.T) {
	f := newFixture(t)
	days := 30

	group, err := f.services.Groups.CreateGroup(f.ctx, &dto.CreateGroupRequest{
		Name:         "Morning crew",
		InviteCode:   "abcd1234",
		CreatedBy:    f.self,
		DurationDays: &days,
		Challenges: []dto.ChallengeInput{
			{Name: "Pushups", GoalAmount: 50},
			{Name: "Squats", GoalAmount: 30},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "ABCD1234", group.InviteCode)
	require.NotNil(t, group.EndDate)
	assert.Equal(t, "2024-06-09", *group.EndDate)
	require.Len(t, group.Challenges, 2)

	member, err := f.store.GetMember(f.ctx, group.ID, f.self)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, member.Role)

	loaded, err := f.services.Groups.GetGroup(f.ctx, group.ID)
	require.NoError(t, err)
	assert.Equal(t, "Morning crew", loaded.Name)
	assert.Len(t, loaded.Challenges, 2)
}

func TestCreateGroupValidatesChallenges(t *testing.T) {
	f := newFixture(t)

	tooMany := make([]dto.ChallengeInput, models.MaxChallengesPerGroup+1)
	for i := range tooMany {
		tooMany[i] = dto.ChallengeInput{Name: "c", GoalAmount: 1}
	}

	cases := map[string]*dto.CreateGroupRequest{
		"no challenges": {Name: "g", InviteCode: "ABCD1234", CreatedBy: f.self},
		"too many":      {Name: "g", InviteCode: "ABCD1234", CreatedBy: f.self, Challenges: tooMany},
		"zero goal": {Name: "g", InviteCode: "ABCD1234", CreatedBy: f.self,
			Challenges: []dto.ChallengeInput{{Name: "c", GoalAmount: 0}}},
		"no name": {InviteCode: "ABCD1234", CreatedBy: f.self,
			Challenges: []dto.ChallengeInput{{Name: "c", GoalAmount: 1}}},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.services.Groups.CreateGroup(f.ctx, req)
			assert.ErrorIs(t, err, apperrors.ErrValidationFailed)
		})
	}

	_, err := f.services.Groups.CreateGroup(f.ctx, &dto.CreateGroupRequest{
		Name: "g", InviteCode: "ABC-1234", CreatedBy: f.self,
		Challenges: []dto.ChallengeInput{{Name: "c", GoalAmount: 1}},
	})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInviteCode)
}

func TestCreateGroupRejectsTakenInviteCode(t *testing.T) {
	f := newFixture(t)
	f.createGroup(t, f.self, "ABCD1234", 10)

	_, err := f.services.Groups.CreateGroup(f.ctx, &dto.CreateGroupRequest{
		Name: "Evening crew", InviteCode: "abcd1234", CreatedBy: uuid.New(),
		Challenges: []dto.ChallengeInput{{Name: "c", GoalAmount: 1}},
	})
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestJoinGroup(t *testing.T) {
	f := newFixture(t)
	group := f.createGroup(t, f.self, "ABCD1234", 10)
	user := uuid.New()

	member, err := f.services.Groups.JoinGroup(f.ctx, &dto.JoinGroupRequest{InviteCode: "abcd1234", UserID: user})
	require.NoError(t, err)
	assert.Equal(t, group.ID, member.GroupID)
	assert.Equal(t, models.RoleMember, member.Role)

	_, err = f.services.Groups.JoinGroup(f.ctx, &dto.JoinGroupRequest{InviteCode: "ABCD1234", UserID: user})
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	assert.Equal(t, "already a member of this group", err.Error())

	_, err = f.services.Groups.JoinGroup(f.ctx, &dto.JoinGroupRequest{InviteCode: "ZZZZ9999", UserID: user})
	assert.ErrorIs(t, err, apperrors.ErrResourceNotFound)

	_, err = f.services.Groups.JoinGroup(f.ctx, &dto.JoinGroupRequest{InviteCode: "short", UserID: user})
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInviteCode)
}

func TestLeaveGroup(t *testing.T) {
	f := newFixture(t)
	group := f.createGroup(t, f.self, "ABCD1234", 10)
	user := f.join(t, group, "Alice")

	require.NoError(t, f.services.Groups.LeaveGroup(f.ctx, group.ID, user))
	_, err := f.store.GetMember(f.ctx, group.ID, user)
	assert.ErrorIs(t, err, apperrors.ErrResourceNotFound)

	err = f.services.Groups.LeaveGroup(f.ctx, group.ID, user)
	assert.ErrorIs(t, err, apperrors.ErrResourceNotFound)
}
