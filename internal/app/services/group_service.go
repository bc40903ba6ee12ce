package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mrniikke/fitness-challange/internal/app/models"
	"github.com/mrniikke/fitness-challange/internal/app/models/dto"
	"github.com/mrniikke/fitness-challange/internal/app/repositories"
	"github.com/mrniikke/fitness-challange/internal/pkg/apperrors"
	"github.com/mrniikke/fitness-challange/internal/pkg/calendar"
	"github.com/mrniikke/fitness-challange/internal/pkg/validation"
)

// GroupService defines the interface for group operations
type GroupService interface {
	CreateGroup(ctx context.Context, req *dto.CreateGroupRequest) (*models.Group, error)
	JoinGroup(ctx context.Context, req *dto.JoinGroupRequest) (*models.Member, error)
	LeaveGroup(ctx context.Context, groupID, userID uuid.UUID) error
	GetGroup(ctx context.Context, groupID uuid.UUID) (*models.Group, error)
}

type groupServiceImpl struct {
	groups  repositories.GroupStore
	members repositories.MemberStore
	catalog ChallengeCatalog
	cal     *calendar.Calendar
	logger  zerolog.Logger
}

// NewGroupService creates a new GroupService
func NewGroupService(
	groups repositories.GroupStore,
	members repositories.MemberStore,
	catalog ChallengeCatalog,
	cal *calendar.Calendar,
	logger zerolog.Logger,
) GroupService {
	return &groupServiceImpl{
		groups:  groups,
		members: members,
		catalog: catalog,
		cal:     cal,
		logger:  logger,
	}
}

// CreateGroup creates a group with its challenges and makes the creator its admin
func (s *groupServiceImpl) CreateGroup(ctx context.Context, req *dto.CreateGroupRequest) (*models.Group, error) {
	if req == nil {
		return nil, apperrors.NewValidationError(nil, "missing group")
	}
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	now := s.cal.Now().UTC()
	group := &models.Group{
		ID:           uuid.New(),
		Name:         req.Name,
		Description:  req.Description,
		InviteCode:   validation.NormalizeInviteCode(req.InviteCode),
		CreatedBy:    req.CreatedBy,
		DurationDays: req.DurationDays,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if req.DurationDays != nil {
		end, err := calendar.AddDays(s.cal.Today(), *req.DurationDays)
		if err != nil {
			return nil, err
		}
		group.EndDate = &end
	}

	challenges := make([]models.Challenge, 0, len(req.Challenges))
	for _, in := range req.Challenges {
		challenges = append(challenges, models.Challenge{
			ID:         uuid.New(),
			GroupID:    group.ID,
			Name:       in.Name,
			GoalAmount: in.GoalAmount,
			CreatedAt:  now,
		})
	}

	creator := &models.Member{
		ID:       uuid.New(),
		GroupID:  group.ID,
		UserID:   req.CreatedBy,
		Role:     models.RoleAdmin,
		JoinedAt: now,
	}

	if err := s.groups.CreateGroup(ctx, group, challenges, creator); err != nil {
		s.logger.Error().Err(err).Str("name", req.Name).Msg("Failed to create group")
		return nil, storeFailure(err, "failed to create group")
	}
	group.Challenges = challenges

	s.logger.Info().
		Str("groupID", group.ID.String()).
		Str("createdBy", req.CreatedBy.String()).
		Int("challenges", len(challenges)).
		Msg("Group created")
	return group, nil
}

// JoinGroup adds the user to the group owning the invite code. The code is
// matched case-insensitively.
func (s *groupServiceImpl) JoinGroup(ctx context.Context, req *dto.JoinGroupRequest) (*models.Member, error) {
	if req == nil {
		return nil, apperrors.NewValidationError(nil, "missing invite")
	}
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	group, err := s.groups.GetGroupByInviteCode(ctx, validation.NormalizeInviteCode(req.InviteCode))
	if err != nil {
		if errors.Is(err, apperrors.ErrResourceNotFound) {
			return nil, apperrors.NewResourceNotFoundError("no group with this invite code")
		}
		return nil, storeFailure(err, "failed to look up invite code")
	}

	member := &models.Member{
		ID:       uuid.New(),
		GroupID:  group.ID,
		UserID:   req.UserID,
		Role:     models.RoleMember,
		JoinedAt: s.cal.Now().UTC(),
	}
	if err := s.members.AddMember(ctx, member); err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			return nil, apperrors.NewCustomError(err, "already a member of this group")
		}
		return nil, storeFailure(err, "failed to join group")
	}

	s.logger.Info().
		Str("groupID", group.ID.String()).
		Str("userID", req.UserID.String()).
		Msg("Member joined group")
	return member, nil
}

// LeaveGroup removes the user from the group
func (s *groupServiceImpl) LeaveGroup(ctx context.Context, groupID, userID uuid.UUID) error {
	if err := s.members.RemoveMember(ctx, groupID, userID); err != nil {
		return storeFailure(err, "failed to leave group")
	}

	s.logger.Info().
		Str("groupID", groupID.String()).
		Str("userID", userID.String()).
		Msg("Member left group")
	return nil
}

// GetGroup returns the group with its challenges
func (s *groupServiceImpl) GetGroup(ctx context.Context, groupID uuid.UUID) (*models.Group, error) {
	group, err := s.groups.GetGroup(ctx, groupID)
	if err != nil {
		return nil, storeFailure(err, "failed to load group")
	}

	challenges, err := s.catalog.Get(ctx, groupID)
	if err != nil {
		return nil, err
	}
	group.Challenges = challenges
	return group, nil
}
