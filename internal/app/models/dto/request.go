package dto

import "github.com/google/uuid"

// --- Group requests ---

// ChallengeInput describes one challenge supplied at group creation
type ChallengeInput struct {
	Name       string `json:"name" validate:"required,name"`
	GoalAmount int    `json:"goal_amount" validate:"gt=0"`
}

// CreateGroupRequest represents group creation data
type CreateGroupRequest struct {
	Name        string    `json:"name" validate:"required,name"`
	Description *string   `json:"description,omitempty" validate:"omitempty,max=500"`
	InviteCode  string    `json:"invite_code" validate:"required,invitecode"`
	CreatedBy   uuid.UUID `json:"created_by" validate:"required"`
	// DurationDays, when set, fixes the end date relative to creation
	DurationDays *int             `json:"duration_days,omitempty" validate:"omitempty,gt=0,max=3650"`
	Challenges   []ChallengeInput `json:"challenges" validate:"required,min=1,max=10,dive"`
}

// JoinGroupRequest represents the request to join a group by invite code
type JoinGroupRequest struct {
	InviteCode string    `json:"invite_code" validate:"required,invitecode"`
	UserID     uuid.UUID `json:"user_id" validate:"required"`
}

// --- Progress requests ---

// LogProgressRequest is one progress submission for the acting user
type LogProgressRequest struct {
	UserID      uuid.UUID `json:"user_id" validate:"required"`
	GroupID     uuid.UUID `json:"group_id" validate:"required"`
	ChallengeID uuid.UUID `json:"challenge_id" validate:"required"`
	Delta       int       `json:"delta" validate:"gt=0"`
}
