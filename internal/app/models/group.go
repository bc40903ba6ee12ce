package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	// InviteCodeLength is the fixed length of a group invite code
	InviteCodeLength = 8
	// MaxChallengesPerGroup bounds the number of challenges in one group
	MaxChallengesPerGroup = 10
)

// Group is a named collection of members sharing daily challenges
type Group struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	Description  *string   `json:"description,omitempty" db:"description"`
	InviteCode   string    `json:"invite_code" db:"invite_code"`
	CreatedBy    uuid.UUID `json:"created_by" db:"created_by"`
	DurationDays *int      `json:"duration_days,omitempty" db:"duration_days"`
	EndDate      *string   `json:"end_date,omitempty" db:"end_date"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`

	// Related entities
	Challenges []Challenge `json:"challenges,omitempty"`
}

// Challenge is a named daily goal inside a group
type Challenge struct {
	ID         uuid.UUID `json:"id" db:"id"`
	GroupID    uuid.UUID `json:"group_id" db:"group_id"`
	Name       string    `json:"name" db:"name"`
	GoalAmount int       `json:"goal_amount" db:"goal_amount"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// Member associates a user with a group
type Member struct {
	ID       uuid.UUID  `json:"id" db:"id"`
	GroupID  uuid.UUID  `json:"group_id" db:"group_id"`
	UserID   uuid.UUID  `json:"user_id" db:"user_id"`
	Role     MemberRole `json:"role" db:"role"`
	JoinedAt time.Time  `json:"joined_at" db:"joined_at"`
}

// Profile holds the public identity of a user
type Profile struct {
	UserID      uuid.UUID `json:"user_id" db:"user_id"`
	Username    *string   `json:"username,omitempty" db:"username"`
	DisplayName *string   `json:"display_name,omitempty" db:"display_name"`
	Timezone    string    `json:"timezone" db:"timezone"`
}

// Name returns the display name, then the username, then "Someone"
func (p *Profile) Name() string {
	if p == nil {
		return UnknownUserName
	}
	if p.DisplayName != nil && *p.DisplayName != "" {
		return *p.DisplayName
	}
	if p.Username != nil && *p.Username != "" {
		return *p.Username
	}
	return UnknownUserName
}

// Fallback names used when a lookup fails
const (
	UnknownUserName  = "Someone"
	UnknownGroupName = "Group"
)
