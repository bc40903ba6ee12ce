package models

import (
	"time"

	"github.com/google/uuid"
)

// DayStatus is a member's derived completion state for one day
type DayStatus string

const (
	DayPending   DayStatus = "pending"
	DayCompleted DayStatus = "completed"
	DayFailed    DayStatus = "failed"
)

// ChallengeProgress is one member's progress toward one challenge on a day
type ChallengeProgress struct {
	ChallengeID uuid.UUID `json:"challenge_id"`
	Name        string    `json:"name"`
	Amount      int       `json:"amount"`
	Goal        int       `json:"goal"`
	Percent     int       `json:"percent"`
	Completed   bool      `json:"completed"`
}

// MemberStanding is the per-member view of a group's day
type MemberStanding struct {
	UserID          uuid.UUID           `json:"user_id"`
	DisplayName     string              `json:"display_name"`
	Role            MemberRole          `json:"role"`
	JoinedAt        time.Time           `json:"joined_at"`
	TodayTotal      int                 `json:"today_total"`
	TotalGoal       int                 `json:"total_goal"`
	Percent         int                 `json:"percent"`
	Status          DayStatus           `json:"status"`
	IsFirstFinisher bool                `json:"is_first_finisher"`
	Penalty         bool                `json:"penalty"`
	HistoricalTotal int                 `json:"historical_total"`
	DaysActive      int                 `json:"days_active"`
	Challenges      []ChallengeProgress `json:"challenges"`
}

// GroupStandings is a snapshot of a group's standings for one date
type GroupStandings struct {
	GroupID       uuid.UUID        `json:"group_id"`
	Date          string           `json:"date"`
	TotalGoal     int              `json:"total_goal"`
	Members       []MemberStanding `json:"members"`
	FirstFinisher *uuid.UUID       `json:"first_finisher,omitempty"`
	ComputedAt    time.Time        `json:"computed_at"`
}
