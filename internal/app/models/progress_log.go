package models

import (
	"time"

	"github.com/google/uuid"
)

// LogKey is the natural key of a progress log
type LogKey struct {
	UserID      uuid.UUID
	GroupID     uuid.UUID
	ChallengeID uuid.UUID
	LogDate     string
}

// ProgressLog accumulates one member's progress toward one challenge on one day
type ProgressLog struct {
	ID              uuid.UUID  `json:"id" db:"id"`
	UserID          uuid.UUID  `json:"user_id" db:"user_id"`
	GroupID         uuid.UUID  `json:"group_id" db:"group_id"`
	ChallengeID     uuid.UUID  `json:"challenge_id" db:"challenge_id"`
	Amount          int        `json:"amount" db:"amount"`
	LogDate         string     `json:"log_date" db:"log_date"`
	CompletedAt     *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	IsFirstFinisher bool       `json:"is_first_finisher" db:"is_first_finisher"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at" db:"updated_at"`
}

// Key returns the natural key of the log
func (l *ProgressLog) Key() LogKey {
	return LogKey{UserID: l.UserID, GroupID: l.GroupID, ChallengeID: l.ChallengeID, LogDate: l.LogDate}
}

// Completed reports whether the goal was reached on this log
func (l *ProgressLog) Completed() bool {
	return l.CompletedAt != nil
}

// FirstFinisherClaim is the exclusive (group, day) first-finisher record
type FirstFinisherClaim struct {
	GroupID    uuid.UUID `json:"group_id" db:"group_id"`
	LogDate    string    `json:"log_date" db:"log_date"`
	UserID     uuid.UUID `json:"user_id" db:"user_id"`
	LogID      uuid.UUID `json:"log_id" db:"log_id"`
	FinishedAt time.Time `json:"finished_at" db:"finished_at"`
}

// Increment describes one progress submission applied by the store
type Increment struct {
	Key   LogKey
	Delta int
	// Goal of the challenge; the store stamps completed_at when the
	// accumulated amount first reaches it.
	Goal int
	At   time.Time
}

// UpdatedLog is the outcome of a progress submission
type UpdatedLog struct {
	Log      ProgressLog `json:"log"`
	Previous int         `json:"previous"`
	Delta    int         `json:"delta"`
	// CompletedChallenge is true when this submission reached the goal
	CompletedChallenge bool `json:"completed_challenge"`
	// CompletedDay is true when this submission finished the member's last
	// outstanding challenge for the day
	CompletedDay  bool `json:"completed_day"`
	FirstFinisher bool `json:"first_finisher"`
}
