package standings

import (
	"github.com/google/uuid"
	"github.com/mrniikke/fitness-challange/internal/app/models"
	"github.com/mrniikke/fitness-challange/internal/pkg/calendar"
)

// ChallengeCompleted reports whether the user's log for (challenge, date)
// has reached its goal.
func ChallengeCompleted(logs []models.ProgressLog, userID, challengeID uuid.UUID, date string) bool {
	l := findLog(logs, userID, challengeID, date)
	return l != nil && l.Completed()
}

// DayCompleted reports whether the user completed every challenge on date.
// A group without challenges is never completed.
func DayCompleted(challenges []models.Challenge, logs []models.ProgressLog, userID uuid.UUID, date string) bool {
	if len(challenges) == 0 {
		return false
	}
	for _, c := range challenges {
		if !ChallengeCompleted(logs, userID, c.ID, date) {
			return false
		}
	}
	return true
}

// FirstFinisherOn reports whether any of the user's logs for date carries the
// first-finisher flag.
func FirstFinisherOn(logs []models.ProgressLog, userID uuid.UUID, date string) bool {
	for i := range logs {
		if logs[i].UserID == userID && logs[i].LogDate == date && logs[i].IsFirstFinisher {
			return true
		}
	}
	return false
}

// IsCompletingSubmission reports whether moving from previous to next crosses goal
func IsCompletingSubmission(previous, next, goal int) bool {
	return previous < goal && goal <= next
}

// Classifier derives time-gated day states. Status is recomputed on every
// call and never stored.
type Classifier struct {
	cal *calendar.Calendar
}

// NewClassifier creates a classifier reading time from cal
func NewClassifier(cal *calendar.Calendar) *Classifier {
	if cal == nil {
		cal = calendar.New(nil, nil)
	}
	return &Classifier{cal: cal}
}

// Status classifies the user's day. An incomplete day is failed only once the
// cutoff of that same date has passed.
func (c *Classifier) Status(challenges []models.Challenge, logs []models.ProgressLog, userID uuid.UUID, date string) models.DayStatus {
	if DayCompleted(challenges, logs, userID, date) {
		return models.DayCompleted
	}
	// A malformed key has no cutoff and stays pending.
	if passed, err := c.cal.Passed(date); err == nil && passed {
		return models.DayFailed
	}
	return models.DayPending
}

// Penalty reports whether the user missed yesterday and has not yet made up
// for it by completing today.
func (c *Classifier) Penalty(challenges []models.Challenge, logs []models.ProgressLog, userID uuid.UUID, today string) bool {
	if len(challenges) == 0 {
		return false
	}
	yesterday, err := calendar.AddDays(today, -1)
	if err != nil {
		return false
	}
	if DayCompleted(challenges, logs, userID, yesterday) {
		return false
	}
	return c.Status(challenges, logs, userID, today) != models.DayCompleted
}
