// Package standings derives per-member daily progress, completion state and
// first-finisher ownership from a group's challenges and progress logs.
//
// Every function here is pure: callers pass an explicit snapshot and absent
// rows count as zero progress.
package standings

import (
	"math"

	"github.com/google/uuid"
	"github.com/mrniikke/fitness-challange/internal/app/models"
)

// ProgressFor returns the amount of the log matching (user, challenge, date),
// or 0 if there is none.
func ProgressFor(logs []models.ProgressLog, userID, challengeID uuid.UUID, date string) int {
	if l := findLog(logs, userID, challengeID, date); l != nil {
		return l.Amount
	}
	return 0
}

// TotalGoal sums the goal amounts of challenges
func TotalGoal(challenges []models.Challenge) int {
	total := 0
	for _, c := range challenges {
		total += c.GoalAmount
	}
	return total
}

// TotalProgressToday sums ProgressFor over challenges for today only
func TotalProgressToday(userID uuid.UUID, challenges []models.Challenge, logs []models.ProgressLog, today string) int {
	total := 0
	for _, c := range challenges {
		total += ProgressFor(logs, userID, c.ID, today)
	}
	return total
}

// HistoricalTotal sums every log amount of the user across all dates and challenges
func HistoricalTotal(userID uuid.UUID, logs []models.ProgressLog) int {
	total := 0
	for i := range logs {
		if logs[i].UserID == userID {
			total += logs[i].Amount
		}
	}
	return total
}

// DaysActive counts the distinct dates on which the user logged progress
func DaysActive(userID uuid.UUID, logs []models.ProgressLog) int {
	days := make(map[string]struct{})
	for i := range logs {
		if logs[i].UserID == userID && logs[i].Amount > 0 {
			days[logs[i].LogDate] = struct{}{}
		}
	}
	return len(days)
}

// PercentComplete returns round(100*progress/goal) clamped to [0, 100].
// A goal of zero is treated as one.
func PercentComplete(progress, goal int) int {
	if goal < 1 {
		goal = 1
	}
	pct := int(math.Round(100 * float64(progress) / float64(goal)))
	switch {
	case pct < 0:
		return 0
	case pct > 100:
		return 100
	default:
		return pct
	}
}

// findLog returns the single log for the natural key. Logs of other groups
// are expected to be filtered out by the caller.
func findLog(logs []models.ProgressLog, userID, challengeID uuid.UUID, date string) *models.ProgressLog {
	for i := range logs {
		l := &logs[i]
		if l.UserID == userID && l.ChallengeID == challengeID && l.LogDate == date {
			return l
		}
	}
	return nil
}
