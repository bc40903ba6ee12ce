package standings

import (
	"sort"

	"github.com/google/uuid"
	"github.com/mrniikke/fitness-challange/internal/app/models"
)

// Snapshot is the input of Build: everything fetched for one group
type Snapshot struct {
	GroupID    uuid.UUID
	Challenges []models.Challenge
	Members    []models.Member
	Profiles   map[uuid.UUID]models.Profile
	Logs       []models.ProgressLog
}

// Build assembles the standings of every member for date. Members are ordered
// by join time.
func (c *Classifier) Build(snap Snapshot, date string) models.GroupStandings {
	totalGoal := TotalGoal(snap.Challenges)
	result := models.GroupStandings{
		GroupID:    snap.GroupID,
		Date:       date,
		TotalGoal:  totalGoal,
		Members:    make([]models.MemberStanding, 0, len(snap.Members)),
		ComputedAt: c.cal.Now(),
	}

	members := make([]models.Member, len(snap.Members))
	copy(members, snap.Members)
	sort.SliceStable(members, func(i, j int) bool {
		if members[i].JoinedAt.Equal(members[j].JoinedAt) {
			return members[i].UserID.String() < members[j].UserID.String()
		}
		return members[i].JoinedAt.Before(members[j].JoinedAt)
	})

	for _, m := range members {
		standing := c.memberStanding(snap, m, date, totalGoal)
		if standing.IsFirstFinisher && result.FirstFinisher == nil {
			id := m.UserID
			result.FirstFinisher = &id
		}
		result.Members = append(result.Members, standing)
	}

	return result
}

func (c *Classifier) memberStanding(snap Snapshot, m models.Member, date string, totalGoal int) models.MemberStanding {
	name := models.UnknownUserName
	if p, ok := snap.Profiles[m.UserID]; ok {
		name = p.Name()
	}

	today := TotalProgressToday(m.UserID, snap.Challenges, snap.Logs, date)
	progress := make([]models.ChallengeProgress, 0, len(snap.Challenges))
	for _, ch := range snap.Challenges {
		amount := ProgressFor(snap.Logs, m.UserID, ch.ID, date)
		progress = append(progress, models.ChallengeProgress{
			ChallengeID: ch.ID,
			Name:        ch.Name,
			Amount:      amount,
			Goal:        ch.GoalAmount,
			Percent:     PercentComplete(amount, ch.GoalAmount),
			Completed:   ChallengeCompleted(snap.Logs, m.UserID, ch.ID, date),
		})
	}

	return models.MemberStanding{
		UserID:          m.UserID,
		DisplayName:     name,
		Role:            m.Role,
		JoinedAt:        m.JoinedAt,
		TodayTotal:      today,
		TotalGoal:       totalGoal,
		Percent:         PercentComplete(today, totalGoal),
		Status:          c.Status(snap.Challenges, snap.Logs, m.UserID, date),
		IsFirstFinisher: FirstFinisherOn(snap.Logs, m.UserID, date),
		Penalty:         c.Penalty(snap.Challenges, snap.Logs, m.UserID, date),
		HistoricalTotal: HistoricalTotal(m.UserID, snap.Logs),
		DaysActive:      DaysActive(m.UserID, snap.Logs),
		Challenges:      progress,
	}
}
