package repositories

import (
	"github.com/mrniikke/fitness-challange/internal/db"
)

// Repositories holds all the repository instances
type Repositories struct {
	*GroupRepository
	*ChallengeRepository
	*MemberRepository
	*ProfileRepository
	*ProgressRepository
	*NotificationRepository
}

// NewRepositories initializes all repositories
func NewRepositories(database *db.PostgresDB) *Repositories {
	return &Repositories{
		GroupRepository:        NewGroupRepository(database),
		ChallengeRepository:    NewChallengeRepository(database.Pool),
		MemberRepository:       NewMemberRepository(database.Pool),
		ProfileRepository:      NewProfileRepository(database.Pool),
		ProgressRepository:     NewProgressRepository(database),
		NotificationRepository: NewNotificationRepository(database.Pool),
	}
}

var _ Store = (*Repositories)(nil)
