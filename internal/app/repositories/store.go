package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/mrniikke/fitness-challange/internal/app/models"
)

// GroupStore persists groups together with their challenges and creator
type GroupStore interface {
	// CreateGroup inserts the group, its challenges and the creator's admin
	// membership atomically. A taken invite code is a conflict.
	CreateGroup(ctx context.Context, group *models.Group, challenges []models.Challenge, creator *models.Member) error
	GetGroup(ctx context.Context, id uuid.UUID) (*models.Group, error)
	GetGroupByInviteCode(ctx context.Context, code string) (*models.Group, error)
}

// ChallengeStore reads the challenges of a group
type ChallengeStore interface {
	ListChallenges(ctx context.Context, groupID uuid.UUID) ([]models.Challenge, error)
}

// MemberStore manages group memberships
type MemberStore interface {
	// AddMember fails with a conflict when the user already belongs to the group
	AddMember(ctx context.Context, member *models.Member) error
	RemoveMember(ctx context.Context, groupID, userID uuid.UUID) error
	GetMember(ctx context.Context, groupID, userID uuid.UUID) (*models.Member, error)
	ListMembers(ctx context.Context, groupID uuid.UUID) ([]models.Member, error)
	ListGroupIDsForUser(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
}

// ProfileStore reads and writes user profiles
type ProfileStore interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
	ListProfiles(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]models.Profile, error)
	ListAllProfiles(ctx context.Context) ([]models.Profile, error)
	UpsertProfile(ctx context.Context, profile *models.Profile) error
}

// ProgressReader reads progress logs
type ProgressReader interface {
	// ListUserDay returns the user's logs of one group and date
	ListUserDay(ctx context.Context, userID, groupID uuid.UUID, date string) ([]models.ProgressLog, error)
}

// ProgressTx is the set of progress operations available inside a transaction
type ProgressTx interface {
	ProgressReader

	// Increment adds inc.Delta to the log of inc.Key, creating it when absent,
	// and stamps completed_at the first time the amount reaches inc.Goal.
	Increment(ctx context.Context, inc models.Increment) (*models.ProgressLog, error)

	// ClaimFirstFinisher records claim as the first finisher of its group and
	// date and flags its log, in one atomic write. It reports false when the
	// scope is already claimed.
	ClaimFirstFinisher(ctx context.Context, claim models.FirstFinisherClaim) (bool, error)
}

// ProgressStore persists progress logs
type ProgressStore interface {
	ProgressReader

	// RunInTx runs fn in one transaction; nothing fn wrote is visible to
	// readers unless fn returns nil and the commit succeeds.
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx ProgressTx) error) error
	ListGroupLogs(ctx context.Context, groupID uuid.UUID) ([]models.ProgressLog, error)
}

// NotificationStore persists scheduled notifications
type NotificationStore interface {
	CreateScheduled(ctx context.Context, n *models.ScheduledNotification) error
	ListUnread(ctx context.Context, userID, groupID uuid.UUID, limit int) ([]models.ScheduledNotification, error)
	MarkRead(ctx context.Context, id uuid.UUID) error
	// ExistsSince reports whether a notification of type typ was created for
	// (user, group) at or after since.
	ExistsSince(ctx context.Context, userID, groupID uuid.UUID, typ models.NotificationType, since time.Time) (bool, error)
}

// Store bundles every store the services depend on
type Store interface {
	GroupStore
	ChallengeStore
	MemberStore
	ProfileStore
	ProgressStore
	NotificationStore
}
