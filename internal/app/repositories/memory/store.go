// Package memory is an in-process implementation of the repositories stores.
// It mirrors the Postgres schema constraints and emits the same row-change
// events the database trigger publishes.
package memory

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mrniikke/fitness-challange/internal/app/models"
	"github.com/mrniikke/fitness-challange/internal/app/repositories"
	"github.com/mrniikke/fitness-challange/internal/pkg/apperrors"
	"github.com/mrniikke/fitness-challange/internal/pkg/calendar"
)

// Operation names accepted by FailNext
const (
	OpCreateGroup     = "create_group"
	OpListChallenges  = "list_challenges"
	OpAddMember       = "add_member"
	OpGetMember       = "get_member"
	OpListMembers     = "list_members"
	OpListProfiles    = "list_profiles"
	OpListGroupLogs   = "list_group_logs"
	OpListUserDay     = "list_user_day"
	OpIncrement       = "increment"
	OpClaim           = "claim_first_finisher"
	OpCreateScheduled = "create_scheduled"
	OpListUnread      = "list_unread"
	OpMarkRead        = "mark_read"
)

// Publisher receives the row changes of committed writes
type Publisher interface {
	Publish(ctx context.Context, ev models.ChangeEvent) error
}

type claimKey struct {
	groupID uuid.UUID
	date    string
}

// Store keeps every table in memory behind one mutex
type Store struct {
	mu    sync.Mutex
	clock calendar.Clock
	feed  Publisher

	groups        map[uuid.UUID]models.Group
	challenges    map[uuid.UUID][]models.Challenge
	members       map[uuid.UUID][]models.Member
	profiles      map[uuid.UUID]models.Profile
	logs          map[models.LogKey]*models.ProgressLog
	logOrder      []models.LogKey
	claims        map[claimKey]models.FirstFinisherClaim
	notifications []models.ScheduledNotification

	faults map[string]error
}

// Option configures a Store
type Option func(*Store)

// WithFeed publishes committed row changes to p
func WithFeed(p Publisher) Option {
	return func(s *Store) { s.feed = p }
}

// WithClock sets the clock used for row timestamps
func WithClock(c calendar.Clock) Option {
	return func(s *Store) { s.clock = c }
}

// New creates an empty store
func New(opts ...Option) *Store {
	s := &Store{
		clock:      calendar.SystemClock{},
		groups:     make(map[uuid.UUID]models.Group),
		challenges: make(map[uuid.UUID][]models.Challenge),
		members:    make(map[uuid.UUID][]models.Member),
		profiles:   make(map[uuid.UUID]models.Profile),
		logs:       make(map[models.LogKey]*models.ProgressLog),
		claims:     make(map[claimKey]models.FirstFinisherClaim),
		faults:     make(map[string]error),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ repositories.Store = (*Store)(nil)

// FailNext makes the next call of op fail with err
func (s *Store) FailNext(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[op] = err
}

// fault consumes an injected failure. Callers hold s.mu.
func (s *Store) fault(op string) error {
	if err, ok := s.faults[op]; ok {
		delete(s.faults, op)
		return err
	}
	return nil
}

// publish hands events to the feed. Callers must not hold s.mu.
func (s *Store) publish(ctx context.Context, events []models.ChangeEvent) {
	if s.feed == nil {
		return
	}
	for _, ev := range events {
		// Delivery is best effort, like the database notification channel.
		_ = s.feed.Publish(ctx, ev)
	}
}

func (s *Store) change(table string, typ models.ChangeType, groupID uuid.UUID, oldRow, newRow interface{}) models.ChangeEvent {
	ev := models.ChangeEvent{
		Table:      table,
		Type:       typ,
		GroupID:    groupID,
		CommitTime: s.clock.Now().UTC(),
	}
	if oldRow != nil {
		ev.Old, _ = json.Marshal(oldRow)
	}
	if newRow != nil {
		ev.New, _ = json.Marshal(newRow)
	}
	return ev
}

// --- Groups ---

// CreateGroup inserts the group, its challenges and its creator
func (s *Store) CreateGroup(ctx context.Context, group *models.Group, challenges []models.Challenge, creator *models.Member) error {
	s.mu.Lock()
	if err := s.fault(OpCreateGroup); err != nil {
		s.mu.Unlock()
		return err
	}
	for _, g := range s.groups {
		if g.InviteCode == group.InviteCode {
			s.mu.Unlock()
			return apperrors.NewConflictError("invite code already in use")
		}
	}

	stored := *group
	stored.Challenges = nil
	s.groups[group.ID] = stored
	s.challenges[group.ID] = append([]models.Challenge(nil), challenges...)
	s.members[group.ID] = append(s.members[group.ID], *creator)
	events := []models.ChangeEvent{s.change(models.TableGroupMembers, models.ChangeInsert, group.ID, nil, creator)}
	s.mu.Unlock()

	s.publish(ctx, events)
	return nil
}

// GetGroup retrieves a group by ID
func (s *Store) GetGroup(ctx context.Context, id uuid.UUID) (*models.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.groups[id]
	if !ok {
		return nil, apperrors.NewResourceNotFoundError("group not found")
	}
	return &g, nil
}

// GetGroupByInviteCode retrieves a group by invite code
func (s *Store) GetGroupByInviteCode(ctx context.Context, code string) (*models.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, g := range s.groups {
		if g.InviteCode == code {
			g := g
			return &g, nil
		}
	}
	return nil, apperrors.NewResourceNotFoundError("no group with this invite code")
}

// ListChallenges returns the challenges of a group
func (s *Store) ListChallenges(ctx context.Context, groupID uuid.UUID) ([]models.Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fault(OpListChallenges); err != nil {
		return nil, err
	}
	return append([]models.Challenge{}, s.challenges[groupID]...), nil
}

// --- Members ---

// AddMember adds a user to a group
func (s *Store) AddMember(ctx context.Context, member *models.Member) error {
	s.mu.Lock()
	if err := s.fault(OpAddMember); err != nil {
		s.mu.Unlock()
		return err
	}
	for _, m := range s.members[member.GroupID] {
		if m.UserID == member.UserID {
			s.mu.Unlock()
			return apperrors.NewConflictError("already a member of this group")
		}
	}
	s.members[member.GroupID] = append(s.members[member.GroupID], *member)
	ev := s.change(models.TableGroupMembers, models.ChangeInsert, member.GroupID, nil, member)
	s.mu.Unlock()

	s.publish(ctx, []models.ChangeEvent{ev})
	return nil
}

// RemoveMember removes a user from a group
func (s *Store) RemoveMember(ctx context.Context, groupID, userID uuid.UUID) error {
	s.mu.Lock()
	members := s.members[groupID]
	for i, m := range members {
		if m.UserID == userID {
			s.members[groupID] = append(members[:i:i], members[i+1:]...)
			ev := s.change(models.TableGroupMembers, models.ChangeDelete, groupID, m, nil)
			s.mu.Unlock()

			s.publish(ctx, []models.ChangeEvent{ev})
			return nil
		}
	}
	s.mu.Unlock()
	return apperrors.NewResourceNotFoundError("not a member of this group")
}

// GetMember retrieves one membership
func (s *Store) GetMember(ctx context.Context, groupID, userID uuid.UUID) (*models.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fault(OpGetMember); err != nil {
		return nil, err
	}
	for _, m := range s.members[groupID] {
		if m.UserID == userID {
			m := m
			return &m, nil
		}
	}
	return nil, apperrors.NewResourceNotFoundError("not a member of this group")
}

// ListMembers returns the members of a group ordered by join time
func (s *Store) ListMembers(ctx context.Context, groupID uuid.UUID) ([]models.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fault(OpListMembers); err != nil {
		return nil, err
	}
	members := append([]models.Member{}, s.members[groupID]...)
	sort.SliceStable(members, func(i, j int) bool { return members[i].JoinedAt.Before(members[j].JoinedAt) })
	return members, nil
}

// ListGroupIDsForUser returns the groups a user belongs to
func (s *Store) ListGroupIDsForUser(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	type joined struct {
		id uuid.UUID
		at time.Time
	}
	var found []joined
	for groupID, members := range s.members {
		for _, m := range members {
			if m.UserID == userID {
				found = append(found, joined{groupID, m.JoinedAt})
			}
		}
	}
	sort.Slice(found, func(i, j int) bool {
		if found[i].at.Equal(found[j].at) {
			return found[i].id.String() < found[j].id.String()
		}
		return found[i].at.Before(found[j].at)
	})

	ids := make([]uuid.UUID, 0, len(found))
	for _, f := range found {
		ids = append(ids, f.id)
	}
	return ids, nil
}

// --- Profiles ---

// GetProfile retrieves the profile of a user
func (s *Store) GetProfile(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[userID]
	if !ok {
		return nil, apperrors.NewResourceNotFoundError("profile not found")
	}
	return &p, nil
}

// ListProfiles returns the profiles of the given users
func (s *Store) ListProfiles(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fault(OpListProfiles); err != nil {
		return nil, err
	}
	result := make(map[uuid.UUID]models.Profile, len(userIDs))
	for _, id := range userIDs {
		if p, ok := s.profiles[id]; ok {
			result[id] = p
		}
	}
	return result, nil
}

// ListAllProfiles returns every profile ordered by user id
func (s *Store) ListAllProfiles(ctx context.Context) ([]models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	profiles := make([]models.Profile, 0, len(s.profiles))
	for _, p := range s.profiles {
		profiles = append(profiles, p)
	}
	sort.Slice(profiles, func(i, j int) bool { return profiles[i].UserID.String() < profiles[j].UserID.String() })
	return profiles, nil
}

// UpsertProfile creates or replaces a profile
func (s *Store) UpsertProfile(ctx context.Context, profile *models.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := *profile
	if p.Timezone == "" {
		p.Timezone = "UTC"
	}
	s.profiles[p.UserID] = p
	return nil
}
