package services

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mrniikke/fitness-challange/internal/app/models"
	"github.com/mrniikke/fitness-challange/internal/app/repositories"
	"github.com/mrniikke/fitness-challange/internal/app/standings"
	"github.com/mrniikke/fitness-challange/internal/pkg/calendar"
)

// StandingsService computes group standings from fresh store reads
type StandingsService interface {
	// Refresh recomputes today's standings of a group. On failure it returns
	// the last successful snapshot, if any, together with the error.
	Refresh(ctx context.Context, groupID uuid.UUID) (*models.GroupStandings, error)
	// Last returns the last successful snapshot of a group
	Last(groupID uuid.UUID) (*models.GroupStandings, bool)
}

type standingsServiceImpl struct {
	store      repositories.Store
	catalog    ChallengeCatalog
	classifier *standings.Classifier
	cal        *calendar.Calendar

	mu   sync.RWMutex
	last map[uuid.UUID]models.GroupStandings

	logger zerolog.Logger
}

// NewStandingsService creates a new StandingsService
func NewStandingsService(store repositories.Store, catalog ChallengeCatalog, cal *calendar.Calendar, logger zerolog.Logger) StandingsService {
	return &standingsServiceImpl{
		store:      store,
		catalog:    catalog,
		classifier: standings.NewClassifier(cal),
		cal:        cal,
		last:       make(map[uuid.UUID]models.GroupStandings),
		logger:     logger,
	}
}

func (s *standingsServiceImpl) Refresh(ctx context.Context, groupID uuid.UUID) (*models.GroupStandings, error) {
	snap, err := s.fetch(ctx, groupID)
	if err != nil {
		s.logger.Error().Err(err).Str("groupID", groupID.String()).Msg("Failed to refresh standings")
		last, _ := s.Last(groupID)
		return last, err
	}

	result := s.classifier.Build(*snap, s.cal.Today())

	s.mu.Lock()
	s.last[groupID] = result
	s.mu.Unlock()

	s.logger.Debug().
		Str("groupID", groupID.String()).
		Str("date", result.Date).
		Int("members", len(result.Members)).
		Msg("Standings refreshed")
	return &result, nil
}

func (s *standingsServiceImpl) Last(groupID uuid.UUID) (*models.GroupStandings, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result, ok := s.last[groupID]
	if !ok {
		return nil, false
	}
	return &result, true
}

func (s *standingsServiceImpl) fetch(ctx context.Context, groupID uuid.UUID) (*standings.Snapshot, error) {
	if _, err := s.store.GetGroup(ctx, groupID); err != nil {
		return nil, storeFailure(err, "failed to load group")
	}

	challenges, err := s.catalog.Get(ctx, groupID)
	if err != nil {
		return nil, err
	}

	members, err := s.store.ListMembers(ctx, groupID)
	if err != nil {
		return nil, storeFailure(err, "failed to load members")
	}

	userIDs := make([]uuid.UUID, 0, len(members))
	for _, m := range members {
		userIDs = append(userIDs, m.UserID)
	}
	profiles, err := s.store.ListProfiles(ctx, userIDs)
	if err != nil {
		return nil, storeFailure(err, "failed to load profiles")
	}

	logs, err := s.store.ListGroupLogs(ctx, groupID)
	if err != nil {
		return nil, storeFailure(err, "failed to load progress")
	}

	return &standings.Snapshot{
		GroupID:    groupID,
		Challenges: challenges,
		Members:    members,
		Profiles:   profiles,
		Logs:       logs,
	}, nil
}
