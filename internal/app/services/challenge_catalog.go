package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mrniikke/fitness-challange/internal/app/models"
	"github.com/mrniikke/fitness-challange/internal/app/repositories"
	"github.com/mrniikke/fitness-challange/internal/pkg/cache"
)

// ChallengeCatalog serves the read-mostly challenge list of a group
type ChallengeCatalog interface {
	// Get returns the cached list, loading it on a miss
	Get(ctx context.Context, groupID uuid.UUID) ([]models.Challenge, error)
	// Refresh drops the cached list and loads it again
	Refresh(ctx context.Context, groupID uuid.UUID) ([]models.Challenge, error)
}

type challengeCatalogImpl struct {
	store  repositories.ChallengeStore
	cache  cache.ChallengeCache
	logger zerolog.Logger
}

// NewChallengeCatalog creates a new ChallengeCatalog
func NewChallengeCatalog(store repositories.ChallengeStore, c cache.ChallengeCache, logger zerolog.Logger) ChallengeCatalog {
	return &challengeCatalogImpl{
		store:  store,
		cache:  c,
		logger: logger,
	}
}

func (s *challengeCatalogImpl) Get(ctx context.Context, groupID uuid.UUID) ([]models.Challenge, error) {
	challenges, ok, err := s.cache.Get(ctx, groupID)
	if err != nil {
		// A broken cache only costs a round trip to the store.
		s.logger.Warn().Err(err).Str("groupID", groupID.String()).Msg("Challenge cache read failed")
	}
	if ok {
		return challenges, nil
	}
	return s.load(ctx, groupID)
}

func (s *challengeCatalogImpl) Refresh(ctx context.Context, groupID uuid.UUID) ([]models.Challenge, error) {
	if err := s.cache.Invalidate(ctx, groupID); err != nil {
		s.logger.Warn().Err(err).Str("groupID", groupID.String()).Msg("Challenge cache invalidation failed")
	}
	return s.load(ctx, groupID)
}

func (s *challengeCatalogImpl) load(ctx context.Context, groupID uuid.UUID) ([]models.Challenge, error) {
	challenges, err := s.store.ListChallenges(ctx, groupID)
	if err != nil {
		return nil, storeFailure(err, "failed to load challenges")
	}

	// An empty list is indistinguishable from an unknown group; keep asking
	// the store until challenges show up.
	if len(challenges) == 0 {
		return challenges, nil
	}

	if err := s.cache.Set(ctx, groupID, challenges); err != nil {
		s.logger.Warn().Err(err).Str("groupID", groupID.String()).Msg("Challenge cache write failed")
	}
	s.logger.Debug().Str("groupID", groupID.String()).Int("count", len(challenges)).Msg("Challenges loaded")
	return challenges, nil
}
