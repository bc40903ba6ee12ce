package services

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/mrniikke/fitness-challange/internal/app/models"
	"github.com/mrniikke/fitness-challange/internal/app/models/dto"
	"github.com/mrniikke/fitness-challange/internal/app/repositories"
	"github.com/mrniikke/fitness-challange/internal/app/standings"
	"github.com/mrniikke/fitness-challange/internal/pkg/apperrors"
	"github.com/mrniikke/fitness-challange/internal/pkg/calendar"
	"github.com/mrniikke/fitness-challange/internal/pkg/validation"
)

// ProgressService applies progress submissions
type ProgressService interface {
	// LogProgress adds req.Delta to today's log of the challenge and derives
	// the completion and first-finisher flags in the same transaction.
	LogProgress(ctx context.Context, req *dto.LogProgressRequest) (*models.UpdatedLog, error)
}

type progressServiceImpl struct {
	progress repositories.ProgressStore
	members  repositories.MemberStore
	catalog  ChallengeCatalog
	cal      *calendar.Calendar
	logger   zerolog.Logger
}

// NewProgressService creates a new ProgressService
func NewProgressService(
	progress repositories.ProgressStore,
	members repositories.MemberStore,
	catalog ChallengeCatalog,
	cal *calendar.Calendar,
	logger zerolog.Logger,
) ProgressService {
	return &progressServiceImpl{
		progress: progress,
		members:  members,
		catalog:  catalog,
		cal:      cal,
		logger:   logger,
	}
}

func (s *progressServiceImpl) LogProgress(ctx context.Context, req *dto.LogProgressRequest) (*models.UpdatedLog, error) {
	if req == nil {
		return nil, apperrors.NewValidationError(nil, "missing progress submission")
	}
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	challenges, err := s.catalog.Get(ctx, req.GroupID)
	if err != nil {
		return nil, err
	}
	if len(challenges) == 0 {
		return nil, apperrors.NewResourceNotFoundError("group has no known challenges")
	}

	var challenge *models.Challenge
	for i := range challenges {
		if challenges[i].ID == req.ChallengeID {
			challenge = &challenges[i]
			break
		}
	}
	if challenge == nil {
		return nil, apperrors.NewValidationError(apperrors.ErrUnknownChallenge, "challenge does not belong to group").
			WithDetails(map[string]interface{}{"challenge_id": req.ChallengeID.String()})
	}

	if _, err := s.members.GetMember(ctx, req.GroupID, req.UserID); err != nil {
		if errors.Is(err, apperrors.ErrResourceNotFound) {
			return nil, apperrors.NewResourceNotFoundError("not a member of this group")
		}
		return nil, storeFailure(err, "failed to check membership")
	}

	at := s.cal.Now().UTC()
	today := s.cal.Today()
	result := &models.UpdatedLog{Delta: req.Delta}

	err = s.progress.RunInTx(ctx, func(ctx context.Context, tx repositories.ProgressTx) error {
		log, err := tx.Increment(ctx, models.Increment{
			Key: models.LogKey{
				UserID:      req.UserID,
				GroupID:     req.GroupID,
				ChallengeID: req.ChallengeID,
				LogDate:     today,
			},
			Delta: req.Delta,
			Goal:  challenge.GoalAmount,
			At:    at,
		})
		if err != nil {
			return err
		}

		result.Previous = log.Amount - req.Delta
		result.CompletedChallenge = standings.IsCompletingSubmission(result.Previous, log.Amount, challenge.GoalAmount)

		if result.CompletedChallenge {
			dayLogs, err := tx.ListUserDay(ctx, req.UserID, req.GroupID, today)
			if err != nil {
				return err
			}
			result.CompletedDay = standings.DayCompleted(challenges, dayLogs, req.UserID, today)
		}

		if result.CompletedDay {
			won, err := tx.ClaimFirstFinisher(ctx, models.FirstFinisherClaim{
				GroupID:    req.GroupID,
				LogDate:    today,
				UserID:     req.UserID,
				LogID:      log.ID,
				FinishedAt: at,
			})
			if err != nil {
				return err
			}
			if won {
				log.IsFirstFinisher = true
				result.FirstFinisher = true
			}
		}

		result.Log = *log
		return nil
	})
	if err != nil {
		s.logger.Error().Err(err).
			Str("userID", req.UserID.String()).
			Str("groupID", req.GroupID.String()).
			Str("challengeID", req.ChallengeID.String()).
			Msg("Failed to log progress")
		return nil, storeFailure(err, "failed to save progress")
	}

	s.logger.Info().
		Str("userID", req.UserID.String()).
		Str("groupID", req.GroupID.String()).
		Str("date", today).
		Int("delta", req.Delta).
		Int("amount", result.Log.Amount).
		Bool("completedChallenge", result.CompletedChallenge).
		Bool("completedDay", result.CompletedDay).
		Bool("firstFinisher", result.FirstFinisher).
		Msg("Progress logged")

	return result, nil
}
