package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mrniikke/fitness-challange/internal/app/models"
	"github.com/mrniikke/fitness-challange/internal/app/repositories"
	"github.com/mrniikke/fitness-challange/internal/app/standings"
	"github.com/mrniikke/fitness-challange/internal/pkg/broker"
	"github.com/mrniikke/fitness-challange/internal/pkg/calendar"
)

const reminderTitle = "💪 Challenge Reminder"

// ReminderWindow is the local wall-clock range in which reminders go out,
// given as clock readings (20h30m is 20:30). End is exclusive.
type ReminderWindow struct {
	Start time.Duration
	End   time.Duration
}

// contains reads the wall clock of local, so days with a DST switch keep
// the same local hours.
func (w ReminderWindow) contains(local time.Time) bool {
	clock := time.Duration(local.Hour())*time.Hour +
		time.Duration(local.Minute())*time.Minute +
		time.Duration(local.Second())*time.Second
	return clock >= w.Start && clock < w.End
}

// ReminderService reminds members with an unfinished day, once per local day
type ReminderService struct {
	store     repositories.Store
	catalog   ChallengeCatalog
	publisher broker.Publisher
	cal       *calendar.Calendar
	window    ReminderWindow
	logger    zerolog.Logger
}

// NewReminderService creates a new ReminderService
func NewReminderService(
	store repositories.Store,
	catalog ChallengeCatalog,
	publisher broker.Publisher,
	cal *calendar.Calendar,
	window ReminderWindow,
	logger zerolog.Logger,
) *ReminderService {
	if publisher == nil {
		publisher = broker.Nop{}
	}
	return &ReminderService{
		store:     store,
		catalog:   catalog,
		publisher: publisher,
		cal:       cal,
		window:    window,
		logger:    logger,
	}
}

// Run sends reminders every interval until ctx is done
func (s *ReminderService) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := s.RunOnce(ctx); err != nil {
			s.logger.Error().Err(err).Msg("Reminder pass finished with errors")
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// RunOnce checks every profile whose local time lies in the reminder window
// and returns the number of reminders created. Failures of one user do not
// stop the pass; they are joined into the returned error.
func (s *ReminderService) RunOnce(ctx context.Context) (int, error) {
	profiles, err := s.store.ListAllProfiles(ctx)
	if err != nil {
		return 0, storeFailure(err, "failed to load profiles")
	}

	sent := 0
	var errs []error
	for _, p := range profiles {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		n, err := s.remindUser(ctx, p)
		sent += n
		if err != nil {
			s.logger.Error().Err(err).Str("userID", p.UserID.String()).Msg("Failed to remind user")
			errs = append(errs, err)
		}
	}

	s.logger.Info().Int("profiles", len(profiles)).Int("sent", sent).Msg("Reminder check complete")
	return sent, errors.Join(errs...)
}

func (s *ReminderService) remindUser(ctx context.Context, p models.Profile) (int, error) {
	userCal := s.cal.In(s.location(p))
	today := userCal.Today()
	dayStart, err := userCal.DayStart(today)
	if err != nil {
		return 0, err
	}
	if !s.window.contains(userCal.Now()) {
		return 0, nil
	}

	groupIDs, err := s.store.ListGroupIDsForUser(ctx, p.UserID)
	if err != nil {
		return 0, storeFailure(err, "failed to load memberships")
	}

	sent := 0
	var errs []error
	for _, groupID := range groupIDs {
		ok, err := s.remindInGroup(ctx, p.UserID, groupID, today, dayStart)
		if err != nil {
			s.logger.Warn().Err(err).Str("userID", p.UserID.String()).Str("groupID", groupID.String()).Msg("Failed to remind member of group")
			errs = append(errs, err)
			continue
		}
		if ok {
			sent++
		}
	}
	return sent, errors.Join(errs...)
}

func (s *ReminderService) remindInGroup(ctx context.Context, userID, groupID uuid.UUID, today string, dayStart time.Time) (bool, error) {
	challenges, err := s.catalog.Get(ctx, groupID)
	if err != nil {
		return false, err
	}
	if len(challenges) == 0 {
		return false, nil
	}

	logs, err := s.store.ListUserDay(ctx, userID, groupID, today)
	if err != nil {
		return false, storeFailure(err, "failed to load progress")
	}
	if standings.DayCompleted(challenges, logs, userID, today) {
		return false, nil
	}

	already, err := s.store.ExistsSince(ctx, userID, groupID, models.NotificationChallengeReminder, dayStart)
	if err != nil {
		return false, storeFailure(err, "failed to check reminders")
	}
	if already {
		return false, nil
	}

	groupName := models.UnknownGroupName
	if g, err := s.store.GetGroup(ctx, groupID); err == nil {
		groupName = g.Name
	} else {
		s.logger.Warn().Err(err).Str("groupID", groupID.String()).Msg("Could not resolve group name")
	}

	reminder := &models.ScheduledNotification{
		ID:        uuid.New(),
		UserID:    userID,
		GroupID:   groupID,
		Title:     reminderTitle,
		Message:   fmt.Sprintf("Get up and be awesome. There is still time to complete your challenges in %s!", groupName),
		Type:      models.NotificationChallengeReminder,
		CreatedAt: s.cal.Now().UTC(),
	}
	if err := s.store.CreateScheduled(ctx, reminder); err != nil {
		return false, storeFailure(err, "failed to save reminder")
	}

	// The durable record is what counts; a lost push is not retried.
	if err := s.publisher.PublishPush(ctx, broker.PushMessage{
		ID:        reminder.ID.String(),
		UserID:    userID,
		GroupID:   groupID,
		Title:     reminder.Title,
		Body:      reminder.Message,
		Type:      string(reminder.Type),
		CreatedAt: reminder.CreatedAt,
	}); err != nil {
		s.logger.Warn().Err(err).Str("userID", userID.String()).Str("groupID", groupID.String()).Msg("Failed to hand reminder to broker")
	}

	s.logger.Debug().Str("userID", userID.String()).Str("groupID", groupID.String()).Msg("Reminder sent")
	return true, nil
}

func (s *ReminderService) location(p models.Profile) *time.Location {
	if p.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		s.logger.Debug().Str("userID", p.UserID.String()).Str("timezone", p.Timezone).Msg("Unknown timezone, using UTC")
		return time.UTC
	}
	return loc
}
