package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mrniikke/fitness-challange/internal/app/models"
	"github.com/mrniikke/fitness-challange/internal/pkg/auth"
)

// Notification texts
const (
	titleMemberJoined   = "New member joined!"
	titleFirstFinisher  = "🎉 First to finish!"
	titleGoalCompleted  = "✅ Goal completed!"
	titleProgressLogged = "Progress logged"
)

// Notifier turns row changes of a group into notifications for the acting
// user. Changes caused by the acting user produce nothing.
type Notifier struct {
	identity  auth.Identity
	directory Directory
	now       func() time.Time
	logger    zerolog.Logger
}

// NewNotifier creates a new Notifier
func NewNotifier(identity auth.Identity, directory Directory, logger zerolog.Logger) *Notifier {
	return &Notifier{
		identity:  identity,
		directory: directory,
		now:       time.Now,
		logger:    logger,
	}
}

// Classify returns the notification for ev, or nil when ev is not
// notification-worthy.
func (n *Notifier) Classify(ctx context.Context, ev models.ChangeEvent) *models.Notification {
	switch ev.Table {
	case models.TableGroupMembers:
		return n.classifyMember(ctx, ev)
	case models.TableProgressLogs:
		return n.classifyProgress(ctx, ev)
	case models.TableScheduledNotifications:
		return n.classifyScheduled(ctx, ev)
	default:
		return nil
	}
}

func (n *Notifier) classifyMember(ctx context.Context, ev models.ChangeEvent) *models.Notification {
	if ev.Type != models.ChangeInsert {
		return nil
	}

	var member models.Member
	if ok, err := ev.DecodeNew(&member); !ok || err != nil {
		n.logUndecodable(ev, err)
		return nil
	}
	if n.isSelf(member.UserID) {
		return nil
	}

	userName := n.userName(ctx, member.UserID)
	groupName := n.groupName(ctx, ev.GroupID)
	notification := n.base(ev, models.NotificationMemberJoined, groupName, member.UserID, userName)
	notification.Title = titleMemberJoined
	notification.Message = fmt.Sprintf("%s joined %s", userName, groupName)
	return notification
}

func (n *Notifier) classifyProgress(ctx context.Context, ev models.ChangeEvent) *models.Notification {
	if ev.Type != models.ChangeInsert && ev.Type != models.ChangeUpdate {
		return nil
	}

	var after models.ProgressLog
	if ok, err := ev.DecodeNew(&after); !ok || err != nil {
		n.logUndecodable(ev, err)
		return nil
	}
	var before models.ProgressLog
	hasBefore, err := ev.DecodeOld(&before)
	if err != nil {
		n.logUndecodable(ev, err)
		return nil
	}
	if n.isSelf(after.UserID) || (hasBefore && n.isSelf(before.UserID)) {
		return nil
	}

	completedNow := after.CompletedAt != nil && !(hasBefore && before.CompletedAt != nil)
	firstNow := after.IsFirstFinisher && !(hasBefore && before.IsFirstFinisher)

	previous := 0
	if hasBefore {
		previous = before.Amount
	}
	progressed := ev.Type == models.ChangeInsert || after.Amount > previous

	// The first-finisher flag only matters on the change that completes the
	// log; a flag flipped on its own is not news.
	if !completedNow && !progressed {
		return nil
	}

	userName := n.userName(ctx, after.UserID)
	groupName := n.groupName(ctx, ev.GroupID)

	switch {
	case completedNow && firstNow:
		notification := n.base(ev, models.NotificationGoalCompleted, groupName, after.UserID, userName)
		notification.Title = titleFirstFinisher
		notification.Message = fmt.Sprintf("%s is the first to complete a challenge today!", userName)
		notification.FirstFinisher = true
		notification.Total = after.Amount
		return notification
	case completedNow:
		notification := n.base(ev, models.NotificationGoalCompleted, groupName, after.UserID, userName)
		notification.Title = titleGoalCompleted
		notification.Message = fmt.Sprintf("%s completed a challenge!", userName)
		notification.Total = after.Amount
		return notification
	default:
		delta := after.Amount - previous
		notification := n.base(ev, models.NotificationProgressLogged, groupName, after.UserID, userName)
		notification.Title = titleProgressLogged
		notification.Message = fmt.Sprintf("%s logged %d progress (total: %d)", userName, delta, after.Amount)
		notification.Delta = delta
		notification.Total = after.Amount
		return notification
	}
}

// classifyScheduled surfaces durable notifications addressed to the acting user
func (n *Notifier) classifyScheduled(ctx context.Context, ev models.ChangeEvent) *models.Notification {
	if ev.Type != models.ChangeInsert {
		return nil
	}

	var scheduled models.ScheduledNotification
	if ok, err := ev.DecodeNew(&scheduled); !ok || err != nil {
		n.logUndecodable(ev, err)
		return nil
	}
	if !n.isSelf(scheduled.UserID) || scheduled.Read {
		return nil
	}

	notification := scheduled.AsNotification()
	notification.GroupName = n.groupName(ctx, scheduled.GroupID)
	return &notification
}

func (n *Notifier) base(ev models.ChangeEvent, typ models.NotificationType, groupName string, userID uuid.UUID, userName string) *models.Notification {
	ts := ev.CommitTime
	if ts.IsZero() {
		ts = n.now()
	}
	return &models.Notification{
		ID:        uuid.NewString(),
		Type:      typ,
		Timestamp: ts,
		GroupID:   ev.GroupID,
		GroupName: groupName,
		UserID:    &userID,
		UserName:  userName,
	}
}

func (n *Notifier) isSelf(userID uuid.UUID) bool {
	return userID == n.identity.CurrentUser().ID
}

func (n *Notifier) userName(ctx context.Context, userID uuid.UUID) string {
	name, err := n.directory.UserName(ctx, userID)
	if err != nil || name == "" {
		n.logger.Warn().Err(err).Str("userID", userID.String()).Msg("Could not resolve user name")
		return models.UnknownUserName
	}
	return name
}

func (n *Notifier) groupName(ctx context.Context, groupID uuid.UUID) string {
	name, err := n.directory.GroupName(ctx, groupID)
	if err != nil || name == "" {
		n.logger.Warn().Err(err).Str("groupID", groupID.String()).Msg("Could not resolve group name")
		return models.UnknownGroupName
	}
	return name
}

func (n *Notifier) logUndecodable(ev models.ChangeEvent, err error) {
	n.logger.Warn().Err(err).
		Str("table", ev.Table).
		Str("type", string(ev.Type)).
		Str("groupID", ev.GroupID.String()).
		Msg("Skipping change event without a usable row image")
}
