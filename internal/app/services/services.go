// Package services holds the application logic on top of the stores:
//   - ProgressService: applies progress submissions (the log writer)
//   - Notifier, Inbox, Watcher: turn change-feed events into notifications
//   - StandingsService: per-group standings snapshots
//   - GroupService: group creation and membership
//   - ChallengeCatalog: session cache of a group's challenges
//   - ReminderService: daily challenge reminders
package services

import (
	"github.com/rs/zerolog"

	"github.com/mrniikke/fitness-challange/internal/app/repositories"
	"github.com/mrniikke/fitness-challange/internal/pkg/auth"
	"github.com/mrniikke/fitness-challange/internal/pkg/broker"
	"github.com/mrniikke/fitness-challange/internal/pkg/cache"
	"github.com/mrniikke/fitness-challange/internal/pkg/calendar"
)

// Deps are the collaborators shared by the services
type Deps struct {
	Store     repositories.Store
	Cache     cache.ChallengeCache
	Feed      Subscriber
	Publisher broker.Publisher
	Calendar  *calendar.Calendar
	Identity  auth.Identity
	InboxSize int
	Reminders ReminderWindow
	Logger    zerolog.Logger
}

// Services bundles every service of the application
type Services struct {
	Catalog   ChallengeCatalog
	Progress  ProgressService
	Groups    GroupService
	Standings StandingsService
	Notifier  *Notifier
	Inbox     *Inbox
	Watcher   *Watcher
	Reminders *ReminderService
}

// New wires the services together
func New(d Deps) *Services {
	component := func(name string) zerolog.Logger {
		return d.Logger.With().Str("component", name).Logger()
	}

	catalog := NewChallengeCatalog(d.Store, d.Cache, component("catalog"))
	notifier := NewNotifier(d.Identity, NewDirectory(d.Store, d.Store), component("notifier"))
	inbox := NewInbox(d.InboxSize, d.Store, component("inbox"))

	return &Services{
		Catalog:   catalog,
		Progress:  NewProgressService(d.Store, d.Store, catalog, d.Calendar, component("progress")),
		Groups:    NewGroupService(d.Store, d.Store, catalog, d.Calendar, component("groups")),
		Standings: NewStandingsService(d.Store, catalog, d.Calendar, component("standings")),
		Notifier:  notifier,
		Inbox:     inbox,
		Watcher:   NewWatcher(d.Feed, notifier, inbox, d.Store, d.Identity, d.InboxSize, component("watcher")),
		Reminders: NewReminderService(d.Store, catalog, d.Publisher, d.Calendar, d.Reminders, component("reminders")),
	}
}
