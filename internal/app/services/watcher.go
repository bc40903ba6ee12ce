package services

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mrniikke/fitness-challange/internal/app/models"
	"github.com/mrniikke/fitness-challange/internal/app/repositories"
	"github.com/mrniikke/fitness-challange/internal/pkg/auth"
	"github.com/mrniikke/fitness-challange/internal/pkg/realtime"
)

// Subscriber registers change-feed handlers
type Subscriber interface {
	Subscribe(filter realtime.Filter, handler realtime.Handler) *realtime.Subscription
}

// watchedTables are the tables whose changes can become notifications
var watchedTables = []string{
	models.TableGroupMembers,
	models.TableProgressLogs,
	models.TableScheduledNotifications,
}

// Watcher feeds the notifications of watched groups into an inbox
type Watcher struct {
	mu       sync.Mutex
	feed     Subscriber
	notifier *Notifier
	inbox    *Inbox
	store    repositories.NotificationStore
	identity auth.Identity
	limit    int
	subs     map[uuid.UUID]*realtime.Subscription
	logger   zerolog.Logger
}

// NewWatcher creates a new Watcher. limit bounds the unread notifications
// loaded when a group is first watched.
func NewWatcher(
	feed Subscriber,
	notifier *Notifier,
	inbox *Inbox,
	store repositories.NotificationStore,
	identity auth.Identity,
	limit int,
	logger zerolog.Logger,
) *Watcher {
	if limit <= 0 {
		limit = DefaultInboxSize
	}
	return &Watcher{
		feed:     feed,
		notifier: notifier,
		inbox:    inbox,
		store:    store,
		identity: identity,
		limit:    limit,
		subs:     make(map[uuid.UUID]*realtime.Subscription),
		logger:   logger,
	}
}

// Watch loads the acting user's unread notifications of a group and then
// subscribes to the group's change feed. Watching a group twice is a no-op.
func (w *Watcher) Watch(ctx context.Context, groupID uuid.UUID) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.subs[groupID]; ok {
		return nil
	}

	unread, err := w.store.ListUnread(ctx, w.identity.CurrentUser().ID, groupID, w.limit)
	if err != nil {
		return storeFailure(err, "failed to load notifications")
	}
	// Oldest first so the newest ends up on top.
	for i := len(unread) - 1; i >= 0; i-- {
		w.inbox.Push(unread[i].AsNotification())
	}

	w.subs[groupID] = w.feed.Subscribe(realtime.Filter{GroupID: groupID, Tables: watchedTables}, w.handle)

	w.logger.Info().
		Str("groupID", groupID.String()).
		Int("unread", len(unread)).
		Msg("Watching group")
	return nil
}

// Stop unsubscribes from a group's change feed
func (w *Watcher) Stop(groupID uuid.UUID) {
	w.mu.Lock()
	sub, ok := w.subs[groupID]
	delete(w.subs, groupID)
	w.mu.Unlock()

	if ok {
		sub.Unsubscribe()
		w.logger.Info().Str("groupID", groupID.String()).Msg("Stopped watching group")
	}
}

// StopAll unsubscribes from every watched group
func (w *Watcher) StopAll() {
	w.mu.Lock()
	subs := w.subs
	w.subs = make(map[uuid.UUID]*realtime.Subscription)
	w.mu.Unlock()

	for _, sub := range subs {
		sub.Unsubscribe()
	}
}

// Watching reports whether groupID is watched
func (w *Watcher) Watching(groupID uuid.UUID) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.subs[groupID]
	return ok
}

func (w *Watcher) handle(ctx context.Context, ev models.ChangeEvent) {
	if n := w.notifier.Classify(ctx, ev); n != nil {
		w.inbox.Push(*n)
	}
}
