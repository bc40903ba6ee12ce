// Package realtime delivers group-scoped row changes to in-process
// subscribers. Events of one group are dispatched in arrival order by a
// dedicated worker; different groups are independent of each other.
package realtime

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mrniikke/fitness-challange/internal/app/models"
)

// DefaultQueueSize is the per-group buffer used when none is configured
const DefaultQueueSize = 64

// Publisher accepts row changes for delivery
type Publisher interface {
	Publish(ctx context.Context, ev models.ChangeEvent) error
}

// Handler receives the events of a subscription
type Handler func(ctx context.Context, ev models.ChangeEvent)

// Filter selects the events of one group, optionally restricted to tables
type Filter struct {
	GroupID uuid.UUID
	Tables  []string
}

func (f Filter) matches(ev models.ChangeEvent) bool {
	if len(f.Tables) == 0 {
		return true
	}
	for _, t := range f.Tables {
		if t == ev.Table {
			return true
		}
	}
	return false
}

// Subscription is the handle returned by Subscribe
type Subscription struct {
	id      uint64
	filter  Filter
	handler Handler
	hub     *Hub
	active  atomic.Bool
}

// Unsubscribe stops delivery to the subscription. It is safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.hub.Unsubscribe(s)
}

// groupQueue holds the pending events and subscribers of one group
type groupQueue struct {
	events chan models.ChangeEvent
	done   chan struct{}
	subs   map[uint64]*Subscription
}

// Hub maintains the set of subscriptions and dispatches events per group
type Hub struct {
	// Queues organized by group ID
	groups map[uuid.UUID]*groupQueue

	// Mutex for groups and the subscriber sets they hold
	mu sync.RWMutex

	nextID    uint64
	queueSize int
	closed    bool
	workers   sync.WaitGroup

	// Base context handed to handlers; cancelled by Close
	ctx    context.Context
	cancel context.CancelFunc

	logger zerolog.Logger
}

// NewHub creates a new Hub instance
func NewHub(queueSize int, logger zerolog.Logger) *Hub {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		groups:    make(map[uuid.UUID]*groupQueue),
		queueSize: queueSize,
		ctx:       ctx,
		cancel:    cancel,
		logger:    logger,
	}
}

// Subscribe registers handler for the events matching filter. The first
// subscriber of a group starts the group's worker.
func (h *Hub) Subscribe(filter Filter, handler Handler) *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	sub := &Subscription{id: h.nextID, filter: filter, handler: handler, hub: h}

	if h.closed {
		return sub
	}
	sub.active.Store(true)

	q, ok := h.groups[filter.GroupID]
	if !ok {
		q = &groupQueue{
			events: make(chan models.ChangeEvent, h.queueSize),
			done:   make(chan struct{}),
			subs:   make(map[uint64]*Subscription),
		}
		h.groups[filter.GroupID] = q
		h.workers.Add(1)
		go h.run(filter.GroupID, q)
	}
	q.subs[sub.id] = sub

	h.logger.Debug().
		Str("groupID", filter.GroupID.String()).
		Strs("tables", filter.Tables).
		Int("subscribers", len(q.subs)).
		Msg("Subscriber registered")
	return sub
}

// Unsubscribe removes a subscription. The last one of a group stops the
// group's worker and drops its pending events.
func (h *Hub) Unsubscribe(sub *Subscription) {
	if sub == nil || !sub.active.Swap(false) {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	groupID := sub.filter.GroupID
	q, ok := h.groups[groupID]
	if !ok {
		return
	}
	delete(q.subs, sub.id)
	if len(q.subs) == 0 {
		close(q.done)
		delete(h.groups, groupID)
	}

	h.logger.Debug().
		Str("groupID", groupID.String()).
		Int("subscribers", len(q.subs)).
		Msg("Subscriber unregistered")
}

// Publish queues ev for the subscribers of its group. Events of groups
// without subscribers are dropped. Publish blocks while the group's queue is
// full, until ctx is done.
func (h *Hub) Publish(ctx context.Context, ev models.ChangeEvent) error {
	h.mu.RLock()
	q, ok := h.groups[ev.GroupID]
	h.mu.RUnlock()

	if !ok {
		h.logger.Debug().
			Str("groupID", ev.GroupID.String()).
			Str("table", ev.Table).
			Msg("No subscribers in group for event")
		return nil
	}

	select {
	case q.events <- ev:
		return nil
	case <-q.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SubscriberCount returns the number of subscriptions of a group
func (h *Hub) SubscriberCount(groupID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if q, ok := h.groups[groupID]; ok {
		return len(q.subs)
	}
	return 0
}

// Close stops every worker and waits for in-flight handlers to return
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	for groupID, q := range h.groups {
		for _, sub := range q.subs {
			sub.active.Store(false)
		}
		close(q.done)
		delete(h.groups, groupID)
	}
	h.mu.Unlock()

	h.cancel()
	h.workers.Wait()
}

// run dispatches the events of one group in arrival order
func (h *Hub) run(groupID uuid.UUID, q *groupQueue) {
	defer h.workers.Done()

	for {
		select {
		case <-q.done:
			return
		case ev := <-q.events:
			h.dispatch(groupID, q, ev)
		}
	}
}

func (h *Hub) dispatch(groupID uuid.UUID, q *groupQueue, ev models.ChangeEvent) {
	h.mu.RLock()
	subs := make([]*Subscription, 0, len(q.subs))
	for _, sub := range q.subs {
		subs = append(subs, sub)
	}
	h.mu.RUnlock()

	for _, sub := range subs {
		if !sub.active.Load() || !sub.filter.matches(ev) {
			continue
		}
		h.deliver(groupID, sub, ev)
	}
}

func (h *Hub) deliver(groupID uuid.UUID, sub *Subscription, ev models.ChangeEvent) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error().
				Interface("panic", r).
				Str("groupID", groupID.String()).
				Str("table", ev.Table).
				Msg("Recovered from panic in change handler")
		}
	}()
	sub.handler(h.ctx, ev)
}
