package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/mrniikke/fitness-challange/internal/app/models"
	"github.com/mrniikke/fitness-challange/internal/app/repositories"
)

// ListUserDay returns the user's logs of one group and date
func (s *Store) ListUserDay(ctx context.Context, userID, groupID uuid.UUID, date string) ([]models.ProgressLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fault(OpListUserDay); err != nil {
		return nil, err
	}
	return s.userDay(userID, groupID, date), nil
}

// userDay collects logs in insertion order. Callers hold s.mu.
func (s *Store) userDay(userID, groupID uuid.UUID, date string) []models.ProgressLog {
	logs := []models.ProgressLog{}
	for _, key := range s.logOrder {
		if key.UserID == userID && key.GroupID == groupID && key.LogDate == date {
			logs = append(logs, *s.logs[key])
		}
	}
	return logs
}

// ListGroupLogs returns every log of a group, oldest day first
func (s *Store) ListGroupLogs(ctx context.Context, groupID uuid.UUID) ([]models.ProgressLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fault(OpListGroupLogs); err != nil {
		return nil, err
	}
	logs := []models.ProgressLog{}
	for _, key := range s.logOrder {
		if key.GroupID == groupID {
			logs = append(logs, *s.logs[key])
		}
	}
	sort.SliceStable(logs, func(i, j int) bool { return logs[i].LogDate < logs[j].LogDate })
	return logs, nil
}

// RunInTx runs fn while holding the store lock. Writes made through the
// transaction are undone when fn fails and their change events are only
// published after a successful commit. fn must use tx, not the Store.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, tx repositories.ProgressTx) error) error {
	s.mu.Lock()
	tx := &memTx{s: s}
	err := fn(ctx, tx)
	if err != nil {
		for i := len(tx.undo) - 1; i >= 0; i-- {
			tx.undo[i]()
		}
		s.mu.Unlock()
		return err
	}
	events := tx.events
	s.mu.Unlock()

	s.publish(ctx, events)
	return nil
}

// memTx records how to revert each write
type memTx struct {
	s      *Store
	undo   []func()
	events []models.ChangeEvent
	// rows maps a progress log ID to its pending event
	rows map[uuid.UUID]int
}

// record queues the change of one progress log. A row written twice in the
// same transaction yields one event: the first change's type and old image
// with the final new image, as the deferred row trigger publishes it.
func (t *memTx) record(logID uuid.UUID, ev models.ChangeEvent) {
	if t.rows == nil {
		t.rows = make(map[uuid.UUID]int)
	}
	if i, ok := t.rows[logID]; ok {
		t.events[i].New = ev.New
		t.events[i].CommitTime = ev.CommitTime
		return
	}
	t.rows[logID] = len(t.events)
	t.events = append(t.events, ev)
}

func (t *memTx) ListUserDay(ctx context.Context, userID, groupID uuid.UUID, date string) ([]models.ProgressLog, error) {
	if err := t.s.fault(OpListUserDay); err != nil {
		return nil, err
	}
	return t.s.userDay(userID, groupID, date), nil
}

func (t *memTx) Increment(ctx context.Context, inc models.Increment) (*models.ProgressLog, error) {
	s := t.s
	if err := s.fault(OpIncrement); err != nil {
		return nil, err
	}

	existing, ok := s.logs[inc.Key]
	if !ok {
		log := &models.ProgressLog{
			ID:          uuid.New(),
			UserID:      inc.Key.UserID,
			GroupID:     inc.Key.GroupID,
			ChallengeID: inc.Key.ChallengeID,
			LogDate:     inc.Key.LogDate,
			Amount:      inc.Delta,
			CreatedAt:   inc.At,
			UpdatedAt:   inc.At,
		}
		if inc.Delta >= inc.Goal {
			at := inc.At
			log.CompletedAt = &at
		}
		s.logs[inc.Key] = log
		s.logOrder = append(s.logOrder, inc.Key)
		t.undo = append(t.undo, func() {
			delete(s.logs, inc.Key)
			s.logOrder = s.logOrder[:len(s.logOrder)-1]
		})
		t.record(log.ID, s.change(models.TableProgressLogs, models.ChangeInsert, inc.Key.GroupID, nil, *log))

		out := *log
		return &out, nil
	}

	before := *existing
	existing.Amount += inc.Delta
	existing.UpdatedAt = inc.At
	if existing.CompletedAt == nil && existing.Amount >= inc.Goal {
		at := inc.At
		existing.CompletedAt = &at
	}
	t.undo = append(t.undo, func() { *existing = before })
	t.record(existing.ID, s.change(models.TableProgressLogs, models.ChangeUpdate, inc.Key.GroupID, before, *existing))

	out := *existing
	return &out, nil
}

func (t *memTx) ClaimFirstFinisher(ctx context.Context, claim models.FirstFinisherClaim) (bool, error) {
	s := t.s
	if err := s.fault(OpClaim); err != nil {
		return false, err
	}

	key := claimKey{groupID: claim.GroupID, date: claim.LogDate}
	if _, taken := s.claims[key]; taken {
		return false, nil
	}

	var log *models.ProgressLog
	for _, l := range s.logs {
		if l.ID == claim.LogID {
			log = l
			break
		}
	}
	if log == nil {
		// Same outcome as the SQL statement: nothing to flag, nothing claimed.
		return false, nil
	}

	s.claims[key] = claim
	before := *log
	log.IsFirstFinisher = true
	log.UpdatedAt = claim.FinishedAt
	t.undo = append(t.undo, func() {
		delete(s.claims, key)
		*log = before
	})
	t.record(log.ID, s.change(models.TableProgressLogs, models.ChangeUpdate, claim.GroupID, before, *log))
	return true, nil
}

// FirstFinisherClaims returns the recorded claims of a group
func (s *Store) FirstFinisherClaims(groupID uuid.UUID) []models.FirstFinisherClaim {
	s.mu.Lock()
	defer s.mu.Unlock()

	var claims []models.FirstFinisherClaim
	for key, c := range s.claims {
		if key.groupID == groupID {
			claims = append(claims, c)
		}
	}
	sort.Slice(claims, func(i, j int) bool { return claims[i].LogDate < claims[j].LogDate })
	return claims
}
