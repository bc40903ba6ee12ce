// Package cache stores the challenge list of a group for the duration of a
// session. Entries are replaced whole, never patched.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mrniikke/fitness-challange/internal/app/models"
)

// ChallengeCache caches the challenges of a group
type ChallengeCache interface {
	// Get reports false on a miss
	Get(ctx context.Context, groupID uuid.UUID) ([]models.Challenge, bool, error)
	Set(ctx context.Context, groupID uuid.UUID, challenges []models.Challenge) error
	Invalidate(ctx context.Context, groupID uuid.UUID) error
}

type memoryEntry struct {
	challenges []models.Challenge
	expires    time.Time
}

// Memory is a process-local ChallengeCache
type Memory struct {
	mu      sync.RWMutex
	ttl     time.Duration
	now     func() time.Time
	entries map[uuid.UUID]memoryEntry
}

// NewMemory creates a Memory cache; ttl <= 0 keeps entries until invalidated
func NewMemory(ttl time.Duration) *Memory {
	return &Memory{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[uuid.UUID]memoryEntry),
	}
}

// Get returns a copy of the cached challenges
func (m *Memory) Get(_ context.Context, groupID uuid.UUID) ([]models.Challenge, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.entries[groupID]
	if !ok || (!e.expires.IsZero() && m.now().After(e.expires)) {
		return nil, false, nil
	}
	return append([]models.Challenge{}, e.challenges...), true, nil
}

// Set replaces the cached challenges of a group
func (m *Memory) Set(_ context.Context, groupID uuid.UUID, challenges []models.Challenge) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := memoryEntry{challenges: append([]models.Challenge{}, challenges...)}
	if m.ttl > 0 {
		e.expires = m.now().Add(m.ttl)
	}
	m.entries[groupID] = e
	return nil
}

// Invalidate drops the cached challenges of a group
func (m *Memory) Invalidate(_ context.Context, groupID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.entries, groupID)
	return nil
}
