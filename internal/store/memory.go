// internal/store/memory.go
//
// In-memory implementation of GameStore, used as the optimistic local cache
// in front of the authoritative SQL store (and standalone in tests).
//
// Characteristics:
//   - Stores deep copies keyed by game id, so callers cannot mutate cached
//     state in place.
//   - Enforces round monotonicity on Save, same as the SQL tier.
//   - Concurrency-safe via RWMutex (concurrent reads allowed, writes exclusive).
//   - State is lost when the process restarts; that is what the remote tier
//     is for.

package store

import (
	"context"
	"sync"

	"github.com/mfreitag/hilo-server/internal/game"
)

type memory struct {
	mu    sync.RWMutex
	games map[string]*game.State
}

// NewMemoryStore constructs an in-memory GameStore.
func NewMemoryStore() GameStore {
	return &memory{games: make(map[string]*game.State)}
}

func (m *memory) Load(ctx context.Context, id string) (*game.State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.games[id]; ok {
		return s.Clone(), nil
	}
	return nil, ErrNotFound
}

// Save stores a copy of s. Like the SQL tier, a write carrying a lower round
// than the stored one is rejected with ErrStaleWrite; same-round writes pass
// so a finish at the current round can land.
func (m *memory) Save(ctx context.Context, s *game.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.games[s.ID]; ok && s.Round < cur.Round {
		return ErrStaleWrite
	}
	m.games[s.ID] = s.Clone()
	return nil
}

func (m *memory) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.games, id)
	return nil
}
