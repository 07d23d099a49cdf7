// internal/store/memory.go
//
// In-memory implementation of the Store interface.
// Used for ephemeral game sessions, in development/testing, or when durability is
// not required.
//
// Characteristics:
//   - Stores deep copies of *game.State keyed by ID in a map, so callers can never
//     mutate committed state through a pointer they hold.
//   - Concurrency-safe via RWMutex (concurrent reads allowed, writes exclusive).
//   - State is lost when the process restarts.

package store

import (
	"context"
	"sync"

	"github.com/robalobadob/wordcards/internal/game"
)

// memory is an in-memory map-based Store implementation.
type memory struct {
	mu    sync.RWMutex           // guards games map
	games map[string]*game.State // keyed by State.ID
}

// NewMemoryStore constructs a new in-memory Store.
func NewMemoryStore() Store {
	return &memory{games: make(map[string]*game.State)}
}

// Load returns a copy of the stored state.
func (m *memory) Load(_ context.Context, id string) (*game.State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if st, ok := m.games[id]; ok {
		return st.Clone(), nil
	}
	return nil, ErrNotFound
}

// Save stores a copy of st if the version check passes.
func (m *memory) Save(_ context.Context, st *game.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.games[st.ID]
	switch {
	case st.Version <= 1 && ok:
		return ErrConflict
	case st.Version > 1 && !ok:
		return ErrNotFound
	case st.Version > 1 && cur.Version != st.Version-1:
		return ErrConflict
	}
	m.games[st.ID] = st.Clone()
	return nil
}

// Delete drops the game from the map.
func (m *memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.games, id)
	return nil
}
