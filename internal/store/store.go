// Package store persists game states keyed by game id.
//
// Implementations may be backed by memory (memory.go), SQLite (sqlite.go), etc.
// Every Save is a compare-and-swap on the version, so a writer holding a stale
// copy can never overwrite a newer state.
package store

//go:generate mockgen -source=store.go -destination=mock_store.go -package=store

import (
	"context"
	"errors"

	"github.com/robalobadob/wordcards/internal/game"
)

var (
	// ErrNotFound is returned when no game exists for the id.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned by Save when the stored version is not st.Version-1.
	ErrConflict = errors.New("version conflict")
)

// Store defines the persistence interface for game states.
// Any error other than ErrNotFound or ErrConflict is a storage failure.
type Store interface {
	// Load returns the latest committed state for id.
	Load(ctx context.Context, id string) (*game.State, error)

	// Save commits st. Version 1 creates the record; any later version replaces the
	// record whose version is st.Version-1.
	Save(ctx context.Context, st *game.State) error

	// Delete removes the record for id. Deleting a missing id is not an error.
	Delete(ctx context.Context, id string) error
}
