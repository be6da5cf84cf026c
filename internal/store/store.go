// internal/store/store.go
//
// Persistence interfaces for game sessions. Two tiers exist at runtime:
// a memory store acting as the optimistic local cache and a SQL store as
// the authoritative copy. The session manager reconciles between them.

package store

import (
	"context"
	"errors"

	"github.com/mfreitag/hilo-server/internal/game"
)

var (
	// ErrNotFound is returned by Load for unknown game ids.
	ErrNotFound = errors.New("game not found")

	// ErrStaleWrite is returned by Save when the incoming state's round is
	// lower than the stored round for the same game id. Stale writes are
	// rejected, never merged.
	ErrStaleWrite = errors.New("stale game state write rejected")
)

// GameStore persists game sessions.
type GameStore interface {
	// Load retrieves a game by id, or ErrNotFound.
	Load(ctx context.Context, id string) (*game.State, error)

	// Save persists a game state. Implementations enforcing round
	// monotonicity return ErrStaleWrite for out-of-order writes.
	Save(ctx context.Context, s *game.State) error

	// Delete removes a game. Deleting a missing game is not an error.
	Delete(ctx context.Context, id string) error
}
