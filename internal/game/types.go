// internal/game/types.go
//
// Core type definitions for the higher/lower game engine.
// Defines:
//   - Term: a single comparable item (text + popularity score).
//   - State: the full state of one in-progress or finished game.
//   - The typed errors callers must distinguish.

package game

import (
	"errors"
	"time"
)

// Score plausibility bounds. Anything outside this window is treated as
// corrupted client state and rejected before any mutation.
const (
	MinScore = 0
	MaxScore = 10000
)

// Typed errors surfaced to callers. Transient backend failures are absorbed
// below this layer and never appear here.
var (
	// ErrGameFinished is returned for any guess against a finished game.
	ErrGameFinished = errors.New("game already finished")

	// ErrInsufficientTerms is returned when a game cannot be started with
	// at least two distinct terms, even from fallback data.
	ErrInsufficientTerms = errors.New("insufficient terms to start game")
)

// Term is a single comparable item shown to the player. Immutable once drawn
// into a round.
type Term struct {
	ID       string `json:"id"`
	Text     string `json:"text"`
	Category string `json:"category"`
	Score    int    `json:"score"`
}

// State holds the state of a single game session.
//
// Invariants maintained by the engine:
//   - Round increases by exactly 1 per correct guess and never decreases.
//   - KnownTerm.ID != HiddenTerm.ID while the game is active.
//   - A term id used as known or hidden is never reused within the game.
//   - Finished is terminal: no transition out of it.
type State struct {
	ID          string          `json:"id"`
	PlayerID    string          `json:"playerId"`
	Category    string          `json:"category"`
	Round       int             `json:"round"`
	KnownTerm   *Term           `json:"knownTerm"`
	HiddenTerm  *Term           `json:"hiddenTerm"`
	Started     bool            `json:"started"`
	Finished    bool            `json:"finished"`
	UsedTermIDs map[string]bool `json:"usedTermIds"`
	// PendingTerms are pre-fetched terms not yet shown, consumed FIFO.
	PendingTerms []Term `json:"pendingTerms"`
	// CustomSeed is set only for user-supplied custom-category games.
	CustomSeed string    `json:"customSeed,omitempty"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Score reports the number of correct guesses made so far. This is the value
// recorded as the final score when the game ends.
func (s *State) Score() int {
	if s.Round < 1 {
		return 0
	}
	return s.Round - 1
}

// Clone returns a deep copy of the state. Stores hand out copies so callers
// cannot mutate cached state behind the engine's back.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	cp := *s
	if s.KnownTerm != nil {
		k := *s.KnownTerm
		cp.KnownTerm = &k
	}
	if s.HiddenTerm != nil {
		h := *s.HiddenTerm
		cp.HiddenTerm = &h
	}
	if s.UsedTermIDs != nil {
		cp.UsedTermIDs = make(map[string]bool, len(s.UsedTermIDs))
		for id := range s.UsedTermIDs {
			cp.UsedTermIDs[id] = true
		}
	}
	if s.PendingTerms != nil {
		cp.PendingTerms = append([]Term(nil), s.PendingTerms...)
	}
	return &cp
}
