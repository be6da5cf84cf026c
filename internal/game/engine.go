// internal/game/engine.go
//
// Round state machine for a single higher/lower session.
// Responsibilities:
//   - Build the initial state from a drawn term batch (round 1, two terms up).
//   - Validate and apply guesses: advance on correct, finish on incorrect.
//   - Pull replacement terms from the supply when the pending queue runs dry,
//     degrading to synthetic placeholders so a streak never deadlocks.
//
// Notes:
//   - States move NotStarted → Active → Finished; Finished is terminal.
//   - Concurrency control (one guess in flight per game id) lives in the
//     session manager, not here; this package is single-caller per state.

package game

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TermFeed supplies additional terms mid-game. Implementations never return
// an error: exhaustion shows up as a short (or empty) batch.
type TermFeed interface {
	EnsureAvailable(ctx context.Context, category string, min int) []Term
}

// refillBatch is how many terms to request when the pending queue is empty.
const refillBatch = 10

// Start builds the initial state for a new game.
// terms must contain at least two distinct term ids; the first becomes the
// known term, the second the hidden term, the rest seed the pending queue.
func Start(playerID, category, customSeed string, terms []Term) (*State, error) {
	distinct := dedupe(terms)
	if len(distinct) < 2 {
		return nil, ErrInsufficientTerms
	}
	s := &State{
		ID:           uuid.NewString(),
		PlayerID:     playerID,
		Category:     category,
		Round:        1,
		KnownTerm:    &distinct[0],
		HiddenTerm:   &distinct[1],
		Started:      true,
		CustomSeed:   strings.TrimSpace(customSeed),
		UsedTermIDs:  map[string]bool{distinct[0].ID: true, distinct[1].ID: true},
		PendingTerms: append([]Term(nil), distinct[2:]...),
		UpdatedAt:    time.Now().UTC(),
	}
	return s, nil
}

// ApplyGuess evaluates a guess against the current pair and mutates the state.
// Returns whether the guess was correct.
//
// Correct: hidden becomes known, a fresh hidden term is drawn (pending queue,
// then feed, then synthetic), round increments by exactly one.
// Incorrect: Finished is set; known/hidden are retained for end-of-game
// display and no other field changes.
func (s *State) ApplyGuess(ctx context.Context, feed TermFeed, guessedHigher bool) (bool, error) {
	if s.Finished {
		return false, ErrGameFinished
	}
	correct := Evaluate(s.KnownTerm.Score, s.HiddenTerm.Score, guessedHigher)
	if !correct {
		s.Finished = true
		s.UpdatedAt = time.Now().UTC()
		return false, nil
	}

	next := s.nextHidden(ctx, feed)
	s.KnownTerm = s.HiddenTerm
	s.HiddenTerm = &next
	s.UsedTermIDs[next.ID] = true
	s.Round++
	s.UpdatedAt = time.Now().UTC()
	return true, nil
}

// Finish marks the game over without evaluating a guess (explicit early
// termination). Idempotent.
func (s *State) Finish() {
	if s.Finished {
		return
	}
	s.Finished = true
	s.UpdatedAt = time.Now().UTC()
}

// nextHidden draws the next hidden term: pending queue first, then a feed
// refill filtered against used ids, then a synthetic placeholder. The game
// must never stall for lack of data.
func (s *State) nextHidden(ctx context.Context, feed TermFeed) Term {
	for len(s.PendingTerms) > 0 {
		t := s.PendingTerms[0]
		s.PendingTerms = s.PendingTerms[1:]
		if !s.UsedTermIDs[t.ID] {
			return t
		}
	}
	if feed != nil {
		for _, t := range feed.EnsureAvailable(ctx, s.Category, refillBatch) {
			if s.UsedTermIDs[t.ID] {
				continue
			}
			if s.HiddenTerm != nil && t.ID == s.HiddenTerm.ID {
				continue
			}
			s.PendingTerms = append(s.PendingTerms, t)
		}
		if len(s.PendingTerms) > 0 {
			t := s.PendingTerms[0]
			s.PendingTerms = s.PendingTerms[1:]
			return t
		}
	}
	// Pool exhausted; round+1 is the round the synthetic term appears in.
	return SyntheticTerm(s.ID, s.Category, s.Round+1)
}

// dedupe keeps the first occurrence of each term id, preserving order.
func dedupe(terms []Term) []Term {
	seen := make(map[string]bool, len(terms))
	out := make([]Term, 0, len(terms))
	for _, t := range terms {
		if t.ID == "" || seen[t.ID] {
			continue
		}
		seen[t.ID] = true
		out = append(out, t)
	}
	return out
}
