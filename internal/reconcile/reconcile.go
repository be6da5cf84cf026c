// internal/reconcile/reconcile.go
//
// Reconciliation of game states between the optimistic local cache and the
// authoritative store. Runs on every load from / write to the authoritative
// side (reconnects, page reloads), independent of the guess flow.
//
// Merge rule: the higher round wins. A state with a lower round for the same
// game id is stale by definition and is discarded, never merged: this
// defends round monotonicity against out-of-order writes from retried calls.

package reconcile

import (
	"github.com/rs/zerolog/log"

	"github.com/mfreitag/hilo-server/internal/game"
)

// Merge picks the trustworthy side of a local/remote pair. Either side may
// be nil. The result is nil only when both are.
func Merge(local, remote *game.State) *game.State {
	switch {
	case local == nil:
		return remote
	case remote == nil:
		return local
	}
	if local.ID != remote.ID {
		log.Error().Str("local", local.ID).Str("remote", remote.ID).Msg("reconcile: mismatched game ids, keeping local")
		return local
	}
	if remote.Round > local.Round {
		return remote
	}
	if local.Round > remote.Round {
		log.Info().Str("game", local.ID).
			Int("localRound", local.Round).Int("remoteRound", remote.Round).
			Msg("reconcile: local ahead of remote, local wins")
		return local
	}
	// Equal rounds: a finished state is further along than an active one at
	// the same round; otherwise prefer the authoritative copy.
	if local.Finished && !remote.Finished {
		return local
	}
	return remote
}

// Repair normalizes a structurally broken state so callers never crash on
// missing fields. A state that needed repair is logged because something
// upstream misbehaved.
func Repair(s *game.State) *game.State {
	if s == nil {
		return nil
	}
	repaired := false
	if s.Round < 1 {
		s.Round = 1
		repaired = true
	}
	if !validTerm(s.KnownTerm) {
		s.KnownTerm = placeholder(s, "known")
		repaired = true
	}
	if !validTerm(s.HiddenTerm) || s.HiddenTerm.ID == s.KnownTerm.ID {
		s.HiddenTerm = placeholder(s, "hidden")
		repaired = true
	}
	if s.UsedTermIDs == nil {
		s.UsedTermIDs = make(map[string]bool)
		repaired = true
	}
	if s.PendingTerms == nil {
		s.PendingTerms = []game.Term{}
		repaired = true
	}
	s.UsedTermIDs[s.KnownTerm.ID] = true
	s.UsedTermIDs[s.HiddenTerm.ID] = true
	if repaired {
		log.Warn().Str("game", s.ID).Msg("reconcile: repaired structurally invalid game state")
	}
	return s
}

// validTerm reports whether a persisted term is usable as-is.
func validTerm(t *game.Term) bool {
	return t != nil && t.ID != "" && t.Score >= game.MinScore && t.Score <= game.MaxScore
}

const placeholderScore = 1000

// placeholder builds a clearly-labeled stand-in term for a missing slot.
func placeholder(s *game.State, slot string) *game.Term {
	return &game.Term{
		ID:       "repaired-" + s.ID + "-" + slot,
		Text:     "(unavailable term)",
		Category: s.Category,
		Score:    placeholderScore,
	}
}
