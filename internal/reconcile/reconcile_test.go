package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mfreitag/hilo-server/internal/game"
)

func state(id string, round int) *game.State {
	return &game.State{
		ID:          id,
		Category:    "technology",
		Round:       round,
		KnownTerm:   &game.Term{ID: "k", Score: 100},
		HiddenTerm:  &game.Term{ID: "h", Score: 200},
		Started:     true,
		UsedTermIDs: map[string]bool{"k": true, "h": true},
	}
}

func TestMergeHigherRoundWins(t *testing.T) {
	local := state("g1", 5)
	remote := state("g1", 3)
	assert.Same(t, local, Merge(local, remote), "local round 5 beats remote round 3")

	remote = state("g1", 7)
	assert.Same(t, remote, Merge(local, remote), "remote round 7 beats local round 5")
}

func TestMergeNilSides(t *testing.T) {
	s := state("g1", 2)
	assert.Same(t, s, Merge(nil, s))
	assert.Same(t, s, Merge(s, nil))
	assert.Nil(t, Merge(nil, nil))
}

func TestMergeEqualRounds(t *testing.T) {
	local := state("g1", 4)
	remote := state("g1", 4)
	assert.Same(t, remote, Merge(local, remote), "tie prefers the authoritative copy")

	local.Finished = true
	assert.Same(t, local, Merge(local, remote), "a finished state is further along")
}

// Needing Repair at all means something upstream corrupted persisted state;
// these tests pin the safety net, not a supported code path.
func TestRepairMissingTerms(t *testing.T) {
	s := &game.State{ID: "g1", Category: "movies", Round: 3, Started: true}
	got := Repair(s)
	require.NotNil(t, got.KnownTerm)
	require.NotNil(t, got.HiddenTerm)
	assert.NotEqual(t, got.KnownTerm.ID, got.HiddenTerm.ID)
	assert.Contains(t, got.KnownTerm.ID, "repaired-")
	assert.NotNil(t, got.UsedTermIDs)
	assert.NotNil(t, got.PendingTerms)
	assert.Equal(t, 3, got.Round)
}

func TestRepairImplausibleScore(t *testing.T) {
	s := state("g1", 2)
	s.HiddenTerm.Score = -40
	got := Repair(s)
	assert.Contains(t, got.HiddenTerm.ID, "repaired-")
	assert.GreaterOrEqual(t, got.HiddenTerm.Score, game.MinScore)
}

func TestRepairFloorsRound(t *testing.T) {
	s := state("g1", 0)
	assert.Equal(t, 1, Repair(s).Round)
}

func TestRepairNil(t *testing.T) {
	assert.Nil(t, Repair(nil))
}
