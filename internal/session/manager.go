// internal/session/manager.go
//
// Session manager: the seam between the HTTP surface and the game core.
// Responsibilities:
//   - StartGame: draw the opening batch (category or custom seed) and build
//     the initial state.
//   - Guess: the guarded guess path. One guess in flight per game id; a
//     duplicate concurrent call receives the in-flight result instead of
//     double-advancing the round.
//   - Per-game serialization: every state mutation (guess, refresh, end)
//     holds the same per-game lock, so a reconciliation read/write can never
//     interleave with a guess and regress the cached round.
//   - Two-tier persistence: the in-memory store is the optimistic local
//     cache and always reflects the engine's latest state; the authoritative
//     store is confirmed with a bounded retry budget. Only when the remote
//     stays unreachable after the budget does local remain authoritative,
//     and the discrepancy is logged.
//   - Refresh: explicit pull-based reconciliation of local vs remote (the
//     caller controls the cadence; nothing polls internally).
//   - EndGame: idempotent early termination.

package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/mfreitag/hilo-server/internal/game"
	"github.com/mfreitag/hilo-server/internal/reconcile"
	"github.com/mfreitag/hilo-server/internal/scores"
	"github.com/mfreitag/hilo-server/internal/store"
	"github.com/mfreitag/hilo-server/internal/terms"
)

// CustomCategory is the category assigned to user-seeded games.
const CustomCategory = "custom"

// ErrEmptySeed is returned when a custom game is requested with blank seed
// text. Rejected before any state is created.
var ErrEmptySeed = errors.New("custom seed text is empty")

const (
	startBatch    = 10
	remoteWrites  = 2 // attempts per remote confirmation
	remoteBackoff = 250 * time.Millisecond
)

// GuessResult is the outcome of one guess.
type GuessResult struct {
	Correct bool
	State   *game.State
}

// Manager coordinates the supply, the two store tiers, and the tracker.
type Manager struct {
	supply  *terms.Supply
	local   store.GameStore
	remote  store.GameStore
	tracker *scores.Tracker
	flight  singleflight.Group

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex

	remoteTimeout time.Duration
	// sleep is swapped out in tests.
	sleep func(time.Duration)
}

// NewManager wires a Manager. remote may equal local in tests.
func NewManager(supply *terms.Supply, local, remote store.GameStore, tracker *scores.Tracker, remoteTimeout time.Duration) *Manager {
	if remoteTimeout <= 0 {
		remoteTimeout = 3 * time.Second
	}
	return &Manager{
		supply:        supply,
		local:         local,
		remote:        remote,
		tracker:       tracker,
		locks:         make(map[string]*sync.Mutex),
		remoteTimeout: remoteTimeout,
		sleep:         time.Sleep,
	}
}

// StartGame creates a new game for playerID. A non-empty customSeed starts a
// custom game regardless of category; category "custom" without a seed is
// rejected.
func (m *Manager) StartGame(ctx context.Context, playerID, category, customSeed string) (*game.State, error) {
	customSeed = strings.TrimSpace(customSeed)
	var batch []game.Term
	switch {
	case customSeed != "":
		category = CustomCategory
		batch = m.supply.DrawCustom(ctx, customSeed)
	case strings.EqualFold(strings.TrimSpace(category), CustomCategory):
		return nil, ErrEmptySeed
	default:
		batch = m.supply.EnsureAvailable(ctx, category, startBatch)
	}

	st, err := game.Start(playerID, category, customSeed, batch)
	if err != nil {
		return nil, err
	}
	if err := m.local.Save(ctx, st); err != nil {
		return nil, err
	}
	m.confirmRemote(st)
	return st.Clone(), nil
}

// Guess applies a higher/lower guess to gameID. Calls for the same game id
// are single-flight: a concurrent duplicate shares the in-flight result.
// Distinct game ids proceed independently.
func (m *Manager) Guess(ctx context.Context, gameID string, guessedHigher bool) (GuessResult, error) {
	v, err, shared := m.flight.Do(gameID, func() (any, error) {
		return m.applyGuess(ctx, gameID, guessedHigher)
	})
	if shared {
		log.Debug().Str("game", gameID).Msg("concurrent guess shared in-flight result")
	}
	if err != nil {
		return GuessResult{}, err
	}
	return v.(GuessResult), nil
}

// lockGame serializes all mutations of gameID. Returns the unlock func.
func (m *Manager) lockGame(gameID string) func() {
	m.locksMu.Lock()
	l, ok := m.locks[gameID]
	if !ok {
		l = &sync.Mutex{}
		m.locks[gameID] = l
	}
	m.locksMu.Unlock()
	l.Lock()
	return l.Unlock
}

func (m *Manager) applyGuess(ctx context.Context, gameID string, guessedHigher bool) (GuessResult, error) {
	defer m.lockGame(gameID)()

	st, err := m.loadAnywhere(ctx, gameID)
	if err != nil {
		return GuessResult{}, err
	}
	if st.Finished {
		return GuessResult{}, game.ErrGameFinished
	}

	correct, err := st.ApplyGuess(ctx, m.supply, guessedHigher)
	if err != nil {
		return GuessResult{}, err
	}

	// Local first: the optimistic cache always carries the latest state.
	if err := m.local.Save(ctx, st); err != nil {
		return GuessResult{}, err
	}
	m.confirmRemote(st)

	if !correct {
		m.tracker.Record(st.PlayerID, st.Category, st.Score())
	}
	return GuessResult{Correct: correct, State: st.Clone()}, nil
}

// Refresh reconciles the local and remote copies of gameID and returns the
// result. The winning side is propagated to the losing one. Holds the game
// lock for the whole read-merge-write, so an interleaved guess cannot be
// overwritten by a stale snapshot.
func (m *Manager) Refresh(ctx context.Context, gameID string) (*game.State, error) {
	defer m.lockGame(gameID)()

	local, err := m.local.Load(ctx, gameID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	remote, err := m.loadRemote(ctx, gameID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		log.Warn().Err(err).Str("game", gameID).Msg("remote read failed during refresh")
	}

	merged := reconcile.Merge(local, remote)
	if merged == nil {
		return nil, store.ErrNotFound
	}
	merged = reconcile.Repair(merged)

	if err := m.local.Save(ctx, merged); err != nil {
		return nil, err
	}
	if remote == nil || merged.Round > remote.Round {
		m.confirmRemote(merged)
	}
	return merged.Clone(), nil
}

// EndGame terminates gameID early. Idempotent: ending a finished or unknown
// game is a no-op.
func (m *Manager) EndGame(ctx context.Context, gameID string) error {
	defer m.lockGame(gameID)()

	st, err := m.loadAnywhere(ctx, gameID)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if !st.Finished {
		st.Finish()
		m.tracker.Record(st.PlayerID, st.Category, st.Score())
		m.confirmRemote(st)
	}
	// The cache entry is dropped; the authoritative copy keeps the archive.
	return m.local.Delete(ctx, gameID)
}

// loadAnywhere reads the local cache first, then the authoritative store
// (repairing whatever comes back from disk).
func (m *Manager) loadAnywhere(ctx context.Context, gameID string) (*game.State, error) {
	st, err := m.local.Load(ctx, gameID)
	if err == nil {
		return st, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	st, err = m.loadRemote(ctx, gameID)
	if err != nil {
		return nil, err
	}
	st = reconcile.Repair(st)
	if err := m.local.Save(ctx, st); err != nil {
		return nil, err
	}
	return st, nil
}

func (m *Manager) loadRemote(ctx context.Context, gameID string) (*game.State, error) {
	rctx, cancel := context.WithTimeout(ctx, m.remoteTimeout)
	defer cancel()
	return m.remote.Load(rctx, gameID)
}

// confirmRemote pushes st to the authoritative store with a bounded retry
// budget. Failures never surface to the player: the local cache stays
// authoritative and the discrepancy is logged. Stale-write rejections are
// final: retrying an older round would violate monotonicity on purpose.
func (m *Manager) confirmRemote(st *game.State) {
	cp := st.Clone()
	var lastErr error
	for attempt := 0; attempt < remoteWrites; attempt++ {
		if attempt > 0 {
			m.sleep(remoteBackoff)
		}
		ctx, cancel := context.WithTimeout(context.Background(), m.remoteTimeout)
		lastErr = m.remote.Save(ctx, cp)
		cancel()
		if lastErr == nil {
			return
		}
		if errors.Is(lastErr, store.ErrStaleWrite) {
			log.Warn().Str("game", cp.ID).Int("round", cp.Round).
				Msg("authoritative store holds a newer round, write discarded")
			return
		}
	}
	log.Warn().Err(lastErr).Str("game", cp.ID).Int("round", cp.Round).
		Msg("remote confirmation exhausted retries, local state remains authoritative")
}
