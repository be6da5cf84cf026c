// internal/scores/tracker.go
//
// High-score tracker: per-player, per-category best with update-if-greater
// semantics. A local cache always reflects the latest locally known best and
// is updated synchronously; persistence to the authoritative store happens
// asynchronously with a small bounded retry budget. When the store stays
// unreachable the cache remains the source of truth until a later write
// syncs. Score persistence may lag but never blocks or fails gameplay.

package scores

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mfreitag/hilo-server/internal/game"
)

const (
	persistRetries = 2
	persistBackoff = 500 * time.Millisecond
	persistTimeout = 3 * time.Second
)

type cacheKey struct {
	playerID string
	category string
}

// Tracker records final scores and answers leaderboard reads.
type Tracker struct {
	store Store

	mu    sync.Mutex
	cache map[cacheKey]int

	wg sync.WaitGroup
	// sleep is swapped out in tests to avoid real backoff waits.
	sleep func(time.Duration)
}

// NewTracker builds a Tracker over the authoritative store.
func NewTracker(store Store) *Tracker {
	return &Tracker{
		store: store,
		cache: make(map[cacheKey]int),
		sleep: time.Sleep,
	}
}

// Record stores score for (playerID, category) if it beats the current best.
// Scores outside the plausibility window are rejected without touching any
// state. Lower-or-equal scores are a silent no-op, not an error.
//
// A cold cache (fresh process) is warmed from the store first, so a post-
// restart score cannot shadow a higher best already persisted.
func (t *Tracker) Record(playerID, category string, score int) {
	if score < game.MinScore || score > game.MaxScore {
		log.Warn().Str("player", playerID).Str("category", category).Int("score", score).
			Msg("rejecting implausible score")
		return
	}
	key := cacheKey{playerID, category}

	t.mu.Lock()
	_, warm := t.cache[key]
	t.mu.Unlock()
	if !warm {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		stored, err := t.store.Best(ctx, playerID, category)
		cancel()
		if err != nil {
			log.Warn().Err(err).Str("player", playerID).Msg("best score read failed, treating cache as cold zero")
		} else if stored > 0 {
			t.mu.Lock()
			if stored > t.cache[key] {
				t.cache[key] = stored
			}
			t.mu.Unlock()
		}
	}

	t.mu.Lock()
	if score <= t.cache[key] {
		t.mu.Unlock()
		return
	}
	t.cache[key] = score
	t.mu.Unlock()

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		t.persist(playerID, category, score)
	}()
}

// Best returns the locally known best, falling back to the store on a cold
// cache. Store failures degrade to the cached value.
func (t *Tracker) Best(ctx context.Context, playerID, category string) int {
	key := cacheKey{playerID, category}
	t.mu.Lock()
	cached, ok := t.cache[key]
	t.mu.Unlock()
	if ok {
		return cached
	}
	best, err := t.store.Best(ctx, playerID, category)
	if err != nil {
		log.Warn().Err(err).Str("player", playerID).Msg("best score read failed, using cache")
		return cached
	}
	t.mu.Lock()
	if best > t.cache[key] {
		t.cache[key] = best
	}
	t.mu.Unlock()
	return best
}

// Top is a read-only passthrough to the authoritative store.
func (t *Tracker) Top(ctx context.Context, category string, n int) ([]Entry, error) {
	return t.store.Top(ctx, category, n)
}

// Close waits for in-flight persists, so shutdown does not drop scores the
// store would have accepted.
func (t *Tracker) Close() {
	t.wg.Wait()
}

// persist attempts the remote write with a fixed-backoff retry budget.
// Exhausting the budget leaves the local cache authoritative; the next
// higher score for the pair retries naturally.
func (t *Tracker) persist(playerID, category string, score int) {
	var lastErr error
	for attempt := 0; attempt <= persistRetries; attempt++ {
		if attempt > 0 {
			t.sleep(persistBackoff)
		}
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		lastErr = t.store.Upsert(ctx, playerID, category, score)
		cancel()
		if lastErr == nil {
			return
		}
	}
	log.Warn().Err(lastErr).Str("player", playerID).Str("category", category).Int("score", score).
		Msg("high score persist failed, local cache remains source of truth")
}
