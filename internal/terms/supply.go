// internal/terms/supply.go
//
// Term supply for the game engine.
//
// Responsibilities:
//   - Keep a per-category cache of fetched-but-unused terms plus the source
//     pagination cursor and a "more available" flag.
//   - EnsureAvailable: hand batches to callers, refetching from the remote
//     source only while it is known to have more (a short page flips the
//     flag off, so an exhausted category never triggers fruitless calls).
//   - Fall back to the embedded sample pool when the source errors or a
//     category would otherwise come up empty: gameplay never halts for
//     lack of terms.
//   - DrawCustom: seed a custom game with a synthesized term followed by
//     general-pool terms for depth.
//
// The supply is constructor-injected and holds no package-global state; the
// cache is scoped to whatever lifetime the caller gives the Supply value.

package terms

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/mfreitag/hilo-server/assets"
	"github.com/mfreitag/hilo-server/internal/game"
)

// GeneralCategory unions every category in the pool. "everything" is an
// accepted alias.
const GeneralCategory = "general"

const (
	defaultFetchLimit = 20
	customDrawDepth   = 12
)

// catCache is the per-category slice of the supply's state. Each category
// has its own lock so contention stays scoped.
type catCache struct {
	mu      sync.Mutex
	queue   []game.Term
	cursor  string
	hasMore bool
}

// Supply manages candidate terms for all categories.
type Supply struct {
	source     Source
	fetchLimit int

	mu     sync.Mutex
	byCat  map[string]*catCache
	sample []game.Term
}

// NewSupply builds a Supply over the given source. source may be nil, in
// which case only the embedded sample pool serves terms.
func NewSupply(source Source, fetchLimit int) (*Supply, error) {
	if fetchLimit <= 0 {
		fetchLimit = defaultFetchLimit
	}
	rows, err := assets.SampleTerms()
	if err != nil {
		return nil, fmt.Errorf("load sample terms: %w", err)
	}
	sample := make([]game.Term, 0, len(rows))
	for i, r := range rows {
		sample = append(sample, game.Term{
			ID:       fmt.Sprintf("sample-%s-%d", r.Category, i),
			Text:     r.Text,
			Category: r.Category,
			Score:    r.Score,
		})
	}
	return &Supply{
		source:     source,
		fetchLimit: fetchLimit,
		byCat:      make(map[string]*catCache),
		sample:     sample,
	}, nil
}

// EnsureAvailable returns up to min terms for category, consuming them from
// the per-category cache and refetching from the source while it reports
// more. It never returns an error: a failing source falls back to the sample
// pool, and an exhausted one returns what remains (callers synthesize from
// there).
func (s *Supply) EnsureAvailable(ctx context.Context, category string, min int) []game.Term {
	category = normalizeCategory(category)
	c := s.cat(category)

	c.mu.Lock()
	defer c.mu.Unlock()

	sourceFailed := false
	for len(c.queue) < min && c.hasMore && s.source != nil {
		page, err := s.source.Fetch(ctx, category, c.cursor, s.fetchLimit)
		if err != nil {
			log.Warn().Err(err).Str("category", category).Msg("term source unavailable, using sample pool")
			sourceFailed = true
			break
		}
		c.queue = append(c.queue, page.Terms...)
		c.cursor = page.NextCursor
		// A short page means the source has nothing further for this
		// category; stop asking until the process restarts.
		if len(page.Terms) < s.fetchLimit || !page.HasMore {
			c.hasMore = false
		}
	}

	out := c.take(min)

	// A failing source is topped up to the requested count; a merely
	// exhausted one only when it would leave the caller unable to play.
	if len(out) < min && (sourceFailed || len(out) < 2) {
		out = append(out, s.sampleBatch(category, min-len(out), out)...)
	}
	return out
}

// DrawCustom returns a batch for a custom game: a synthesized term for the
// seed text first, then unrelated general-pool terms for depth. The seed
// score is a deterministic best-effort estimate.
func (s *Supply) DrawCustom(ctx context.Context, seed string) []game.Term {
	seed = strings.TrimSpace(seed)
	head := game.Term{
		ID:       "custom-" + game.TermIDForSeed(seed),
		Text:     seed,
		Category: GeneralCategory,
		Score:    game.SeedScore(seed),
	}
	out := []game.Term{head}
	for _, t := range s.EnsureAvailable(ctx, GeneralCategory, customDrawDepth) {
		if t.ID != head.ID {
			out = append(out, t)
		}
	}
	return out
}

// Stats reports cached term counts per category and the sample pool size,
// for the debug endpoint.
func (s *Supply) Stats() (cached map[string]int, sampleSize int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cached = make(map[string]int, len(s.byCat))
	for name, c := range s.byCat {
		c.mu.Lock()
		cached[name] = len(c.queue)
		c.mu.Unlock()
	}
	return cached, len(s.sample)
}

// cat returns the cache bucket for category, creating it on first use.
func (s *Supply) cat(category string) *catCache {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.byCat[category]
	if !ok {
		c = &catCache{hasMore: true}
		s.byCat[category] = c
	}
	return c
}

// take pops up to n terms from the front of the queue.
func (c *catCache) take(n int) []game.Term {
	if n > len(c.queue) {
		n = len(c.queue)
	}
	out := append([]game.Term(nil), c.queue[:n]...)
	c.queue = c.queue[n:]
	return out
}

// sampleBatch draws up to n shuffled sample terms for category, skipping any
// ids already present in exclude.
func (s *Supply) sampleBatch(category string, n int, exclude []game.Term) []game.Term {
	used := make(map[string]bool, len(exclude))
	for _, t := range exclude {
		used[t.ID] = true
	}

	var pool []game.Term
	for _, t := range s.sample {
		if used[t.ID] {
			continue
		}
		if category == GeneralCategory || t.Category == category {
			pool = append(pool, t)
		}
	}
	rand.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	if n > len(pool) {
		n = len(pool)
	}
	return pool[:n]
}

// normalizeCategory lowercases and maps aliases of the general pool.
func normalizeCategory(category string) string {
	c := strings.ToLower(strings.TrimSpace(category))
	if c == "" || c == "everything" {
		return GeneralCategory
	}
	return c
}
