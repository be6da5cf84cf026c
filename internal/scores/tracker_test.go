package scores

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore records upserts and can be told to fail.
type fakeStore struct {
	mu      sync.Mutex
	best    map[string]int
	upserts int
	fail    bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{best: make(map[string]int)}
}

func (f *fakeStore) Best(_ context.Context, playerID, category string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return 0, errors.New("store down")
	}
	return f.best[playerID+"/"+category], nil
}

func (f *fakeStore) Upsert(_ context.Context, playerID, category string, score int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts++
	if f.fail {
		return errors.New("store down")
	}
	k := playerID + "/" + category
	if score > f.best[k] {
		f.best[k] = score
	}
	return nil
}

func (f *fakeStore) Top(_ context.Context, _ string, _ int) ([]Entry, error) {
	return nil, nil
}

func (f *fakeStore) upsertCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.upserts
}

func newTestTracker(fs *fakeStore) *Tracker {
	tr := NewTracker(fs)
	tr.sleep = func(time.Duration) {} // no real waiting in tests
	return tr
}

func TestRecordMonotonic(t *testing.T) {
	fs := newFakeStore()
	tr := newTestTracker(fs)

	tr.Record("p1", "technology", 7)
	tr.Record("p1", "technology", 4) // lower: no-op everywhere
	tr.Close()

	assert.Equal(t, 7, tr.Best(context.Background(), "p1", "technology"))
	assert.Equal(t, 7, fs.best["p1/technology"])
	assert.Equal(t, 1, fs.upsertCount(), "lower score must not reach the store")
}

func TestRecordRejectsImplausibleScores(t *testing.T) {
	fs := newFakeStore()
	tr := newTestTracker(fs)

	tr.Record("p1", "technology", -1)
	tr.Record("p1", "technology", 10001)
	tr.Close()

	assert.Equal(t, 0, tr.Best(context.Background(), "p1", "technology"))
	assert.Equal(t, 0, fs.upsertCount())
}

func TestRecordRetriesThenFallsBackToCache(t *testing.T) {
	fs := newFakeStore()
	fs.fail = true
	tr := newTestTracker(fs)

	tr.Record("p1", "movies", 5)
	tr.Close()

	// initial attempt + 2 retries
	assert.Equal(t, 3, fs.upsertCount())
	// local cache stays authoritative while the store is down
	fs.fail = false
	assert.Equal(t, 5, tr.Best(context.Background(), "p1", "movies"))
}

func TestRecordColdCacheConsultsStore(t *testing.T) {
	fs := newFakeStore()
	fs.best["p1/technology"] = 9 // persisted before a restart
	tr := newTestTracker(fs)

	tr.Record("p1", "technology", 3)
	tr.Close()

	assert.Equal(t, 9, tr.Best(context.Background(), "p1", "technology"),
		"a post-restart score must not shadow the persisted best")
	assert.Equal(t, 0, fs.upsertCount())
	assert.Equal(t, 9, fs.best["p1/technology"])
}

func TestBestColdCacheReadsStore(t *testing.T) {
	fs := newFakeStore()
	fs.best["p1/music"] = 9
	tr := newTestTracker(fs)

	require.Equal(t, 9, tr.Best(context.Background(), "p1", "music"))

	// Follow-up reads hit the warmed cache even if the store goes away.
	fs.fail = true
	assert.Equal(t, 9, tr.Best(context.Background(), "p1", "music"))
}

func TestRecordPerPairIndependence(t *testing.T) {
	fs := newFakeStore()
	tr := newTestTracker(fs)

	tr.Record("p1", "technology", 3)
	tr.Record("p1", "movies", 8)
	tr.Record("p2", "technology", 6)
	tr.Close()

	ctx := context.Background()
	assert.Equal(t, 3, tr.Best(ctx, "p1", "technology"))
	assert.Equal(t, 8, tr.Best(ctx, "p1", "movies"))
	assert.Equal(t, 6, tr.Best(ctx, "p2", "technology"))
}
