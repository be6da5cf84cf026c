package scores

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	_, err = db.Exec(`
		CREATE TABLE high_scores (
			player_id  TEXT NOT NULL,
			category   TEXT NOT NULL,
			best_score INTEGER NOT NULL,
			updated_at TEXT NOT NULL,
			PRIMARY KEY (player_id, category)
		)`)
	require.NoError(t, err)
	return db
}

func TestUpsertIsUpdateIfGreater(t *testing.T) {
	s := NewSQLStore(testDB(t))
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, "p1", "technology", 4))
	require.NoError(t, s.Upsert(ctx, "p1", "technology", 9))
	require.NoError(t, s.Upsert(ctx, "p1", "technology", 6)) // lower: kept out

	best, err := s.Best(ctx, "p1", "technology")
	require.NoError(t, err)
	assert.Equal(t, 9, best)
}

func TestBestMissingRowIsZero(t *testing.T) {
	s := NewSQLStore(testDB(t))
	best, err := s.Best(context.Background(), "ghost", "technology")
	require.NoError(t, err)
	assert.Equal(t, 0, best)
}

func TestTopOrdersByScore(t *testing.T) {
	s := NewSQLStore(testDB(t))
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, "p1", "movies", 3))
	require.NoError(t, s.Upsert(ctx, "p2", "movies", 8))
	require.NoError(t, s.Upsert(ctx, "p3", "movies", 5))
	require.NoError(t, s.Upsert(ctx, "p4", "music", 11)) // other category

	top, err := s.Top(ctx, "movies", 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, Entry{PlayerID: "p2", Score: 8}, top[0])
	assert.Equal(t, Entry{PlayerID: "p3", Score: 5}, top[1])
}
